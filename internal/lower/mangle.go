package lower

import "strings"

// Mangle produces the IL-level symbol name for a source-level entity. The
// scheme is deliberately simple: dot-separated scope path, sanitized so it
// survives the IL text grammar's identifier rules (no embedded whitespace,
// no '@').
func Mangle(scope []string, name string) string {
	parts := make([]string, 0, len(scope)+1)
	for _, s := range scope {
		parts = append(parts, sanitize(s))
	}
	parts = append(parts, sanitize(name))
	return strings.Join(parts, ".")
}

func sanitize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// MangleMethod builds the mangled name for a method on a receiver type,
// used by the vtable/itable dispatch helpers to name their generated
// indirect-call targets.
func MangleMethod(receiverType, method string) string {
	return sanitize(receiverType) + "$" + sanitize(method)
}
