package ilio

import (
	"fmt"
	"strings"
)

// escapeBytes renders raw bytes as a canonical C-style escaped string body
// (without surrounding quotes). Newline, tab and carriage return use \n, \t
// and \r; backslash and double quote are backslash-escaped; other printable
// ASCII passes through unchanged; every remaining byte (including embedded
// NUL) becomes \xNN so the encoding round-trips byte-exactly through
// parse ∘ serialize.
func escapeBytes(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		switch c {
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		default:
			if c >= 0x20 && c < 0x7f {
				sb.WriteByte(c)
			} else {
				fmt.Fprintf(&sb, `\x%02x`, c)
			}
		}
	}
	return sb.String()
}
