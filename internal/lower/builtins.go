package lower

import (
	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/source"
)

// BuiltinLowerFunc lowers a call to a frontend builtin (a standard-library
// function with no user-level declaration) into IL at the builder's current
// insertion point, returning the resulting value.
type BuiltinLowerFunc func(b *il.Builder, loc source.Loc, args []il.Value) il.Value

// BuiltinRegistry is a table-driven dispatch from a builtin's source name to
// its lowering function, so frontends register their own standard library
// without this package knowing any of their names up front.
type BuiltinRegistry struct {
	funcs map[string]BuiltinLowerFunc
}

// NewBuiltinRegistry returns an empty registry.
func NewBuiltinRegistry() *BuiltinRegistry {
	return &BuiltinRegistry{funcs: map[string]BuiltinLowerFunc{}}
}

// Register adds or replaces the lowering function for name.
func (r *BuiltinRegistry) Register(name string, fn BuiltinLowerFunc) {
	r.funcs[name] = fn
}

// Lookup returns the lowering function registered for name, if any.
func (r *BuiltinRegistry) Lookup(name string) (BuiltinLowerFunc, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// CallExtern is the common shape most builtins lower to: a direct extern
// call forwarding every argument unchanged.
func CallExtern(externName string, retTy il.Type) BuiltinLowerFunc {
	return func(b *il.Builder, loc source.Loc, args []il.Value) il.Value {
		operands := append([]il.Value{il.GlobalRef(il.Ptr, externName)}, args...)
		if retTy == il.Void {
			b.EmitVoid(il.OpCall, loc, operands...)
			return il.Value{}
		}
		return b.EmitValue(il.OpCall, retTy, loc, operands...)
	}
}
