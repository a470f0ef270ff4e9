package lower

import (
	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/source"
)

// String ownership is reference-counted at the ABI boundary: every `Str`
// value a lowerer hands to a call, a store, or a return must be retained
// first, and every `Str`-typed local goes out of scope through a release.
// These two helpers are the only places a lowerer inserts that traffic, so
// every call site stays a one-line decision instead of ad hoc rt_* calls
// scattered through expression lowering.

const (
	externStrRetain  = "rt_str_retain_maybe"
	externStrRelease = "rt_str_release_maybe"
)

// EmitRetainMaybe retains v if it is string-typed and returns v unchanged
// (retain is idempotent on the value identity, only the refcount side
// effect matters). Non-string values pass through untouched.
func EmitRetainMaybe(b *il.Builder, loc source.Loc, v il.Value) il.Value {
	if v.Ty != il.Str {
		return v
	}
	b.EmitVoid(il.OpCall, loc, il.GlobalRef(il.Ptr, externStrRetain), v)
	return v
}

// EmitReleaseMaybe releases v if it is string-typed; it is a no-op for every
// other type, so callers can call it unconditionally at scope exit.
func EmitReleaseMaybe(b *il.Builder, loc source.Loc, v il.Value) {
	if v.Ty != il.Str {
		return
	}
	b.EmitVoid(il.OpCall, loc, il.GlobalRef(il.Ptr, externStrRelease), v)
}

// ReleaseAll releases every string-typed value in vs, in order, at a scope
// boundary (end of a block, early return, loop-continue).
func ReleaseAll(b *il.Builder, loc source.Loc, vs []il.Value) {
	for _, v := range vs {
		EmitReleaseMaybe(b, loc, v)
	}
}
