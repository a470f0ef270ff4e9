package lower

import (
	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/source"
)

// Virtual and interface method calls both resolve to a function pointer at
// runtime rather than at lowering time, so both go through call_indirect
// against a pointer produced by one of these two runtime lookups. The
// lowerer only ever needs to know the slot index (vtable) or the interface
// id plus slot index (itable); the runtime bridge (internal/rt) owns the
// actual layout.

const (
	externVtableLookup  = "rt_vtable_lookup"
	externInterfaceImpl = "rt_get_interface_impl"
)

// LowerVirtualCall emits the vtable lookup for a virtual method call on
// receiver at slot, then an indirect call through the resulting pointer
// with args (receiver included if the callee expects it as its first
// parameter — that convention is the frontend's to choose, this helper just
// lowers the two IL operations).
func LowerVirtualCall(b *il.Builder, loc source.Loc, receiver il.Value, slot int32, retTy il.Type, args []il.Value) il.Value {
	fnPtr := b.EmitValue(il.OpCall, il.Ptr, loc,
		il.GlobalRef(il.Ptr, externVtableLookup), receiver, il.ConstInt(il.I32, int64(slot)))
	operands := append([]il.Value{fnPtr}, args...)
	if retTy == il.Void {
		b.EmitVoid(il.OpCallIndirect, loc, operands...)
		return il.Value{}
	}
	return b.EmitValue(il.OpCallIndirect, retTy, loc, operands...)
}

// LowerInterfaceCall emits the interface-impl lookup for a call through an
// interface value identified by ifaceID, then an indirect call through the
// resulting pointer.
func LowerInterfaceCall(b *il.Builder, loc source.Loc, receiver il.Value, ifaceID int32, methodSlot int32, retTy il.Type, args []il.Value) il.Value {
	fnPtr := b.EmitValue(il.OpCall, il.Ptr, loc,
		il.GlobalRef(il.Ptr, externInterfaceImpl), receiver,
		il.ConstInt(il.I32, int64(ifaceID)), il.ConstInt(il.I32, int64(methodSlot)))
	operands := append([]il.Value{fnPtr}, args...)
	if retTy == il.Void {
		b.EmitVoid(il.OpCallIndirect, loc, operands...)
		return il.Value{}
	}
	return b.EmitValue(il.OpCallIndirect, retTy, loc, operands...)
}
