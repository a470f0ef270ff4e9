package arm64

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/mir"
	"github.com/viperlang/ilc/internal/source"
)

func TestSelectBinaryAddAssignsFreshVRegsAndEmitsAddRRR(t *testing.T) {
	fn := &il.Function{Name: "f", RetType: il.I64}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	sum := b.EmitValue(il.OpAdd, il.I64, source.Loc{}, il.ConstInt(il.I64, 2), il.ConstInt(il.I64, 3))
	b.EmitRet(source.Loc{}, &sum)

	sel := Select(fn)

	var sawAdd bool
	for _, vi := range sel.Instrs {
		if vi.Op == mir.OpAddRRR {
			sawAdd = true
			assert.True(t, vi.HasDst)
			assert.True(t, vi.HasSrc1)
			assert.True(t, vi.HasSrc2)
		}
	}
	assert.True(t, sawAdd, "expected an AddRRR instruction in the selection")
	assert.Contains(t, sel.ValueReg, sum.ID)
}

func TestSelectFloatBinaryUsesFloatOpcode(t *testing.T) {
	fn := &il.Function{Name: "f", RetType: il.F64}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	sum := b.EmitValue(il.OpAdd, il.F64, source.Loc{}, il.ConstFloat(1.5), il.ConstFloat(2.5))
	b.EmitRet(source.Loc{}, &sum)

	sel := Select(fn)

	var sawFAdd bool
	for _, vi := range sel.Instrs {
		if vi.Op == mir.OpFAddRRR {
			sawFAdd = true
		}
	}
	assert.True(t, sawFAdd)
}

func TestSelectFloatImmediateUsesSentinelOffset(t *testing.T) {
	fn := &il.Function{Name: "f", RetType: il.F64}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	sum := b.EmitValue(il.OpAdd, il.F64, source.Loc{}, il.ConstFloat(1.5), il.ConstFloat(2.5))
	b.EmitRet(source.Loc{}, &sum)

	sel := Select(fn)

	var sawImm bool
	for _, vi := range sel.Instrs {
		if vi.Op == mir.OpFMovRR && !vi.HasSrc1 {
			sawImm = true
			assert.Less(t, vi.Offset, int64(0), "an immediate-load FMovRR must carry the negative sentinel offset")
		}
	}
	assert.True(t, sawImm)
}

func TestSelectShiftByConstantUsesImmediateForm(t *testing.T) {
	fn := &il.Function{Name: "f", RetType: il.I64}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	shifted := b.EmitValue(il.OpShl, il.I64, source.Loc{}, il.ConstInt(il.I64, 4), il.ConstInt(il.I64, 2))
	b.EmitRet(source.Loc{}, &shifted)

	sel := Select(fn)

	var found *VInstr
	for i := range sel.Instrs {
		if sel.Instrs[i].Op == mir.OpLslRI && sel.Instrs[i].HasDst {
			found = &sel.Instrs[i]
		}
	}
	require.NotNil(t, found)
	assert.False(t, found.HasSrc2, "a constant shift amount should not need a second source register")
}

func TestSelectCompareEmitsCmpThenCset(t *testing.T) {
	fn := &il.Function{Name: "f", RetType: il.I1}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	cmp := b.EmitValue(il.OpSCmpLT, il.I1, source.Loc{}, il.ConstInt(il.I64, 1), il.ConstInt(il.I64, 2))
	b.EmitRet(source.Loc{}, &cmp)

	sel := Select(fn)

	idx := -1
	for i, vi := range sel.Instrs {
		if vi.Op == mir.OpCmpRR {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	require.Less(t, idx+1, len(sel.Instrs))
	next := sel.Instrs[idx+1]
	assert.Equal(t, mir.OpCset, next.Op)
	assert.Equal(t, mir.CondLT, next.Cond)
}

func TestSelectCallSitesCountedAndNotLeaf(t *testing.T) {
	fn := &il.Function{Name: "f", RetType: il.Void}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	b.EmitVoid(il.OpCall, source.Loc{}, il.GlobalRef(il.Ptr, "other"))
	b.EmitRet(source.Loc{}, nil)

	sel := Select(fn)
	assert.Equal(t, 1, sel.CallSites)
	assert.False(t, sel.IsLeaf)
}

func TestSelectNoCallsIsLeaf(t *testing.T) {
	fn := &il.Function{Name: "f", RetType: il.I64}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	five := il.ConstInt(il.I64, 5)
	b.EmitRet(source.Loc{}, &five)

	sel := Select(fn)
	assert.Equal(t, 0, sel.CallSites)
	assert.True(t, sel.IsLeaf)
}

func TestSelectBlockLabelsAreQualifiedByFunctionName(t *testing.T) {
	fn := &il.Function{Name: "myfunc", RetType: il.Void}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	b.EmitRet(source.Loc{}, nil)

	sel := Select(fn)
	require.NotEmpty(t, sel.Instrs)
	assert.Equal(t, "myfunc.entry", sel.Instrs[0].Label)
}
