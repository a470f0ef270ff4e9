package arm64

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viperlang/ilc/internal/mir"
)

func x(n int) mir.Reg { return mir.Reg{Class: mir.GPR, Num: n} }

func TestPeepholeIdentityMoveRemoved(t *testing.T) {
	fn := mir.Func{Name: "f", Instrs: []mir.Instr{
		{Op: mir.OpMovRR, Dst: x(0), Src1: x(1)},
		{Op: mir.OpMovRR, Dst: x(2), Src1: x(2)},
		{Op: mir.OpRet},
	}}
	got := Peephole(fn)
	require.Len(t, got.Instrs, 2)
	assert.Equal(t, mir.OpMovRR, got.Instrs[0].Op)
	assert.Equal(t, mir.OpRet, got.Instrs[1].Op)
}

func TestPeepholeBranchToFallthroughRemoved(t *testing.T) {
	fn := mir.Func{Name: "f", Instrs: []mir.Instr{
		{Op: mir.OpB, Label: "L1"},
		{Op: mir.OpLabel, Label: "L1"},
		{Op: mir.OpRet},
	}}
	got := Peephole(fn)
	require.Len(t, got.Instrs, 2)
	assert.Equal(t, mir.OpLabel, got.Instrs[0].Op)
}

func TestPeepholeZeroImmediateCollapsesToMove(t *testing.T) {
	fn := mir.Func{Name: "f", Instrs: []mir.Instr{
		{Op: mir.OpAddRI, Dst: x(0), Src1: x(1), Imm: 0},
		{Op: mir.OpRet},
	}}
	got := Peephole(fn)
	require.Len(t, got.Instrs, 2)
	assert.Equal(t, mir.OpMovRR, got.Instrs[0].Op)
	assert.Equal(t, x(0), got.Instrs[0].Dst)
	assert.Equal(t, x(1), got.Instrs[0].Src1)
}

func TestPeepholeZeroImmediateIdentityDropped(t *testing.T) {
	fn := mir.Func{Name: "f", Instrs: []mir.Instr{
		{Op: mir.OpSubRI, Dst: x(3), Src1: x(3), Imm: 0},
		{Op: mir.OpRet},
	}}
	got := Peephole(fn)
	require.Len(t, got.Instrs, 1)
	assert.Equal(t, mir.OpRet, got.Instrs[0].Op)
}

func TestPeepholeCmpZeroBecomesTst(t *testing.T) {
	fn := mir.Func{Name: "f", Instrs: []mir.Instr{
		{Op: mir.OpCmpRI, Src1: x(0), Imm: 0},
		{Op: mir.OpCmpRI, Src1: x(1), Imm: 5},
		{Op: mir.OpRet},
	}}
	got := Peephole(fn)
	require.Len(t, got.Instrs, 3)
	assert.Equal(t, mir.OpTstRR, got.Instrs[0].Op)
	assert.Equal(t, x(0), got.Instrs[0].Src1)
	assert.Equal(t, x(0), got.Instrs[0].Src2)
	assert.Equal(t, mir.OpCmpRI, got.Instrs[1].Op)
}

func TestPeepholeConsecutiveMovesFolded(t *testing.T) {
	fn := mir.Func{Name: "f", Instrs: []mir.Instr{
		{Op: mir.OpMovRR, Dst: x(1), Src1: x(2)},
		{Op: mir.OpMovRR, Dst: x(3), Src1: x(1)},
		{Op: mir.OpRet},
	}}
	got := Peephole(fn)
	require.Len(t, got.Instrs, 2)
	assert.Equal(t, mir.OpMovRR, got.Instrs[0].Op)
	assert.Equal(t, x(3), got.Instrs[0].Dst)
	assert.Equal(t, x(2), got.Instrs[0].Src1)
}

func TestPeepholeConsecutiveMovesNotFoldedWhenIntermediateLive(t *testing.T) {
	fn := mir.Func{Name: "f", Instrs: []mir.Instr{
		{Op: mir.OpMovRR, Dst: x(1), Src1: x(2)},
		{Op: mir.OpMovRR, Dst: x(3), Src1: x(1)},
		{Op: mir.OpAddRRR, Dst: x(4), Src1: x(1), Src2: x(5)},
		{Op: mir.OpRet},
	}}
	got := Peephole(fn)
	require.Len(t, got.Instrs, 4)
	assert.Equal(t, mir.OpMovRR, got.Instrs[0].Op)
	assert.Equal(t, x(1), got.Instrs[0].Dst)
}

func TestPeepholeIsIdempotent(t *testing.T) {
	fn := mir.Func{Name: "f", Instrs: []mir.Instr{
		{Op: mir.OpAddRI, Dst: x(0), Src1: x(0), Imm: 0},
		{Op: mir.OpCmpRI, Src1: x(1), Imm: 0},
		{Op: mir.OpMovRR, Dst: x(2), Src1: x(3)},
		{Op: mir.OpMovRR, Dst: x(4), Src1: x(2)},
		{Op: mir.OpB, Label: "done"},
		{Op: mir.OpLabel, Label: "done"},
		{Op: mir.OpRet},
	}}
	once := Peephole(fn)
	twice := Peephole(once)
	assert.Equal(t, once.Instrs, twice.Instrs)
}
