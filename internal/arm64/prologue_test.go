package arm64

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/mir"
)

func TestAddPrologueEpilogueSkippedForBareLeaf(t *testing.T) {
	fn := mir.Func{Name: "f", IsLeaf: true, Instrs: []mir.Instr{{Op: mir.OpRet}}}
	out := AddPrologueEpilogue(fn, nil)
	assert.Equal(t, fn.Instrs, out.Instrs)
}

func TestAddPrologueEpilogueEmitsPairedStpLdp(t *testing.T) {
	fn := mir.Func{Name: "f", IsLeaf: false, Instrs: []mir.Instr{{Op: mir.OpRet}}}
	out := AddPrologueEpilogue(fn, nil)

	require.NotEmpty(t, out.Instrs)
	assert.Equal(t, mir.OpStp, out.Instrs[0].Op)
	assert.Less(t, out.Instrs[0].Offset, int64(0), "the prologue stp must be pre-indexed (negative offset)")

	var sawLdp bool
	for _, instr := range out.Instrs {
		if instr.Op == mir.OpLdp {
			sawLdp = true
			assert.Greater(t, instr.Offset, int64(0), "the epilogue ldp must be post-indexed (positive offset)")
		}
	}
	assert.True(t, sawLdp, "a non-leaf function's epilogue must restore x29/x30 via ldp")
}

func TestAddPrologueEpilogueRenderedTextMatchesP6(t *testing.T) {
	fn := mir.Func{Name: "f", IsLeaf: false, Instrs: []mir.Instr{{Op: mir.OpRet}}}
	out := AddPrologueEpilogue(fn, nil)

	text := Emit(&il.Module{}, []mir.Func{out})
	assert.True(t, strings.Contains(text, "stp x29, x30"), "rendered assembly must contain the literal property-P6 substring")
	assert.True(t, strings.Contains(text, "ldp x29, x30"))
}

func TestAddPrologueEpilogueSavesCalleeRegistersAroundThePair(t *testing.T) {
	fn := mir.Func{Name: "f", IsLeaf: false, Instrs: []mir.Instr{{Op: mir.OpRet}}}
	usedCallee := map[mir.Reg]bool{{Class: mir.GPR, Num: 19}: true}
	out := AddPrologueEpilogue(fn, usedCallee)

	var sawCalleeStore, sawCalleeLoad bool
	for _, instr := range out.Instrs {
		if instr.Op == mir.OpStr && instr.Src1 == (mir.Reg{Class: mir.GPR, Num: 19}) {
			sawCalleeStore = true
		}
		if instr.Op == mir.OpLdr && instr.Dst == (mir.Reg{Class: mir.GPR, Num: 19}) {
			sawCalleeLoad = true
		}
	}
	assert.True(t, sawCalleeStore)
	assert.True(t, sawCalleeLoad)
}
