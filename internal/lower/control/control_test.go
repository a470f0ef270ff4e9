package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/lower"
	"github.com/viperlang/ilc/internal/source"
)

func newFuncBuilder(name string) (*il.Builder, *il.Function) {
	fn := &il.Function{Name: name, RetType: il.Void}
	return il.NewBuilder(fn), fn
}

func TestLowerWhileProducesHeadBodyDoneBlocks(t *testing.T) {
	b, fn := newFuncBuilder("f")
	entry := b.NewBlock("entry")
	namer := lower.NewBlockNamer()

	cond := func(b *il.Builder) il.Value {
		return b.EmitValue(il.OpICmpEq, il.I1, source.Loc{}, il.ConstInt(il.I64, 1), il.ConstInt(il.I64, 1))
	}
	var bodyRan bool
	LowerWhile(b, namer, cond, func(b *il.Builder) { bodyRan = true }, source.Loc{})

	assert.True(t, bodyRan)
	require.True(t, entry.Terminated)

	labels := map[string]bool{}
	for _, blk := range fn.Blocks {
		labels[blk.Label] = true
	}
	assert.True(t, labels["while.head"])
	assert.True(t, labels["while.body"])
	assert.True(t, labels["while.done"])

	head := fn.BlockByLabel("while.head")
	require.True(t, head.Terminated)
	require.Len(t, head.Instrs, 2) // the cmp plus the cbr
	assert.Equal(t, il.OpCBr, head.Instrs[len(head.Instrs)-1].Op)
}

func TestLowerRepeatRunsBodyBeforeTest(t *testing.T) {
	b, fn := newFuncBuilder("f")
	b.NewBlock("entry")
	namer := lower.NewBlockNamer()

	LowerRepeat(b, namer,
		func(b *il.Builder) {},
		func(b *il.Builder) il.Value {
			return b.EmitValue(il.OpICmpEq, il.I1, source.Loc{}, il.ConstInt(il.I64, 0), il.ConstInt(il.I64, 0))
		},
		source.Loc{})

	body := fn.BlockByLabel("repeat.body")
	require.NotNil(t, body)
	require.True(t, body.Terminated)
	assert.Equal(t, il.OpCBr, body.Instrs[len(body.Instrs)-1].Op)
}

func TestLowerForThreadsInductionVariable(t *testing.T) {
	b, fn := newFuncBuilder("f")
	b.NewBlock("entry")
	namer := lower.NewBlockNamer()

	var seenIV []il.Value
	LowerFor(b, namer,
		il.ConstInt(il.I64, 0), il.ConstInt(il.I64, 10), il.ConstInt(il.I64, 1),
		func(b *il.Builder, iv il.Value) { seenIV = append(seenIV, iv) },
		source.Loc{})

	require.Len(t, seenIV, 1)
	assert.Equal(t, il.BlockParamKind, seenIV[0].Kind)

	head := fn.BlockByLabel("for.head")
	require.NotNil(t, head)
	require.Len(t, head.Params, 1)
	assert.Equal(t, "iv", head.Params[0].Name)
}

func TestLowerTryCatchBuildsEHSkeleton(t *testing.T) {
	b, fn := newFuncBuilder("f")
	b.NewBlock("entry")
	namer := lower.NewBlockNamer()

	var gotErr, gotTok bool
	LowerTryCatch(b, namer,
		func(b *il.Builder) {},
		func(b *il.Builder, errVal, token il.Value) {
			gotErr = errVal.Ty == il.Error
			gotTok = token.Ty == il.ResumeTok
		},
		source.Loc{})

	assert.True(t, gotErr)
	assert.True(t, gotTok)

	handler := fn.BlockByLabel("catch")
	require.NotNil(t, handler)
	require.Len(t, handler.Params, 2)
	assert.Equal(t, il.OpEHEntry, handler.Instrs[0].Op)

	entry := fn.BlockByLabel("entry")
	found := false
	for _, instr := range entry.Instrs {
		if instr.Op == il.OpEHPush {
			found = true
			require.Equal(t, []string{"catch"}, instr.Labels)
		}
	}
	assert.True(t, found)
}

func TestSelectModelBuilderNarrowsAndFlagsOutOfRange(t *testing.T) {
	smb := NewSelectModelBuilder()
	smb.AddNumericLabel(5, 0, source.Loc{})
	smb.AddNumericLabel(int64(1)<<40, 1, source.Loc{}) // out of int32 range

	model, diags := smb.Build()
	require.Len(t, model.NumericLabels, 1)
	assert.Equal(t, int32(5), model.NumericLabels[0].Value)
	require.Len(t, diags, 1)
	assert.Equal(t, DiagSelectCaseLabelRange, diags[0].Code)
}

func TestSelectModelBuilderTracksCaseElseAndRanges(t *testing.T) {
	smb := NewSelectModelBuilder()
	smb.AddNumericRange(1, 10, 0, source.Loc{})
	smb.SetCaseElse(1)

	model, diags := smb.Build()
	assert.Empty(t, diags)
	assert.True(t, model.HasNumericRanges)
	assert.True(t, model.HasCaseElse)
	assert.Equal(t, 1, model.ElseArmIndex)
	assert.Equal(t, 2, model.ArmCount)
}

func TestLowerSelectNumericSwitchDispatchesExactLabels(t *testing.T) {
	b, fn := newFuncBuilder("f")
	b.NewBlock("entry")
	namer := lower.NewBlockNamer()

	smb := NewSelectModelBuilder()
	smb.AddNumericLabel(1, 0, source.Loc{})
	smb.AddNumericLabel(2, 1, source.Loc{})
	model, diags := smb.Build()
	require.Empty(t, diags)

	selector := il.ConstInt(il.I32, 1)
	var armsRun []int
	LowerSelect(b, namer, model, selector, "select.end",
		func(b *il.Builder, armIndex int) {
			armsRun = append(armsRun, armIndex)
			b.EmitBr(source.Loc{}, "select.end")
		}, source.Loc{})

	entry := fn.BlockByLabel("entry")
	require.True(t, entry.Terminated)
	assert.Equal(t, il.OpSwitchI32, entry.Instrs[len(entry.Instrs)-1].Op)
	assert.ElementsMatch(t, []int{0, 1}, armsRun)
	assert.NotNil(t, fn.BlockByLabel("select.end"))
}

func TestLowerSelectStringDispatchUsesEqualityChain(t *testing.T) {
	b, fn := newFuncBuilder("f")
	b.NewBlock("entry")
	namer := lower.NewBlockNamer()

	smb := NewSelectModelBuilder()
	smb.AddStringLabel("a", 0, source.Loc{})
	model, diags := smb.Build()
	require.Empty(t, diags)

	selector := il.ConstStrRef(".L0")
	LowerSelect(b, namer, model, selector, "select.end",
		func(b *il.Builder, armIndex int) { b.EmitBr(source.Loc{}, "select.end") }, source.Loc{})

	found := false
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			if instr.Op == il.OpCall {
				for _, op := range instr.Operands {
					if op.Sym == externStrEq {
						found = true
					}
				}
			}
		}
	}
	assert.True(t, found, "expected an rt_str_eq call somewhere in the lowered dispatch")
}
