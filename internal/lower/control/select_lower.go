package control

import (
	"fmt"
	"sort"

	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/lower"
	"github.com/viperlang/ilc/internal/source"
)

const externStrEq = "rt_str_eq"

// ArmEmitter lowers the body of one CASE arm at the builder's current
// insertion point. It may leave the block unterminated, in which case
// LowerSelect adds a branch to the end block as the common fall-through.
type ArmEmitter func(b *il.Builder, armIndex int)

// LowerSelect lowers a normalized SelectModel into block-structured IL:
// numeric dispatch uses a comparison chain for ranges/relations and a
// switch.i32 jump table for exact labels (when there are no ranges or
// relations to interleave), string dispatch always uses an rt_str_eq
// comparison chain. The emitted blocks are named via namer and each arm's
// body is produced by emitArm; endLabel is branched to by every arm and by
// the implicit "no arm matched, no CASE ELSE" path. LowerSelect creates the
// endLabel block last and leaves it as the current block.
func LowerSelect(b *il.Builder, namer *lower.BlockNamer, model SelectModel, selector il.Value, endLabel string, emitArm ArmEmitter, loc source.Loc) {
	switch {
	case len(model.StringLabels) > 0:
		lowerStringDispatch(b, namer, model, selector, endLabel, emitArm, loc)
	case model.HasNumericRanges || len(model.NumericRelations) > 0:
		lowerNumericChain(b, namer, model, selector, endLabel, emitArm, loc)
	default:
		lowerNumericSwitch(b, namer, model, selector, endLabel, emitArm, loc)
	}
	b.SetCurrent(b.NewBlock(endLabel))
}

// lowerNumericSwitch handles the common case of only exact-value numeric
// labels: a single switch.i32 with one case per label and a default that
// goes either to the CASE ELSE arm or straight to endLabel.
func lowerNumericSwitch(b *il.Builder, namer *lower.BlockNamer, model SelectModel, selector il.Value, endLabel string, emitArm ArmEmitter, loc source.Loc) {
	instr := il.Instr{Op: il.OpSwitchI32, Loc: loc, Operands: []il.Value{selector}}

	armBlocks := map[int]string{}
	for _, lbl := range model.NumericLabels {
		armLabel, ok := armBlocks[lbl.ArmIndex]
		if !ok {
			armLabel = namer.Next(fmt.Sprintf("case.%d", lbl.ArmIndex))
			armBlocks[lbl.ArmIndex] = armLabel
		}
		instr.CaseValues = append(instr.CaseValues, lbl.Value)
		instr.Targets = append(instr.Targets, il.BranchTarget{Label: armLabel})
	}

	defaultLabel := endLabel
	if model.HasCaseElse {
		defaultLabel = namer.Next(fmt.Sprintf("case.%d", model.ElseArmIndex))
		armBlocks[model.ElseArmIndex] = defaultLabel
	}
	instr.Targets = append(instr.Targets, il.BranchTarget{Label: defaultLabel})
	b.Emit(instr)

	emitArmBlocks(b, namer, armBlocks, model, endLabel, emitArm, loc)
}

// lowerNumericChain handles ranges/relations, which switch.i32 cannot
// express directly: each arm becomes one comparison (or a lo<=x<=hi pair)
// branching to the arm body or falling through to the next test.
func lowerNumericChain(b *il.Builder, namer *lower.BlockNamer, model SelectModel, selector il.Value, endLabel string, emitArm ArmEmitter, loc source.Loc) {
	type test struct {
		armIndex int
		cond     func(b *il.Builder) il.Value
	}
	var tests []test
	for _, lbl := range model.NumericLabels {
		lbl := lbl
		tests = append(tests, test{lbl.ArmIndex, func(b *il.Builder) il.Value {
			return b.EmitValue(il.OpICmpEq, il.I1, loc, selector, il.ConstInt(il.I32, int64(lbl.Value)))
		}})
	}
	for _, rng := range model.NumericRanges {
		rng := rng
		tests = append(tests, test{rng.ArmIndex, func(b *il.Builder) il.Value {
			ge := b.EmitValue(il.OpSCmpGE, il.I1, loc, selector, il.ConstInt(il.I32, int64(rng.Lo)))
			le := b.EmitValue(il.OpSCmpLE, il.I1, loc, selector, il.ConstInt(il.I32, int64(rng.Hi)))
			return b.EmitValue(il.OpAnd, il.I1, loc, ge, le)
		}})
	}
	for _, rel := range model.NumericRelations {
		rel := rel
		op := relOpcode(rel.Op)
		tests = append(tests, test{rel.ArmIndex, func(b *il.Builder) il.Value {
			return b.EmitValue(op, il.I1, loc, selector, il.ConstInt(il.I32, int64(rel.RHS)))
		}})
	}

	armBlocks := map[int]string{}
	for _, t := range tests {
		if _, ok := armBlocks[t.armIndex]; !ok {
			armBlocks[t.armIndex] = namer.Next(fmt.Sprintf("case.%d", t.armIndex))
		}
	}
	defaultLabel := endLabel
	if model.HasCaseElse {
		defaultLabel = namer.Next(fmt.Sprintf("case.%d", model.ElseArmIndex))
		armBlocks[model.ElseArmIndex] = defaultLabel
	}

	for i, t := range tests {
		cond := t.cond(b)
		nextLabel := namer.Next("case.test")
		if i == len(tests)-1 {
			nextLabel = defaultLabel
		}
		b.EmitCBr(loc, cond, armBlocks[t.armIndex], nil, nextLabel, nil)
		if i != len(tests)-1 {
			b.SetCurrent(b.NewBlock(nextLabel))
		}
	}
	if len(tests) == 0 {
		b.EmitBr(loc, defaultLabel)
	}

	emitArmBlocks(b, namer, armBlocks, model, endLabel, emitArm, loc)
}

func lowerStringDispatch(b *il.Builder, namer *lower.BlockNamer, model SelectModel, selector il.Value, endLabel string, emitArm ArmEmitter, loc source.Loc) {
	armBlocks := map[int]string{}
	for _, lbl := range model.StringLabels {
		if _, ok := armBlocks[lbl.ArmIndex]; !ok {
			armBlocks[lbl.ArmIndex] = namer.Next(fmt.Sprintf("case.%d", lbl.ArmIndex))
		}
	}
	defaultLabel := endLabel
	if model.HasCaseElse {
		defaultLabel = namer.Next(fmt.Sprintf("case.%d", model.ElseArmIndex))
		armBlocks[model.ElseArmIndex] = defaultLabel
	}

	for i, lbl := range model.StringLabels {
		eq := b.EmitValue(il.OpCall, il.I1, loc, il.GlobalRef(il.Ptr, externStrEq), selector, il.ConstStrRef(lbl.Value))
		nextLabel := namer.Next("case.test")
		if i == len(model.StringLabels)-1 {
			nextLabel = defaultLabel
		}
		b.EmitCBr(loc, eq, armBlocks[lbl.ArmIndex], nil, nextLabel, nil)
		if i != len(model.StringLabels)-1 {
			b.SetCurrent(b.NewBlock(nextLabel))
		}
	}
	if len(model.StringLabels) == 0 {
		b.EmitBr(loc, defaultLabel)
	}

	emitArmBlocks(b, namer, armBlocks, model, endLabel, emitArm, loc)
}

func emitArmBlocks(b *il.Builder, namer *lower.BlockNamer, armBlocks map[int]string, model SelectModel, endLabel string, emitArm ArmEmitter, loc source.Loc) {
	order := make([]int, 0, len(armBlocks))
	for armIndex := range armBlocks {
		order = append(order, armIndex)
	}
	sort.Ints(order)
	for _, armIndex := range order {
		blk := b.NewBlock(armBlocks[armIndex])
		b.SetCurrent(blk)
		emitArm(b, armIndex)
		if !blk.Terminated {
			b.EmitBr(loc, endLabel)
		}
	}
}

func relOpcode(op RelOp) il.Opcode {
	switch op {
	case RelLT:
		return il.OpSCmpLT
	case RelLE:
		return il.OpSCmpLE
	case RelGE:
		return il.OpSCmpGE
	case RelGT:
		return il.OpSCmpGT
	default:
		return il.OpICmpEq
	}
}
