package control

import (
	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/lower"
	"github.com/viperlang/ilc/internal/source"
)

// LoopBody lowers one iteration's body at the builder's current insertion
// point. It must not terminate the block itself; LowerWhile/LowerFor/
// LowerRepeat supply the loop-control terminator.
type LoopBody func(b *il.Builder)

// LowerWhile lowers a pre-tested loop: `head` evaluates cond and branches to
// body or done; body always branches back to head.
func LowerWhile(b *il.Builder, namer *lower.BlockNamer, condFn func(b *il.Builder) il.Value, body LoopBody, loc source.Loc) {
	headLabel := namer.Next("while.head")
	bodyLabel := namer.Next("while.body")
	doneLabel := namer.Next("while.done")

	b.EmitBr(loc, headLabel)
	b.SetCurrent(b.NewBlock(headLabel))
	cond := condFn(b)
	b.EmitCBr(loc, cond, bodyLabel, nil, doneLabel, nil)

	bodyBlk := b.NewBlock(bodyLabel)
	b.SetCurrent(bodyBlk)
	body(b)
	if !bodyBlk.Terminated {
		b.EmitBr(loc, headLabel)
	}

	b.SetCurrent(b.NewBlock(doneLabel))
}

// LowerRepeat lowers a post-tested loop: the body always runs once before
// the exit condition is tested (REPEAT ... UNTIL cond).
func LowerRepeat(b *il.Builder, namer *lower.BlockNamer, body LoopBody, untilFn func(b *il.Builder) il.Value, loc source.Loc) {
	bodyLabel := namer.Next("repeat.body")
	doneLabel := namer.Next("repeat.done")

	b.EmitBr(loc, bodyLabel)
	bodyBlk := b.NewBlock(bodyLabel)
	b.SetCurrent(bodyBlk)
	body(b)
	if !bodyBlk.Terminated {
		cond := untilFn(b)
		b.EmitCBr(loc, cond, doneLabel, nil, bodyLabel, nil)
	}

	b.SetCurrent(b.NewBlock(doneLabel))
}

// LowerFor lowers a counted FOR loop as an induction-variable WHILE: the
// induction variable is threaded through the head block's parameter so it
// stays in SSA form without a mutable stack slot.
func LowerFor(b *il.Builder, namer *lower.BlockNamer, start, limit, step il.Value, body func(b *il.Builder, iv il.Value), loc source.Loc) {
	headLabel := namer.Next("for.head")
	bodyLabel := namer.Next("for.body")
	doneLabel := namer.Next("for.done")

	b.EmitBr(loc, headLabel, start)

	ivID := uint32(0) // assigned fresh by NewBlock via BlockParam ID==0 convention
	headBlk := b.NewBlock(headLabel, il.BlockParam{Name: "iv", Ty: start.Ty, ID: ivID})
	b.SetCurrent(headBlk)
	iv := il.BlockParam(start.Ty, "iv", headBlk.Params[0].ID)

	var cond il.Value
	stepIsNonNegative := step.Kind == il.ConstIntKind && step.IntVal >= 0
	if stepIsNonNegative {
		cond = b.EmitValue(il.OpSCmpLE, il.I1, loc, iv, limit)
	} else {
		cond = b.EmitValue(il.OpSCmpGE, il.I1, loc, iv, limit)
	}
	b.EmitCBr(loc, cond, bodyLabel, nil, doneLabel, nil)

	bodyBlk := b.NewBlock(bodyLabel)
	b.SetCurrent(bodyBlk)
	body(b, iv)
	if !bodyBlk.Terminated {
		next := b.EmitValue(il.OpAdd, start.Ty, loc, iv, step)
		b.EmitBr(loc, headLabel, next)
	}

	b.SetCurrent(b.NewBlock(doneLabel))
}
