package il

import (
	"fmt"

	"github.com/viperlang/ilc/internal/source"
)

// Builder constructs a Function one instruction at a time, tracking the
// current block and the next free SSA id. Frontends and the text parser
// both append through Emit, so terminator bookkeeping is kept in one place;
// the text parser assigns its own SSA ids from the names in the text rather
// than using the builder's counter.
type Builder struct {
	Fn       *Function
	cur      *BasicBlock
	nextTemp uint32
}

// NewBuilder starts building fn, which must already carry its declared
// parameter types; no blocks are required yet.
func NewBuilder(fn *Function) *Builder {
	return &Builder{Fn: fn}
}

// NewBlock appends a fresh block to the function and makes it current.
func (b *Builder) NewBlock(label string, params ...BlockParam) *BasicBlock {
	for i := range params {
		if params[i].ID == 0 {
			params[i].ID = b.allocID()
		}
	}
	blk := &BasicBlock{Label: label, Params: params}
	b.Fn.Blocks = append(b.Fn.Blocks, blk)
	b.cur = blk
	return blk
}

// SetCurrent repositions the builder's insertion point without creating a
// new block; used by control-flow lowering to restore the caller's cursor
// after preallocating a skeleton of blocks (see internal/lower/control).
func (b *Builder) SetCurrent(blk *BasicBlock) { b.cur = blk }

// Current returns the block instructions are currently appended to.
func (b *Builder) Current() *BasicBlock { return b.cur }

func (b *Builder) allocID() uint32 {
	b.nextTemp++
	return b.nextTemp
}

// newTemp allocates a fresh SSA value of type ty with a synthesized name.
func (b *Builder) newTemp(ty Type) Value {
	id := b.allocID()
	return Temp(ty, fmt.Sprintf("t%d", id), id)
}

// Emit appends instr to the current block. It must not already be
// terminated. If instr's opcode is a terminator, the block is marked
// terminated and Emit refuses further appends until SetCurrent/NewBlock
// moves the cursor.
func (b *Builder) Emit(instr Instr) Value {
	if b.cur == nil {
		panic("il: Emit with no current block")
	}
	if b.cur.Terminated {
		panic("il: Emit into already-terminated block " + b.cur.Label)
	}
	b.cur.Instrs = append(b.cur.Instrs, instr)
	if instr.IsTerminator() {
		b.cur.Terminated = true
	}
	if instr.Result != nil {
		return *instr.Result
	}
	return Value{}
}

// EmitValue is a convenience wrapper for non-terminator instructions that
// produce a single typed result; it allocates the SSA temp and returns it.
func (b *Builder) EmitValue(op Opcode, resultTy Type, loc source.Loc, operands ...Value) Value {
	res := b.newTemp(resultTy)
	b.Emit(Instr{Op: op, Result: &res, ResultID: res.ID, Operands: operands, Loc: loc})
	return res
}

// EmitVoid appends a non-terminator, no-result instruction (store, eh.push,
// eh.pop, a void call).
func (b *Builder) EmitVoid(op Opcode, loc source.Loc, operands ...Value) {
	b.Emit(Instr{Op: op, Operands: operands, Loc: loc})
}

// EmitBr terminates the current block with an unconditional branch.
func (b *Builder) EmitBr(loc source.Loc, target string, args ...Value) {
	b.Emit(Instr{Op: OpBr, Loc: loc, Targets: []BranchTarget{{Label: target, Args: args}}})
}

// EmitCBr terminates the current block with a conditional branch.
func (b *Builder) EmitCBr(loc source.Loc, cond Value, thenLabel string, thenArgs []Value, elseLabel string, elseArgs []Value) {
	b.Emit(Instr{
		Op:       OpCBr,
		Operands: []Value{cond},
		Loc:      loc,
		Targets: []BranchTarget{
			{Label: thenLabel, Args: thenArgs},
			{Label: elseLabel, Args: elseArgs},
		},
	})
}

// EmitRet terminates the current block with a return.
func (b *Builder) EmitRet(loc source.Loc, val *Value) {
	var operands []Value
	if val != nil {
		operands = []Value{*val}
	}
	b.Emit(Instr{Op: OpRet, Operands: operands, Loc: loc})
}
