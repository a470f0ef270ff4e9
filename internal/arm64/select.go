package arm64

import (
	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/mir"
	"github.com/viperlang/ilc/internal/regalloc"
)

// VInstr mirrors mir.Instr but its register operands are still virtual
// (regalloc.VReg), not yet bound to physical registers. Selection emits
// VInstr; Realize rewrites a VInstr stream into a mir.Func after
// regalloc.Allocate has run.
type VInstr struct {
	Op     mir.Op
	Dst    regalloc.VReg
	Src1   regalloc.VReg
	Src2   regalloc.VReg
	HasDst bool
	HasSrc1 bool
	HasSrc2 bool
	Imm    int64
	Label  string
	Cond   mir.Cond
	Offset int64
}

// Selection is one function's selected-but-not-allocated instruction
// stream, plus the virtual-register class each IL value was assigned (so
// liveness/interval computation can size the allocation request).
type Selection struct {
	FnName   string
	Instrs   []VInstr
	NextVReg int
	ValueReg map[uint32]regalloc.VReg // IL SSA id -> assigned vreg
	IsLeaf   bool
	CallSites int
}

type selector struct {
	fn    *il.Function
	sel   *Selection
}

// Select performs table-driven IL -> MIR instruction selection for fn,
// one opcode at a time, assigning a fresh virtual register to every IL
// value that produces a result.
func Select(fn *il.Function) *Selection {
	s := &selector{fn: fn, sel: &Selection{FnName: fn.Name, ValueReg: map[uint32]regalloc.VReg{}}}

	for _, blk := range fn.Blocks {
		s.sel.Instrs = append(s.sel.Instrs, VInstr{Op: mir.OpLabel, Label: blockLabel(fn.Name, blk.Label)})
		for _, instr := range blk.Instrs {
			s.selectInstr(instr)
		}
	}
	s.sel.IsLeaf = regalloc.IsLeaf(s.sel.CallSites)
	return s.sel
}

func blockLabel(fn, block string) string { return fn + "." + block }

func (s *selector) vregFor(v il.Value) regalloc.VReg {
	if v.Kind != il.TempKind && v.Kind != il.BlockParamKind {
		return regalloc.VReg{}
	}
	if r, ok := s.sel.ValueReg[v.ID]; ok {
		return r
	}
	r := s.newVReg(classOf(v.Ty))
	s.sel.ValueReg[v.ID] = r
	return r
}

func classOf(ty il.Type) mir.RegClass {
	if ty == il.F64 {
		return mir.FPR
	}
	return mir.GPR
}

func (s *selector) newVReg(class mir.RegClass) regalloc.VReg {
	id := s.sel.NextVReg
	s.sel.NextVReg++
	return regalloc.VReg{Class: class, ID: id}
}

func (s *selector) emit(i VInstr) { s.sel.Instrs = append(s.sel.Instrs, i) }

// loadOperand materializes v into a vreg: an existing SSA value's vreg, or
// a fresh vreg holding a constant immediate.
func (s *selector) loadOperand(v il.Value) regalloc.VReg {
	if v.Kind == il.TempKind || v.Kind == il.BlockParamKind {
		return s.vregFor(v)
	}
	r := s.newVReg(classOf(v.Ty))
	if v.Ty == il.F64 {
		// Offset: -1 marks the immediate form (fmov Vd, #imm) so the emitter
		// can tell it apart from the register-to-register form, since both
		// share mir.OpFMovRR.
		s.emit(VInstr{Op: mir.OpFMovRR, Dst: r, HasDst: true, Imm: int64(v.FloatVal), Offset: -1})
	} else {
		s.emit(VInstr{Op: mir.OpMovRI, Dst: r, HasDst: true, Imm: v.IntVal})
	}
	return r
}

func (s *selector) selectInstr(instr il.Instr) {
	switch instr.Op {
	case il.OpAdd:
		s.binary(instr, mir.OpAddRRR, mir.OpFAddRRR)
	case il.OpSub:
		s.binary(instr, mir.OpSubRRR, mir.OpFSubRRR)
	case il.OpMul:
		s.binary(instr, mir.OpMulRRR, mir.OpFMulRRR)
	case il.OpSDiv, il.OpSDivChk0:
		s.binary(instr, mir.OpSDiv, mir.OpFDivRRR)
	case il.OpUDiv, il.OpUDivChk0:
		s.binary(instr, mir.OpUDiv, mir.OpFDivRRR)
	case il.OpAnd:
		s.binary(instr, mir.OpAndRRR, mir.OpAndRRR)
	case il.OpOr:
		s.binary(instr, mir.OpOrrRRR, mir.OpOrrRRR)
	case il.OpXor:
		s.binary(instr, mir.OpEorRRR, mir.OpEorRRR)
	case il.OpShl:
		s.shift(instr, mir.OpLslRI)
	case il.OpLShr:
		s.shift(instr, mir.OpLsrRI)
	case il.OpAShr:
		s.shift(instr, mir.OpAsrRI)

	case il.OpICmpEq, il.OpICmpNe, il.OpSCmpLT, il.OpSCmpLE, il.OpSCmpGT, il.OpSCmpGE,
		il.OpUCmpLT, il.OpUCmpLE, il.OpUCmpGT, il.OpUCmpGE,
		il.OpFCmpEq, il.OpFCmpNe, il.OpFCmpLT, il.OpFCmpLE, il.OpFCmpGT, il.OpFCmpGE:
		s.compare(instr)

	case il.OpConstInt:
		dst := s.vregFor(*instr.Result)
		s.emit(VInstr{Op: mir.OpMovRI, Dst: dst, HasDst: true, Imm: instr.Operands[0].IntVal})

	case il.OpBr:
		s.emit(VInstr{Op: mir.OpB, Label: blockLabel(s.fn.Name, instr.Targets[0].Label)})

	case il.OpCBr:
		cond := s.loadOperand(instr.Operands[0])
		s.emit(VInstr{Op: mir.OpCbnz, Src1: cond, HasSrc1: true, Label: blockLabel(s.fn.Name, instr.Targets[0].Label)})
		s.emit(VInstr{Op: mir.OpB, Label: blockLabel(s.fn.Name, instr.Targets[1].Label)})

	case il.OpRet:
		if len(instr.Operands) > 0 {
			src := s.loadOperand(instr.Operands[0])
			retLoc, _ := ReturnLocation(instr.Operands[0].Ty)
			s.emit(VInstr{Op: movOpFor(retLoc.Reg.Class), Dst: regalloc.VReg{Class: retLoc.Reg.Class, ID: -1 - retLoc.Reg.Num}, HasDst: true, Src1: src, HasSrc1: true})
		}
		s.emit(VInstr{Op: mir.OpRet})

	case il.OpCall:
		s.sel.CallSites++
		s.call(instr)

	case il.OpTrap, il.OpTrapFromErr:
		s.sel.CallSites++
		s.emit(VInstr{Op: mir.OpBl, Label: "rt_trap"})

	case il.OpEHPush, il.OpEHPop, il.OpEHEntry:
		// No-ops in codegen: EH discipline is enforced structurally by the
		// verifier, not represented in machine code.

	default:
		// Opcodes without a machine-code shape (load/store/alloca and the
		// remaining conversions) are selected by selectMemAndConv.
		s.selectMemAndConv(instr)
	}
}

func (s *selector) binary(instr il.Instr, intOp, floatOp mir.Op) {
	lhs := s.loadOperand(instr.Operands[0])
	rhs := s.loadOperand(instr.Operands[1])
	dst := s.vregFor(*instr.Result)
	op := intOp
	if instr.Result.Ty == il.F64 {
		op = floatOp
	}
	s.emit(VInstr{Op: op, Dst: dst, HasDst: true, Src1: lhs, HasSrc1: true, Src2: rhs, HasSrc2: true})
}

func (s *selector) shift(instr il.Instr, op mir.Op) {
	lhs := s.loadOperand(instr.Operands[0])
	dst := s.vregFor(*instr.Result)
	amount := instr.Operands[1]
	if amount.Kind == il.ConstIntKind {
		s.emit(VInstr{Op: op, Dst: dst, HasDst: true, Src1: lhs, HasSrc1: true, Imm: amount.IntVal})
		return
	}
	// Non-constant shift amounts fall back to the RRR-shaped binary path;
	// AArch64 shift-by-register uses the same mnemonic with an operand
	// register instead of an immediate, selected at emit time by Offset<0.
	rhs := s.loadOperand(amount)
	s.emit(VInstr{Op: op, Dst: dst, HasDst: true, Src1: lhs, HasSrc1: true, Src2: rhs, HasSrc2: true, Offset: -1})
}

func (s *selector) compare(instr il.Instr) {
	lhs := s.loadOperand(instr.Operands[0])
	rhs := s.loadOperand(instr.Operands[1])
	dst := s.vregFor(*instr.Result)
	cmpOp := mir.OpCmpRR
	s.emit(VInstr{Op: cmpOp, Src1: lhs, HasSrc1: true, Src2: rhs, HasSrc2: true})
	s.emit(VInstr{Op: mir.OpCset, Dst: dst, HasDst: true, Cond: condFor(instr.Op)})
}

func condFor(op il.Opcode) mir.Cond {
	switch op {
	case il.OpICmpEq, il.OpFCmpEq:
		return mir.CondEQ
	case il.OpICmpNe, il.OpFCmpNe:
		return mir.CondNE
	case il.OpSCmpLT, il.OpFCmpLT:
		return mir.CondLT
	case il.OpSCmpLE, il.OpFCmpLE:
		return mir.CondLE
	case il.OpSCmpGT, il.OpFCmpGT:
		return mir.CondGT
	case il.OpSCmpGE, il.OpFCmpGE:
		return mir.CondGE
	case il.OpUCmpLT:
		return mir.CondLO
	case il.OpUCmpLE:
		return mir.CondLS
	case il.OpUCmpGT:
		return mir.CondHI
	case il.OpUCmpGE:
		return mir.CondHS
	default:
		return mir.CondEQ
	}
}

func (s *selector) call(instr il.Instr) {
	callee := instr.Operands[0].Sym
	args := instr.Operands[1:]
	argTypes := make([]il.Type, len(args))
	for i, a := range args {
		argTypes[i] = a.Ty
	}
	locs := ClassifyArgs(argTypes)
	for i, a := range args {
		src := s.loadOperand(a)
		if locs[i].InRegister {
			argVReg := regalloc.VReg{Class: locs[i].Reg.Class, ID: -1 - locs[i].Reg.Num}
			s.emit(VInstr{Op: movOpFor(locs[i].Reg.Class), Dst: argVReg, HasDst: true, Src1: src, HasSrc1: true})
		}
	}
	s.emit(VInstr{Op: mir.OpBl, Label: callee})
	if instr.Result != nil {
		retLoc, _ := ReturnLocation(instr.Result.Ty)
		dst := s.vregFor(*instr.Result)
		retVReg := regalloc.VReg{Class: retLoc.Reg.Class, ID: -1 - retLoc.Reg.Num}
		s.emit(VInstr{Op: movOpFor(retLoc.Reg.Class), Dst: dst, HasDst: true, Src1: retVReg, HasSrc1: true})
	}
}

func movOpFor(class mir.RegClass) mir.Op {
	if class == mir.FPR {
		return mir.OpFMovRR
	}
	return mir.OpMovRR
}
