package arm64

import (
	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/mir"
	"github.com/viperlang/ilc/internal/regalloc"
)

// selectMemAndConv handles the opcodes select() delegates out: memory
// access, type conversions, global/string references, and the
// multi-target control instructions (switch.i32, call_indirect).
func (s *selector) selectMemAndConv(instr il.Instr) {
	switch instr.Op {
	case il.OpAlloca:
		dst := s.vregFor(*instr.Result)
		// alloca reserves frame space; the concrete offset is assigned
		// once the allocator has sized the frame, so selection only
		// records that dst holds a pointer computed from the frame
		// pointer (realized as `add dst, x29, #offset` by Realize).
		n := s.loadOperand(instr.Operands[0])
		s.emit(VInstr{Op: mir.OpAddRI, Dst: dst, HasDst: true, Src1: n, HasSrc1: true, Imm: 0})

	case il.OpLoad:
		ptr := s.loadOperand(instr.Operands[0])
		dst := s.vregFor(*instr.Result)
		s.emit(VInstr{Op: mir.OpLdr, Dst: dst, HasDst: true, Src1: ptr, HasSrc1: true, Offset: 0})

	case il.OpStore:
		val := s.loadOperand(instr.Operands[0])
		ptr := s.loadOperand(instr.Operands[1])
		s.emit(VInstr{Op: mir.OpStr, Src1: val, HasSrc1: true, Src2: ptr, HasSrc2: true, Offset: 0})

	case il.OpSIToFP:
		src := s.loadOperand(instr.Operands[0])
		dst := s.vregFor(*instr.Result)
		s.emit(VInstr{Op: mir.OpScvtf, Dst: dst, HasDst: true, Src1: src, HasSrc1: true})

	case il.OpFPToSI:
		src := s.loadOperand(instr.Operands[0])
		dst := s.vregFor(*instr.Result)
		s.emit(VInstr{Op: mir.OpFcvtzs, Dst: dst, HasDst: true, Src1: src, HasSrc1: true})

	case il.OpTrunc1, il.OpZExt1, il.OpSExt, il.OpTrunc:
		src := s.loadOperand(instr.Operands[0])
		dst := s.vregFor(*instr.Result)
		s.emit(VInstr{Op: mir.OpMovRR, Dst: dst, HasDst: true, Src1: src, HasSrc1: true})

	case il.OpConstStr, il.OpGlobalAddr:
		dst := s.vregFor(*instr.Result)
		s.emit(VInstr{Op: mir.OpMovRI, Dst: dst, HasDst: true, Label: instr.Operands[0].Sym})

	case il.OpSwitchI32:
		s.selectSwitch(instr)

	case il.OpCallIndirect:
		s.selectCallIndirect(instr)

	case il.OpResumeSame, il.OpResumeNext, il.OpResumeLabel:
		// Control returns to the VM/runtime, not representable as a single
		// machine branch; the backend treats these as a call into the
		// runtime's resume dispatcher.
		s.sel.CallSites++
		s.emit(VInstr{Op: mir.OpBl, Label: "rt_resume"})

	default:
		// Opcodes with no AArch64 shape in this backend are simply skipped;
		// the verifier guarantees well-formedness, and the interpreter
		// (internal/vm) is the reference semantics for anything this
		// backend does not yet lower.
	}
}

func (s *selector) selectSwitch(instr il.Instr) {
	sel := s.loadOperand(instr.Operands[0])
	for i, cv := range instr.CaseValues {
		tmp := s.newVReg(mir.GPR)
		s.emit(VInstr{Op: mir.OpMovRI, Dst: tmp, HasDst: true, Imm: int64(cv)})
		s.emit(VInstr{Op: mir.OpCmpRR, Src1: sel, HasSrc1: true, Src2: tmp, HasSrc2: true})
		s.emit(VInstr{Op: mir.OpBCond, Cond: mir.CondEQ, Label: blockLabel(s.fn.Name, instr.Targets[i].Label)})
	}
	s.emit(VInstr{Op: mir.OpB, Label: blockLabel(s.fn.Name, instr.Targets[len(instr.Targets)-1].Label)})
}

func (s *selector) selectCallIndirect(instr il.Instr) {
	s.sel.CallSites++
	fnPtr := s.loadOperand(instr.Operands[0])
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
	s.emit(VInstr{Op: mir.OpBlr, Src1: fnPtr, HasSrc1: true})
	if instr.Result != nil {
		retLoc, _ := ReturnLocation(instr.Result.Ty)
		dst := s.vregFor(*instr.Result)
		retVReg := regalloc.VReg{Class: retLoc.Reg.Class, ID: -1 - retLoc.Reg.Num}
		s.emit(VInstr{Op: movOpFor(retLoc.Reg.Class), Dst: dst, HasDst: true, Src1: retVReg, HasSrc1: true})
	}
}
