package vm

import (
	"fmt"
	"math"

	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/rt"
)

// heap backs `alloca`/`load`/`store`: a flat byte arena addressed by an
// incrementing pointer counter. Real layout/alignment doesn't matter to an
// interpreter that never hands a pointer to anything outside itself, so
// every allocation is simply byte-sized and self-describing via the type
// used to load/store it. Each VM owns its own heap (see VM.heap) so that
// concurrent VMs on separate goroutines never race on the same memory.
type heap struct {
	mem  []byte
	next int64
}

func (h *heap) alloc(n int64) int64 {
	addr := h.next
	h.mem = append(h.mem, make([]byte, n)...)
	h.next += n
	return addr
}

// Step executes exactly one instruction from the top frame's current
// position and reports what happened. The calling goroutine is bound as
// this VM's active VM for the duration, so an extern invoked transitively
// from exec can call rt.ActiveVM() to format a trap against the right
// function/block/loc even when multiple VMs run concurrently on separate
// goroutines.
func (v *VM) Step() StepStatus {
	var result StepStatus
	rt.WithActiveVM(v, func() {
		result = v.stepLocked()
	})
	return result
}

func (v *VM) stepLocked() StepStatus {
	if v.halted || len(v.frames) == 0 {
		return StepHalted
	}
	v.stepCount++

	fr := v.topFrame()
	if fr.instrIdx >= len(fr.block.Instrs) {
		return StepHalted
	}
	instr := fr.block.Instrs[fr.instrIdx]
	v.opcodeCnt[instr.Op]++

	v.ctxStack.Push(rt.TrapContext{
		Func:  fr.fn.Name,
		Block: fr.block.Label,
		Line:  instr.Loc.Line,
		Col:   instr.Loc.Col,
	})
	defer v.ctxStack.Pop()

	status, err := v.exec(fr, instr)
	if err != nil {
		info := rt.Trap(err.Error(), v.ctxStack)
		v.lastTrap = &info
		v.halted = true
		return StepTrapped
	}
	return status
}

func (v *VM) exec(fr *frame, instr il.Instr) (StepStatus, error) {
	op := func(i int) il.Value { return v.resolveOperand(fr, instr.Operands[i]) }

	switch instr.Op {
	case il.OpAdd:
		return v.arith(fr, instr, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b })
	case il.OpSub:
		return v.arith(fr, instr, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })
	case il.OpMul:
		return v.arith(fr, instr, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b })
	case il.OpSDiv, il.OpSDivChk0:
		rhs := op(1)
		if rhs.IntVal == 0 {
			return StepOK, fmt.Errorf("division by zero")
		}
		return v.arith(fr, instr, func(a, b int64) int64 { return a / b }, nil)
	case il.OpUDiv, il.OpUDivChk0:
		rhs := op(1)
		if rhs.IntVal == 0 {
			return StepOK, fmt.Errorf("division by zero")
		}
		return v.arith(fr, instr, func(a, b int64) int64 { return int64(uint64(a) / uint64(b)) }, nil)
	case il.OpSRem:
		return v.arith(fr, instr, func(a, b int64) int64 { return a % b }, nil)
	case il.OpURem:
		return v.arith(fr, instr, func(a, b int64) int64 { return int64(uint64(a) % uint64(b)) }, nil)
	case il.OpAnd:
		return v.arith(fr, instr, func(a, b int64) int64 { return a & b }, nil)
	case il.OpOr:
		return v.arith(fr, instr, func(a, b int64) int64 { return a | b }, nil)
	case il.OpXor:
		return v.arith(fr, instr, func(a, b int64) int64 { return a ^ b }, nil)
	case il.OpShl:
		return v.arith(fr, instr, func(a, b int64) int64 { return a << uint(b) }, nil)
	case il.OpLShr:
		return v.arith(fr, instr, func(a, b int64) int64 { return int64(uint64(a) >> uint(b)) }, nil)
	case il.OpAShr:
		return v.arith(fr, instr, func(a, b int64) int64 { return a >> uint(b) }, nil)
	case il.OpIAddOvf:
		lhs, rhs := op(0), op(1)
		sum := lhs.IntVal + rhs.IntVal
		overflowed := (rhs.IntVal > 0 && sum < lhs.IntVal) || (rhs.IntVal < 0 && sum > lhs.IntVal)
		if overflowed {
			return StepOK, fmt.Errorf("integer overflow")
		}
		v.setResult(fr, instr, il.ConstInt(instr.Result.Ty, sum))
		fr.instrIdx++
		return StepOK, nil

	case il.OpICmpEq, il.OpICmpNe, il.OpSCmpLT, il.OpSCmpLE, il.OpSCmpGT, il.OpSCmpGE,
		il.OpUCmpLT, il.OpUCmpLE, il.OpUCmpGT, il.OpUCmpGE:
		return v.intCompare(fr, instr)

	case il.OpFCmpEq, il.OpFCmpNe, il.OpFCmpLT, il.OpFCmpLE, il.OpFCmpGT, il.OpFCmpGE:
		return v.floatCompare(fr, instr)

	case il.OpSIToFP:
		v.setResult(fr, instr, il.ConstFloat(float64(op(0).IntVal)))
		fr.instrIdx++
		return StepOK, nil
	case il.OpFPToSI:
		v.setResult(fr, instr, il.ConstInt(instr.Result.Ty, int64(op(0).FloatVal)))
		fr.instrIdx++
		return StepOK, nil
	case il.OpTrunc1, il.OpZExt1, il.OpSExt, il.OpTrunc:
		v.setResult(fr, instr, il.ConstInt(instr.Result.Ty, op(0).IntVal))
		fr.instrIdx++
		return StepOK, nil

	case il.OpAlloca:
		n := op(0).IntVal
		addr := v.heap.alloc(n)
		v.setResult(fr, instr, il.Value{Kind: il.TempKind, Ty: il.Ptr, IntVal: addr})
		fr.instrIdx++
		return StepOK, nil

	case il.OpLoad:
		ptr := op(0)
		v.setResult(fr, instr, v.heap.loadFrom(ptr.IntVal, instr.Result.Ty))
		fr.instrIdx++
		return StepOK, nil

	case il.OpStore:
		val, ptr := op(0), op(1)
		v.heap.storeTo(ptr.IntVal, val)
		fr.instrIdx++
		return StepOK, nil

	case il.OpConstInt:
		v.setResult(fr, instr, op(0))
		fr.instrIdx++
		return StepOK, nil
	case il.OpConstStr, il.OpGlobalAddr:
		v.setResult(fr, instr, instr.Operands[0])
		fr.instrIdx++
		return StepOK, nil

	case il.OpBr:
		return v.branch(fr, instr.Targets[0])

	case il.OpCBr:
		cond := op(0)
		if cond.IntVal != 0 {
			return v.branch(fr, instr.Targets[0])
		}
		return v.branch(fr, instr.Targets[1])

	case il.OpSwitchI32:
		sel := op(0)
		for i, cv := range instr.CaseValues {
			if int64(cv) == sel.IntVal {
				return v.branch(fr, instr.Targets[i])
			}
		}
		return v.branch(fr, instr.Targets[len(instr.Targets)-1])

	case il.OpRet:
		var retVal *il.Value
		if len(instr.Operands) > 0 {
			rv := op(0)
			retVal = &rv
		}
		v.frames = v.frames[:len(v.frames)-1]
		if len(v.frames) == 0 {
			if retVal != nil {
				v.result = *retVal
				v.hasResult = true
			}
			return StepReturned, nil
		}
		if fr.retInto != nil && retVal != nil {
			caller := v.topFrame()
			caller.values[*fr.retInto] = *retVal
		}
		return StepOK, nil

	case il.OpCall:
		return v.call(fr, instr)

	case il.OpCallIndirect:
		return StepOK, fmt.Errorf("call_indirect is not resolvable by the interpreter without a function table")

	case il.OpEHPush, il.OpEHPop, il.OpEHEntry:
		fr.instrIdx++
		return StepOK, nil

	case il.OpTrap:
		return StepOK, fmt.Errorf("trap")

	case il.OpTrapFromErr:
		code := op(0)
		return StepOK, fmt.Errorf("trap: error code %d", code.IntVal)

	case il.OpResumeSame, il.OpResumeNext, il.OpResumeLabel:
		fr.instrIdx++
		return StepOK, nil

	default:
		return StepOK, fmt.Errorf("vm: opcode %s is not implemented by the interpreter", instr.Op)
	}
}

func (v *VM) arith(fr *frame, instr il.Instr, intFn func(a, b int64) int64, floatFn func(a, b float64) float64) (StepStatus, error) {
	lhs := v.resolveOperand(fr, instr.Operands[0])
	rhs := v.resolveOperand(fr, instr.Operands[1])
	if lhs.Ty == il.F64 && floatFn != nil {
		v.setResult(fr, instr, il.ConstFloat(floatFn(lhs.FloatVal, rhs.FloatVal)))
	} else {
		v.setResult(fr, instr, il.ConstInt(instr.Result.Ty, intFn(lhs.IntVal, rhs.IntVal)))
	}
	fr.instrIdx++
	return StepOK, nil
}

func (v *VM) intCompare(fr *frame, instr il.Instr) (StepStatus, error) {
	lhs := v.resolveOperand(fr, instr.Operands[0])
	rhs := v.resolveOperand(fr, instr.Operands[1])
	var b bool
	switch instr.Op {
	case il.OpICmpEq:
		b = lhs.IntVal == rhs.IntVal
	case il.OpICmpNe:
		b = lhs.IntVal != rhs.IntVal
	case il.OpSCmpLT:
		b = lhs.IntVal < rhs.IntVal
	case il.OpSCmpLE:
		b = lhs.IntVal <= rhs.IntVal
	case il.OpSCmpGT:
		b = lhs.IntVal > rhs.IntVal
	case il.OpSCmpGE:
		b = lhs.IntVal >= rhs.IntVal
	case il.OpUCmpLT:
		b = uint64(lhs.IntVal) < uint64(rhs.IntVal)
	case il.OpUCmpLE:
		b = uint64(lhs.IntVal) <= uint64(rhs.IntVal)
	case il.OpUCmpGT:
		b = uint64(lhs.IntVal) > uint64(rhs.IntVal)
	case il.OpUCmpGE:
		b = uint64(lhs.IntVal) >= uint64(rhs.IntVal)
	}
	v.setResult(fr, instr, boolValue(b))
	fr.instrIdx++
	return StepOK, nil
}

func (v *VM) floatCompare(fr *frame, instr il.Instr) (StepStatus, error) {
	lhs := v.resolveOperand(fr, instr.Operands[0])
	rhs := v.resolveOperand(fr, instr.Operands[1])
	var b bool
	switch instr.Op {
	case il.OpFCmpEq:
		b = lhs.FloatVal == rhs.FloatVal
	case il.OpFCmpNe:
		b = lhs.FloatVal != rhs.FloatVal
	case il.OpFCmpLT:
		b = lhs.FloatVal < rhs.FloatVal
	case il.OpFCmpLE:
		b = lhs.FloatVal <= rhs.FloatVal
	case il.OpFCmpGT:
		b = lhs.FloatVal > rhs.FloatVal
	case il.OpFCmpGE:
		b = lhs.FloatVal >= rhs.FloatVal
	}
	v.setResult(fr, instr, boolValue(b))
	fr.instrIdx++
	return StepOK, nil
}

func boolValue(b bool) il.Value {
	if b {
		return il.ConstInt(il.I1, 1)
	}
	return il.ConstInt(il.I1, 0)
}

func (v *VM) setResult(fr *frame, instr il.Instr, val il.Value) {
	if instr.Result == nil {
		return
	}
	fr.values[instr.Result.ID] = val
}

func (v *VM) branch(fr *frame, tgt il.BranchTarget) (StepStatus, error) {
	dst := fr.fn.BlockByLabel(tgt.Label)
	if dst == nil {
		return StepOK, fmt.Errorf("branch to undefined block %q", tgt.Label)
	}
	args := make([]il.Value, len(tgt.Args))
	for i, a := range tgt.Args {
		args[i] = v.resolveOperand(fr, a)
	}
	fr.block = dst
	fr.instrIdx = 0
	for i, p := range dst.Params {
		if i < len(args) {
			fr.values[p.ID] = args[i]
		}
	}
	if v.breaks[breakKey{fr.fn.Name, dst.Label}] {
		return StepOK, nil
	}
	return StepOK, nil
}

func (v *VM) call(fr *frame, instr il.Instr) (StepStatus, error) {
	callee := instr.Operands[0].Sym
	args := make([]il.Value, len(instr.Operands)-1)
	for i, a := range instr.Operands[1:] {
		args[i] = v.resolveOperand(fr, a)
	}

	if fn := v.mod.FuncByName(callee); fn != nil {
		var retInto *uint32
		if instr.Result != nil {
			id := instr.ResultID
			retInto = &id
		}
		v.pushFrame(fn, args, retInto)
		fr.instrIdx++
		return StepOK, nil
	}

	if v.externs != nil {
		result, err := v.externs.Invoke(callee, args)
		if err != nil {
			return StepOK, err
		}
		v.setResult(fr, instr, result)
		fr.instrIdx++
		return StepOK, nil
	}

	return StepOK, fmt.Errorf("call to undefined function %q", callee)
}

func (h *heap) loadFrom(addr int64, ty il.Type) il.Value {
	size := typeSize(ty)
	if addr < 0 || addr+size > int64(len(h.mem)) {
		return il.ConstInt(ty, 0)
	}
	bytes := h.mem[addr : addr+size]
	var bits uint64
	for i := int64(0); i < size; i++ {
		bits |= uint64(bytes[i]) << (8 * uint(i))
	}
	if ty == il.F64 {
		return il.ConstFloat(math.Float64frombits(bits))
	}
	return il.ConstInt(ty, int64(bits))
}

func (h *heap) storeTo(addr int64, val il.Value) {
	size := typeSize(val.Ty)
	if addr < 0 {
		return
	}
	for addr+size > int64(len(h.mem)) {
		h.mem = append(h.mem, 0)
	}
	var bits uint64
	if val.Ty == il.F64 {
		bits = math.Float64bits(val.FloatVal)
	} else {
		bits = uint64(val.IntVal)
	}
	for i := int64(0); i < size; i++ {
		h.mem[addr+i] = byte(bits >> (8 * uint(i)))
	}
}

func typeSize(ty il.Type) int64 {
	switch ty {
	case il.I1, il.I16:
		return 2
	case il.I32:
		return 4
	case il.I64, il.F64, il.Ptr, il.Str, il.ResumeTok:
		return 8
	default:
		return 8
	}
}
