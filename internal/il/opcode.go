package il

// Opcode enumerates every instruction the IL can express, grouped by family
// as described in the language reference: arithmetic/bitwise, compares,
// conversions, memory, control, calls, and exception handling.
type Opcode int

const (
	OpInvalid Opcode = iota

	// Arithmetic / bitwise
	OpAdd
	OpSub
	OpMul
	OpSDiv
	OpSDivChk0
	OpUDiv
	OpUDivChk0
	OpSRem
	OpURem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpLShr
	OpAShr
	OpIAddOvf

	// Compares (always produce I1)
	OpICmpEq
	OpICmpNe
	OpSCmpLT
	OpSCmpLE
	OpSCmpGT
	OpSCmpGE
	OpUCmpLT
	OpUCmpLE
	OpUCmpGT
	OpUCmpGE
	OpFCmpEq
	OpFCmpNe
	OpFCmpLT
	OpFCmpLE
	OpFCmpGT
	OpFCmpGE

	// Conversions
	OpSIToFP
	OpFPToSI
	OpTrunc1
	OpZExt1
	OpSExt
	OpTrunc

	// Memory
	OpAlloca
	OpLoad
	OpStore
	OpConstStr
	OpConstInt
	OpGlobalAddr

	// Control
	OpBr
	OpCBr
	OpSwitchI32
	OpRet

	// Calls
	OpCall
	OpCallIndirect

	// Exception handling
	OpEHPush
	OpEHPop
	OpEHEntry
	OpTrap
	OpTrapFromErr
	OpResumeSame
	OpResumeNext
	OpResumeLabel
)

// terminators are the opcodes that legally end a basic block.
var terminators = map[Opcode]bool{
	OpRet:         true,
	OpBr:          true,
	OpCBr:         true,
	OpSwitchI32:   true,
	OpTrap:        true,
	OpTrapFromErr: true,
	OpResumeSame:  true,
	OpResumeNext:  true,
	OpResumeLabel: true,
}

// IsTerminator reports whether op may only appear as the final instruction
// of a basic block.
func (op Opcode) IsTerminator() bool { return terminators[op] }

var opcodeNames = map[Opcode]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul",
	OpSDiv: "sdiv", OpSDivChk0: "sdiv.chk0", OpUDiv: "udiv", OpUDivChk0: "udiv.chk0",
	OpSRem: "srem", OpURem: "urem",
	OpAnd: "and", OpOr: "or", OpXor: "xor",
	OpShl: "shl", OpLShr: "lshr", OpAShr: "ashr", OpIAddOvf: "iadd.ovf",
	OpICmpEq: "icmp_eq", OpICmpNe: "icmp_ne",
	OpSCmpLT: "scmp_lt", OpSCmpLE: "scmp_le", OpSCmpGT: "scmp_gt", OpSCmpGE: "scmp_ge",
	OpUCmpLT: "ucmp_lt", OpUCmpLE: "ucmp_le", OpUCmpGT: "ucmp_gt", OpUCmpGE: "ucmp_ge",
	OpFCmpEq: "fcmp_eq", OpFCmpNe: "fcmp_ne",
	OpFCmpLT: "fcmp_lt", OpFCmpLE: "fcmp_le", OpFCmpGT: "fcmp_gt", OpFCmpGE: "fcmp_ge",
	OpSIToFP: "sitofp", OpFPToSI: "fptosi",
	OpTrunc1: "trunc1", OpZExt1: "zext1", OpSExt: "sext", OpTrunc: "trunc",
	OpAlloca: "alloca", OpLoad: "load", OpStore: "store",
	OpConstStr: "const_str", OpConstInt: "const_int", OpGlobalAddr: "global_addr",
	OpBr: "br", OpCBr: "cbr", OpSwitchI32: "switch.i32", OpRet: "ret",
	OpCall: "call", OpCallIndirect: "call.indirect",
	OpEHPush: "eh.push", OpEHPop: "eh.pop", OpEHEntry: "eh.entry",
	OpTrap: "trap", OpTrapFromErr: "trap.from_err",
	OpResumeSame: "resume.same", OpResumeNext: "resume.next", OpResumeLabel: "resume.label",
}

var namesToOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		m[name] = op
	}
	return m
}()

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "invalid"
}

// OpcodeFromName parses a mnemonic from IL text back into an Opcode.
func OpcodeFromName(name string) (Opcode, bool) {
	op, ok := namesToOpcode[name]
	return op, ok
}
