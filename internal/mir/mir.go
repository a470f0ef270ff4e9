// Package mir is the AArch64 machine IR: a tagged-instruction
// representation over physical registers, immediates, labels, and
// condition codes, one level below the text assembly the emitter writes.
package mir

// Reg is a physical AArch64 register reference, general-purpose or
// floating-point.
type Reg struct {
	Class RegClass
	Num   int // 0-30 for GPR (31 reserved for SP/XZR), 0-31 for FPR
}

// RegClass distinguishes the two allocatable register files.
type RegClass int

const (
	GPR RegClass = iota
	FPR
)

func (r Reg) String() string {
	if r.Class == FPR {
		return fpName(r.Num)
	}
	return gprName(r.Num)
}

func gprName(n int) string {
	if n == 31 {
		return "sp"
	}
	names := [...]string{
		"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7",
		"x8", "x9", "x10", "x11", "x12", "x13", "x14", "x15",
		"x16", "x17", "x18", "x19", "x20", "x21", "x22", "x23",
		"x24", "x25", "x26", "x27", "x28", "x29", "x30",
	}
	if n >= 0 && n < len(names) {
		return names[n]
	}
	return "x?"
}

func fpName(n int) string {
	names := [...]string{
		"v0", "v1", "v2", "v3", "v4", "v5", "v6", "v7",
		"v8", "v9", "v10", "v11", "v12", "v13", "v14", "v15",
		"v16", "v17", "v18", "v19", "v20", "v21", "v22", "v23",
		"v24", "v25", "v26", "v27", "v28", "v29", "v30", "v31",
	}
	if n >= 0 && n < len(names) {
		return names[n]
	}
	return "v?"
}

// Cond is an AArch64 condition code used by Cset and conditional branches.
type Cond int

const (
	CondEQ Cond = iota
	CondNE
	CondLT
	CondLE
	CondGT
	CondGE
	CondLO // unsigned <
	CondLS // unsigned <=
	CondHI // unsigned >
	CondHS // unsigned >=
)

func (c Cond) String() string {
	names := [...]string{"eq", "ne", "lt", "le", "gt", "ge", "lo", "ls", "hi", "hs"}
	if int(c) < len(names) {
		return names[c]
	}
	return "al"
}

// Op is one machine instruction's opcode.
type Op int

const (
	OpMovRR Op = iota
	OpMovRI
	OpAddRRR
	OpAddRI
	OpSubRRR
	OpSubRI
	OpMulRRR
	OpSDiv
	OpUDiv
	OpMadd
	OpMsub
	OpAndRRR
	OpOrrRRR
	OpEorRRR
	OpLslRI
	OpLsrRI
	OpAsrRI
	OpCmpRI
	OpCmpRR
	OpTstRR
	OpCset
	OpB
	OpBCond
	OpCbz
	OpCbnz
	OpBl
	OpBlr
	OpRet
	OpStr
	OpLdr
	OpStp
	OpLdp
	OpFMovRR
	OpFAddRRR
	OpFSubRRR
	OpFMulRRR
	OpFDivRRR
	OpScvtf
	OpFcvtzs
	OpLabel // a pseudo-op marking a branch target, emitted as a bare label
)

// Instr is one machine instruction: an opcode plus whichever of
// Dst/Src1/Src2/Imm/Label/Cond it needs. Unused fields are left zero.
type Instr struct {
	Op    Op
	Dst   Reg
	Src1  Reg
	Src2  Reg
	Imm   int64
	Label string
	Cond  Cond
	// Offset is used by Str/Ldr for the [Src1, #Offset] addressing form, and
	// by Stp/Ldp for the register-pair form: Dst holds the base register,
	// Src1/Src2 hold the pair, and Offset's sign selects the addressing
	// mode (negative: pre-indexed with writeback, "[Dst, #Offset]!";
	// positive: post-indexed, "[Dst], #Offset").
	Offset int64
}

// Func is one function's machine instruction stream, plus the frame size
// its prologue/epilogue reserve and whether it is a leaf (never calls out,
// so it can skip saving the link register).
type Func struct {
	Name      string
	Instrs    []Instr
	FrameSize int64
	IsLeaf    bool
}
