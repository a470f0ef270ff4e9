package ilio

import (
	"fmt"
	"strings"

	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/source"
)

// Serialize renders m as canonical IL text. It is pure: no diagnostics, no
// side effects, and parse(serialize(m)) must reproduce m structurally
// (Value.ID renumbering aside) for the round-trip law to hold.
func Serialize(m *il.Module) string {
	var sb strings.Builder
	writeVersion(&sb, m.Version)
	sb.WriteByte('\n')

	for _, e := range m.Externs {
		writeExtern(&sb, e)
	}
	if len(m.Externs) > 0 {
		sb.WriteByte('\n')
	}

	for _, g := range m.Globals {
		writeGlobal(&sb, g)
	}
	if len(m.Globals) > 0 {
		sb.WriteByte('\n')
	}

	for i, f := range m.Funcs {
		writeFunc(&sb, f)
		if i != len(m.Funcs)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func writeVersion(sb *strings.Builder, v il.Version) {
	fmt.Fprintf(sb, "il %d.%d", v.Major, v.Minor)
	if v.HasPatch {
		fmt.Fprintf(sb, ".%d", v.Patch)
	}
	sb.WriteByte('\n')
}

func writeExtern(sb *strings.Builder, e il.Extern) {
	fmt.Fprintf(sb, "extern @%s(%s)", e.Name, joinTypes(e.Params))
	if e.RetType != il.Void {
		fmt.Fprintf(sb, " -> %s", e.RetType)
	}
	sb.WriteByte('\n')
}

func writeGlobal(sb *strings.Builder, g il.Global) {
	sb.WriteString("global ")
	if g.Const {
		sb.WriteString("const ")
	}
	fmt.Fprintf(sb, "str @%s = \"%s\"\n", g.Name, escapeBytes(g.Bytes))
}

func joinTypes(types []il.Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func writeFunc(sb *strings.Builder, f *il.Function) {
	fmt.Fprintf(sb, "func @%s(%s)", f.Name, joinTypes(f.Params))
	if f.RetType != il.Void {
		fmt.Fprintf(sb, " -> %s", f.RetType)
	}
	sb.WriteString(" {\n")
	var lastLoc source.Loc
	for _, blk := range f.Blocks {
		writeBlockHeader(sb, blk)
		for _, instr := range blk.Instrs {
			if instr.Loc.Valid() && instr.Loc != lastLoc {
				fmt.Fprintf(sb, "  .loc %d:%d:%d\n", instr.Loc.FileID, instr.Loc.Line, instr.Loc.Col)
				lastLoc = instr.Loc
			}
			writeInstr(sb, instr)
		}
	}
	sb.WriteString("}\n")
}

func writeBlockHeader(sb *strings.Builder, blk *il.BasicBlock) {
	sb.WriteString(blk.Label)
	if len(blk.Params) > 0 {
		sb.WriteByte('(')
		for i, p := range blk.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "%%%s: %s", p.Name, p.Ty)
		}
		sb.WriteByte(')')
	}
	sb.WriteString(":\n")
}

func writeInstr(sb *strings.Builder, instr il.Instr) {
	sb.WriteString("  ")
	if instr.Result != nil {
		fmt.Fprintf(sb, "%%%s = ", instr.Result.Sym)
	}

	switch instr.Op {
	case il.OpAdd, il.OpSub, il.OpMul, il.OpSDiv, il.OpSDivChk0, il.OpUDiv, il.OpUDivChk0,
		il.OpSRem, il.OpURem, il.OpAnd, il.OpOr, il.OpXor, il.OpShl, il.OpLShr, il.OpAShr, il.OpIAddOvf,
		il.OpICmpEq, il.OpICmpNe, il.OpSCmpLT, il.OpSCmpLE, il.OpSCmpGT, il.OpSCmpGE,
		il.OpUCmpLT, il.OpUCmpLE, il.OpUCmpGT, il.OpUCmpGE,
		il.OpFCmpEq, il.OpFCmpNe, il.OpFCmpLT, il.OpFCmpLE, il.OpFCmpGT, il.OpFCmpGE:
		ty := operandType(instr)
		fmt.Fprintf(sb, "%s %s %s, %s\n", instr.Op, ty, instr.Operands[0], instr.Operands[1])

	case il.OpSIToFP, il.OpFPToSI, il.OpTrunc1, il.OpZExt1, il.OpSExt, il.OpTrunc:
		resTy := il.Void
		if instr.Result != nil {
			resTy = instr.Result.Ty
		}
		fmt.Fprintf(sb, "%s %s %s\n", instr.Op, resTy, instr.Operands[0])

	case il.OpAlloca:
		fmt.Fprintf(sb, "%s %s\n", instr.Op, instr.Operands[0])

	case il.OpLoad:
		resTy := il.Void
		if instr.Result != nil {
			resTy = instr.Result.Ty
		}
		fmt.Fprintf(sb, "%s %s, %s\n", instr.Op, resTy, instr.Operands[0])

	case il.OpStore:
		fmt.Fprintf(sb, "%s %s, %s, %s\n", instr.Op, instr.Operands[0].Ty, instr.Operands[0], instr.Operands[1])

	case il.OpConstStr:
		fmt.Fprintf(sb, "%s %s\n", instr.Op, instr.Operands[0])

	case il.OpConstInt:
		resTy := il.Void
		if instr.Result != nil {
			resTy = instr.Result.Ty
		}
		fmt.Fprintf(sb, "%s %s %s\n", instr.Op, resTy, instr.Operands[0])

	case il.OpGlobalAddr:
		fmt.Fprintf(sb, "%s %s\n", instr.Op, instr.Operands[0])

	case il.OpBr:
		fmt.Fprintf(sb, "%s %s\n", instr.Op, branchTargetString(instr.Targets[0]))

	case il.OpCBr:
		fmt.Fprintf(sb, "%s %s, %s, %s\n", instr.Op, instr.Operands[0],
			branchTargetString(instr.Targets[0]), branchTargetString(instr.Targets[1]))

	case il.OpSwitchI32:
		sb.WriteString(instr.Op.String())
		fmt.Fprintf(sb, " %s", instr.Operands[0])
		for i, tgt := range instr.Targets {
			sb.WriteString(", ")
			if i == len(instr.Targets)-1 && len(instr.CaseValues) == len(instr.Targets)-1 {
				sb.WriteString("default -> ")
			} else {
				fmt.Fprintf(sb, "%d -> ", instr.CaseValues[i])
			}
			sb.WriteString(branchTargetString(tgt))
		}
		sb.WriteByte('\n')

	case il.OpRet:
		if len(instr.Operands) > 0 {
			fmt.Fprintf(sb, "%s %s\n", instr.Op, instr.Operands[0])
		} else {
			sb.WriteString(instr.Op.String() + "\n")
		}

	case il.OpCall:
		fmt.Fprintf(sb, "%s %s(%s)\n", instr.Op, instr.Operands[0], joinValues(instr.Operands[1:]))

	case il.OpCallIndirect:
		fmt.Fprintf(sb, "%s %s(%s)\n", instr.Op, instr.Operands[0], joinValues(instr.Operands[1:]))

	case il.OpEHPush:
		fmt.Fprintf(sb, "%s ^%s\n", instr.Op, instr.Labels[0])

	case il.OpEHPop, il.OpEHEntry, il.OpTrap:
		sb.WriteString(instr.Op.String() + "\n")

	case il.OpTrapFromErr:
		fmt.Fprintf(sb, "%s %s %s\n", instr.Op, instr.Operands[0].Ty, instr.Operands[0])

	case il.OpResumeSame, il.OpResumeNext:
		fmt.Fprintf(sb, "%s %s\n", instr.Op, instr.Operands[0])

	case il.OpResumeLabel:
		fmt.Fprintf(sb, "%s %s, ^%s\n", instr.Op, instr.Operands[0], instr.Labels[0])

	default:
		sb.WriteString(instr.Op.String() + "\n")
	}
}

func operandType(instr il.Instr) il.Type {
	if instr.Result != nil {
		return instr.Result.Ty
	}
	if len(instr.Operands) > 0 {
		return instr.Operands[0].Ty
	}
	return il.Void
}

func branchTargetString(t il.BranchTarget) string {
	if len(t.Args) == 0 {
		return "^" + t.Label
	}
	return fmt.Sprintf("^%s(%s)", t.Label, joinValues(t.Args))
}

func joinValues(vals []il.Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
