package arm64

import (
	"fmt"
	"sort"
	"strings"

	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/mir"
)

// Emit renders funcs (already peephole-cleaned) plus mod's string globals
// into GNU-as-flavored AArch64 assembly text. Output is fully deterministic:
// functions are emitted in the order given, globals sorted by name, and every register/
// immediate/label is rendered by a pure function of its value, so the same
// input always produces byte-identical text.
func Emit(mod *il.Module, funcs []mir.Func) string {
	var b strings.Builder

	b.WriteString(".text\n")
	for _, fn := range funcs {
		emitFunc(&b, fn)
	}

	if len(mod.Globals) > 0 {
		b.WriteString("\n.section .rodata\n")
		emitGlobals(&b, mod.Globals)
	}

	return b.String()
}

func emitFunc(b *strings.Builder, fn mir.Func) {
	fmt.Fprintf(b, "\n.globl %s\n%s:\n", fn.Name, fn.Name)
	for _, instr := range fn.Instrs {
		emitInstr(b, instr)
	}
}

func emitInstr(b *strings.Builder, instr mir.Instr) {
	if instr.Op == mir.OpLabel {
		fmt.Fprintf(b, "%s:\n", instr.Label)
		return
	}
	fmt.Fprintf(b, "\t%s\n", renderInstr(instr))
}

func renderInstr(instr mir.Instr) string {
	switch instr.Op {
	case mir.OpMovRR:
		return fmt.Sprintf("mov %s, %s", instr.Dst, instr.Src1)
	case mir.OpMovRI:
		if instr.Label != "" {
			return fmt.Sprintf("adrp %s, %s", instr.Dst, instr.Label)
		}
		return fmt.Sprintf("mov %s, #%d", instr.Dst, instr.Imm)
	case mir.OpAddRRR:
		return fmt.Sprintf("add %s, %s, %s", instr.Dst, instr.Src1, instr.Src2)
	case mir.OpAddRI:
		return fmt.Sprintf("add %s, %s, #%d", instr.Dst, instr.Src1, instr.Imm)
	case mir.OpSubRRR:
		return fmt.Sprintf("sub %s, %s, %s", instr.Dst, instr.Src1, instr.Src2)
	case mir.OpSubRI:
		return fmt.Sprintf("sub %s, %s, #%d", instr.Dst, instr.Src1, instr.Imm)
	case mir.OpMulRRR:
		return fmt.Sprintf("mul %s, %s, %s", instr.Dst, instr.Src1, instr.Src2)
	case mir.OpSDiv:
		return fmt.Sprintf("sdiv %s, %s, %s", instr.Dst, instr.Src1, instr.Src2)
	case mir.OpUDiv:
		return fmt.Sprintf("udiv %s, %s, %s", instr.Dst, instr.Src1, instr.Src2)
	case mir.OpMadd:
		return fmt.Sprintf("madd %s, %s, %s, %s", instr.Dst, instr.Src1, instr.Src2, instr.Dst)
	case mir.OpMsub:
		return fmt.Sprintf("msub %s, %s, %s, %s", instr.Dst, instr.Src1, instr.Src2, instr.Dst)
	case mir.OpAndRRR:
		return fmt.Sprintf("and %s, %s, %s", instr.Dst, instr.Src1, instr.Src2)
	case mir.OpOrrRRR:
		return fmt.Sprintf("orr %s, %s, %s", instr.Dst, instr.Src1, instr.Src2)
	case mir.OpEorRRR:
		return fmt.Sprintf("eor %s, %s, %s", instr.Dst, instr.Src1, instr.Src2)
	case mir.OpLslRI:
		if instr.Offset < 0 {
			return fmt.Sprintf("lsl %s, %s, %s", instr.Dst, instr.Src1, instr.Src2)
		}
		return fmt.Sprintf("lsl %s, %s, #%d", instr.Dst, instr.Src1, instr.Imm)
	case mir.OpLsrRI:
		if instr.Offset < 0 {
			return fmt.Sprintf("lsr %s, %s, %s", instr.Dst, instr.Src1, instr.Src2)
		}
		return fmt.Sprintf("lsr %s, %s, #%d", instr.Dst, instr.Src1, instr.Imm)
	case mir.OpAsrRI:
		if instr.Offset < 0 {
			return fmt.Sprintf("asr %s, %s, %s", instr.Dst, instr.Src1, instr.Src2)
		}
		return fmt.Sprintf("asr %s, %s, #%d", instr.Dst, instr.Src1, instr.Imm)
	case mir.OpCmpRI:
		return fmt.Sprintf("cmp %s, #%d", instr.Src1, instr.Imm)
	case mir.OpCmpRR:
		return fmt.Sprintf("cmp %s, %s", instr.Src1, instr.Src2)
	case mir.OpTstRR:
		return fmt.Sprintf("tst %s, %s", instr.Src1, instr.Src2)
	case mir.OpCset:
		return fmt.Sprintf("cset %s, %s", instr.Dst, instr.Cond)
	case mir.OpB:
		return fmt.Sprintf("b %s", instr.Label)
	case mir.OpBCond:
		return fmt.Sprintf("b.%s %s", instr.Cond, instr.Label)
	case mir.OpCbz:
		return fmt.Sprintf("cbz %s, %s", instr.Src1, instr.Label)
	case mir.OpCbnz:
		return fmt.Sprintf("cbnz %s, %s", instr.Src1, instr.Label)
	case mir.OpBl:
		return fmt.Sprintf("bl %s", instr.Label)
	case mir.OpBlr:
		return fmt.Sprintf("blr %s", instr.Src1)
	case mir.OpRet:
		return "ret"
	case mir.OpStr:
		return fmt.Sprintf("str %s, [%s, #%d]", instr.Src1, instr.Src2, instr.Offset)
	case mir.OpLdr:
		return fmt.Sprintf("ldr %s, [%s, #%d]", instr.Dst, instr.Src1, instr.Offset)
	case mir.OpStp:
		return fmt.Sprintf("stp %s, %s, [%s, #%d]!", instr.Src1, instr.Src2, instr.Dst, instr.Offset)
	case mir.OpLdp:
		return fmt.Sprintf("ldp %s, %s, [%s], #%d", instr.Src1, instr.Src2, instr.Dst, instr.Offset)
	case mir.OpFMovRR:
		if instr.Offset < 0 {
			return fmt.Sprintf("fmov %s, #%d", instr.Dst, instr.Imm)
		}
		return fmt.Sprintf("fmov %s, %s", instr.Dst, instr.Src1)
	case mir.OpFAddRRR:
		return fmt.Sprintf("fadd %s, %s, %s", instr.Dst, instr.Src1, instr.Src2)
	case mir.OpFSubRRR:
		return fmt.Sprintf("fsub %s, %s, %s", instr.Dst, instr.Src1, instr.Src2)
	case mir.OpFMulRRR:
		return fmt.Sprintf("fmul %s, %s, %s", instr.Dst, instr.Src1, instr.Src2)
	case mir.OpFDivRRR:
		return fmt.Sprintf("fdiv %s, %s, %s", instr.Dst, instr.Src1, instr.Src2)
	case mir.OpScvtf:
		return fmt.Sprintf("scvtf %s, %s", instr.Dst, instr.Src1)
	case mir.OpFcvtzs:
		return fmt.Sprintf("fcvtzs %s, %s", instr.Dst, instr.Src1)
	default:
		return fmt.Sprintf("; unhandled op %d", instr.Op)
	}
}

// emitGlobals writes each string global as a byte-exact .byte sequence
// rather than .ascii/.string, since Bytes may contain embedded zeros that
// those directives would mis-terminate.
func emitGlobals(b *strings.Builder, globals []il.Global) {
	sorted := make([]il.Global, len(globals))
	copy(sorted, globals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, g := range sorted {
		fmt.Fprintf(b, "%s:\n", g.Name)
		if len(g.Bytes) == 0 {
			b.WriteString("\t.byte 0\n")
			continue
		}
		parts := make([]string, len(g.Bytes))
		for i, by := range g.Bytes {
			parts[i] = fmt.Sprintf("%d", by)
		}
		fmt.Fprintf(b, "\t.byte %s\n", strings.Join(parts, ", "))
	}
}
