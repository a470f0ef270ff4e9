package ilverify

import (
	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/source"
)

// verifySSAAndTypes checks pass 3: every non-block-parameter use is
// dominated by its definition, and call argument/return types match the
// callee signature. Type checking covers `call` only; operands of other
// opcodes (call.indirect included) are not checked against their opcode.
//
// Dominance is checked with the standard SSA shortcut for a single-pass
// block-structured IL: a temp's definition must occur in a block that
// dominates every block using it. We compute dominance via the classic
// iterative data-flow fixed point over the function's CFG, which is cheap
// at the sizes this verifier runs over and avoids a separate dominator-tree
// library dependency.
func verifySSAAndTypes(m *il.Module, fn *il.Function) []source.Diag {
	var diags []source.Diag

	dom := computeDominance(fn)
	defBlock := map[uint32]string{}
	for _, blk := range fn.Blocks {
		for _, p := range blk.Params {
			defBlock[p.ID] = blk.Label
		}
		for _, instr := range blk.Instrs {
			if instr.Result != nil {
				defBlock[instr.Result.ID] = blk.Label
			}
		}
	}

	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			for _, operand := range instr.Operands {
				if !operand.IsSSA() {
					continue
				}
				defB, ok := defBlock[operand.ID]
				if !ok {
					diags = append(diags, diag("verify.ssa.undefined", "use of %%%s in block %q has no reaching definition", operand.Sym, blk.Label))
					continue
				}
				if !dom.dominates(defB, blk.Label) {
					diags = append(diags, diag("verify.ssa.not_dominated", "use of %%%s in block %q is not dominated by its definition in block %q", operand.Sym, blk.Label, defB))
				}
			}
			diags = append(diags, checkOperandTypes(m, instr)...)
		}
	}
	return diags
}

func checkOperandTypes(m *il.Module, instr il.Instr) []source.Diag {
	var diags []source.Diag
	switch instr.Op {
	case il.OpCall:
		if len(instr.Operands) == 0 {
			return diags
		}
		callee := instr.Operands[0].Sym
		sig, retTy, ok := resolveCallee(m, callee)
		if !ok {
			diags = append(diags, diag("verify.type.unknown_callee", "call target %q is not declared", callee))
			return diags
		}
		args := instr.Operands[1:]
		if len(args) != len(sig) {
			diags = append(diags, diag("verify.type.call_arity", "call to %q supplies %d argument(s), expected %d", callee, len(args), len(sig)))
		} else {
			for i, a := range args {
				if a.Ty != sig[i] {
					diags = append(diags, typeMismatch("verify.type.call_arg", "call argument "+string(rune('0'+i)), a.Ty, sig[i]))
				}
			}
		}
		if instr.Result != nil && instr.Result.Ty != retTy {
			diags = append(diags, typeMismatch("verify.type.call_result", "call result", instr.Result.Ty, retTy))
		}
	}
	return diags
}

func resolveCallee(m *il.Module, name string) (params []il.Type, ret il.Type, ok bool) {
	if fn := m.FuncByName(name); fn != nil {
		return fn.Params, fn.RetType, true
	}
	if ext := m.ExternByName(name); ext != nil {
		return ext.Params, ext.RetType, true
	}
	return nil, il.Void, false
}

// domInfo is the per-function dominator relation computed once and queried
// by dominates(a, b): does block a dominate block b?
type domInfo struct {
	idom  map[string]string
	order []string
}

func computeDominance(fn *il.Function) *domInfo {
	entry := fn.Entry()
	if entry == nil {
		return &domInfo{idom: map[string]string{}}
	}

	preds := map[string][]string{}
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			for _, t := range instr.Targets {
				preds[t.Label] = append(preds[t.Label], blk.Label)
			}
		}
	}

	order := reversePostorder(fn)
	idx := map[string]int{}
	for i, l := range order {
		idx[l] = i
	}

	idom := map[string]string{entry.Label: entry.Label}
	changed := true
	for changed {
		changed = false
		for _, label := range order {
			if label == entry.Label {
				continue
			}
			var newIdom string
			for _, p := range preds[label] {
				if _, ok := idom[p]; !ok {
					continue
				}
				if newIdom == "" {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, idom, idx)
			}
			if newIdom != "" && idom[label] != newIdom {
				idom[label] = newIdom
				changed = true
			}
		}
	}
	return &domInfo{idom: idom, order: order}
}

func intersect(a, b string, idom map[string]string, idx map[string]int) string {
	for a != b {
		for idx[a] > idx[b] {
			a = idom[a]
		}
		for idx[b] > idx[a] {
			b = idom[b]
		}
	}
	return a
}

func reversePostorder(fn *il.Function) []string {
	visited := map[string]bool{}
	var postorder []string
	var walk func(label string)
	walk = func(label string) {
		if visited[label] {
			return
		}
		visited[label] = true
		blk := fn.BlockByLabel(label)
		if blk == nil {
			return
		}
		for _, instr := range blk.Instrs {
			for _, t := range instr.Targets {
				walk(t.Label)
			}
		}
		postorder = append(postorder, label)
	}
	if entry := fn.Entry(); entry != nil {
		walk(entry.Label)
	}
	// reverse
	for i, j := 0, len(postorder)-1; i < j; i, j = i+1, j-1 {
		postorder[i], postorder[j] = postorder[j], postorder[i]
	}
	return postorder
}

func (d *domInfo) dominates(a, b string) bool {
	if a == b {
		return true
	}
	cur, ok := d.idom[b]
	for ok {
		if cur == a {
			return true
		}
		if cur == d.idom[cur] {
			break
		}
		cur, ok = d.idom[cur], d.idom[cur] != ""
	}
	return false
}
