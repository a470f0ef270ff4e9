package ilverify

import (
	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/source"
)

// verifyEHDiscipline checks pass 5: eh.push/eh.pop nest like a stack along
// every path through the function, resume.* never runs without a live
// handler token, and resume.label only ever targets a block that
// post-dominates the resume point.
//
// The walk tracks an abstract push-depth per block (the depth on entry,
// derived from predecessors) rather than a real token value, since the
// invariant being checked is purely structural: LIFO nesting, not which
// specific handler is active.
func verifyEHDiscipline(fn *il.Function) []source.Diag {
	var diags []source.Diag
	entry := fn.Entry()
	if entry == nil {
		return diags
	}

	depthOnEntry := map[string]int{entry.Label: 0}
	order := reversePostorder(fn)
	visited := map[string]bool{}

	for _, label := range order {
		blk := fn.BlockByLabel(label)
		if blk == nil {
			continue
		}
		depth, ok := depthOnEntry[label]
		if !ok {
			continue
		}
		visited[label] = true

		hasActiveToken := depth > 0
		cur := depth
		for _, instr := range blk.Instrs {
			switch instr.Op {
			case il.OpEHPush:
				cur++
				hasActiveToken = true
			case il.OpEHPop:
				if cur == 0 {
					diags = append(diags, diag("verify.eh.unmatched_pop", "eh.pop in block %q of function %q has no matching eh.push", blk.Label, fn.Name))
				} else {
					cur--
				}
			case il.OpResumeSame, il.OpResumeNext, il.OpResumeLabel:
				if !hasActiveToken {
					diags = append(diags, diag("verify.eh.resume_token_missing", "%s in block %q of function %q runs without an active exception handler", instr.Op, blk.Label, fn.Name))
				}
				if instr.Op == il.OpResumeLabel && len(instr.Labels) > 0 {
					if !postDominates(fn, instr.Labels[0], blk.Label) {
						diags = append(diags, diag("verify.eh.resume_label_target", "resume.label in block %q of function %q targets ^%s, which does not post-dominate the resume point", blk.Label, fn.Name, instr.Labels[0]))
					}
				}
			case il.OpRet:
				if cur != 0 {
					diags = append(diags, diag("verify.eh.unreleased", "function %q returns from block %q with unmatched eh.push depth %d", fn.Name, blk.Label, cur))
				}
			}
		}

		for _, instr := range blk.Instrs {
			for _, t := range instr.Targets {
				if existing, ok := depthOnEntry[t.Label]; ok {
					if existing != cur {
						diags = append(diags, diag("verify.eh.inconsistent_depth", "block %q of function %q is reached with eh.push depth %d from one path and %d from another", t.Label, fn.Name, existing, cur))
					}
					continue
				}
				depthOnEntry[t.Label] = cur
			}
		}
	}

	return diags
}

// postDominates reports whether block b post-dominates block a: every path
// from a to the function's returns passes through b. Computed with the same
// iterative fixed point as forward dominance, over the reversed CFG.
func postDominates(fn *il.Function, b, a string) bool {
	if a == b {
		return true
	}
	succ := map[string][]string{}
	var exits []string
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			for _, t := range instr.Targets {
				succ[blk.Label] = append(succ[blk.Label], t.Label)
			}
			if instr.Op == il.OpRet {
				exits = append(exits, blk.Label)
			}
		}
	}
	if len(exits) == 0 {
		return false
	}

	preds := map[string][]string{}
	for from, tos := range succ {
		for _, to := range tos {
			preds[to] = append(preds[to], from)
		}
	}

	// Reverse postorder of the reversed graph, rooted at a virtual exit
	// connecting to every real exit block.
	visited := map[string]bool{}
	var order []string
	var walk func(label string)
	walk = func(label string) {
		if visited[label] {
			return
		}
		visited[label] = true
		for _, p := range preds[label] {
			walk(p)
		}
		order = append(order, label)
	}
	for _, e := range exits {
		walk(e)
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	const virtualExit = "\x00exit"
	idx := map[string]int{virtualExit: -1}
	for i, l := range order {
		idx[l] = i
	}

	ipdom := map[string]string{virtualExit: virtualExit}
	for _, e := range exits {
		ipdom[e] = virtualExit
	}
	changed := true
	for changed {
		changed = false
		for _, label := range order {
			isExit := false
			for _, e := range exits {
				if label == e {
					isExit = true
					break
				}
			}
			if isExit {
				continue
			}
			var newIdom string
			for _, s := range succ[label] {
				if _, ok := ipdom[s]; !ok {
					continue
				}
				if newIdom == "" {
					newIdom = s
					continue
				}
				newIdom = intersect(newIdom, s, ipdom, idx)
			}
			if newIdom != "" && ipdom[label] != newIdom {
				ipdom[label] = newIdom
				changed = true
			}
		}
	}

	cur, ok := ipdom[a]
	for ok {
		if cur == b {
			return true
		}
		if cur == ipdom[cur] {
			break
		}
		cur, ok = ipdom[cur], ipdom[cur] != ""
	}
	return false
}
