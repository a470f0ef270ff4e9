// Package ilverify implements the structural, typing, SSA-dominance, and
// exception-handling checks every IL module must pass before execution or
// code generation.
package ilverify

import (
	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/source"
)

// Verify runs all passes in order and returns every diagnostic found. A nil
// slice means the module is well-formed; verification never stops at the
// first error so callers see every independent problem at once.
func Verify(m *il.Module) []source.Diag {
	var diags []source.Diag
	diags = append(diags, verifyModuleShape(m)...)
	for _, fn := range m.Funcs {
		diags = append(diags, verifyFunctionShape(fn)...)
		diags = append(diags, verifySSAAndTypes(m, fn)...)
		diags = append(diags, verifyBlockArgTyping(fn)...)
		diags = append(diags, verifyEHDiscipline(fn)...)
	}
	return diags
}

func diag(code string, format string, args ...any) source.Diag {
	return source.Errorf(code, source.Range{}, format, args...)
}

// verifyModuleShape checks pass 1: unique names per category and a version
// directive. Return types are not checked here.
func verifyModuleShape(m *il.Module) []source.Diag {
	var diags []source.Diag
	if m.Version.Major == 0 && m.Version.Minor == 0 && !m.Version.HasPatch {
		diags = append(diags, diag("verify.module.version_missing", "module is missing its version directive"))
	}

	seenExtern := map[string]bool{}
	for _, e := range m.Externs {
		if seenExtern[e.Name] {
			diags = append(diags, diag("verify.module.duplicate_extern", "duplicate extern name %q", e.Name))
		}
		seenExtern[e.Name] = true
	}
	seenGlobal := map[string]bool{}
	for _, g := range m.Globals {
		if seenGlobal[g.Name] {
			diags = append(diags, diag("verify.module.duplicate_global", "duplicate global name %q", g.Name))
		}
		seenGlobal[g.Name] = true
	}
	seenFunc := map[string]bool{}
	for _, f := range m.Funcs {
		if seenFunc[f.Name] {
			diags = append(diags, diag("verify.module.duplicate_func", "duplicate function name %q", f.Name))
		}
		seenFunc[f.Name] = true
	}
	return diags
}

// verifyFunctionShape checks pass 2: an entry block exists, every block is
// reachable, and every block is terminated exactly once at its end.
func verifyFunctionShape(fn *il.Function) []source.Diag {
	var diags []source.Diag
	if len(fn.Blocks) == 0 {
		diags = append(diags, diag("verify.func.no_entry", "function %q has no entry block", fn.Name))
		return diags
	}

	reachable := reachableBlocks(fn)
	for _, blk := range fn.Blocks {
		if !reachable[blk.Label] {
			diags = append(diags, diag("verify.func.unreachable_block", "block %q in function %q is unreachable", blk.Label, fn.Name))
			continue
		}
		if !blk.Terminated {
			diags = append(diags, diag("verify.func.unterminated_block", "block %q in function %q does not end in a terminator", blk.Label, fn.Name))
			continue
		}
		for i, instr := range blk.Instrs {
			isLast := i == len(blk.Instrs)-1
			if instr.IsTerminator() != isLast {
				if instr.IsTerminator() && !isLast {
					diags = append(diags, diag("verify.func.terminator_not_last", "terminator %s in block %q is not the final instruction", instr.Op, blk.Label))
				}
			}
		}
	}
	return diags
}

func reachableBlocks(fn *il.Function) map[string]bool {
	seen := map[string]bool{}
	var walk func(label string)
	walk = func(label string) {
		if seen[label] {
			return
		}
		seen[label] = true
		blk := fn.BlockByLabel(label)
		if blk == nil {
			return
		}
		for _, instr := range blk.Instrs {
			for _, t := range instr.Targets {
				walk(t.Label)
			}
		}
	}
	if entry := fn.Entry(); entry != nil {
		walk(entry.Label)
	}
	return seen
}

// verifyBlockArgTyping checks pass 4: every branch edge supplies argument
// count and types matching its destination block's parameter list.
func verifyBlockArgTyping(fn *il.Function) []source.Diag {
	var diags []source.Diag
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			for _, t := range instr.Targets {
				dst := fn.BlockByLabel(t.Label)
				if dst == nil {
					diags = append(diags, diag("verify.branch.unknown_target", "branch from %q targets undefined block %q", blk.Label, t.Label))
					continue
				}
				if len(t.Args) != len(dst.Params) {
					diags = append(diags, diag("verify.branch.arity", "branch from %q to %q supplies %d argument(s), expected %d", blk.Label, t.Label, len(t.Args), len(dst.Params)))
					continue
				}
				for i, arg := range t.Args {
					if arg.Ty != dst.Params[i].Ty {
						diags = append(diags, diag("verify.branch.arg_type", "branch from %q to %q argument %d has type %s, expected %s", blk.Label, t.Label, i, arg.Ty, dst.Params[i].Ty))
					}
				}
			}
		}
	}
	return diags
}

func typeMismatch(code, ctx string, got, want il.Type) source.Diag {
	return diag(code, "%s: type %s does not match expected %s", ctx, got, want)
}
