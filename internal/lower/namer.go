// Package lower provides the frontend-agnostic services a lowerer needs to
// turn a typed AST into well-formed IL: block naming, string interning,
// string-ownership insertion, and dispatch table lookups. None of it knows
// anything about any particular source language's grammar.
package lower

import "fmt"

// BlockNamer hands out unique, human-readable block labels for a single
// function being lowered. Names are deterministic given the call order,
// which keeps generated IL (and its golden-file tests) stable across runs.
type BlockNamer struct {
	counts map[string]int
}

// NewBlockNamer returns an empty namer for one function's lowering pass.
func NewBlockNamer() *BlockNamer {
	return &BlockNamer{counts: map[string]int{}}
}

// Next returns a fresh label built from hint, suffixed with a counter once
// the hint has been used before (entry, then, then.1, then.2, ...).
func (n *BlockNamer) Next(hint string) string {
	count := n.counts[hint]
	n.counts[hint] = count + 1
	if count == 0 {
		return hint
	}
	return fmt.Sprintf("%s.%d", hint, count)
}
