package lower

import (
	"fmt"

	"github.com/viperlang/ilc/internal/il"
)

// StringTable interns source string literals into deduplicated IL globals
// named `@.Lk`, the way a lowerer needs to for every `const_str` reference
// it emits: two equal literals anywhere in the module share one global.
type StringTable struct {
	mod     *il.Module
	byValue map[string]string
	next    int
}

// NewStringTable returns a table that appends its interned globals to mod.
func NewStringTable(mod *il.Module) *StringTable {
	return &StringTable{mod: mod, byValue: map[string]string{}}
}

// Intern returns the global name holding s, creating a new `const str`
// global the first time s is seen.
func (t *StringTable) Intern(s string) string {
	if name, ok := t.byValue[s]; ok {
		return name
	}
	name := fmt.Sprintf(".L%d", t.next)
	t.next++
	t.byValue[s] = name
	t.mod.Globals = append(t.mod.Globals, il.Global{
		Name:  name,
		Const: true,
		Bytes: []byte(s),
	})
	return name
}

// Ref returns the interned value's Value, suitable for use as an operand of
// const_str.
func (t *StringTable) Ref(s string) il.Value {
	return il.ConstStrRef(t.Intern(s))
}
