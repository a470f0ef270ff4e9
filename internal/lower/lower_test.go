package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/source"
)

func TestBlockNamerDeduplicates(t *testing.T) {
	n := NewBlockNamer()
	assert.Equal(t, "entry", n.Next("entry"))
	assert.Equal(t, "then", n.Next("then"))
	assert.Equal(t, "then.1", n.Next("then"))
	assert.Equal(t, "then.2", n.Next("then"))
}

func TestStringTableInternsOnce(t *testing.T) {
	mod := &il.Module{}
	tbl := NewStringTable(mod)

	name1 := tbl.Intern("hello")
	name2 := tbl.Intern("world")
	name3 := tbl.Intern("hello")

	assert.Equal(t, name1, name3)
	assert.NotEqual(t, name1, name2)
	require.Len(t, mod.Globals, 2)
	assert.True(t, mod.GlobalByName(name1).Const)
	assert.Equal(t, []byte("hello"), mod.GlobalByName(name1).Bytes)

	ref := tbl.Ref("hello")
	assert.Equal(t, il.ConstStrKind, ref.Kind)
	assert.Equal(t, name1, ref.Sym)
}

func TestMangleSanitizesAndJoins(t *testing.T) {
	assert.Equal(t, "Foo.bar", Mangle([]string{"Foo"}, "bar"))
	assert.Equal(t, "Foo.Bar.baz_qux", Mangle([]string{"Foo", "Bar"}, "baz qux"))
	assert.Equal(t, "Shape$area", MangleMethod("Shape", "area"))
}

func TestBuiltinRegistryLookup(t *testing.T) {
	reg := NewBuiltinRegistry()
	fn := CallExtern("rt_println", il.Void)
	reg.Register("println", fn)

	got, ok := reg.Lookup("println")
	assert.True(t, ok)
	assert.NotNil(t, got)

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}

func TestCallExternEmitsCallForNonVoidReturn(t *testing.T) {
	fnDef := &il.Function{Name: "f", RetType: il.I64}
	b := il.NewBuilder(fnDef)
	blk := b.NewBlock("entry")
	b.SetCurrent(blk)

	lowerFn := CallExtern("rt_len", il.I64)
	result := lowerFn(b, source.Loc{}, []il.Value{il.ConstStrRef(".L0")})

	require.Len(t, blk.Instrs, 1)
	assert.Equal(t, il.OpCall, blk.Instrs[0].Op)
	require.NotNil(t, blk.Instrs[0].Result)
	assert.Equal(t, il.I64, result.Ty)
}

func TestOwnershipRetainReleaseOnlyAffectStrings(t *testing.T) {
	fnDef := &il.Function{Name: "f", RetType: il.Void}
	b := il.NewBuilder(fnDef)
	blk := b.NewBlock("entry")
	b.SetCurrent(blk)

	intVal := il.ConstInt(il.I64, 1)
	strVal := il.ConstStrRef(".L0")

	EmitRetainMaybe(b, source.Loc{}, intVal)
	assert.Empty(t, blk.Instrs, "retain on a non-string value must be a no-op")

	EmitRetainMaybe(b, source.Loc{}, strVal)
	require.Len(t, blk.Instrs, 1)

	ReleaseAll(b, source.Loc{}, []il.Value{intVal, strVal})
	require.Len(t, blk.Instrs, 2, "only the string value should have produced a release call")
}

func TestRValTableSetGet(t *testing.T) {
	tbl := NewRValTable()
	node := "some-ast-node"

	_, ok := tbl.Get(node)
	assert.False(t, ok)

	rv := RVal{Value: il.ConstInt(il.I32, 5), Ty: il.I32}
	tbl.Set(node, rv)

	got, ok := tbl.Get(node)
	require.True(t, ok)
	assert.Equal(t, rv, got)
}

func TestVisibilityRejectsCrossEntityPrivateAccess(t *testing.T) {
	v := NewVisibility()
	v.Declare("Account", "balance", true)
	v.Declare("Account", "name", false)

	assert.Nil(t, v.CheckAccess("Account", "name", "Other", source.Loc{}))
	assert.Nil(t, v.CheckAccess("Account", "balance", "Account", source.Loc{}))

	diag := v.CheckAccess("Account", "balance", "Other", source.Loc{})
	require.NotNil(t, diag)
	assert.Equal(t, DiagPrivateMemberAccess, diag.Code)
}
