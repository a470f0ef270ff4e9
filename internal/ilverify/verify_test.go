package ilverify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/source"
)

func wellFormedModule() *il.Module {
	fn := &il.Function{Name: "main", RetType: il.Void}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	b.EmitRet(source.Loc{}, nil)
	return &il.Module{Version: il.Version{Major: 0, Minor: 2}, Funcs: []*il.Function{fn}}
}

func TestVerifyAcceptsWellFormedModule(t *testing.T) {
	diags := Verify(wellFormedModule())
	assert.Empty(t, diags)
}

func TestVerifyFlagsMissingVersion(t *testing.T) {
	mod := wellFormedModule()
	mod.Version = il.Version{}
	diags := Verify(mod)
	require.NotEmpty(t, diags)
	assertHasCode(t, diags, "verify.module.version_missing")
}

func TestVerifyFlagsDuplicateFunctionNames(t *testing.T) {
	mod := wellFormedModule()
	mod.Funcs = append(mod.Funcs, mod.Funcs[0])
	diags := Verify(mod)
	assertHasCode(t, diags, "verify.module.duplicate_func")
}

func TestVerifyFlagsUnreachableBlock(t *testing.T) {
	fn := &il.Function{Name: "f", RetType: il.Void}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	b.EmitRet(source.Loc{}, nil)
	b.NewBlock("orphan") // never branched to
	b.EmitRet(source.Loc{}, nil)

	mod := &il.Module{Version: il.Version{Major: 0, Minor: 2}, Funcs: []*il.Function{fn}}
	diags := Verify(mod)
	assertHasCode(t, diags, "verify.func.unreachable_block")
}

func TestVerifyFlagsUnterminatedBlock(t *testing.T) {
	fn := &il.Function{Name: "f", RetType: il.Void}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	// no terminator emitted

	mod := &il.Module{Version: il.Version{Major: 0, Minor: 2}, Funcs: []*il.Function{fn}}
	diags := Verify(mod)
	assertHasCode(t, diags, "verify.func.unterminated_block")
}

func TestVerifyFlagsBranchArityMismatch(t *testing.T) {
	fn := &il.Function{Name: "f", RetType: il.Void}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	b.EmitBr(source.Loc{}, "target", il.ConstInt(il.I64, 1))
	target := b.NewBlock("target") // no params declared, but branch supplies one arg
	_ = target
	b.EmitRet(source.Loc{}, nil)

	mod := &il.Module{Version: il.Version{Major: 0, Minor: 2}, Funcs: []*il.Function{fn}}
	diags := Verify(mod)
	assertHasCode(t, diags, "verify.branch.arity")
}

func TestVerifyFlagsBranchArgTypeMismatch(t *testing.T) {
	fn := &il.Function{Name: "f", RetType: il.Void}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	b.EmitBr(source.Loc{}, "target", il.ConstInt(il.I64, 1))
	target := b.NewBlock("target", il.BlockParam{Name: "p", Ty: il.F64, ID: 1})
	b.SetCurrent(target)
	b.EmitRet(source.Loc{}, nil)

	mod := &il.Module{Version: il.Version{Major: 0, Minor: 2}, Funcs: []*il.Function{fn}}
	diags := Verify(mod)
	assertHasCode(t, diags, "verify.branch.arg_type")
}

func assertHasCode(t *testing.T, diags []source.Diag, code string) {
	t.Helper()
	for _, d := range diags {
		if d.Code == code {
			return
		}
	}
	t.Fatalf("expected a diagnostic with code %q, got %+v", code, diags)
}
