package stress

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/rt"
	"github.com/viperlang/ilc/internal/source"
	"github.com/viperlang/ilc/internal/vm"
)

// buildTrappingModule returns a module whose entry function calls the
// extern "trap_self", which formats a trap message from rt.ActiveVM()'s
// current context and returns an error (becoming a VM trap).
func buildTrappingModule(label string) *il.Module {
	fn := &il.Function{Name: "main", RetType: il.I64}
	b := il.NewBuilder(fn)
	b.NewBlock(label)
	b.EmitVoid(il.OpCall, source.Loc{}, il.GlobalRef(il.Void, "trap_self"))
	b.EmitRet(source.Loc{}, nil)

	return &il.Module{
		Version: il.Version{Major: 0, Minor: 2},
		Externs: []il.Extern{{Name: "trap_self"}},
		Funcs:   []*il.Function{fn},
	}
}

// TestCrossThreadTrapIsolation is scenario S6 / property P8: two VMs
// running concurrently on separate goroutines each trap via an extern that
// reads rt.ActiveVM().CurrentContext(); neither trap message may reference
// the other VM's function/block or carry the other VM's tag.
func TestCrossThreadTrapIsolation(t *testing.T) {
	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			tag := fmt.Sprintf("vm-%d", idx)
			mod := buildTrappingModule(fmt.Sprintf("entry.%s", tag))

			reg := rt.NewRegistry()
			reg.Register(rt.ExternDesc{
				Name: "trap_self",
				Fn: func(args []il.Value) (il.Value, error) {
					ctx := rt.ActiveVM().CurrentContext()
					return il.Value{}, fmt.Errorf("%s: trapped in %s/%s", tag, ctx.Func, ctx.Block)
				},
			})

			machine, err := vm.New(mod, reg, "main")
			if err != nil {
				errs[idx] = err
				return
			}
			runner := vm.NewRunner(machine)
			runner.Run()

			trap := runner.LastTrap()
			if trap == nil {
				errs[idx] = fmt.Errorf("%s: expected a trap, got none", tag)
				return
			}
			if !strings.Contains(trap.Message, tag) {
				errs[idx] = fmt.Errorf("%s: trap message %q does not reference own tag", tag, trap.Message)
				return
			}
			if !strings.Contains(trap.Message, "entry."+tag) {
				errs[idx] = fmt.Errorf("%s: trap message %q does not reference own block", tag, trap.Message)
				return
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "vm %d", i)
	}
}
