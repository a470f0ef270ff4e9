package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/rt"
	"github.com/viperlang/ilc/internal/source"
)

// addTwoAndThree builds `func @main() -> i64 { entry: %t = add 2, 3; ret %t }`.
func addTwoAndThree() *il.Module {
	fn := &il.Function{Name: "main", RetType: il.I64}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	sum := b.EmitValue(il.OpAdd, il.I64, source.Loc{}, il.ConstInt(il.I64, 2), il.ConstInt(il.I64, 3))
	b.EmitRet(source.Loc{}, &sum)
	return &il.Module{Version: il.Version{Major: 0, Minor: 2}, Funcs: []*il.Function{fn}}
}

func TestRunnerRunReturnsComputedValue(t *testing.T) {
	v, err := New(addTwoAndThree(), rt.NewRegistry(), "main")
	require.NoError(t, err)

	r := NewRunner(v)
	got := r.Run()
	assert.Equal(t, int64(5), got)
	assert.Nil(t, r.LastTrap())
}

func TestNewRejectsUnknownEntryFunction(t *testing.T) {
	_, err := New(addTwoAndThree(), rt.NewRegistry(), "nope")
	assert.Error(t, err)
}

func TestStepAdvancesOneInstructionAtATime(t *testing.T) {
	v, err := New(addTwoAndThree(), rt.NewRegistry(), "main")
	require.NoError(t, err)

	cursor := v.CurrentCursor()
	require.True(t, cursor.HasInstr)
	assert.Equal(t, il.OpAdd, cursor.Op)

	status := v.Step()
	assert.Equal(t, StepOK, status)

	cursor = v.CurrentCursor()
	require.True(t, cursor.HasInstr)
	assert.Equal(t, il.OpRet, cursor.Op)

	status = v.Step()
	assert.Equal(t, StepReturned, status)
}

func TestDivisionByZeroTraps(t *testing.T) {
	fn := &il.Function{Name: "main", RetType: il.I64}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	quot := b.EmitValue(il.OpSDiv, il.I64, source.Loc{}, il.ConstInt(il.I64, 1), il.ConstInt(il.I64, 0))
	b.EmitRet(source.Loc{}, &quot)
	mod := &il.Module{Version: il.Version{Major: 0, Minor: 2}, Funcs: []*il.Function{fn}}

	v, err := New(mod, rt.NewRegistry(), "main")
	require.NoError(t, err)
	r := NewRunner(v)
	r.Run()

	trap := r.LastTrap()
	require.NotNil(t, trap)
	assert.Contains(t, trap.Message, "division by zero")
}

func TestContinueRunStopsAtBreakpoint(t *testing.T) {
	fn := &il.Function{Name: "main", RetType: il.Void}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	b.EmitBr(source.Loc{}, "next")
	b.NewBlock("next")
	b.EmitRet(source.Loc{}, nil)
	mod := &il.Module{Version: il.Version{Major: 0, Minor: 2}, Funcs: []*il.Function{fn}}

	v, err := New(mod, rt.NewRegistry(), "main")
	require.NoError(t, err)
	r := NewRunner(v)
	r.SetBreakpoint("main", "next")

	status := r.ContinueRun()
	assert.Equal(t, RunBreakpoint, status)
	assert.Equal(t, "next", r.Cursor().Block)

	r.ClearBreakpoints()
	status = r.ContinueRun()
	assert.Equal(t, RunCompleted, status)
}

func TestContinueRunRespectsStepBudget(t *testing.T) {
	v, err := New(addTwoAndThree(), rt.NewRegistry(), "main")
	require.NoError(t, err)
	r := NewRunner(v)
	r.SetMaxSteps(1)

	status := r.ContinueRun()
	assert.Equal(t, RunStepBudgetExceeded, status)
}

func TestCallDispatchesToRegisteredExtern(t *testing.T) {
	fn := &il.Function{Name: "main", RetType: il.I64}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	res := b.EmitValue(il.OpCall, il.I64, source.Loc{}, il.GlobalRef(il.Ptr, "rt_double"), il.ConstInt(il.I64, 21))
	b.EmitRet(source.Loc{}, &res)
	mod := &il.Module{Version: il.Version{Major: 0, Minor: 2}, Funcs: []*il.Function{fn}}

	reg := rt.NewRegistry()
	reg.Register(rt.ExternDesc{
		Name:   "rt_double",
		Params: []il.Type{il.I64},
		Fn: func(args []il.Value) (il.Value, error) {
			return il.ConstInt(il.I64, args[0].IntVal*2), nil
		},
	})

	v, err := New(mod, reg, "main")
	require.NoError(t, err)
	r := NewRunner(v)
	got := r.Run()
	assert.Equal(t, int64(42), got)
	assert.Nil(t, r.LastTrap())
}

func TestCallToUndefinedFunctionTraps(t *testing.T) {
	fn := &il.Function{Name: "main", RetType: il.Void}
	b := il.NewBuilder(fn)
	b.NewBlock("entry")
	b.EmitVoid(il.OpCall, source.Loc{}, il.GlobalRef(il.Ptr, "does_not_exist"))
	b.EmitRet(source.Loc{}, nil)
	mod := &il.Module{Version: il.Version{Major: 0, Minor: 2}, Funcs: []*il.Function{fn}}

	v, err := New(mod, rt.NewRegistry(), "main")
	require.NoError(t, err)
	r := NewRunner(v)
	r.Run()
	require.NotNil(t, r.LastTrap())
}

func TestOpcodeCountsAndTopOpcodes(t *testing.T) {
	v, err := New(addTwoAndThree(), rt.NewRegistry(), "main")
	require.NoError(t, err)
	r := NewRunner(v)
	r.Run()

	counts := r.OpcodeCounts()
	assert.Equal(t, uint64(1), counts[il.OpAdd])
	assert.Equal(t, uint64(1), counts[il.OpRet])

	top := r.TopOpcodes(1)
	require.Len(t, top, 1)
	assert.Equal(t, uint64(1), top[0].Count)
}

func TestStepStatusAndRunStatusStrings(t *testing.T) {
	assert.Equal(t, "ok", StepOK.String())
	assert.Equal(t, "trapped", StepTrapped.String())
	assert.Equal(t, "returned", StepReturned.String())
	assert.Equal(t, "halted", StepHalted.String())
	assert.Equal(t, "unknown", StepStatus(99).String())

	assert.Equal(t, "completed", RunCompleted.String())
	assert.Equal(t, "trapped", RunTrapped.String())
	assert.Equal(t, "breakpoint", RunBreakpoint.String())
	assert.Equal(t, "step_budget_exceeded", RunStepBudgetExceeded.String())
	assert.Equal(t, "unknown", RunStatus(99).String())
}
