// Package vm implements the IL stepping interpreter: a VM that executes one
// instruction at a time (step), optionally running freely until a
// breakpoint or trap (continueRun), with opcode counters and trap capture
// exposed through the Runner facade for the REPL and CLI.
package vm

import (
	"fmt"

	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/rt"
)

// StepStatus is the outcome of a single VM.Step call.
type StepStatus int

const (
	StepOK StepStatus = iota
	StepTrapped
	StepReturned
	StepHalted
)

func (s StepStatus) String() string {
	switch s {
	case StepOK:
		return "ok"
	case StepTrapped:
		return "trapped"
	case StepReturned:
		return "returned"
	case StepHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// RunStatus is the outcome of a VM.ContinueRun call.
type RunStatus int

const (
	RunCompleted RunStatus = iota
	RunTrapped
	RunBreakpoint
	RunStepBudgetExceeded
)

func (s RunStatus) String() string {
	switch s {
	case RunCompleted:
		return "completed"
	case RunTrapped:
		return "trapped"
	case RunBreakpoint:
		return "breakpoint"
	case RunStepBudgetExceeded:
		return "step_budget_exceeded"
	default:
		return "unknown"
	}
}

// frame is one activation record: the function executing, the block and
// instruction index of the next instruction to run, and the SSA value
// store for that activation.
type frame struct {
	fn       *il.Function
	block    *il.BasicBlock
	instrIdx int
	values   map[uint32]il.Value
	retInto  *uint32 // caller-side SSA id to receive this frame's return value, if any
}

// VM executes one module's functions starting from a chosen entry point.
// All state is private; callers drive it through Runner.
type VM struct {
	externs *rt.Registry // host externs this module's calls may resolve to
	mod     *il.Module

	frames    []*frame
	halted    bool
	result    il.Value
	hasResult bool
	lastTrap  *rt.TrapInfo
	ctxStack  *rt.ContextStack
	opcodeCnt map[il.Opcode]uint64
	heap      *heap // backs alloca/load/store; owned by this VM alone

	maxSteps  uint64
	stepCount uint64
	breaks    map[breakKey]bool
}

type breakKey struct {
	fn, block string
}

// New returns a VM ready to execute entryFn in mod, with reg resolving any
// extern calls.
func New(mod *il.Module, reg *rt.Registry, entryFn string) (*VM, error) {
	fn := mod.FuncByName(entryFn)
	if fn == nil {
		return nil, fmt.Errorf("vm: no such function %q", entryFn)
	}
	v := &VM{
		externs:   reg,
		mod:       mod,
		ctxStack:  rt.NewContextStack(),
		opcodeCnt: map[il.Opcode]uint64{},
		breaks:    map[breakKey]bool{},
		heap:      &heap{},
	}
	v.pushFrame(fn, nil, nil)
	return v, nil
}

func (v *VM) pushFrame(fn *il.Function, args []il.Value, retInto *uint32) {
	entry := fn.Entry()
	fr := &frame{fn: fn, block: entry, values: map[uint32]il.Value{}, retInto: retInto}
	for i, p := range entry.Params {
		if i < len(args) {
			fr.values[p.ID] = args[i]
		}
	}
	v.frames = append(v.frames, fr)
}

func (v *VM) topFrame() *frame {
	if len(v.frames) == 0 {
		return nil
	}
	return v.frames[len(v.frames)-1]
}

// LastTrap returns the most recent trap captured, if any.
func (v *VM) LastTrap() *rt.TrapInfo { return v.lastTrap }

// CurrentContext implements rt.VMHandle: it lets a host extern running on
// this VM's goroutine (via rt.ActiveVM()) format a trap message against
// the function/block/loc this VM is actually executing, even when another
// VM is running concurrently on a different goroutine.
func (v *VM) CurrentContext() rt.TrapContext { return v.ctxStack.Current() }

// OpcodeCounts returns a snapshot of how many times each opcode has
// executed so far.
func (v *VM) OpcodeCounts() map[il.Opcode]uint64 {
	out := make(map[il.Opcode]uint64, len(v.opcodeCnt))
	for k, c := range v.opcodeCnt {
		out[k] = c
	}
	return out
}

// SetBreakpoint arms a breakpoint at the start of block in fn.
func (v *VM) SetBreakpoint(fn, block string) {
	v.breaks[breakKey{fn, block}] = true
}

// ClearBreakpoints removes every armed breakpoint.
func (v *VM) ClearBreakpoints() {
	v.breaks = map[breakKey]bool{}
}

// SetMaxSteps bounds ContinueRun to at most n total instructions executed
// across the VM's lifetime; 0 means unbounded.
func (v *VM) SetMaxSteps(n uint64) { v.maxSteps = n }

// Cursor describes where execution is about to resume: the function and
// block names plus the next instruction's opcode, for REPL display.
type Cursor struct {
	Func, Block string
	Op          il.Opcode
	HasInstr    bool
}

// CurrentCursor reports the instruction Step would execute next, or
// HasInstr=false if the VM has no active frame (returned or trapped).
func (v *VM) CurrentCursor() Cursor {
	fr := v.topFrame()
	if fr == nil || fr.instrIdx >= len(fr.block.Instrs) {
		return Cursor{}
	}
	return Cursor{Func: fr.fn.Name, Block: fr.block.Label, Op: fr.block.Instrs[fr.instrIdx].Op, HasInstr: true}
}

func (v *VM) resolveOperand(fr *frame, val il.Value) il.Value {
	if val.Kind == il.TempKind || val.Kind == il.BlockParamKind {
		if resolved, ok := fr.values[val.ID]; ok {
			return resolved
		}
	}
	return val
}

// CallFunction implements rt.VMHandle so registered externs can call back
// into IL. Arguments and the result are passed as il.Value boxed in `any`.
func (v *VM) CallFunction(name string, args []any) (any, error) {
	fn := v.mod.FuncByName(name)
	if fn == nil {
		return nil, fmt.Errorf("vm: no such function %q", name)
	}
	vals := make([]il.Value, len(args))
	for i, a := range args {
		if val, ok := a.(il.Value); ok {
			vals[i] = val
		}
	}
	v.pushFrame(fn, vals, nil)
	for {
		status := v.Step()
		if status == StepReturned || status == StepTrapped || status == StepHalted {
			break
		}
	}
	if v.lastTrap != nil {
		return nil, fmt.Errorf("vm: trap: %s", v.lastTrap.Message)
	}
	return nil, nil
}
