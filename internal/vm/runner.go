package vm

import (
	"sort"

	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/rt"
)

// Runner is the façade the REPL and CLI drive a VM through: it adds
// free-running execution, opcode-frequency reporting, and breakpoint
// management on top of the VM's single-instruction Step.
type Runner struct {
	vm *VM
}

// NewRunner wraps v.
func NewRunner(v *VM) *Runner { return &Runner{vm: v} }

// Run executes to completion (or trap) and returns the function's return
// value as an int64, matching the VM's original single-result convention;
// 0 is returned on trap or on functions with no result.
func (r *Runner) Run() int64 {
	for {
		status := r.vm.Step()
		if status != StepOK {
			break
		}
	}
	return r.resultAsInt64()
}

func (r *Runner) resultAsInt64() int64 {
	if !r.vm.hasResult {
		return 0
	}
	return r.vm.result.IntVal
}

// Step advances exactly one instruction.
func (r *Runner) Step() StepStatus { return r.vm.Step() }

// ContinueRun runs until a trap, a breakpoint, the step budget, or function
// return, whichever comes first.
func (r *Runner) ContinueRun() RunStatus {
	for {
		if r.vm.maxSteps != 0 && r.vm.stepCount >= r.vm.maxSteps {
			return RunStepBudgetExceeded
		}
		if fr := r.vm.topFrame(); fr != nil {
			if r.vm.breaks[breakKey{fr.fn.Name, fr.block.Label}] && fr.instrIdx == 0 {
				return RunBreakpoint
			}
		}
		status := r.vm.Step()
		switch status {
		case StepTrapped:
			return RunTrapped
		case StepReturned, StepHalted:
			return RunCompleted
		}
	}
}

// Cursor reports the instruction the next Step would execute.
func (r *Runner) Cursor() Cursor { return r.vm.CurrentCursor() }

// SetBreakpoint arms a breakpoint at the start of block in fn.
func (r *Runner) SetBreakpoint(fn, block string) { r.vm.SetBreakpoint(fn, block) }

// ClearBreakpoints removes every armed breakpoint.
func (r *Runner) ClearBreakpoints() { r.vm.ClearBreakpoints() }

// SetMaxSteps bounds ContinueRun's total instruction budget.
func (r *Runner) SetMaxSteps(n uint64) { r.vm.SetMaxSteps(n) }

// LastTrap returns the most recently captured trap, if any.
func (r *Runner) LastTrap() *rt.TrapInfo { return r.vm.LastTrap() }

// OpcodeCounts returns how many times each opcode has executed so far.
func (r *Runner) OpcodeCounts() map[il.Opcode]uint64 { return r.vm.OpcodeCounts() }

// OpcodeCount is one entry of a TopOpcodes report.
type OpcodeCount struct {
	Op    il.Opcode
	Count uint64
}

// TopOpcodes returns the n most frequently executed opcodes so far, most
// frequent first, ties broken by opcode name for determinism.
func (r *Runner) TopOpcodes(n int) []OpcodeCount {
	counts := r.vm.OpcodeCounts()
	entries := make([]OpcodeCount, 0, len(counts))
	for op, c := range counts {
		entries = append(entries, OpcodeCount{Op: op, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Op.String() < entries[j].Op.String()
	})
	if n >= 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}
