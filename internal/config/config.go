// Package config holds the toolchain's run-time toggles: the same small,
// flag-populated structs the teacher's repl.Config and cmd/ailang flags use,
// with documented zero-values rather than an external config-file format.
package config

// RunConfig toggles behavior of `ilc run` and the VM's Runner facade.
type RunConfig struct {
	// Trace prints each executed opcode before it runs. Zero value: off.
	Trace bool

	// MaxSteps bounds the interpreter's step budget; zero means unbounded.
	MaxSteps uint64

	// Seed seeds any randomized behavior exercised by stress tests. Zero
	// value picks the VM's own default (no randomness is required for
	// correctness, only for interleaving tests in internal/stress).
	Seed int64

	// Verbose enables extra status lines on stdout/stderr.
	Verbose bool
}

// ReplConfig toggles the interactive stepper, mirroring repl.Config's shape.
type ReplConfig struct {
	TraceDefaulting bool
	ShowOpcodeStats bool
	Verbose         bool
}
