package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/viperlang/ilc/internal/arm64"
	"github.com/viperlang/ilc/internal/config"
	"github.com/viperlang/ilc/internal/diag"
	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/ilio"
	"github.com/viperlang/ilc/internal/ilverify"
	"github.com/viperlang/ilc/internal/mir"
	"github.com/viperlang/ilc/internal/regalloc"
	"github.com/viperlang/ilc/internal/replutil"
	"github.com/viperlang/ilc/internal/rt"
	"github.com/viperlang/ilc/internal/source"
	"github.com/viperlang/ilc/internal/vm"
)

var (
	Version   = "dev"
	BuildTime = "unknown"

	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	var (
		versionFlag  = flag.Bool("version", false, "Print version information")
		helpFlag     = flag.Bool("help", false, "Show help")
		traceFlag    = flag.Bool("trace", false, "Enable execution tracing")
		maxStepsFlag = flag.Uint64("max-steps", 0, "Step budget (0 = unbounded)")
		entryFlag    = flag.String("entry", "main", "Entry function name")
	)
	flag.Parse()

	if *versionFlag {
		printVersion()
		return
	}
	if *helpFlag || flag.NArg() == 0 {
		printHelp()
		return
	}

	cmd := flag.Arg(0)
	cfg := &config.RunConfig{Trace: *traceFlag, MaxSteps: *maxStepsFlag}

	switch cmd {
	case "parse":
		requireFile()
		cmdParse(flag.Arg(1))
	case "verify":
		requireFile()
		cmdVerify(flag.Arg(1))
	case "run":
		requireFile()
		cmdRun(flag.Arg(1), *entryFlag, cfg)
	case "repl":
		requireFile()
		cmdRepl(flag.Arg(1), *entryFlag, cfg)
	case "codegen_arm64":
		requireFile()
		cmdCodegen(flag.Arg(1))
	case "disasm":
		requireFile()
		cmdCodegen(flag.Arg(1))
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", red("error"), cmd)
		printHelp()
		os.Exit(1)
	}
}

func requireFile() {
	if flag.NArg() < 2 {
		fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("error"))
		fmt.Fprintln(os.Stderr, "Usage: ilc <command> <file.il>")
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("ilc %s\n", bold(Version))
	if BuildTime != "unknown" {
		fmt.Printf("Built: %s\n", BuildTime)
	}
}

func printHelp() {
	fmt.Println(bold("ilc - the Viper IL toolchain"))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ilc <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Printf("  %s <file.il>        Parse a module and report diagnostics\n", cyan("parse"))
	fmt.Printf("  %s <file.il>       Parse and run the five-pass verifier\n", cyan("verify"))
	fmt.Printf("  %s <file.il>          Execute a module with the VM interpreter\n", cyan("run"))
	fmt.Printf("  %s <file.il>         Step a module interactively\n", cyan("repl"))
	fmt.Printf("  %s <file.il>  Emit AArch64 assembly for a module\n", cyan("codegen_arm64"))
	fmt.Printf("  %s <file.il>       Alias for codegen_arm64\n", cyan("disasm"))
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --version         Print version information")
	fmt.Println("  --trace           Trace each executed opcode")
	fmt.Println("  --max-steps <n>   Bound VM execution (0 = unbounded)")
	fmt.Println("  --entry <name>    Entry function name (default: main)")
}

func loadModule(path string) (*il.Module, *source.FileSet) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}
	fs := source.NewFileSet()
	mod, diags, _ := ilio.ParseWithFileSet(string(data), path, fs)
	if reportDiags(diag.PhaseParse, diags, fs) {
		os.Exit(1)
	}
	return mod, fs
}

func reportDiags(phase diag.Phase, diags []source.Diag, fs *source.FileSet) bool {
	hasErr := source.HasErrors(diags)
	for i, enc := range diag.EncodeAll(phase, diags, fs) {
		line, _ := enc.ToJSON()
		if diags[i].Severity == source.SeverityError {
			fmt.Fprintf(os.Stderr, "%s %s\n", red("error:"), line)
		} else {
			fmt.Fprintf(os.Stderr, "%s %s\n", yellow("warning:"), line)
		}
	}
	return hasErr
}

func cmdParse(path string) {
	loadModule(path)
	fmt.Fprintln(os.Stdout, green("parsed OK"))
}

func cmdVerify(path string) {
	mod, fs := loadModule(path)
	diags := ilverify.Verify(mod)
	if reportDiags(diag.PhaseVerify, diags, fs) {
		os.Exit(1)
	}
	fmt.Fprintln(os.Stdout, green("verify OK"))
}

func newRunner(path, entry string, cfg *config.RunConfig) *vm.Runner {
	mod, fs := loadModule(path)
	diags := ilverify.Verify(mod)
	if reportDiags(diag.PhaseVerify, diags, fs) {
		os.Exit(1)
	}
	reg := rt.NewRegistry()
	machine, err := vm.New(mod, reg, entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}
	r := vm.NewRunner(machine)
	if cfg.MaxSteps != 0 {
		r.SetMaxSteps(cfg.MaxSteps)
	}
	return r
}

func cmdRun(path, entry string, cfg *config.RunConfig) {
	r := newRunner(path, entry, cfg)
	for cfg.Trace {
		cur := r.Cursor()
		if !cur.HasInstr {
			break
		}
		fmt.Fprintf(os.Stderr, "%s %s:%s %s\n", cyan("trace:"), cur.Func, cur.Block, cur.Op)
		if r.Step() != vm.StepOK {
			break
		}
	}
	result := r.Run()
	if trap := r.LastTrap(); trap != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", red("trap:"), trap.Message)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "%s %d\n", green("result:"), result)
}

func cmdRepl(path, entry string, cfg *config.RunConfig) {
	r := newRunner(path, entry, cfg)
	stepper := replutil.New(r, &config.ReplConfig{Verbose: cfg.Verbose})
	stepper.Start(os.Stdin, os.Stdout)
}

func cmdCodegen(path string) {
	mod, fs := loadModule(path)
	diags := ilverify.Verify(mod)
	if reportDiags(diag.PhaseVerify, diags, fs) {
		os.Exit(1)
	}

	var funcs []mir.Func
	for _, fn := range mod.Funcs {
		sel := arm64.Select(fn)
		var frameSize int64
		intervals := buildIntervals(sel)
		alloc := regalloc.Allocate(intervals, &frameSize)
		realized := arm64.Realize(sel, alloc, frameSize)
		realized = arm64.AddPrologueEpilogue(realized, alloc.UsedCallee)
		realized = arm64.Peephole(realized)
		funcs = append(funcs, realized)
	}
	fmt.Fprint(os.Stdout, arm64.Emit(mod, funcs))
}

// buildIntervals assigns each vreg a [Start,End] interval spanning its
// first definition to its last use in the selected instruction stream; the
// index space is simply the position in sel.Instrs (pseudo-labels count).
func buildIntervals(sel *arm64.Selection) []regalloc.Interval {
	first := map[regalloc.VReg]int{}
	last := map[regalloc.VReg]int{}

	touch := func(v regalloc.VReg, idx int) {
		if v.ID < 0 {
			return // physical-register alias, not allocatable
		}
		if _, ok := first[v]; !ok {
			first[v] = idx
		}
		last[v] = idx
	}

	for idx, instr := range sel.Instrs {
		if instr.HasDst {
			touch(instr.Dst, idx)
		}
		if instr.HasSrc1 {
			touch(instr.Src1, idx)
		}
		if instr.HasSrc2 {
			touch(instr.Src2, idx)
		}
	}

	intervals := make([]regalloc.Interval, 0, len(first))
	for v, start := range first {
		intervals = append(intervals, regalloc.Interval{VReg: v, Start: start, End: last[v]})
	}
	return intervals
}
