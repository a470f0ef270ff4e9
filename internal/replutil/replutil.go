// Package replutil wraps github.com/peterh/liner into an interactive
// stepper over an IL module's VM execution, in the same shape as the
// teacher's internal/repl package: a liner.Liner for line editing and
// history, fatih/color for prompt/status styling, and a small command
// dispatch table.
package replutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/viperlang/ilc/internal/config"
	"github.com/viperlang/ilc/internal/vm"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

// Stepper drives a vm.Runner interactively: step, continue, break, trap,
// opcodes, quit.
type Stepper struct {
	cfg    *config.ReplConfig
	runner *vm.Runner
}

// New wraps runner for interactive stepping under cfg.
func New(runner *vm.Runner, cfg *config.ReplConfig) *Stepper {
	if cfg == nil {
		cfg = &config.ReplConfig{}
	}
	return &Stepper{cfg: cfg, runner: runner}
}

func (s *Stepper) prompt() string {
	cur := s.runner.Cursor()
	if !cur.HasInstr {
		return "ilc[halted]> "
	}
	return fmt.Sprintf("ilc[%s:%s]> ", cur.Func, cur.Block)
}

// Start runs the read-eval-print loop, writing to out, with the same liner
// history-file convention the teacher's REPL uses. Input comes from the
// terminal through liner; in is not read.
func (s *Stepper) Start(in io.Reader, out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()

	historyFile := filepath.Join(os.TempDir(), ".ilc_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	fmt.Fprintln(out, bold("ilc repl"))
	fmt.Fprintln(out, dim("Commands: step, continue, break <fn> <block>, trap, opcodes, quit"))

	line.SetCompleter(func(ln string) (c []string) {
		for _, cmd := range []string{"step", "continue", "break", "trap", "opcodes", "quit"} {
			if strings.HasPrefix(cmd, ln) {
				c = append(c, cmd)
			}
		}
		return
	})

	for {
		input, err := line.Prompt(s.prompt())
		if err == io.EOF {
			fmt.Fprintln(out, green("\nGoodbye!"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("error"), err)
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == "quit" || input == "q" {
			fmt.Fprintln(out, green("Goodbye!"))
			break
		}
		s.Dispatch(input, out)
	}

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

// Dispatch runs one command line against out; exported so cmd/ilc can
// script the REPL non-interactively too.
func (s *Stepper) Dispatch(input string, out io.Writer) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "step":
		status := s.runner.Step()
		fmt.Fprintf(out, "%s %s\n", cyan("step:"), status)
		s.maybeShowTrap(out)

	case "continue":
		status := s.runner.ContinueRun()
		fmt.Fprintf(out, "%s %s\n", cyan("continue:"), status)
		s.maybeShowTrap(out)

	case "break":
		if len(fields) != 3 {
			fmt.Fprintf(out, "%s usage: break <fn> <block>\n", red("error:"))
			return
		}
		s.runner.SetBreakpoint(fields[1], fields[2])
		fmt.Fprintf(out, "%s %s:%s\n", yellow("breakpoint set at"), fields[1], fields[2])

	case "trap":
		s.maybeShowTrap(out)

	case "opcodes":
		for _, entry := range s.runner.TopOpcodes(10) {
			fmt.Fprintf(out, "  %-20s %d\n", entry.Op, entry.Count)
		}

	default:
		fmt.Fprintf(out, "%s unknown command %q\n", red("error:"), fields[0])
	}
}

func (s *Stepper) maybeShowTrap(out io.Writer) {
	trap := s.runner.LastTrap()
	if trap == nil {
		return
	}
	fmt.Fprintf(out, "%s %s (in %s:%s)\n", red("trap:"), trap.Message, trap.Context.Func, trap.Context.Block)
}
