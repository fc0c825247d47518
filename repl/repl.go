/*
File    : miniscript-go/repl/repl.go

Package repl implements the interactive Read-Eval-Print Loop for the
MiniScript interpreter. The REPL lets users:
- enter MiniScript code one line at a time
- see implicit results of bare expressions immediately
- continue multi-line blocks (if/while/for/function) with a secondary prompt
- navigate command history with the arrow keys

Line editing and history come from the readline library; output is
colorized with fatih/color (results in yellow, errors in red).
*/
package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/miniscript-lang/miniscript-go/interp"
)

// Color definitions for REPL output:
// - blueColor: separators and banner framing
// - yellowColor: implicit expression results
// - redColor: error messages
// - greenColor: banner text
// - cyanColor: informational messages
var (
	blueColor   = color.New(color.FgBlue)
	yellowColor = color.New(color.FgYellow)
	redColor    = color.New(color.FgRed)
	greenColor  = color.New(color.FgGreen)
	cyanColor   = color.New(color.FgCyan)
)

// Repl holds the configuration of one interactive session.
type Repl struct {
	Banner     string // banner text displayed at startup
	Version    string // version string of the interpreter
	Line       string // separator line for visual formatting
	Prompt     string // normal prompt ("> ")
	MorePrompt string // prompt while a block is open (">>> ")

	// TimeLimit is the per-line execution budget in seconds.
	TimeLimit float64
}

// NewRepl creates a REPL with the standard prompts.
func NewRepl(banner, version string) *Repl {
	return &Repl{
		Banner:     banner,
		Version:    version,
		Line:       strings.Repeat("-", 64),
		Prompt:     "> ",
		MorePrompt: ">>> ",
		TimeLimit:  60,
	}
}

// PrintBannerInfo displays the welcome banner and usage hints.
func (r *Repl) PrintBannerInfo(writer io.Writer) {
	blueColor.Fprintf(writer, "%s\n", r.Line)
	greenColor.Fprintf(writer, "%s\n", r.Banner)
	yellowColor.Fprintln(writer, "MiniScript "+r.Version)
	blueColor.Fprintf(writer, "%s\n", r.Line)
	cyanColor.Fprintf(writer, "%s\n", "Type your code and press enter.")
	cyanColor.Fprintf(writer, "%s\n", "Open blocks continue on the '>>> ' prompt.")
	cyanColor.Fprintf(writer, "%s\n", "Type 'exit' (or press Ctrl+D) to quit.")
	blueColor.Fprintf(writer, "%s\n", r.Line)
}

// Start runs the interactive loop until EOF or an exit command. Input
// comes from readline (reader is unused while a terminal is attached);
// all output goes to writer.
func (r *Repl) Start(reader io.Reader, writer io.Writer) {
	r.PrintBannerInfo(writer)

	rl, err := readline.New(r.Prompt)
	if err != nil {
		panic(err)
	}
	defer rl.Close()

	interpreter := interp.NewInterpreter("",
		func(s string) { fmt.Fprintln(writer, s) },
		func(s string) { redColor.Fprintf(writer, "%s\n", s) })
	interpreter.ImplicitOutput = func(s string) { yellowColor.Fprintf(writer, "%s\n", s) }

	for {
		// Secondary prompt while a block or expression is open.
		if interpreter.NeedMoreInput() {
			rl.SetPrompt(r.MorePrompt)
		} else {
			rl.SetPrompt(r.Prompt)
		}

		line, err := rl.Readline()
		if err != nil {
			// EOF or interrupt (Ctrl+D / Ctrl+C)
			if err == readline.ErrInterrupt {
				interpreter.Stop()
				continue
			}
			fmt.Fprintln(writer, "")
			break
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" && !interpreter.NeedMoreInput() {
			continue
		}
		if trimmed == "exit" || trimmed == ".exit" {
			break
		}
		rl.SaveHistory(line)

		r.executeWithRecovery(writer, line, interpreter)
	}
}

// executeWithRecovery feeds one line to the interpreter, recovering from
// any panic so the session survives. (The interpreter reports its own
// lexer/compiler/runtime errors through its error output.)
func (r *Repl) executeWithRecovery(writer io.Writer, line string, interpreter *interp.Interpreter) {
	defer func() {
		if recovered := recover(); recovered != nil {
			redColor.Fprintf(writer, "Internal Error: %v\n", recovered)
			interpreter.Stop()
		}
	}()
	interpreter.REPL(line, r.TimeLimit)
}
