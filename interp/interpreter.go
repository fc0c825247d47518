/*
File    : miniscript-go/interp/interpreter.go
*/

// Package interp provides the host API of the MiniScript runtime: an
// Interpreter owns a parser and a machine, and exposes compile, run,
// step, REPL, and global-variable access. This is the layer an embedding
// application talks to; nothing here prints except through the three
// output callbacks.
package interp

import (
	"fmt"
	"os"

	"github.com/juju/errors"

	"github.com/miniscript-lang/miniscript-go/mserror"
	"github.com/miniscript-lang/miniscript-go/parser"
	"github.com/miniscript-lang/miniscript-go/tac"
)

// TextOutputMethod is re-exported so hosts don't need to import tac for
// the callback type.
type TextOutputMethod = tac.TextOutputMethod

// Interpreter ties a parser and a machine together around one script.
type Interpreter struct {
	// StandardOutput receives print output. Defaults to stdout.
	StandardOutput TextOutputMethod
	// ImplicitOutput, when set, receives the implicit result (`_`) of
	// bare expressions executed through REPL.
	ImplicitOutput TextOutputMethod
	// ErrorOutput receives formatted error descriptions. Defaults to
	// stderr.
	ErrorOutput TextOutputMethod

	// HostData is an arbitrary slot for the embedding application.
	HostData interface{}

	// ErrorContext names this script in error messages (usually the
	// file name, without extension).
	ErrorContext string

	source string
	par    *parser.Parser
	vm     *tac.Machine
}

// NewInterpreter creates an interpreter for the given source. Either
// output may be nil to get the defaults.
func NewInterpreter(source string, standardOutput, errorOutput TextOutputMethod) *Interpreter {
	if standardOutput == nil {
		standardOutput = func(s string) { fmt.Println(s) }
	}
	if errorOutput == nil {
		errorOutput = func(s string) { fmt.Fprintln(os.Stderr, s) }
	}
	return &Interpreter{
		StandardOutput: standardOutput,
		ErrorOutput:    errorOutput,
		source:         source,
	}
}

// Reset discards all compilation and execution state and installs a new
// source.
func (i *Interpreter) Reset(source string) {
	i.source = source
	i.par = nil
	i.vm = nil
}

// Done reports whether the script has finished (a never-compiled script
// counts as done).
func (i *Interpreter) Done() bool {
	return i.vm == nil || i.vm.Done()
}

// VM exposes the underlying machine (nil before Compile), for hosts that
// need direct access (e.g. ManuallyPushCall).
func (i *Interpreter) VM() *tac.Machine { return i.vm }

// NeedMoreInput reports whether REPL input so far is incomplete.
func (i *Interpreter) NeedMoreInput() bool {
	return i.par != nil && i.par.NeedMoreInput()
}

// Compile lexes and parses the source and builds the machine. Errors are
// reported through ErrorOutput and returned.
func (i *Interpreter) Compile() error {
	if i.vm != nil {
		return nil // already compiled
	}
	if i.par == nil {
		i.par = parser.NewParser()
		i.par.ErrorContext = i.ErrorContext
	}
	if err := i.par.Parse(i.source, false); err != nil {
		i.reportError(err)
		i.par = nil
		return err
	}
	i.vm = i.par.CreateVM(i.StandardOutput)
	return nil
}

// Restart rewinds a compiled script to the beginning.
func (i *Interpreter) Restart() {
	if i.vm != nil {
		i.vm.Reset()
	}
}

// Stop abandons the current run: all call frames above the global one
// are dropped, the global program counter jumps to the end, and any
// buffered partial REPL input is discarded.
func (i *Interpreter) Stop() {
	if i.vm != nil {
		i.vm.Stop()
	}
	if i.par != nil {
		i.par.PartialInput = ""
	}
}

// RunUntilDone compiles if needed and runs until the script finishes,
// yields, exceeds timeLimit seconds, or (with returnEarly) suspends on
// an intrinsic partial result. Runtime errors are reported through
// ErrorOutput, stop the script, and are returned.
func (i *Interpreter) RunUntilDone(timeLimit float64, returnEarly bool) error {
	if i.vm == nil {
		if err := i.Compile(); err != nil {
			return err
		}
	}
	i.vm.StandardOutput = i.StandardOutput
	if err := i.vm.RunUntilDone(timeLimit, returnEarly); err != nil {
		i.reportError(err)
		i.vm.Stop()
		return err
	}
	return nil
}

// Step compiles if needed and executes a single TAC line.
func (i *Interpreter) Step() error {
	if i.vm == nil {
		if err := i.Compile(); err != nil {
			return err
		}
	}
	if err := i.vm.Step(); err != nil {
		i.reportError(err)
		i.vm.Stop()
		return err
	}
	return nil
}

// REPL accepts one line of input, compiling and running it (for up to
// timeLimit seconds) unless more input is needed to complete a block.
// Bare-expression results are delivered through ImplicitOutput; errors
// through ErrorOutput. The interpreter always remains usable afterward.
func (i *Interpreter) REPL(sourceLine string, timeLimit float64) {
	if i.par == nil {
		i.par = parser.NewParser()
		i.par.ErrorContext = i.ErrorContext
	}
	if i.vm == nil {
		i.vm = i.par.CreateVM(i.StandardOutput)
	} else if i.vm.Done() && !i.par.NeedMoreInput() {
		// Machine and parser are both idle, so the previously compiled
		// code won't run again; drop it to keep memory flat.
		i.vm.GlobalContext().ClearCodeAndTemps()
		i.par.PartialReset()
		i.par.ClearGlobalCode()
	}
	if sourceLine == "#DUMP" {
		i.vm.DumpTopContext()
		return
	}

	startTime := i.vm.RunTime()
	startImplicitCount := i.vm.GlobalContext().ImplicitResultCounter
	i.vm.StoreImplicit = i.ImplicitOutput != nil
	i.vm.StandardOutput = i.StandardOutput

	if err := i.par.Parse(sourceLine, true); err != nil {
		i.reportError(err)
		i.par.PartialReset()
		i.syncGlobalCode()
		i.vm.GetTopContext().JumpToEnd()
		return
	}
	i.syncGlobalCode()
	if i.par.NeedMoreInput() {
		return
	}

	for !i.vm.Done() && !i.vm.Yielding() {
		if i.vm.RunTime()-startTime > timeLimit {
			return // time's up for now; the next call resumes
		}
		if err := i.vm.Step(); err != nil {
			i.reportError(err)
			i.vm.Stop()
			return
		}
	}

	if i.ImplicitOutput != nil &&
		i.vm.GlobalContext().ImplicitResultCounter > startImplicitCount {
		if result, err := i.vm.GlobalContext().GetVar("_"); err == nil && result != nil {
			i.ImplicitOutput(tac.ToStringOf(i.vm, result))
		}
	}
}

// syncGlobalCode refreshes the global context's view of the compiled
// program after an incremental parse (appending may reallocate the
// backing array).
func (i *Interpreter) syncGlobalCode() {
	i.vm.GlobalContext().Code = i.par.GlobalCode()
}

// GetGlobalValue returns the value of a global variable, or nil if the
// script has not been compiled or the name is not defined.
func (i *Interpreter) GetGlobalValue(name string) tac.Value {
	if i.vm == nil {
		return nil
	}
	v, err := i.vm.GlobalContext().GetVar(name)
	if err != nil {
		return nil
	}
	return v
}

// SetGlobalValue defines or replaces a global variable. Compile must
// have been called first.
func (i *Interpreter) SetGlobalValue(name string, value tac.Value) error {
	if i.vm == nil {
		return errors.New("interpreter not compiled; call Compile before SetGlobalValue")
	}
	return errors.Trace(i.vm.GlobalContext().SetVar(name, value))
}

// reportError formats any error for the host. MiniScript errors carry
// their kind and location; everything else is wrapped as a runtime
// error.
func (i *Interpreter) reportError(err error) {
	if i.ErrorOutput != nil {
		i.ErrorOutput(mserror.Describe(errors.Cause(err)))
	}
}
