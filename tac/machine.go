/*
File    : miniscript-go/tac/machine.go
*/
package tac

import (
	"fmt"
	"time"

	"github.com/miniscript-lang/miniscript-go/mserror"
)

// TextOutputMethod is the callback type for all text output from a
// machine: script print output, implicit REPL results, and error text.
type TextOutputMethod func(s string)

// Machine drives TAC evaluation one line at a time on top of a stack of
// call-frame contexts. The bottom of the stack is always the global
// context. A machine is single-threaded and cooperative: the only
// suspension points are the yield intrinsic and intrinsic partial
// results, both observed between steps.
type Machine struct {
	// StandardOutput receives everything the script prints.
	StandardOutput TextOutputMethod

	// StoreImplicit makes AssignImplicit actually store bare-expression
	// results into `_`; the REPL turns this on so it can echo them.
	StoreImplicit bool

	// HostData is an arbitrary slot for the embedding host.
	HostData interface{}

	stack     []*Context
	startTime time.Time
	yielding  bool
}

// NewMachine creates a machine over the given global context. A nil
// standardOutput falls back to plain line-printing on stdout.
func NewMachine(globalContext *Context, standardOutput TextOutputMethod) *Machine {
	if standardOutput == nil {
		standardOutput = func(s string) { fmt.Println(s) }
	}
	vm := &Machine{StandardOutput: standardOutput}
	globalContext.vm = vm
	vm.stack = []*Context{globalContext}
	return vm
}

// GlobalContext returns the bottom (global) context.
func (vm *Machine) GlobalContext() *Context { return vm.stack[0] }

// GetTopContext returns the context currently executing.
func (vm *Machine) GetTopContext() *Context { return vm.stack[len(vm.stack)-1] }

// Done reports whether execution has finished: only the global frame
// remains and it has no lines left.
func (vm *Machine) Done() bool {
	return len(vm.stack) <= 1 && vm.GetTopContext().Done()
}

// Yielding reports whether the yield intrinsic fired during the current
// run slice.
func (vm *Machine) Yielding() bool { return vm.yielding }

// RunTime returns seconds of wall-clock time since the machine first ran.
func (vm *Machine) RunTime() float64 {
	if vm.startTime.IsZero() {
		return 0
	}
	return time.Since(vm.startTime).Seconds()
}

// Stop abandons execution: every frame above the global one is popped,
// and the global program counter jumps to the end of its code.
func (vm *Machine) Stop() {
	vm.stack = vm.stack[:1]
	vm.stack[0].JumpToEnd()
}

// Reset rewinds the global context to the top of its code, dropping all
// call frames and variables.
func (vm *Machine) Reset() {
	vm.stack = vm.stack[:1]
	vm.stack[0].Reset(true)
	vm.startTime = time.Time{}
}

// Step executes one line of the topmost context. Finished frames are
// popped first (propagating their return values); errors get the current
// line's source location attached before surfacing.
func (vm *Machine) Step() error {
	if len(vm.stack) == 0 {
		return nil
	}
	if vm.startTime.IsZero() {
		vm.startTime = time.Now()
	}
	ctx := vm.GetTopContext()
	for ctx.Done() {
		if len(vm.stack) == 1 {
			return nil // all done (can't pop the global context)
		}
		if err := vm.popContext(); err != nil {
			return err
		}
		ctx = vm.GetTopContext()
	}

	line := ctx.Code[ctx.LineNum]
	ctx.LineNum++
	if err := vm.doOneLine(line, ctx); err != nil {
		mserror.EnsureLocation(err, line.Location)
		if me, ok := err.(mserror.Error); ok && me.Location() == nil {
			// No location on the failing line; walk the stack for any
			// line that knows where it came from.
			for i := len(vm.stack) - 1; i >= 0; i-- {
				c := vm.stack[i]
				if c.LineNum < len(c.Code) && c.Code[c.LineNum].Location != nil {
					me.SetLocation(c.Code[c.LineNum].Location)
					break
				}
			}
		}
		return err
	}
	return nil
}

// RunUntilDone steps the machine until it finishes, yields, exceeds the
// wall-clock time limit (in seconds), or — when returnEarly is set — an
// intrinsic reports a partial result. Crossing the time limit is not an
// error; calling again resumes.
func (vm *Machine) RunUntilDone(timeLimit float64, returnEarly bool) error {
	if vm.startTime.IsZero() {
		vm.startTime = time.Now()
	}
	startRunTime := vm.RunTime()
	vm.yielding = false
	for !vm.Done() {
		if vm.RunTime()-startRunTime > timeLimit {
			return nil // time's up for now
		}
		if err := vm.Step(); err != nil {
			return err
		}
		if vm.yielding {
			return nil
		}
		if returnEarly && vm.GetTopContext().PartialResult != nil {
			return nil // waiting on an intrinsic; let the host work
		}
	}
	return nil
}

// ManuallyPushCall arranges for the given function value to run as if
// the script had called it with no arguments; the next run executes it.
// resultStorage (may be nil) receives the return value in the current
// top context.
func (vm *Machine) ManuallyPushCall(fn *ValFunction, resultStorage Value) error {
	next, err := vm.GetTopContext().NextCallContext(fn.Function, 0, false, resultStorage)
	if err != nil {
		return err
	}
	next.OuterVars = fn.OuterVars
	vm.stack = append(vm.stack, next)
	return nil
}

// popContext removes the finished top frame, copying its return value
// (temp 0) into the caller's result storage.
func (vm *Machine) popContext() error {
	if len(vm.stack) == 1 {
		return nil // down to just the global context (which we keep)
	}
	popped := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	result := popped.GetTemp(0)
	storage := popped.ResultStorage
	return vm.GetTopContext().StoreValue(storage, result)
}

// doOneLine dispatches one line. The opcodes that touch the context
// stack are handled here; everything else goes through Line.Evaluate.
func (vm *Machine) doOneLine(line *Line, ctx *Context) error {
	switch line.Op {
	case PushParam:
		val, err := ctx.ValueInContext(line.RhsA)
		if err != nil {
			return err
		}
		return ctx.PushParamArgument(val)
	case CallFunctionA:
		return vm.callFunction(line, ctx)
	case ReturnA:
		val, err := line.Evaluate(ctx)
		if err != nil {
			return err
		}
		if err := ctx.StoreValue(line.LHS, val); err != nil {
			return err
		}
		return vm.popContext()
	case AssignImplicit:
		val, err := line.Evaluate(ctx)
		if err != nil {
			return err
		}
		if vm.StoreImplicit {
			if err := ctx.StoreValue(VarImplicitResult, val); err != nil {
				return err
			}
			ctx.ImplicitResultCounter++
		}
		return nil
	default:
		val, err := line.Evaluate(ctx)
		if err != nil {
			return err
		}
		if line.LHS != nil {
			return ctx.StoreValue(line.LHS, val)
		}
		return nil
	}
}

// callFunction implements CallFunctionA: resolve the callee (walking any
// dot chain), bind self and super, build the child frame and push it.
// A non-function callee is simply stored — unless arguments were
// supplied, which is a too-many-arguments failure.
func (vm *Machine) callFunction(line *Line, ctx *Context) error {
	funcVal, valueFoundIn, err := valPair(line.RhsA, ctx)
	if err != nil {
		return err
	}
	argCountVal, err := ctx.ValueInContext(line.RhsB)
	if err != nil {
		return err
	}
	argCount := IntValueOf(argCountVal)

	fn, ok := funcVal.(*ValFunction)
	if !ok {
		// Calling something that's not a function: fine with no
		// arguments (that's just evaluation), an error with any.
		if argCount > 0 {
			return mserror.TooManyArguments()
		}
		return ctx.StoreValue(line.LHS, funcVal)
	}

	// Bind super to the parent of the map the function was found in.
	var super Value
	if valueFoundIn != nil {
		super, _ = valueFoundIn.Get(MagicIsA)
	}

	// Bind self to the receiver expression, except when invoking through
	// the literal name "super" (a super call keeps the current self).
	var self Value
	switch ref := line.RhsA.(type) {
	case *ValSeqElem:
		if vv, isVar := ref.Sequence.(*ValVar); isVar && vv.Identifier == "super" {
			self = ctx.Self
		} else {
			self, err = ctx.ValueInContext(ref.Sequence)
			if err != nil {
				return err
			}
		}
	case *ValVar:
		if ref.Identifier == "self" {
			self = ctx.Self
		}
	}

	next, err := ctx.NextCallContext(fn.Function, argCount, self != nil, line.LHS)
	if err != nil {
		return err
	}
	next.OuterVars = fn.OuterVars
	if valueFoundIn != nil {
		if err := next.SetVar("super", super); err != nil {
			return err
		}
	}
	if self != nil {
		next.Self = self
	}
	vm.stack = append(vm.stack, next)
	return nil
}

// FindShortName reverse-looks-up a value: a global variable holding this
// exact value is printed by name, as are the intrinsics' wrapper
// functions. Returns "" when no name is known.
func (vm *Machine) FindShortName(value Value) string {
	globals := vm.GlobalContext().Variables
	if globals != nil {
		for _, e := range globals.entries {
			if e.value == value {
				if ks, ok := e.key.(*ValString); ok {
					return ks.Value
				}
			}
		}
	}
	return intrinsicShortName(value)
}

// DumpTopContext disassembles the top context's code to standard output;
// the REPL's #DUMP escape lands here.
func (vm *Machine) DumpTopContext() {
	ctx := vm.GetTopContext()
	for i, line := range ctx.Code {
		marker := "   "
		if i == ctx.LineNum {
			marker = "-> "
		}
		vm.StandardOutput(fmt.Sprintf("%s%3d: %s", marker, i, line.String()))
	}
}
