/*
File    : miniscript-go/tac/context.go
*/
package tac

import (
	"github.com/miniscript-lang/miniscript-go/mserror"
)

// Context is one call frame: the code being executed, the program
// counter, local variables, temporaries, the closure environment, the
// receiver (self), the argument stack being built for the next call, and
// the link back to the calling frame.
type Context struct {
	Code      []*Line // TAC lines this frame executes
	LineNum   int     // program counter: next line to execute
	Variables *ValMap // local variables (lazily created)
	OuterVars *ValMap // captured environment of the defining frame, if any
	Self      Value   // receiver of the current call
	Parent    *Context // calling frame (nil for the global frame)

	// ResultStorage is the lvalue in the caller that receives this
	// frame's return value (temp 0) when the frame pops.
	ResultStorage Value

	// PartialResult holds the in-flight state of an intrinsic that has
	// not finished its work; the same line re-invokes it each step.
	PartialResult *Result

	// ImplicitResultCounter counts how many times this frame stored an
	// implicit result; the REPL uses it to decide whether to print `_`.
	ImplicitResultCounter int

	vm    *Machine
	args  []Value // pending arguments for the next call (a stack)
	temps []Value // temporaries; temps[0] is the return value
}

// NewContext creates a frame over the given code.
func NewContext(code []*Line) *Context {
	return &Context{Code: code}
}

// VM returns the machine this context runs on.
func (ctx *Context) VM() *Machine { return ctx.vm }

// Done reports whether the program counter has run off the end.
func (ctx *Context) Done() bool { return ctx.LineNum >= len(ctx.Code) }

// Root returns the global (bottom) context of this call chain.
func (ctx *Context) Root() *Context {
	root := ctx
	for root.Parent != nil {
		root = root.Parent
	}
	return root
}

// JumpToEnd abandons the rest of this frame's code.
func (ctx *Context) JumpToEnd() { ctx.LineNum = len(ctx.Code) }

// Reset rewinds the frame to its first line, dropping temporaries and
// (optionally) local variables.
func (ctx *Context) Reset(clearVariables bool) {
	ctx.LineNum = 0
	ctx.temps = nil
	if clearVariables {
		ctx.Variables = NewValMap()
	}
}

// ClearCodeAndTemps drops already-executed code and temporaries; the
// REPL does this between inputs once the machine is idle.
func (ctx *Context) ClearCodeAndTemps() {
	ctx.Code = nil
	ctx.LineNum = 0
	ctx.temps = nil
}

// SetTemp stores a value into the numbered temporary, growing the slot
// array as needed.
func (ctx *Context) SetTemp(tempNum int, value Value) {
	for len(ctx.temps) <= tempNum {
		ctx.temps = append(ctx.temps, nil)
	}
	ctx.temps[tempNum] = value
}

// GetTemp reads the numbered temporary (null if never set).
func (ctx *Context) GetTemp(tempNum int) Value {
	if tempNum >= len(ctx.temps) {
		return nil
	}
	return ctx.temps[tempNum]
}

// GetLocal reads a local variable directly, with no fallback chain.
// Intrinsics use this to fetch their bound parameters.
func (ctx *Context) GetLocal(identifier string) Value {
	if ctx.Variables == nil {
		return nil
	}
	v, _ := ctx.Variables.GetString(identifier)
	return v
}

// GetLocalString fetches a local as a Go string ("" for null).
func (ctx *Context) GetLocalString(identifier string) string {
	v := ctx.GetLocal(identifier)
	if v == nil {
		return ""
	}
	return v.ToString(ctx.vm)
}

// GetLocalDouble fetches a local as a float64 (0 for null).
func (ctx *Context) GetLocalDouble(identifier string) float64 {
	return DoubleValueOf(ctx.GetLocal(identifier))
}

// GetLocalInt fetches a local as an int (0 for null).
func (ctx *Context) GetLocalInt(identifier string) int {
	return IntValueOf(ctx.GetLocal(identifier))
}

// SelfValue returns the receiver for an intrinsic invoked with dot
// syntax, falling back to the positional "self" parameter when the
// intrinsic was called as a plain function.
func (ctx *Context) SelfValue() Value {
	if ctx.Self != nil {
		return ctx.Self
	}
	return ctx.GetLocal("self")
}

// SetVar assigns a local variable. The names "globals" and "locals" are
// read-only; assigning to "self" updates the frame's receiver. A
// variables map carrying an assignment override gets consulted first.
func (ctx *Context) SetVar(identifier string, value Value) error {
	if identifier == "globals" || identifier == "locals" {
		return mserror.NewRuntimeError("can't assign to %s", identifier)
	}
	if identifier == "self" {
		ctx.Self = value
	}
	if ctx.Variables == nil {
		ctx.Variables = NewValMap()
	}
	return ctx.Variables.SetElem(NewValString(identifier), value)
}

// GetVar resolves a name in this frame. Resolution order: the special
// built-ins (self, locals, globals, outer), local variables, the closure
// environment, the globals (unless this frame is the root), and finally
// the intrinsics. An unresolved name is an undefined-identifier failure.
func (ctx *Context) GetVar(identifier string) (Value, error) {
	switch identifier {
	case "self":
		if ctx.Self != nil {
			return ctx.Self, nil
		}
		return nil, mserror.UndefinedIdentifier("self")
	case "locals":
		if ctx.Variables == nil {
			ctx.Variables = NewValMap()
		}
		return ctx.Variables, nil
	case "globals":
		root := ctx.Root()
		if root.Variables == nil {
			root.Variables = NewValMap()
		}
		return root.Variables, nil
	case "outer":
		if ctx.OuterVars != nil {
			return ctx.OuterVars, nil
		}
		root := ctx.Root()
		if root.Variables == nil {
			root.Variables = NewValMap()
		}
		return root.Variables, nil
	}
	if ctx.Variables != nil {
		if v, found := ctx.Variables.GetString(identifier); found {
			return v, nil
		}
	}
	if ctx.OuterVars != nil {
		if v, found := ctx.OuterVars.GetString(identifier); found {
			return v, nil
		}
	}
	if ctx.Parent != nil {
		globals := ctx.Root().Variables
		if globals != nil {
			if v, found := globals.GetString(identifier); found {
				return v, nil
			}
		}
	}
	if intrinsic := IntrinsicByName(identifier); intrinsic != nil {
		return intrinsic.GetFunc(), nil
	}
	return nil, mserror.UndefinedIdentifier(identifier)
}

// StoreValue stores a computed value into an lvalue: a temporary, a
// variable, or a sequence element. A nil lhs discards the value.
func (ctx *Context) StoreValue(lhs, value Value) error {
	switch dest := lhs.(type) {
	case nil:
		return nil
	case *ValTemp:
		ctx.SetTemp(dest.TempNum, value)
		return nil
	case *ValVar:
		return ctx.SetVar(dest.Identifier, value)
	case *ValSeqElem:
		seq, err := ValOf(ctx, dest.Sequence)
		if err != nil {
			return err
		}
		if seq == nil {
			return mserror.NewRuntimeError("can't set indexed element of null")
		}
		if !seq.CanSetElem() {
			return mserror.NewRuntimeError("can't set an indexed element in this type")
		}
		index := dest.Index
		switch index.(type) {
		case *ValVar, *ValSeqElem, *ValTemp:
			index, err = index.Val(ctx)
			if err != nil {
				return err
			}
		}
		return seq.SetElem(index, value)
	default:
		return mserror.NewRuntimeError("not an lvalue")
	}
}

// ValueInContext evaluates a possibly-null operand in this frame.
func (ctx *Context) ValueInContext(value Value) (Value, error) {
	return ValOf(ctx, value)
}

// PushParamArgument pushes one argument for an upcoming call; the stack
// is bounded at MaxArgDepth.
func (ctx *Context) PushParamArgument(value Value) error {
	if len(ctx.args) >= MaxArgDepth {
		return mserror.LimitExceeded("argument stack depth exceeded")
	}
	ctx.args = append(ctx.args, value)
	return nil
}

// popArg pops the most recently pushed argument.
func (ctx *Context) popArg() Value {
	if len(ctx.args) == 0 {
		return nil
	}
	v := ctx.args[len(ctx.args)-1]
	ctx.args = ctx.args[:len(ctx.args)-1]
	return v
}

// NextCallContext creates the child frame for invoking func. Arguments
// are popped from this frame's argument stack (they come off in reverse
// order); parameters without arguments take their default values. If
// gotSelf is set and the function declares a leading "self" parameter,
// that slot is skipped — the receiver arrives via the frame's Self
// instead. More arguments than parameters is a runtime failure.
func (ctx *Context) NextCallContext(fn *Function, argCount int, gotSelf bool, resultStorage Value) (*Context, error) {
	result := NewContext(fn.Code)
	result.ResultStorage = resultStorage
	result.Parent = ctx
	result.vm = ctx.vm

	selfParam := 0
	if gotSelf && len(fn.Parameters) > 0 && fn.Parameters[0].Name == "self" {
		selfParam = 1
	}
	if argCount > len(fn.Parameters)-selfParam {
		return nil, mserror.TooManyArguments()
	}
	for i := 0; i < argCount; i++ {
		// Careful -- the args pop off in reverse order.
		argument := ctx.popArg()
		paramNum := argCount - 1 - i + selfParam
		if err := result.SetVar(fn.Parameters[paramNum].Name, argument); err != nil {
			return nil, err
		}
	}
	for paramNum := argCount + selfParam; paramNum < len(fn.Parameters); paramNum++ {
		if err := result.SetVar(fn.Parameters[paramNum].Name, fn.Parameters[paramNum].DefaultValue); err != nil {
			return nil, err
		}
	}
	return result, nil
}
