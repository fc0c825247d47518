/*
File    : miniscript-go/tac/value_function.go
*/
package tac

import (
	"strings"

	"github.com/miniscript-lang/miniscript-go/mserror"
)

// Param is one declared parameter of a function: a name and an optional
// default value used when the caller supplies fewer arguments.
type Param struct {
	Name         string
	DefaultValue Value
}

// Function is the compiled form of a function literal: its parameter list
// and the block of TAC lines making up its body. A Function is immutable
// once the parser seals it at `end function`.
type Function struct {
	Parameters []Param
	Code       []*Line
}

// NewFunction creates an empty function (the parser fills it in).
func NewFunction() *Function {
	return &Function{}
}

// String renders the signature, e.g. "FUNCTION(x, y=1)".
func (f *Function) String() string {
	parts := make([]string, len(f.Parameters))
	for i, p := range f.Parameters {
		if p.DefaultValue != nil {
			parts[i] = p.Name + "=" + CodeFormOf(nil, p.DefaultValue, 1)
		} else {
			parts[i] = p.Name
		}
	}
	return "FUNCTION(" + strings.Join(parts, ", ") + ")"
}

// ValFunction pairs a Function with the captured lexical environment of
// the frame that created it (a closure). OuterVars is a shared reference
// to the defining frame's variables map; multiple closures may alias the
// same environment.
type ValFunction struct {
	Function  *Function
	OuterVars *ValMap
}

// NewValFunction wraps a Function with no captured environment.
func NewValFunction(f *Function) *ValFunction {
	return &ValFunction{Function: f}
}

// BindAndCopy returns a copy of this function value bound to the given
// environment. Used by BindAssignA to realize closures.
func (fv *ValFunction) BindAndCopy(vars *ValMap) *ValFunction {
	return &ValFunction{Function: fv.Function, OuterVars: vars}
}

func (fv *ValFunction) Val(ctx *Context) (Value, error)      { return fv, nil }
func (fv *ValFunction) FullEval(ctx *Context) (Value, error) { return fv, nil }

// BoolValue: a function reference is always truthy.
func (fv *ValFunction) BoolValue() bool      { return true }
func (fv *ValFunction) IntValue() int        { return 0 }
func (fv *ValFunction) DoubleValue() float64 { return 0 }
func (fv *ValFunction) CanSetElem() bool     { return false }

func (fv *ValFunction) SetElem(index, value Value) error {
	return mserror.TypeError("Function values cannot be indexed")
}

// Equality is reference identity of the underlying function; two
// closures over the same function are equal regardless of environment.
func (fv *ValFunction) Equality(rhs Value, depth int) float64 {
	if rf, ok := rhs.(*ValFunction); ok && rf.Function == fv.Function {
		return 1
	}
	return 0
}

func (fv *ValFunction) Hash(depth int) int {
	// Hash over the signature (parameter names) and body length. Equal
	// values share the same Function, so they always hash alike.
	h := len(fv.Function.Parameters)
	for _, p := range fv.Function.Parameters {
		h = h*31 + hashString(p.Name)
	}
	return h*31 + len(fv.Function.Code)
}

func (fv *ValFunction) IsA(typ Value, vm *Machine) bool {
	return typ == Value(FunctionType())
}

func (fv *ValFunction) ToString(vm *Machine) string {
	return fv.Function.String()
}

func (fv *ValFunction) CodeForm(vm *Machine, recursionLimit int) string {
	return fv.ToString(vm)
}
