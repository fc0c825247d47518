/*
File    : miniscript-go/tac/line.go
*/
package tac

import (
	"fmt"

	"github.com/miniscript-lang/miniscript-go/mserror"
)

// Opcode identifies the operation of one TAC line.
type Opcode int

// The complete opcode set. Each instruction has at most one destination
// (LHS) and two source operands (RhsA, RhsB).
const (
	Noop Opcode = iota
	AssignA        // LHS := A
	AssignImplicit // _ := A (only when the machine stores implicit results)
	APlusB
	AMinusB
	ATimesB
	ADividedByB
	AModB
	APowB
	AEqualB
	ANotEqualB
	AGreaterThanB
	AGreatOrEqualB
	ALessThanB
	ALessOrEqualB
	AisaB
	AAndB
	AOrB
	BindAssignA    // LHS := A bound to the current variables (closure)
	CopyA          // LHS := copy of A (fresh container per execution)
	NotA
	GotoA          // jump to line A
	GotoAifB       // jump to line A if B is truthy
	GotoAifTrulyB  // jump to line A only if int(B) != 0 (short-circuit or)
	GotoAifNotB    // jump to line A if B is not truthy
	PushParam      // push A onto the pending-argument stack
	CallFunctionA  // LHS := result of calling A with B args
	CallIntrinsicA // LHS := result of intrinsic with id A
	ReturnA        // temp 0 := A; pop the context
	ElemBofA       // LHS := A[B]
	ElemBofIterA   // LHS := iteration element B of A
	LengthOfA      // LHS := len(A)
)

// Line is one TAC instruction: an opcode, a destination, up to two
// source operands, and the source location it was compiled from.
type Line struct {
	LHS      Value
	Op       Opcode
	RhsA     Value
	RhsB     Value
	Location *mserror.SourceLoc
}

// NewLine builds a TAC line.
func NewLine(lhs Value, op Opcode, rhsA, rhsB Value) *Line {
	return &Line{LHS: lhs, Op: op, RhsA: rhsA, RhsB: rhsB}
}

// opSymbols maps binary opcodes to their source spelling, for
// disassembly.
var opSymbols = map[Opcode]string{
	APlusB:         "+",
	AMinusB:        "-",
	ATimesB:        "*",
	ADividedByB:    "/",
	AModB:          "%",
	APowB:          "^",
	AEqualB:        "==",
	ANotEqualB:     "!=",
	AGreaterThanB:  ">",
	AGreatOrEqualB: ">=",
	ALessThanB:     "<",
	ALessOrEqualB:  "<=",
	AisaB:          "isa",
	AAndB:          "and",
	AOrB:           "or",
}

// String disassembles the line into a readable form, used by tests and
// the REPL's #DUMP escape.
func (line *Line) String() string {
	lhs := CodeFormOf(nil, line.LHS, 2)
	a := CodeFormOf(nil, line.RhsA, 2)
	b := CodeFormOf(nil, line.RhsB, 2)
	switch line.Op {
	case Noop:
		return "noop"
	case AssignA:
		return fmt.Sprintf("%s := %s", lhs, a)
	case AssignImplicit:
		return fmt.Sprintf("_ := %s", a)
	case BindAssignA:
		return fmt.Sprintf("%s := %s; bind", lhs, a)
	case CopyA:
		return fmt.Sprintf("%s := copy of %s", lhs, a)
	case NotA:
		return fmt.Sprintf("%s := not %s", lhs, a)
	case GotoA:
		return fmt.Sprintf("goto %s", a)
	case GotoAifB:
		return fmt.Sprintf("goto %s if %s", a, b)
	case GotoAifTrulyB:
		return fmt.Sprintf("goto %s if truly %s", a, b)
	case GotoAifNotB:
		return fmt.Sprintf("goto %s if not %s", a, b)
	case PushParam:
		return fmt.Sprintf("push param %s", a)
	case CallFunctionA:
		return fmt.Sprintf("%s := call %s with %s args", lhs, a, b)
	case CallIntrinsicA:
		return fmt.Sprintf("intrinsic %s", a)
	case ReturnA:
		return fmt.Sprintf("%s := %s; return", lhs, a)
	case ElemBofA:
		return fmt.Sprintf("%s = %s[%s]", lhs, a, b)
	case ElemBofIterA:
		return fmt.Sprintf("%s = %s iter %s", lhs, a, b)
	case LengthOfA:
		return fmt.Sprintf("%s = len(%s)", lhs, a)
	default:
		if sym, ok := opSymbols[line.Op]; ok {
			return fmt.Sprintf("%s := %s %s %s", lhs, a, sym, b)
		}
		return fmt.Sprintf("unknown opcode: %d", line.Op)
	}
}
