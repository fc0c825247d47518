/*
File    : miniscript-go/tac/eval.go
*/
package tac

// This file implements Line.Evaluate: the per-opcode semantics of the
// TAC evaluator. Control flow (the Goto family) mutates the context's
// program counter directly; everything else computes a value which the
// machine stores into the line's LHS.
//
// The call opcodes (PushParam, CallFunctionA) need access to the context
// stack and are handled by the machine in doOneLine; they never reach
// Evaluate. ReturnA and AssignImplicit are also dispatched there, but
// doOneLine calls Evaluate for their value and then does the storing
// (and, for ReturnA, the frame pop) itself.

import (
	"math"
	"strings"

	"github.com/miniscript-lang/miniscript-go/mserror"
)

// Evaluate executes this line in the given context and returns the value
// to store into LHS (nil for pure control flow).
func (line *Line) Evaluate(ctx *Context) (Value, error) {
	switch line.Op {
	case Noop:
		return nil, nil
	case AssignA, ReturnA, AssignImplicit:
		// Assignment is a special case. If the RHS is a list or map
		// literal, it may hold unresolved references that must be
		// evaluated now, in this context.
		switch rhs := line.RhsA.(type) {
		case *ValList, *ValMap:
			return rhs.FullEval(ctx)
		case nil:
			return nil, nil
		default:
			return rhs.Val(ctx)
		}
	case CopyA:
		// Used when assigning a literal: mutable containers must be
		// copied so a re-executed literal yields a fresh object.
		switch rhs := line.RhsA.(type) {
		case *ValList:
			return rhs.EvalCopy(ctx)
		case *ValMap:
			return rhs.EvalCopy(ctx)
		case nil:
			return nil, nil
		default:
			return rhs.Val(ctx)
		}
	case BindAssignA:
		fv, err := ValOf(ctx, line.RhsA)
		if err != nil {
			return nil, err
		}
		fn, ok := fv.(*ValFunction)
		if !ok {
			return nil, mserror.TypeError("closure binding requires a function")
		}
		if ctx.Variables == nil {
			ctx.Variables = NewValMap()
		}
		return fn.BindAndCopy(ctx.Variables), nil
	}

	opA, err := ValOf(ctx, line.RhsA)
	if err != nil {
		return nil, err
	}
	opB, err := ValOf(ctx, line.RhsB)
	if err != nil {
		return nil, err
	}

	switch line.Op {
	case GotoA:
		ctx.LineNum = IntValueOf(opA)
		return nil, nil
	case GotoAifB:
		if BoolValueOf(opB) {
			ctx.LineNum = IntValueOf(opA)
		}
		return nil, nil
	case GotoAifTrulyB:
		// Unlike GotoAifB, branch only if B is TRULY true: its integer
		// value is nonzero. Fuzzy intermediates (0 < B < 1) fall
		// through, preserving them in `or` chains.
		if IntValueOf(opB) != 0 {
			ctx.LineNum = IntValueOf(opA)
		}
		return nil, nil
	case GotoAifNotB:
		if !BoolValueOf(opB) {
			ctx.LineNum = IntValueOf(opA)
		}
		return nil, nil
	case CallIntrinsicA:
		result, err := execIntrinsic(IntValueOf(opA), ctx, ctx.PartialResult)
		if err != nil {
			return nil, err
		}
		if result.Done {
			ctx.PartialResult = nil
			return result.ResultValue, nil
		}
		// Not done yet: stash the partial result and stay on this line,
		// so the next step re-invokes the intrinsic with it.
		ctx.PartialResult = result
		ctx.LineNum--
		return nil, nil
	case AisaB:
		if opA == nil {
			return Truth(opB == nil), nil
		}
		return Truth(opA.IsA(opB, ctx.vm)), nil
	case AAndB, AOrB:
		// Fuzzy logic: numbers carry their clamped magnitude, everything
		// else contributes plain 0/1 truth.
		fA := fuzzyTruth(opA)
		fB := fuzzyTruth(opB)
		if line.Op == AAndB {
			return NewValNumber(absClamp01(fA * fB)), nil
		}
		return NewValNumber(absClamp01(fA + fB - fA*fB)), nil
	case NotA:
		switch a := opA.(type) {
		case nil:
			return NumberOne, nil
		case *ValNumber:
			return NewValNumber(1 - absClamp01(a.Value)), nil
		case *ValString:
			return Truth(a.Value == ""), nil
		default:
			return Truth(!opA.BoolValue()), nil
		}
	}

	if line.Op == ElemBofA {
		if opA == nil {
			return nil, mserror.TypeError("Null Reference Exception: can't index into null")
		}
		if is, ok := opB.(*ValString); ok {
			// String index: member lookup via the prototype chain, so
			// "foo".len and {"x":1}.x both land here.
			v, _, err := ResolveIdentifier(opA, is.Value, ctx)
			return v, err
		}
	}

	// Equality works across all types: fuzzy for containers, content
	// for strings, reference identity for functions, and identity for
	// null (null equals only null).
	if line.Op == AEqualB {
		return NewValNumber(EqualityOf(opA, opB, DefaultEqualityDepth)), nil
	}
	if line.Op == ANotEqualB {
		return NewValNumber(1 - EqualityOf(opA, opB, DefaultEqualityDepth)), nil
	}

	// Implicit coercion to string: when either side is a string and the
	// operator is addition, concatenate (null coerces to the other side).
	if line.Op == APlusB {
		_, aStr := opA.(*ValString)
		_, bStr := opB.(*ValString)
		if aStr || bStr {
			if opA == nil {
				return opB, nil
			}
			if opB == nil {
				return opA, nil
			}
			sA := opA.ToString(ctx.vm)
			sB := opB.ToString(ctx.vm)
			if len(sA)+len(sB) > MaxStringSize {
				return nil, mserror.LimitExceeded("string too large")
			}
			return NewValString(sA + sB), nil
		}
	}

	switch a := opA.(type) {
	case *ValNumber:
		return line.evalNumberOp(ctx, a, opB)
	case *ValString:
		return line.evalStringOp(ctx, a, opB)
	case *ValList:
		return line.evalListOp(ctx, a, opB)
	case *ValMap:
		return line.evalMapOp(ctx, a, opB)
	case *ValFunction:
		return nil, mserror.TypeError(
			"unsupported operation '%s' on a function", line.opName())
	case nil:
		// Arithmetic on null quietly yields null.
		return nil, nil
	}
	return nil, mserror.TypeError("unsupported operand type")
}

// fuzzyTruth maps a value to its fuzzy truth number: numbers carry their
// own value; everything else is 0 or 1 by BoolValue.
func fuzzyTruth(v Value) float64 {
	if n, ok := v.(*ValNumber); ok {
		return n.Value
	}
	if BoolValueOf(v) {
		return 1
	}
	return 0
}

// evalNumberOp handles opcodes whose A operand is a number.
func (line *Line) evalNumberOp(ctx *Context, a *ValNumber, opB Value) (Value, error) {
	fA := a.Value
	if nb, ok := opB.(*ValNumber); ok || opB == nil {
		fB := 0.0
		if ok {
			fB = nb.Value
		}
		switch line.Op {
		case APlusB:
			return NewValNumber(fA + fB), nil
		case AMinusB:
			return NewValNumber(fA - fB), nil
		case ATimesB:
			return NewValNumber(fA * fB), nil
		case ADividedByB:
			return NewValNumber(fA / fB), nil
		case AModB:
			return NewValNumber(math.Mod(fA, fB)), nil
		case APowB:
			return NewValNumber(math.Pow(fA, fB)), nil
		case AGreaterThanB:
			return Truth(fA > fB), nil
		case AGreatOrEqualB:
			return Truth(fA >= fB), nil
		case ALessThanB:
			return Truth(fA < fB), nil
		case ALessOrEqualB:
			return Truth(fA <= fB), nil
		}
	}
	switch line.Op {
	case ElemBofA, ElemBofIterA:
		return nil, mserror.TypeError("Number values cannot be indexed")
	case LengthOfA:
		return nil, mserror.TypeError("Number values have no length")
	}
	return nil, mserror.TypeError(
		"wrong type of operand for '%s' with a number", line.opName())
}

// evalStringOp handles opcodes whose A operand is a string.
func (line *Line) evalStringOp(ctx *Context, a *ValString, opB Value) (Value, error) {
	sA := a.Value
	switch line.Op {
	case ATimesB, ADividedByB:
		// String replication: "ab" * 3 == "ababab"; a fractional factor
		// appends a prefix of the string. Division replicates by the
		// reciprocal.
		nb, ok := opB.(*ValNumber)
		if !ok {
			return nil, mserror.TypeError("wrong type of operand for string replication")
		}
		factor := nb.Value
		if line.Op == ADividedByB {
			factor = 1.0 / factor
		}
		return replicateString(sA, factor)
	case ElemBofA, ElemBofIterA:
		return a.GetElem(opB)
	case LengthOfA:
		return NewValNumber(float64(len([]rune(sA)))), nil
	}
	var sB string
	switch b := opB.(type) {
	case *ValString:
		sB = b.Value
	case nil:
		sB = ""
	default:
		return nil, mserror.TypeError(
			"wrong type of operand for '%s' with a string", line.opName())
	}
	switch line.Op {
	case AMinusB:
		// String subtraction strips one trailing copy of the suffix.
		if opB == nil {
			return a, nil
		}
		if strings.HasSuffix(sA, sB) && sB != "" {
			return NewValString(sA[:len(sA)-len(sB)]), nil
		}
		return a, nil
	case AGreaterThanB:
		return Truth(sA > sB), nil
	case AGreatOrEqualB:
		return Truth(sA >= sB), nil
	case ALessThanB:
		return Truth(sA < sB), nil
	case ALessOrEqualB:
		return Truth(sA <= sB), nil
	}
	return nil, mserror.TypeError(
		"unsupported operation '%s' on a string", line.opName())
}

// replicateString builds a string repeated factor times (with fractional
// tail), enforcing the string size limit.
func replicateString(s string, factor float64) (Value, error) {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 || s == "" {
		return EmptyString, nil
	}
	repeats := int(factor)
	runes := []rune(s)
	if float64(repeats)*float64(len(runes)) > MaxStringSize {
		return nil, mserror.LimitExceeded("string too large")
	}
	var sb strings.Builder
	for i := 0; i < repeats; i++ {
		sb.WriteString(s)
	}
	extraChars := int(float64(len(runes)) * (factor - float64(repeats)))
	if extraChars > 0 {
		sb.WriteString(string(runes[:extraChars]))
	}
	return NewValString(sb.String()), nil
}

// evalListOp handles opcodes whose A operand is a list.
func (line *Line) evalListOp(ctx *Context, a *ValList, opB Value) (Value, error) {
	switch line.Op {
	case ElemBofA, ElemBofIterA:
		return a.GetElem(opB)
	case LengthOfA:
		return NewValNumber(float64(len(a.Values))), nil
	case APlusB:
		// List concatenation; elements are re-evaluated in this context.
		lb, ok := opB.(*ValList)
		if !ok {
			return nil, mserror.TypeError("wrong type of operand for list concatenation")
		}
		if len(a.Values)+len(lb.Values) > MaxListSize {
			return nil, mserror.LimitExceeded("list too large")
		}
		result := &ValList{Values: make([]Value, 0, len(a.Values)+len(lb.Values))}
		for _, v := range a.Values {
			ev, err := ctx.ValueInContext(v)
			if err != nil {
				return nil, err
			}
			result.Values = append(result.Values, ev)
		}
		for _, v := range lb.Values {
			ev, err := ctx.ValueInContext(v)
			if err != nil {
				return nil, err
			}
			result.Values = append(result.Values, ev)
		}
		return result, nil
	case ATimesB, ADividedByB:
		nb, ok := opB.(*ValNumber)
		if !ok {
			return nil, mserror.TypeError("wrong type of operand for list replication")
		}
		factor := nb.Value
		if line.Op == ADividedByB {
			factor = 1.0 / factor
		}
		return replicateList(a, factor)
	}
	return nil, mserror.TypeError(
		"unsupported operation '%s' on a list", line.opName())
}

// replicateList builds a list repeated factor times (with fractional
// tail), enforcing the list size limit.
func replicateList(l *ValList, factor float64) (Value, error) {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 || len(l.Values) == 0 {
		return NewValList(), nil
	}
	repeats := int(factor)
	if float64(repeats)*float64(len(l.Values)) > MaxListSize {
		return nil, mserror.LimitExceeded("list too large")
	}
	result := &ValList{Values: make([]Value, 0, repeats*len(l.Values))}
	for i := 0; i < repeats; i++ {
		result.Values = append(result.Values, l.Values...)
	}
	extra := int(float64(len(l.Values)) * (factor - float64(repeats)))
	result.Values = append(result.Values, l.Values[:extra]...)
	return result, nil
}

// evalMapOp handles opcodes whose A operand is a map.
func (line *Line) evalMapOp(ctx *Context, a *ValMap, opB Value) (Value, error) {
	switch line.Op {
	case ElemBofA:
		// (String keys were handled earlier; this is the non-string
		// case. The lookup still walks the __isa chain.)
		result, foundIn, err := a.Lookup(opB)
		if err != nil {
			return nil, err
		}
		if foundIn == nil {
			return nil, mserror.KeyError(CodeFormOf(ctx.vm, opB, 1))
		}
		return result, nil
	case ElemBofIterA:
		// Iteration step over a map: yield a little {key, value} map for
		// the given ordinal (insertion order).
		index := IntValueOf(opB)
		key, value, ok := a.GetKeyValuePair(index)
		if !ok {
			return nil, mserror.IndexError(index, 0, a.Count()-1, "map index")
		}
		pair := NewValMap()
		pair.SetString("key", key)
		pair.SetString("value", value)
		return pair, nil
	case LengthOfA:
		return NewValNumber(float64(a.Count())), nil
	case APlusB:
		// Map combination: key-wise merge, right side wins.
		mb, ok := opB.(*ValMap)
		if !ok {
			return nil, mserror.TypeError("wrong type of operand for map combination")
		}
		result := NewValMap()
		for _, e := range a.entries {
			ev, err := ctx.ValueInContext(e.value)
			if err != nil {
				return nil, err
			}
			result.Set(e.key, ev)
		}
		for _, e := range mb.entries {
			ev, err := ctx.ValueInContext(e.value)
			if err != nil {
				return nil, err
			}
			result.Set(e.key, ev)
		}
		return result, nil
	}
	return nil, mserror.TypeError(
		"unsupported operation '%s' on a map", line.opName())
}

// opName returns the source-level spelling of this line's operator, for
// error messages.
func (line *Line) opName() string {
	if sym, ok := opSymbols[line.Op]; ok {
		return sym
	}
	switch line.Op {
	case ElemBofA, ElemBofIterA:
		return "[]"
	case LengthOfA:
		return "len"
	}
	return "?"
}
