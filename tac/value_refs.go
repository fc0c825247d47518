/*
File    : miniscript-go/tac/value_refs.go
*/
package tac

// This file holds the reference-like values: unresolved variable
// references, numbered temporaries, and deferred indexed accesses. They
// appear as TAC operands (created by the parser) and as lvalues at
// runtime; evaluating one resolves it against a context.

import (
	"github.com/miniscript-lang/miniscript-go/mserror"
)

// ValVar is an unresolved variable reference. NoInvoke reflects the
// address-of marker (@), which suppresses the parser's auto-call of
// zero-argument functions.
type ValVar struct {
	Identifier string
	NoInvoke   bool
}

// Shared references for the special identifiers. The parser compares
// against these by identifier, so sharing is an allocation nicety, not a
// semantic requirement.
var (
	VarSelf           = &ValVar{Identifier: "self"}
	VarSuper          = &ValVar{Identifier: "super"}
	VarImplicitResult = &ValVar{Identifier: "_"}
)

// NewValVar creates a variable reference.
func NewValVar(identifier string) *ValVar {
	return &ValVar{Identifier: identifier}
}

// Val resolves the variable in the given context (locals, outer vars,
// globals, then intrinsics).
func (v *ValVar) Val(ctx *Context) (Value, error) {
	return ctx.GetVar(v.Identifier)
}

func (v *ValVar) FullEval(ctx *Context) (Value, error) { return v.Val(ctx) }

func (v *ValVar) BoolValue() bool      { return false }
func (v *ValVar) IntValue() int        { return 0 }
func (v *ValVar) DoubleValue() float64 { return 0 }
func (v *ValVar) CanSetElem() bool     { return false }

func (v *ValVar) SetElem(index, value Value) error {
	return mserror.TypeError("Variable references cannot be indexed")
}

// Equality is by identifier; used only at parse/disassembly time.
func (v *ValVar) Equality(rhs Value, depth int) float64 {
	if rv, ok := rhs.(*ValVar); ok && rv.Identifier == v.Identifier {
		return 1
	}
	return 0
}

func (v *ValVar) Hash(depth int) int               { return hashString(v.Identifier) }
func (v *ValVar) IsA(typ Value, vm *Machine) bool  { return false }
func (v *ValVar) ToString(vm *Machine) string {
	if v.NoInvoke {
		return "@" + v.Identifier
	}
	return v.Identifier
}
func (v *ValVar) CodeForm(vm *Machine, recursionLimit int) string { return v.ToString(vm) }

// ValTemp is a numbered temporary within the current context. Temp 0 is
// reserved for the return value of the frame.
type ValTemp struct {
	TempNum int
}

// NewValTemp creates a reference to the given temporary slot.
func NewValTemp(tempNum int) *ValTemp {
	return &ValTemp{TempNum: tempNum}
}

func (t *ValTemp) Val(ctx *Context) (Value, error) {
	return ctx.GetTemp(t.TempNum), nil
}

func (t *ValTemp) FullEval(ctx *Context) (Value, error) { return t.Val(ctx) }

func (t *ValTemp) BoolValue() bool      { return false }
func (t *ValTemp) IntValue() int        { return 0 }
func (t *ValTemp) DoubleValue() float64 { return 0 }
func (t *ValTemp) CanSetElem() bool     { return false }

func (t *ValTemp) SetElem(index, value Value) error {
	return mserror.TypeError("Temporaries cannot be indexed")
}

// Equality is by temp index; used only at parse/disassembly time.
func (t *ValTemp) Equality(rhs Value, depth int) float64 {
	if rt, ok := rhs.(*ValTemp); ok && rt.TempNum == t.TempNum {
		return 1
	}
	return 0
}

func (t *ValTemp) Hash(depth int) int              { return t.TempNum }
func (t *ValTemp) IsA(typ Value, vm *Machine) bool { return false }
func (t *ValTemp) ToString(vm *Machine) string {
	return "_" + FormatNumber(float64(t.TempNum))
}
func (t *ValTemp) CodeForm(vm *Machine, recursionLimit int) string { return t.ToString(vm) }

// ValSeqElem is a deferred indexed access (a[i], obj.field). It serves
// as an lvalue for element assignment and, when evaluated, resolves via
// the prototype chain for string indices.
type ValSeqElem struct {
	Sequence Value
	Index    Value
	NoInvoke bool
}

// NewValSeqElem creates a deferred indexed access.
func NewValSeqElem(sequence, index Value) *ValSeqElem {
	return &ValSeqElem{Sequence: sequence, Index: index}
}

// ResolveIdentifier looks up identifier on sequence, walking the __isa
// prototype chain. On a map the chain is the map's own ancestry, with
// one fallback to the generic map type; lists, strings, numbers and
// functions jump straight to their built-in type maps. Returns the value
// and the map it was found in (for super binding).
func ResolveIdentifier(sequence Value, identifier string, ctx *Context) (Value, *ValMap, error) {
	includeMapType := true
	idVal := NewValString(identifier)
	loopsLeft := MaxIsaDepth
	for sequence != nil {
		switch seq := sequence.(type) {
		case *ValTemp, *ValVar:
			ev, err := seq.Val(ctx)
			if err != nil {
				return nil, nil, err
			}
			if ev == nil {
				return nil, nil, mserror.TypeError(
					"Null Reference Exception: can't index into null (while attempting to look up %s)", identifier)
			}
			sequence = ev
			continue
		case *ValMap:
			if result, found := seq.Get(idVal); found {
				return result, seq, nil
			}
			// Not found; try the __isa chain next, then the generic map
			// type, then give up.
			if loopsLeft < 0 {
				return nil, nil, mserror.LimitExceeded("__isa depth exceeded (perhaps a reference loop?)")
			}
			parent, found := seq.Get(MagicIsA)
			if !found {
				if !includeMapType {
					return nil, nil, mserror.KeyError(identifier)
				}
				parent = MapType()
				includeMapType = false
			}
			sequence = parent
		case *ValList:
			sequence = ListType()
			includeMapType = false
		case *ValString:
			sequence = StringType()
			includeMapType = false
		case *ValNumber:
			sequence = NumberType()
			includeMapType = false
		case *ValFunction:
			sequence = FunctionType()
			includeMapType = false
		default:
			return nil, nil, mserror.TypeError("Type Error (while attempting to look up %s)", identifier)
		}
		loopsLeft--
	}
	return nil, nil, mserror.KeyError(identifier)
}

// Val resolves the access, discarding the found-in map.
func (se *ValSeqElem) Val(ctx *Context) (Value, error) {
	v, _, err := se.ValPair(ctx)
	return v, err
}

// ValPair resolves the access and also returns the map the value was
// found in (nil when the value came from a list or string element).
// A string index walks the prototype chain; a non-string index applies
// to lists and strings directly, and to maps as a key looked up along
// the __isa chain.
func (se *ValSeqElem) ValPair(ctx *Context) (Value, *ValMap, error) {
	baseSeq := se.Sequence
	if vv, ok := se.Sequence.(*ValVar); ok && vv.Identifier == VarSelf.Identifier {
		if ctx.Self == nil {
			return nil, nil, mserror.UndefinedIdentifier("self")
		}
		baseSeq = ctx.Self
	}
	idxVal, err := ValOf(ctx, se.Index)
	if err != nil {
		return nil, nil, err
	}
	if is, ok := idxVal.(*ValString); ok {
		return ResolveIdentifier(baseSeq, is.Value, ctx)
	}
	// A non-string index applies to maps, lists, and strings only.
	baseVal, err := ValOf(ctx, baseSeq)
	if err != nil {
		return nil, nil, err
	}
	switch base := baseVal.(type) {
	case *ValMap:
		result, foundIn, err := base.Lookup(idxVal)
		if err != nil {
			return nil, nil, err
		}
		if foundIn == nil {
			return nil, nil, mserror.KeyError(CodeFormOf(ctx.VM(), idxVal, 1))
		}
		return result, foundIn, nil
	case *ValList:
		v, err := base.GetElem(idxVal)
		return v, nil, err
	case *ValString:
		v, err := base.GetElem(idxVal)
		return v, nil, err
	case nil:
		return nil, nil, mserror.TypeError("Null Reference Exception: can't index into null")
	default:
		return nil, nil, mserror.TypeError("can't index into this type")
	}
}

func (se *ValSeqElem) FullEval(ctx *Context) (Value, error) { return se.Val(ctx) }

func (se *ValSeqElem) BoolValue() bool      { return false }
func (se *ValSeqElem) IntValue() int        { return 0 }
func (se *ValSeqElem) DoubleValue() float64 { return 0 }
func (se *ValSeqElem) CanSetElem() bool     { return false }

func (se *ValSeqElem) SetElem(index, value Value) error {
	return mserror.TypeError("Sequence references cannot be indexed directly")
}

func (se *ValSeqElem) Equality(rhs Value, depth int) float64 {
	rse, ok := rhs.(*ValSeqElem)
	if !ok {
		return 0
	}
	if EqualityOf(se.Sequence, rse.Sequence, depth) == 1 &&
		EqualityOf(se.Index, rse.Index, depth) == 1 {
		return 1
	}
	return 0
}

func (se *ValSeqElem) Hash(depth int) int {
	return HashOf(se.Sequence, depth)*31 + HashOf(se.Index, depth)
}

func (se *ValSeqElem) IsA(typ Value, vm *Machine) bool { return false }

func (se *ValSeqElem) ToString(vm *Machine) string {
	prefix := ""
	if se.NoInvoke {
		prefix = "@"
	}
	return prefix + ToStringOf(vm, se.Sequence) + "[" + ToStringOf(vm, se.Index) + "]"
}

func (se *ValSeqElem) CodeForm(vm *Machine, recursionLimit int) string {
	return se.ToString(vm)
}

// valPair evaluates any value, additionally reporting the map a
// sequence-element lookup found its result in. Non-lookups report nil.
func valPair(v Value, ctx *Context) (Value, *ValMap, error) {
	if se, ok := v.(*ValSeqElem); ok {
		return se.ValPair(ctx)
	}
	result, err := ValOf(ctx, v)
	return result, nil, err
}
