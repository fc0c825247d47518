/*
File    : miniscript-go/tac/value.go
*/

// Package tac implements the MiniScript runtime core: the polymorphic
// value lattice, the three-address-code instruction set and its
// evaluator, call-frame contexts, the stepping machine, and the built-in
// intrinsic functions.
//
// The null value is represented by a nil Value interface throughout; the
// package-level helpers (BoolValueOf, EqualityOf, HashOf, ToStringOf,
// CodeFormOf) handle nil uniformly so callers rarely need to special-case
// it.
package tac

import (
	"math"
	"strconv"
	"strings"

	"github.com/miniscript-lang/miniscript-go/mserror"
)

// MaxStringSize is the maximum length of a string value, in characters.
const MaxStringSize = 0x00FFFFFF

// MaxListSize is the maximum number of elements in a list value.
const MaxListSize = 0x00FFFFFF

// MaxIsaDepth bounds how far a __isa prototype chain may be walked before
// lookup gives up (guards against reference loops).
const MaxIsaDepth = 1000

// MaxArgDepth is the maximum depth of the pending-argument stack.
const MaxArgDepth = 256

// DefaultEqualityDepth is the recursion depth used for container equality
// and hashing when no explicit depth is given.
const DefaultEqualityDepth = 16

// Value is the interface implemented by every MiniScript runtime value.
// The null value is a nil Value, so implementations never see a nil
// receiver through this interface.
type Value interface {
	// Val evaluates the value in a context: variables and temporaries
	// dereference, sequence elements resolve; everything else returns
	// itself.
	Val(ctx *Context) (Value, error)
	// FullEval deep-evaluates: containers resolve any Var/Temp/SeqElem
	// operands they hold (used when a literal is assigned or returned).
	FullEval(ctx *Context) (Value, error)
	// BoolValue reports the truth of the value (nonzero, nonempty).
	BoolValue() bool
	// IntValue returns the value as an integer (truncating).
	IntValue() int
	// DoubleValue returns the value as a float64.
	DoubleValue() float64
	// Equality returns a fuzzy equality score in [0,1] against rhs,
	// recursing at most depth levels into containers.
	Equality(rhs Value, depth int) float64
	// Hash returns a hash that agrees with Equality at the given depth.
	Hash(depth int) int
	// CanSetElem reports whether indexed assignment is supported.
	CanSetElem() bool
	// SetElem assigns an element by index or key.
	SetElem(index, value Value) error
	// IsA reports whether this value descends from the given type value
	// (a map reached via the __isa chain, or a built-in type map).
	IsA(typ Value, vm *Machine) bool
	// ToString renders the value for display. vm may be nil.
	ToString(vm *Machine) string
	// CodeForm renders the value as source code, recursing at most
	// recursionLimit levels into containers (negative means unlimited).
	CodeForm(vm *Machine, recursionLimit int) string
}

// ValNumber represents a number (IEEE-754 double). Numbers double as
// booleans: any nonzero value is true, and fuzzy truth values in [0,1]
// flow through the logic operators unchanged.
type ValNumber struct {
	Value float64
}

// Shared constants for the two most common numbers. These must never be
// mutated; code that wants "a number like this one but negated" makes a
// new ValNumber.
var (
	NumberZero = &ValNumber{0}
	NumberOne  = &ValNumber{1}
)

// NewValNumber wraps a float64 as a runtime number.
func NewValNumber(v float64) *ValNumber {
	return &ValNumber{Value: v}
}

// Truth converts a Go bool to the canonical runtime 1 or 0.
func Truth(b bool) *ValNumber {
	if b {
		return NumberOne
	}
	return NumberZero
}

func (n *ValNumber) Val(ctx *Context) (Value, error)      { return n, nil }
func (n *ValNumber) FullEval(ctx *Context) (Value, error) { return n, nil }
func (n *ValNumber) BoolValue() bool                      { return n.Value != 0 }
func (n *ValNumber) IntValue() int                        { return int(n.Value) }
func (n *ValNumber) DoubleValue() float64                 { return n.Value }
func (n *ValNumber) CanSetElem() bool                     { return false }

func (n *ValNumber) SetElem(index, value Value) error {
	return mserror.TypeError("Number values cannot be indexed")
}

func (n *ValNumber) Equality(rhs Value, depth int) float64 {
	if rn, ok := rhs.(*ValNumber); ok && rn.Value == n.Value {
		return 1
	}
	return 0
}

func (n *ValNumber) Hash(depth int) int {
	return hashFloat(n.Value)
}

func (n *ValNumber) IsA(typ Value, vm *Machine) bool {
	return typ == Value(NumberType())
}

// ToString formats the number the standard way: integers without a
// decimal point, very large or very small magnitudes in scientific
// notation, everything else in decimal with up to six fractional digits.
func (n *ValNumber) ToString(vm *Machine) string {
	return FormatNumber(n.Value)
}

func (n *ValNumber) CodeForm(vm *Machine, recursionLimit int) string {
	return n.ToString(vm)
}

// FormatNumber renders a float64 in MiniScript's standard display form.
func FormatNumber(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if math.IsInf(v, 1) {
		return "INF"
	}
	if math.IsInf(v, -1) {
		return "-INF"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e10 {
		// integer values as integers
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	if math.Abs(v) >= 1e10 || (v != 0 && math.Abs(v) < 1e-6) {
		// very large/small numbers in exponential form
		return strconv.FormatFloat(v, 'E', 6, 64)
	}
	// all others in decimal form, with 1-6 digits past the decimal point
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

// ValString represents an immutable string value.
type ValString struct {
	Value string
}

// EmptyString is the canonical empty string; NewValString returns it for
// empty input so "" is always the same instance.
var EmptyString = &ValString{""}

// MagicIsA is the magic map key whose value is the map's prototype.
var MagicIsA = &ValString{"__isa"}

// NewValString wraps a Go string as a runtime string.
func NewValString(s string) *ValString {
	if s == "" {
		return EmptyString
	}
	return &ValString{Value: s}
}

func (s *ValString) Val(ctx *Context) (Value, error)      { return s, nil }
func (s *ValString) FullEval(ctx *Context) (Value, error) { return s, nil }
func (s *ValString) BoolValue() bool                      { return len(s.Value) > 0 }
func (s *ValString) DoubleValue() float64 {
	d, _ := strconv.ParseFloat(s.Value, 64)
	return d
}
func (s *ValString) IntValue() int     { return int(s.DoubleValue()) }
func (s *ValString) CanSetElem() bool  { return false }

func (s *ValString) SetElem(index, value Value) error {
	return mserror.TypeError("Strings are immutable; use replace or slicing instead")
}

func (s *ValString) Equality(rhs Value, depth int) float64 {
	if rs, ok := rhs.(*ValString); ok && rs.Value == s.Value {
		return 1
	}
	return 0
}

func (s *ValString) Hash(depth int) int {
	return hashString(s.Value)
}

func (s *ValString) IsA(typ Value, vm *Machine) bool {
	return typ == Value(StringType())
}

func (s *ValString) ToString(vm *Machine) string { return s.Value }

func (s *ValString) CodeForm(vm *Machine, recursionLimit int) string {
	return `"` + strings.ReplaceAll(s.Value, `"`, `""`) + `"`
}

// GetElem returns the character at the given index (a one-character
// string), supporting negative indices from the end.
func (s *ValString) GetElem(index Value) (Value, error) {
	runes := []rune(s.Value)
	i := index.IntValue()
	if i < -len(runes) || i >= len(runes) {
		return nil, mserror.IndexError(i, -len(runes), len(runes)-1, "string index")
	}
	if i < 0 {
		i += len(runes)
	}
	return NewValString(string(runes[i])), nil
}

// Package-level helpers that treat a nil Value as null.

// BoolValueOf reports the truth of v; null is false.
func BoolValueOf(v Value) bool {
	if v == nil {
		return false
	}
	return v.BoolValue()
}

// IntValueOf returns v as an integer; null is 0.
func IntValueOf(v Value) int {
	if v == nil {
		return 0
	}
	return v.IntValue()
}

// DoubleValueOf returns v as a float64; null is 0.
func DoubleValueOf(v Value) float64 {
	if v == nil {
		return 0
	}
	return v.DoubleValue()
}

// EqualityOf returns the fuzzy equality of two values, either of which
// may be null: null equals only null.
func EqualityOf(a, b Value, depth int) float64 {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 1
		}
		return 0
	}
	return a.Equality(b, depth)
}

// HashOf hashes a value at the given depth; null hashes to -1.
func HashOf(v Value, depth int) int {
	if v == nil {
		return -1
	}
	return v.Hash(depth)
}

// ToStringOf renders a value for display; null renders as "null".
func ToStringOf(vm *Machine, v Value) string {
	if v == nil {
		return "null"
	}
	return v.ToString(vm)
}

// CodeFormOf renders a value as source code; null renders as "null".
func CodeFormOf(vm *Machine, v Value, recursionLimit int) string {
	if v == nil {
		return "null"
	}
	return v.CodeForm(vm, recursionLimit)
}

// ValOf evaluates a possibly-null value in a context.
func ValOf(ctx *Context, v Value) (Value, error) {
	if v == nil {
		return nil, nil
	}
	return v.Val(ctx)
}

// hashString is the FNV-1a hash of a string, folded to int.
func hashString(s string) int {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return int(int32(h))
}

// hashFloat hashes the bit pattern of a float64.
func hashFloat(f float64) int {
	bits := math.Float64bits(f)
	return int(int32(bits ^ (bits >> 32)))
}

// absClamp01 clamps the magnitude of a fuzzy truth value into [0,1].
func absClamp01(d float64) float64 {
	if d < 0 {
		d = -d
	}
	if d > 1 {
		return 1
	}
	return d
}
