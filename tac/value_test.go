/*
File    : miniscript-go/tac/value_test.go
*/
package tac

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquality_SelfIsOne(t *testing.T) {
	list := NewValListFrom([]Value{NewValNumber(1), NewValString("a")})
	m := NewValMap()
	m.SetString("x", NewValNumber(1))
	values := []Value{
		NewValNumber(0),
		NewValNumber(42.5),
		NewValString(""),
		NewValString("hello"),
		list,
		m,
		NewValFunction(NewFunction()),
	}
	for _, v := range values {
		assert.Equal(t, 1.0, v.Equality(v, DefaultEqualityDepth), "value: %v", v.ToString(nil))
	}
	assert.Equal(t, 1.0, EqualityOf(nil, nil, DefaultEqualityDepth))
}

func TestEquality_Strings(t *testing.T) {
	assert.Equal(t, 1.0, NewValString("abc").Equality(NewValString("abc"), DefaultEqualityDepth))
	assert.Equal(t, 0.0, NewValString("abc").Equality(NewValString("ABC"), DefaultEqualityDepth))
	assert.Equal(t, 0.0, NewValString("1").Equality(NewValNumber(1), DefaultEqualityDepth))
}

func TestEquality_IsCommutative(t *testing.T) {
	pairs := [][2]Value{
		{NewValNumber(1), NewValNumber(1)},
		{NewValNumber(1), NewValString("1")},
		{NewValListFrom([]Value{NumberOne}), NewValListFrom([]Value{NumberOne})},
		{NewValString("x"), nil},
	}
	for _, pair := range pairs {
		assert.Equal(t,
			EqualityOf(pair[0], pair[1], DefaultEqualityDepth),
			EqualityOf(pair[1], pair[0], DefaultEqualityDepth))
	}
}

func TestEquality_DeepListsReturnHalfWhenExhausted(t *testing.T) {
	// Two structurally equal deep nestings; with depth 0 remaining the
	// comparison gives up at 0.5.
	a := NewValListFrom([]Value{NewValListFrom([]Value{NewValNumber(1)})})
	b := NewValListFrom([]Value{NewValListFrom([]Value{NewValNumber(1)})})
	assert.Equal(t, 1.0, a.Equality(b, DefaultEqualityDepth))
	assert.Equal(t, 0.5, a.Equality(b, 0))
}

func TestHash_AgreesWithEquality(t *testing.T) {
	m1 := NewValMap()
	m1.SetString("a", NewValNumber(1))
	m1.SetString("b", NewValString("two"))
	m2 := NewValMap()
	// Different insertion order: still equal, and hashes must agree.
	m2.SetString("b", NewValString("two"))
	m2.SetString("a", NewValNumber(1))

	pairs := [][2]Value{
		{NewValNumber(3.5), NewValNumber(3.5)},
		{NewValString("abc"), NewValString("abc")},
		{NewValListFrom([]Value{NewValNumber(1), NewValString("x")}),
			NewValListFrom([]Value{NewValNumber(1), NewValString("x")})},
		{m1, m2},
	}
	for _, pair := range pairs {
		require.Equal(t, 1.0, EqualityOf(pair[0], pair[1], DefaultEqualityDepth))
		assert.Equal(t, HashOf(pair[0], DefaultEqualityDepth), HashOf(pair[1], DefaultEqualityDepth))
	}
	assert.Equal(t, -1, HashOf(nil, DefaultEqualityDepth))
}

func TestBoolValue(t *testing.T) {
	assert.False(t, NewValNumber(0).BoolValue())
	assert.True(t, NewValNumber(0.5).BoolValue())
	assert.True(t, NewValNumber(-2).BoolValue())
	assert.False(t, NewValString("").BoolValue())
	assert.True(t, NewValString("x").BoolValue())
	assert.False(t, NewValList().BoolValue())
	assert.True(t, NewValListFrom([]Value{NumberZero}).BoolValue())
	assert.False(t, NewValMap().BoolValue())
	m := NewValMap()
	m.SetString("k", nil)
	assert.True(t, m.BoolValue())
	assert.True(t, NewValFunction(NewFunction()).BoolValue())
	assert.False(t, BoolValueOf(nil))
}

func TestEmptyStringIsCanonical(t *testing.T) {
	assert.Same(t, EmptyString, NewValString(""))
	assert.NotSame(t, EmptyString, NewValString("x"))
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		0:        "0",
		42:       "42",
		-7:       "-7",
		3.5:      "3.5",
		1.0 / 3:  "0.333333",
		9e9:      "9000000000",
		-9999999: "-9999999",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatNumber(in), "input: %v", in)
	}
	// Very large and very small magnitudes switch to scientific form.
	assert.Contains(t, FormatNumber(1e10), "E+")
	assert.Contains(t, FormatNumber(1e-7), "E-")
}

func TestFormatNumber_RoundTripsThroughVal(t *testing.T) {
	// val(str(x)) == x for finite numbers that print in full precision.
	for _, x := range []float64{0, 1, -1, 42, 3.5, -0.25, 123456789, 1e12, 2.5e-9} {
		s := FormatNumber(x)
		parsed, err := strconv.ParseFloat(s, 64)
		require.NoError(t, err, "formatted: %s", s)
		assert.Equal(t, x, parsed, "formatted: %s", s)
	}
}

func TestMap_InsertionOrderAndFuzzyKeys(t *testing.T) {
	m := NewValMap()
	m.SetString("one", NewValNumber(1))
	m.SetString("two", NewValNumber(2))
	m.SetString("three", NewValNumber(3))

	keys := m.Keys()
	require.Len(t, keys, 3)
	assert.Equal(t, "one", keys[0].(*ValString).Value)
	assert.Equal(t, "three", keys[2].(*ValString).Value)

	// Numeric keys match by value equality, not representation.
	m2 := NewValMap()
	m2.Set(NewValNumber(1), NewValString("int one"))
	v, found := m2.Get(NewValNumber(1.0))
	require.True(t, found)
	assert.Equal(t, "int one", v.(*ValString).Value)

	// A null key is a real key.
	m2.Set(nil, NewValString("null value"))
	v, found = m2.Get(nil)
	require.True(t, found)
	assert.Equal(t, "null value", v.(*ValString).Value)

	// Removal preserves the order of the remaining entries.
	require.True(t, m.Remove(NewValString("two")))
	keys = m.Keys()
	require.Len(t, keys, 2)
	assert.Equal(t, "one", keys[0].(*ValString).Value)
	assert.Equal(t, "three", keys[1].(*ValString).Value)
}

func TestMap_AssignOverride(t *testing.T) {
	m := NewValMap()
	var gotKey, gotValue Value
	m.AssignOverride = func(key, value Value) bool {
		gotKey, gotValue = key, value
		return true // handled: the store must stay untouched
	}
	require.NoError(t, m.SetElem(NewValString("x"), NewValNumber(9)))
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, "x", gotKey.(*ValString).Value)
	assert.Equal(t, 9.0, gotValue.DoubleValue())

	m.AssignOverride = func(key, value Value) bool { return false }
	require.NoError(t, m.SetElem(NewValString("x"), NewValNumber(9)))
	assert.Equal(t, 1, m.Count())
}

func TestMap_PrototypeLookupAndIsA(t *testing.T) {
	parent := NewValMap()
	parent.SetString("greet", NewValString("hello"))
	child := NewValMap()
	child.Set(MagicIsA, parent)

	v, foundIn, err := child.Lookup(NewValString("greet"))
	require.NoError(t, err)
	assert.Same(t, parent, foundIn)
	assert.Equal(t, "hello", v.(*ValString).Value)

	assert.True(t, child.IsA(parent, nil))
	assert.False(t, parent.IsA(child, nil))
}

func TestMap_IsaChainDepthLimit(t *testing.T) {
	// A self-referential chain must terminate with a limit failure.
	a := NewValMap()
	b := NewValMap()
	a.Set(MagicIsA, b)
	b.Set(MagicIsA, a)
	_, _, err := a.Lookup(NewValString("missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "__isa depth exceeded")
}

func TestList_NegativeIndexing(t *testing.T) {
	l := NewValListFrom([]Value{NewValNumber(10), NewValNumber(20), NewValNumber(30)})
	v, err := l.GetElem(NewValNumber(-1))
	require.NoError(t, err)
	assert.Equal(t, 30.0, v.DoubleValue())

	_, err = l.GetElem(NewValNumber(3))
	require.Error(t, err)
	_, err = l.GetElem(NewValNumber(-4))
	require.Error(t, err)

	require.NoError(t, l.SetElem(NewValNumber(-3), NewValNumber(11)))
	assert.Equal(t, 11.0, l.Values[0].DoubleValue())
}

func TestFunctionEquality_IsReferenceIdentity(t *testing.T) {
	fn := NewFunction()
	a := NewValFunction(fn)
	b := a.BindAndCopy(NewValMap())
	assert.Equal(t, 1.0, a.Equality(b, DefaultEqualityDepth))
	other := NewValFunction(NewFunction())
	assert.Equal(t, 0.0, a.Equality(other, DefaultEqualityDepth))
}

func TestCodeForm(t *testing.T) {
	assert.Equal(t, `"say ""hi"""`, NewValString(`say "hi"`).CodeForm(nil, 1))
	l := NewValListFrom([]Value{NewValNumber(1), NewValString("a"), nil})
	assert.Equal(t, `[1, "a", null]`, l.CodeForm(nil, 3))
	m := NewValMap()
	m.SetString("n", NewValNumber(2))
	assert.Equal(t, `{"n": 2}`, m.CodeForm(nil, 3))
}
