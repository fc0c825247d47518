/*
File    : miniscript-go/tac/intrinsics_test.go
*/
package tac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callIntrinsic invokes a built-in directly with the given receiver and
// named arguments, defaulting every declared parameter first.
func callIntrinsic(t *testing.T, name string, self Value, args map[string]Value) (Value, error) {
	t.Helper()
	intrinsic := IntrinsicByName(name)
	require.NotNil(t, intrinsic, "no such intrinsic: %s", name)
	ctx := NewContext(nil)
	NewMachine(ctx, func(string) {})
	for _, param := range intrinsic.function.Parameters {
		require.NoError(t, ctx.SetVar(param.Name, param.DefaultValue))
	}
	for k, v := range args {
		require.NoError(t, ctx.SetVar(k, v))
	}
	ctx.Self = self
	result, err := intrinsic.Code(ctx, nil)
	if err != nil {
		return nil, err
	}
	require.True(t, result.Done)
	return result.ResultValue, nil
}

// mustCall is callIntrinsic for cases where no error is acceptable.
func mustCall(t *testing.T, name string, self Value, args map[string]Value) Value {
	t.Helper()
	v, err := callIntrinsic(t, name, self, args)
	require.NoError(t, err)
	return v
}

func numbers(values ...float64) *ValList {
	l := NewValList()
	for _, v := range values {
		l.Values = append(l.Values, NewValNumber(v))
	}
	return l
}

func listNumbers(t *testing.T, v Value) []float64 {
	t.Helper()
	l, ok := v.(*ValList)
	require.True(t, ok, "expected a list, got %T", v)
	out := make([]float64, len(l.Values))
	for i, e := range l.Values {
		out[i] = DoubleValueOf(e)
	}
	return out
}

func TestIntrinsic_Range(t *testing.T) {
	assert.Equal(t, []float64{0, 1, 2, 3},
		listNumbers(t, mustCall(t, "range", nil, map[string]Value{"to": NewValNumber(3)})))
	assert.Equal(t, []float64{5, 3, 1},
		listNumbers(t, mustCall(t, "range", nil, map[string]Value{
			"from": NewValNumber(5), "to": NewValNumber(1), "step": NewValNumber(-2)})))
	// With matching signs, range(a, b, s) has floor((b-a)/s)+1 elements.
	assert.Len(t, listNumbers(t, mustCall(t, "range", nil, map[string]Value{
		"from": NewValNumber(1), "to": NewValNumber(10), "step": NewValNumber(4)})), 3)
	// Default step runs downward when to < from.
	assert.Equal(t, []float64{2, 1, 0},
		listNumbers(t, mustCall(t, "range", nil, map[string]Value{"from": NewValNumber(2)})))

	_, err := callIntrinsic(t, "range", nil, map[string]Value{
		"to": NewValNumber(5), "step": NewValNumber(0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "range() error")
}

func TestIntrinsic_Slice(t *testing.T) {
	src := numbers(0, 1, 2, 3, 4)
	assert.Equal(t, []float64{1, 2},
		listNumbers(t, mustCall(t, "slice", nil, map[string]Value{
			"seq": src, "from": NewValNumber(1), "to": NewValNumber(3)})))
	// Negative indices count from the end; a missing `to` runs to the end.
	assert.Equal(t, []float64{3, 4},
		listNumbers(t, mustCall(t, "slice", nil, map[string]Value{
			"seq": src, "from": NewValNumber(-2)})))
	s := mustCall(t, "slice", nil, map[string]Value{
		"seq": NewValString("hello"), "from": NewValNumber(1), "to": NewValNumber(4)})
	assert.Equal(t, "ell", s.(*ValString).Value)
	// Slicing never mutates the source.
	assert.Len(t, src.Values, 5)
}

func TestIntrinsic_SortInPlace(t *testing.T) {
	l := numbers(5, 3, 4, 1, 2)
	result := mustCall(t, "sort", l, nil)
	assert.Same(t, l, result)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, listNumbers(t, l))

	// Descending via ascending=0.
	mustCall(t, "sort", l, map[string]Value{"ascending": NumberZero})
	assert.Equal(t, []float64{5, 4, 3, 2, 1}, listNumbers(t, l))

	// Mixed types: numbers before strings.
	mixed := NewValListFrom([]Value{NewValString("b"), NewValNumber(2), NewValString("a"), NewValNumber(1)})
	mustCall(t, "sort", mixed, nil)
	assert.Equal(t, 1.0, mixed.Values[0].DoubleValue())
	assert.Equal(t, 2.0, mixed.Values[1].DoubleValue())
	assert.Equal(t, "a", mixed.Values[2].(*ValString).Value)
	assert.Equal(t, "b", mixed.Values[3].(*ValString).Value)
}

func TestIntrinsic_SortByKey(t *testing.T) {
	mk := func(name string, age float64) *ValMap {
		m := NewValMap()
		m.SetString("name", NewValString(name))
		m.SetString("age", NewValNumber(age))
		return m
	}
	l := NewValListFrom([]Value{mk("carol", 41), mk("alice", 29), mk("bob", 35)})
	mustCall(t, "sort", l, map[string]Value{"byKey": NewValString("age")})
	names := []string{}
	for _, v := range l.Values {
		n, _ := v.(*ValMap).GetString("name")
		names = append(names, n.(*ValString).Value)
	}
	assert.Equal(t, []string{"alice", "bob", "carol"}, names)
}

func TestIntrinsic_IndexOf(t *testing.T) {
	s := NewValString("Hello World")
	v := mustCall(t, "indexOf", s, map[string]Value{"value": NewValString("o")})
	assert.Equal(t, 4.0, DoubleValueOf(v))
	v = mustCall(t, "indexOf", s, map[string]Value{"value": NewValString("o"), "after": NewValNumber(4)})
	assert.Equal(t, 7.0, DoubleValueOf(v))
	v = mustCall(t, "indexOf", s, map[string]Value{"value": NewValString("o"), "after": NewValNumber(7)})
	assert.Nil(t, v)

	l := numbers(9, 8, 7, 8)
	v = mustCall(t, "indexOf", l, map[string]Value{"value": NewValNumber(8)})
	assert.Equal(t, 1.0, DoubleValueOf(v))
	v = mustCall(t, "indexOf", l, map[string]Value{"value": NewValNumber(8), "after": NewValNumber(1)})
	assert.Equal(t, 3.0, DoubleValueOf(v))

	m := NewValMap()
	m.SetString("a", NewValNumber(1))
	m.SetString("b", NewValNumber(2))
	v = mustCall(t, "indexOf", m, map[string]Value{"value": NewValNumber(2)})
	assert.Equal(t, "b", v.(*ValString).Value)
}

func TestIntrinsic_HasIndex(t *testing.T) {
	l := numbers(1, 2, 3)
	// hasIndex is 1 exactly for -len <= i < len.
	for i := -3; i < 3; i++ {
		v := mustCall(t, "hasIndex", l, map[string]Value{"index": NewValNumber(float64(i))})
		assert.Equal(t, 1.0, DoubleValueOf(v), "index %d", i)
	}
	for _, i := range []int{-4, 3, 10} {
		v := mustCall(t, "hasIndex", l, map[string]Value{"index": NewValNumber(float64(i))})
		assert.Equal(t, 0.0, DoubleValueOf(v), "index %d", i)
	}
	m := NewValMap()
	m.SetString("k", nil)
	assert.Equal(t, 1.0, DoubleValueOf(mustCall(t, "hasIndex", m, map[string]Value{"index": NewValString("k")})))
	assert.Equal(t, 0.0, DoubleValueOf(mustCall(t, "hasIndex", m, map[string]Value{"index": NewValString("j")})))
}

func TestIntrinsic_Split(t *testing.T) {
	v := mustCall(t, "split", NewValString("a b c"), nil)
	l := v.(*ValList)
	require.Len(t, l.Values, 3)
	assert.Equal(t, "b", l.Values[1].(*ValString).Value)

	v = mustCall(t, "split", NewValString("a,b,c,d"), map[string]Value{
		"delim": NewValString(","), "maxCount": NewValNumber(2)})
	l = v.(*ValList)
	require.Len(t, l.Values, 2)
	assert.Equal(t, "b,c,d", l.Values[1].(*ValString).Value)
}

func TestIntrinsic_JoinPushPopPull(t *testing.T) {
	l := numbers(1, 2)
	v := mustCall(t, "join", l, map[string]Value{"delim": NewValString("-")})
	assert.Equal(t, "1-2", v.(*ValString).Value)

	mustCall(t, "push", l, map[string]Value{"value": NewValNumber(3)})
	assert.Equal(t, []float64{1, 2, 3}, listNumbers(t, l))

	v = mustCall(t, "pop", l, nil)
	assert.Equal(t, 3.0, DoubleValueOf(v))
	v = mustCall(t, "pull", l, nil)
	assert.Equal(t, 1.0, DoubleValueOf(v))
	assert.Equal(t, []float64{2}, listNumbers(t, l))

	// Map pop removes the newest key; pull the oldest.
	m := NewValMap()
	m.SetString("first", NumberOne)
	m.SetString("second", NumberOne)
	m.SetString("third", NumberOne)
	assert.Equal(t, "third", mustCall(t, "pop", m, nil).(*ValString).Value)
	assert.Equal(t, "first", mustCall(t, "pull", m, nil).(*ValString).Value)
	assert.Equal(t, 1, m.Count())
}

func TestIntrinsic_Replace(t *testing.T) {
	v := mustCall(t, "replace", NewValString("banana"), map[string]Value{
		"oldval": NewValString("a"), "newval": NewValString("o")})
	assert.Equal(t, "bonono", v.(*ValString).Value)
	v = mustCall(t, "replace", NewValString("banana"), map[string]Value{
		"oldval": NewValString("a"), "newval": NewValString("o"), "maxCount": NewValNumber(2)})
	assert.Equal(t, "bonona", v.(*ValString).Value)

	l := numbers(1, 2, 1)
	mustCall(t, "replace", l, map[string]Value{"oldval": NewValNumber(1), "newval": NewValNumber(9)})
	assert.Equal(t, []float64{9, 2, 9}, listNumbers(t, l))
}

func TestIntrinsic_UpperLowerIdempotent(t *testing.T) {
	s := NewValString("MiXeD 42!")
	up := mustCall(t, "upper", s, nil)
	up2 := mustCall(t, "upper", up, nil)
	assert.Equal(t, up.(*ValString).Value, up2.(*ValString).Value)
	low := mustCall(t, "lower", s, nil)
	low2 := mustCall(t, "lower", low, nil)
	assert.Equal(t, low.(*ValString).Value, low2.(*ValString).Value)
	// Non-strings pass through untouched.
	assert.Equal(t, 5.0, DoubleValueOf(mustCall(t, "upper", NewValNumber(5), nil)))
}

func TestIntrinsic_ValStrRoundTrip(t *testing.T) {
	for _, x := range []float64{0, 42, -3.5, 0.125, 1e12} {
		s := mustCall(t, "str", nil, map[string]Value{"x": NewValNumber(x)})
		v := mustCall(t, "val", s, nil)
		assert.Equal(t, x, DoubleValueOf(v), "via %q", s.(*ValString).Value)
	}
	assert.Equal(t, 0.0, DoubleValueOf(mustCall(t, "val", NewValString("not a number"), nil)))
}

func TestIntrinsic_MathBasics(t *testing.T) {
	assert.Equal(t, 4.0, DoubleValueOf(mustCall(t, "abs", nil, map[string]Value{"x": NewValNumber(-4)})))
	assert.Equal(t, 3.0, DoubleValueOf(mustCall(t, "floor", nil, map[string]Value{"x": NewValNumber(3.9)})))
	assert.Equal(t, 4.0, DoubleValueOf(mustCall(t, "ceil", nil, map[string]Value{"x": NewValNumber(3.1)})))
	assert.Equal(t, -1.0, DoubleValueOf(mustCall(t, "sign", nil, map[string]Value{"x": NewValNumber(-0.5)})))
	assert.InDelta(t, 3.14, DoubleValueOf(mustCall(t, "round", nil, map[string]Value{
		"x": NewValNumber(3.14159), "decimalPlaces": NewValNumber(2)})), 1e-12)
	assert.InDelta(t, 2.0, DoubleValueOf(mustCall(t, "log", nil, map[string]Value{"x": NewValNumber(100)})), 1e-12)
	assert.Equal(t, 12.0, DoubleValueOf(mustCall(t, "bitAnd", nil, map[string]Value{
		"i": NewValNumber(12), "j": NewValNumber(13)})))
	assert.Equal(t, "A", mustCall(t, "char", nil, nil).(*ValString).Value)
	assert.Equal(t, 65.0, DoubleValueOf(mustCall(t, "code", NewValString("ABC"), nil)))
}

func TestIntrinsic_SumIndexesValues(t *testing.T) {
	l := numbers(1, 2, 3)
	assert.Equal(t, 6.0, DoubleValueOf(mustCall(t, "sum", l, nil)))
	assert.Equal(t, []float64{0, 1, 2}, listNumbers(t, mustCall(t, "indexes", l, nil)))

	m := NewValMap()
	m.SetString("a", NewValNumber(10))
	m.SetString("b", NewValNumber(20))
	assert.Equal(t, 30.0, DoubleValueOf(mustCall(t, "sum", m, nil)))
	keys := mustCall(t, "indexes", m, nil).(*ValList)
	require.Len(t, keys.Values, 2)
	assert.Equal(t, "a", keys.Values[0].(*ValString).Value)
	vals := mustCall(t, "values", m, nil).(*ValList)
	assert.Equal(t, 20.0, DoubleValueOf(vals.Values[1]))
}

func TestIntrinsic_Insert(t *testing.T) {
	l := numbers(1, 3)
	mustCall(t, "insert", l, map[string]Value{"index": NewValNumber(1), "value": NewValNumber(2)})
	assert.Equal(t, []float64{1, 2, 3}, listNumbers(t, l))
	v := mustCall(t, "insert", NewValString("hllo"), map[string]Value{
		"index": NewValNumber(1), "value": NewValString("e")})
	assert.Equal(t, "hello", v.(*ValString).Value)

	_, err := callIntrinsic(t, "insert", l, map[string]Value{"value": NewValNumber(0)})
	require.Error(t, err)
}

func TestIntrinsic_Rnd(t *testing.T) {
	a := DoubleValueOf(mustCall(t, "rnd", nil, map[string]Value{"seed": NewValNumber(7)}))
	b := DoubleValueOf(mustCall(t, "rnd", nil, nil))
	c := DoubleValueOf(mustCall(t, "rnd", nil, map[string]Value{"seed": NewValNumber(7)}))
	d := DoubleValueOf(mustCall(t, "rnd", nil, nil))
	assert.Equal(t, a, c)
	assert.Equal(t, b, d)
	assert.GreaterOrEqual(t, a, 0.0)
	assert.Less(t, a, 1.0)
}

func TestIntrinsic_VersionMap(t *testing.T) {
	v := mustCall(t, "version", nil, nil).(*ValMap)
	for _, key := range []string{"miniscript", "buildDate", "host", "hostName", "hostInfo"} {
		_, found := v.GetString(key)
		assert.True(t, found, "missing version key %s", key)
	}
}

func TestIntrinsic_TypeMapsAreSingletons(t *testing.T) {
	assert.Same(t, ListType(), mustCall(t, "list", nil, nil))
	assert.Same(t, MapType(), mustCall(t, "map", nil, nil))
	assert.Same(t, NumberType(), mustCall(t, "number", nil, nil))
	assert.Same(t, StringType(), mustCall(t, "string", nil, nil))
	assert.Same(t, FunctionType(), mustCall(t, "funcRef", nil, nil))
	// The prototypes expose the member intrinsics.
	_, found := ListType().GetString("sort")
	assert.True(t, found)
	_, found = StringType().GetString("split")
	assert.True(t, found)
}
