/*
File    : miniscript-go/tac/intrinsics_collections.go
*/
package tac

// Collection intrinsics: the indexing, mutation, iteration-support and
// aggregation functions shared by lists, maps, and (where sensible)
// strings.

import (
	"sort"
	"strings"

	"github.com/miniscript-lang/miniscript-go/mserror"
)

// initCollectionIntrinsics registers the container intrinsic set.
func initCollectionIntrinsics() {
	// len(self)
	f := CreateIntrinsic("len")
	f.AddParam("self", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		switch v := ctx.SelfValue().(type) {
		case *ValString:
			return NumberResult(float64(len([]rune(v.Value)))), nil
		case *ValList:
			return NumberResult(float64(len(v.Values))), nil
		case *ValMap:
			return NumberResult(float64(v.Count())), nil
		default:
			return ResultNull, nil
		}
	}

	// hasIndex(self, index): for lists and strings, is the (numeric)
	// index within -len..len-1; for maps, is the key present.
	f = CreateIntrinsic("hasIndex")
	f.AddParam("self", nil)
	f.AddParam("index", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		index := ctx.GetLocal("index")
		switch v := ctx.SelfValue().(type) {
		case *ValList:
			n, ok := index.(*ValNumber)
			if !ok {
				return ResultFalse, nil
			}
			i := int(n.Value)
			return NewResult(Truth(i >= -len(v.Values) && i < len(v.Values))), nil
		case *ValString:
			n, ok := index.(*ValNumber)
			if !ok {
				return ResultFalse, nil
			}
			i := int(n.Value)
			length := len([]rune(v.Value))
			return NewResult(Truth(i >= -length && i < length)), nil
		case *ValMap:
			return NewResult(Truth(v.ContainsKey(index))), nil
		default:
			return ResultNull, nil
		}
	}

	// indexes(self): all keys of a map (insertion order), or the valid
	// indices of a list or string.
	f = CreateIntrinsic("indexes")
	f.AddParam("self", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		switch v := ctx.SelfValue().(type) {
		case *ValMap:
			return NewResult(NewValListFrom(v.Keys())), nil
		case *ValList:
			result := make([]Value, len(v.Values))
			for i := range v.Values {
				result[i] = NewValNumber(float64(i))
			}
			return NewResult(NewValListFrom(result)), nil
		case *ValString:
			length := len([]rune(v.Value))
			result := make([]Value, length)
			for i := 0; i < length; i++ {
				result[i] = NewValNumber(float64(i))
			}
			return NewResult(NewValListFrom(result)), nil
		default:
			return ResultNull, nil
		}
	}

	// indexOf(self, value, after): first index (or map key) whose
	// element equals value, searching after the given index/key.
	f = CreateIntrinsic("indexOf")
	f.AddParam("self", nil)
	f.AddParam("value", nil)
	f.AddParam("after", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		value := ctx.GetLocal("value")
		after := ctx.GetLocal("after")
		switch v := ctx.SelfValue().(type) {
		case *ValList:
			afterIdx := -1
			if after != nil {
				afterIdx = IntValueOf(after)
			}
			if afterIdx < -1 {
				afterIdx += len(v.Values)
			}
			if afterIdx < -1 || afterIdx >= len(v.Values)-1 {
				return ResultNull, nil
			}
			for i := afterIdx + 1; i < len(v.Values); i++ {
				if EqualityOf(v.Values[i], value, DefaultEqualityDepth) == 1 {
					return NumberResult(float64(i)), nil
				}
			}
			return ResultNull, nil
		case *ValString:
			runes := []rune(v.Value)
			target := []rune(ToStringOf(ctx.VM(), value))
			afterIdx := -1
			if after != nil {
				afterIdx = IntValueOf(after)
			}
			if afterIdx < -1 {
				afterIdx += len(runes)
			}
			if afterIdx < -1 {
				return ResultNull, nil
			}
			idx := runeIndex(runes, target, afterIdx+1)
			if idx < 0 {
				return ResultNull, nil
			}
			return NumberResult(float64(idx)), nil
		case *ValMap:
			sawAfter := after == nil
			for _, e := range v.entries {
				if !sawAfter {
					if EqualityOf(e.key, after, DefaultEqualityDepth) == 1 {
						sawAfter = true
					}
				} else if EqualityOf(e.value, value, DefaultEqualityDepth) == 1 {
					return NewResult(e.key), nil
				}
			}
			return ResultNull, nil
		default:
			return ResultNull, nil
		}
	}

	// insert(self, index, value): splice into a list (in place) or a
	// string (copy); returns self for lists, the new string otherwise.
	f = CreateIntrinsic("insert")
	f.AddParam("self", nil)
	f.AddParam("index", nil)
	f.AddParam("value", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		index := ctx.GetLocal("index")
		value := ctx.GetLocal("value")
		if index == nil {
			return nil, mserror.NewRuntimeError("insert: index argument required")
		}
		if _, ok := index.(*ValNumber); !ok {
			return nil, mserror.TypeError("insert: number required for index argument")
		}
		idx := IntValueOf(index)
		switch v := ctx.SelfValue().(type) {
		case *ValList:
			if idx < 0 {
				idx += len(v.Values) + 1 // so -1 inserts just before the end
			}
			if idx < 0 || idx > len(v.Values) {
				return nil, mserror.IndexError(IntValueOf(index), -len(v.Values)-1, len(v.Values), "list index")
			}
			v.Values = append(v.Values, nil)
			copy(v.Values[idx+1:], v.Values[idx:])
			v.Values[idx] = value
			return NewResult(v), nil
		case *ValString:
			runes := []rune(v.Value)
			if idx < 0 {
				idx += len(runes) + 1
			}
			if idx < 0 || idx > len(runes) {
				return nil, mserror.IndexError(IntValueOf(index), -len(runes)-1, len(runes), "string index")
			}
			s := string(runes[:idx]) + ToStringOf(ctx.VM(), value) + string(runes[idx:])
			return StringResult(s), nil
		default:
			return nil, mserror.TypeError("insert called on invalid type")
		}
	}

	// join(self, delim=" ")
	f = CreateIntrinsic("join")
	f.AddParam("self", nil)
	f.AddStringParam("delim", " ")
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		self, ok := ctx.SelfValue().(*ValList)
		if !ok {
			return NewResult(ctx.SelfValue()), nil
		}
		delim := ctx.GetLocalString("delim")
		parts := make([]string, len(self.Values))
		for i, v := range self.Values {
			parts[i] = ToStringOf(ctx.VM(), v)
		}
		return StringResult(strings.Join(parts, delim)), nil
	}

	// pop(self): remove and return the last list element, or the most
	// recently added map key.
	f = CreateIntrinsic("pop")
	f.AddParam("self", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		switch v := ctx.SelfValue().(type) {
		case *ValList:
			if len(v.Values) == 0 {
				return ResultNull, nil
			}
			last := v.Values[len(v.Values)-1]
			v.Values = v.Values[:len(v.Values)-1]
			return NewResult(last), nil
		case *ValMap:
			if v.Count() == 0 {
				return ResultNull, nil
			}
			key, _, _ := v.GetKeyValuePair(v.Count() - 1)
			v.Remove(key)
			return NewResult(key), nil
		default:
			return ResultNull, nil
		}
	}

	// pull(self): remove and return the first list element, or the
	// oldest map key.
	f = CreateIntrinsic("pull")
	f.AddParam("self", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		switch v := ctx.SelfValue().(type) {
		case *ValList:
			if len(v.Values) == 0 {
				return ResultNull, nil
			}
			first := v.Values[0]
			v.Values = v.Values[1:]
			return NewResult(first), nil
		case *ValMap:
			if v.Count() == 0 {
				return ResultNull, nil
			}
			key, _, _ := v.GetKeyValuePair(0)
			v.Remove(key)
			return NewResult(key), nil
		default:
			return ResultNull, nil
		}
	}

	// push(self, value): append to a list, or set value as a key (with
	// value 1) in a map; returns self.
	f = CreateIntrinsic("push")
	f.AddParam("self", nil)
	f.AddParam("value", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		value := ctx.GetLocal("value")
		switch v := ctx.SelfValue().(type) {
		case *ValList:
			if len(v.Values)+1 > MaxListSize {
				return nil, mserror.LimitExceeded("list too large")
			}
			v.Values = append(v.Values, value)
			return NewResult(v), nil
		case *ValMap:
			v.Set(value, NumberOne)
			return NewResult(v), nil
		default:
			return ResultNull, nil
		}
	}

	// range(from=0, to=0, step): list of numbers from from to to.
	f = CreateIntrinsic("range")
	f.AddNumberParam("from", 0)
	f.AddNumberParam("to", 0)
	f.AddParam("step", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		from := ctx.GetLocalDouble("from")
		to := ctx.GetLocalDouble("to")
		step := 1.0
		if to < from {
			step = -1
		}
		if sv := ctx.GetLocal("step"); sv != nil {
			step = DoubleValueOf(sv)
		}
		if step == 0 {
			return nil, mserror.NewRuntimeError("range() error (step==0)")
		}
		count := (to-from)/step + 1
		if count <= 0 {
			return NewResult(NewValList()), nil
		}
		if count > MaxListSize {
			return nil, mserror.LimitExceeded("list too large")
		}
		result := &ValList{Values: make([]Value, 0, int(count))}
		if step > 0 {
			for v := from; v <= to; v += step {
				result.Values = append(result.Values, NewValNumber(v))
			}
		} else {
			for v := from; v >= to; v += step {
				result.Values = append(result.Values, NewValNumber(v))
			}
		}
		return NewResult(result), nil
	}

	// remove(self, k): remove key k from a map (returns 1/0), the k'th
	// element from a list (returns null), or the first occurrence of
	// substring k from a string (returns the new string).
	f = CreateIntrinsic("remove")
	f.AddParam("self", nil)
	f.AddParam("k", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		k := ctx.GetLocal("k")
		switch v := ctx.SelfValue().(type) {
		case *ValMap:
			return NewResult(Truth(v.Remove(k))), nil
		case *ValList:
			if k == nil {
				return nil, mserror.NewRuntimeError("argument to 'remove' must not be null")
			}
			idx := IntValueOf(k)
			if idx < 0 {
				idx += len(v.Values)
			}
			if idx < 0 || idx >= len(v.Values) {
				return nil, mserror.IndexError(IntValueOf(k), -len(v.Values), len(v.Values)-1, "list index")
			}
			v.Values = append(v.Values[:idx], v.Values[idx+1:]...)
			return ResultNull, nil
		case *ValString:
			if k == nil {
				return nil, mserror.NewRuntimeError("argument to 'remove' must not be null")
			}
			sub := ToStringOf(ctx.VM(), k)
			idx := strings.Index(v.Value, sub)
			if idx < 0 {
				return NewResult(v), nil
			}
			return StringResult(v.Value[:idx] + v.Value[idx+len(sub):]), nil
		default:
			return nil, mserror.TypeError("'remove' requires map, list, or string")
		}
	}

	// replace(self, oldval, newval, maxCount): substring replacement for
	// strings (returns a new string), element replacement for lists and
	// maps (in place; returns self).
	f = CreateIntrinsic("replace")
	f.AddParam("self", nil)
	f.AddParam("oldval", nil)
	f.AddParam("newval", nil)
	f.AddParam("maxCount", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		oldval := ctx.GetLocal("oldval")
		newval := ctx.GetLocal("newval")
		maxCount := -1
		if mc := ctx.GetLocal("maxCount"); mc != nil {
			maxCount = IntValueOf(mc)
			if maxCount == 0 {
				return NewResult(ctx.SelfValue()), nil
			}
		}
		switch v := ctx.SelfValue().(type) {
		case *ValString:
			oldStr := ToStringOf(ctx.VM(), oldval)
			if oldStr == "" {
				return nil, mserror.NewRuntimeError("replace: oldval argument is empty")
			}
			newStr := ToStringOf(ctx.VM(), newval)
			return StringResult(strings.Replace(v.Value, oldStr, newStr, maxCount)), nil
		case *ValList:
			count := 0
			for i, elem := range v.Values {
				if EqualityOf(elem, oldval, DefaultEqualityDepth) == 1 {
					v.Values[i] = newval
					count++
					if maxCount > 0 && count == maxCount {
						break
					}
				}
			}
			return NewResult(v), nil
		case *ValMap:
			count := 0
			for i := range v.entries {
				if EqualityOf(v.entries[i].value, oldval, DefaultEqualityDepth) == 1 {
					v.entries[i].value = newval
					count++
					if maxCount > 0 && count == maxCount {
						break
					}
				}
			}
			return NewResult(v), nil
		case nil:
			return nil, mserror.NewRuntimeError("argument to 'replace' must not be null")
		default:
			return nil, mserror.TypeError("'replace' requires map, list, or string")
		}
	}

	// shuffle(self): randomize list element order, or map values among
	// keys, in place.
	f = CreateIntrinsic("shuffle")
	f.AddParam("self", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		rng := getRand()
		switch v := ctx.SelfValue().(type) {
		case *ValList:
			for i := len(v.Values) - 1; i >= 1; i-- {
				j := rng.Intn(i + 1)
				v.Values[i], v.Values[j] = v.Values[j], v.Values[i]
			}
		case *ValMap:
			for i := len(v.entries) - 1; i >= 1; i-- {
				j := rng.Intn(i + 1)
				v.entries[i].value, v.entries[j].value = v.entries[j].value, v.entries[i].value
			}
		}
		return ResultNull, nil
	}

	// slice(seq, from=0, to): sub-list or substring from from (inclusive)
	// to to (exclusive), with negative indices from the end.
	f = CreateIntrinsic("slice")
	f.AddParam("seq", nil)
	f.AddNumberParam("from", 0)
	f.AddParam("to", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		seq := ctx.GetLocal("seq")
		fromIdx := ctx.GetLocalInt("from")
		toVal := ctx.GetLocal("to")
		switch v := seq.(type) {
		case *ValList:
			from, to := normalizeSliceRange(fromIdx, toVal, len(v.Values))
			result := &ValList{Values: make([]Value, to-from)}
			copy(result.Values, v.Values[from:to])
			return NewResult(result), nil
		case *ValString:
			runes := []rune(v.Value)
			from, to := normalizeSliceRange(fromIdx, toVal, len(runes))
			return StringResult(string(runes[from:to])), nil
		case nil:
			return ResultNull, nil
		default:
			return nil, mserror.TypeError("list or string required for slice")
		}
	}

	// sort(self, byKey=null, ascending=1): in-place list sort. With
	// byKey, elements are decorated with the value found under that key
	// (a map key or sub-list index), sorted on those keys, and written
	// back in order.
	f = CreateIntrinsic("sort")
	f.AddParam("self", nil)
	f.AddParam("byKey", nil)
	f.AddNumberParam("ascending", 1)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		self, ok := ctx.SelfValue().(*ValList)
		if !ok || len(self.Values) < 2 {
			return NewResult(ctx.SelfValue()), nil
		}
		ascending := BoolValueOf(ctx.GetLocal("ascending"))
		byKey := ctx.GetLocal("byKey")

		cmp := func(a, b Value) int {
			c := CompareValues(a, b)
			if !ascending {
				return -c
			}
			return c
		}

		if byKey == nil {
			sort.SliceStable(self.Values, func(i, j int) bool {
				return cmp(self.Values[i], self.Values[j]) < 0
			})
			return NewResult(self), nil
		}

		// Keyed sort: gather {value, sortKey} pairs, sort on the keys,
		// then write the values back in place.
		type keyedValue struct {
			value   Value
			sortKey Value
		}
		pairs := make([]keyedValue, len(self.Values))
		byKeyInt := IntValueOf(byKey)
		for i, elem := range self.Values {
			pairs[i].value = elem
			switch e := elem.(type) {
			case *ValMap:
				pairs[i].sortKey, _ = e.Get(byKey)
			case *ValList:
				if byKeyInt >= -len(e.Values) && byKeyInt < len(e.Values) {
					idx := byKeyInt
					if idx < 0 {
						idx += len(e.Values)
					}
					pairs[i].sortKey = e.Values[idx]
				}
			}
		}
		sort.SliceStable(pairs, func(i, j int) bool {
			return cmp(pairs[i].sortKey, pairs[j].sortKey) < 0
		})
		for i := range pairs {
			self.Values[i] = pairs[i].value
		}
		return NewResult(self), nil
	}

	// sum(self): sum of the numeric values of a list or map.
	f = CreateIntrinsic("sum")
	f.AddParam("self", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		sum := 0.0
		switch v := ctx.SelfValue().(type) {
		case *ValList:
			for _, elem := range v.Values {
				sum += DoubleValueOf(elem)
			}
		case *ValMap:
			for _, e := range v.entries {
				sum += DoubleValueOf(e.value)
			}
		}
		return NumberResult(sum), nil
	}

	// values(self): a map's values (insertion order), a string's
	// characters, or the list itself.
	f = CreateIntrinsic("values")
	f.AddParam("self", nil)
	f.Code = func(ctx *Context, partial *Result) (*Result, error) {
		switch v := ctx.SelfValue().(type) {
		case *ValMap:
			result := make([]Value, 0, v.Count())
			for _, e := range v.entries {
				result = append(result, e.value)
			}
			return NewResult(NewValListFrom(result)), nil
		case *ValString:
			runes := []rune(v.Value)
			result := make([]Value, len(runes))
			for i, r := range runes {
				result[i] = NewValString(string(r))
			}
			return NewResult(NewValListFrom(result)), nil
		default:
			return NewResult(ctx.SelfValue()), nil
		}
	}
}

// normalizeSliceRange clamps a from/to pair into [0,length], applying
// negative-from-end indexing; to == nil means the full tail.
func normalizeSliceRange(from int, to Value, length int) (int, int) {
	if from < 0 {
		from += length
	}
	if from < 0 {
		from = 0
	}
	if from > length {
		from = length
	}
	toIdx := length
	if to != nil {
		toIdx = IntValueOf(to)
		if toIdx < 0 {
			toIdx += length
		}
	}
	if toIdx > length {
		toIdx = length
	}
	if toIdx < from {
		toIdx = from
	}
	return from, toIdx
}

// runeIndex finds needle in haystack at or after start, by rune position;
// -1 when absent.
func runeIndex(haystack, needle []rune, start int) int {
	if start < 0 {
		start = 0
	}
	if len(needle) == 0 {
		return -1
	}
	for i := start; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// CompareValues orders two values for sorting: numbers first (numeric
// order), then strings (lexicographic), then everything else (stable,
// unordered), with null sorting last.
func CompareValues(a, b Value) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}
	rank := func(v Value) int {
		switch v.(type) {
		case *ValNumber:
			return 0
		case *ValString:
			return 1
		default:
			return 2
		}
	}
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 0:
		fa, fb := a.DoubleValue(), b.DoubleValue()
		if fa < fb {
			return -1
		}
		if fa > fb {
			return 1
		}
		return 0
	case 1:
		sa, sb := a.(*ValString).Value, b.(*ValString).Value
		if sa < sb {
			return -1
		}
		if sa > sb {
			return 1
		}
		return 0
	default:
		return 0
	}
}
