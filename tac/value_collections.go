/*
File    : miniscript-go/tac/value_collections.go
*/
package tac

import (
	"strings"

	"github.com/miniscript-lang/miniscript-go/mserror"
)

// ValList represents a mutable, ordered list of values. Lists are shared
// by reference: assigning a list to another variable aliases the same
// storage, and mutations are visible through every alias.
type ValList struct {
	Values []Value
}

// NewValList creates an empty list.
func NewValList() *ValList {
	return &ValList{}
}

// NewValListFrom creates a list taking ownership of the given slice.
func NewValListFrom(values []Value) *ValList {
	return &ValList{Values: values}
}

func (l *ValList) Val(ctx *Context) (Value, error) { return l, nil }

// FullEval resolves any Var/Temp/SeqElem operands held in the list.
// Copy-on-write: the original list may be a literal template needed in
// unresolved form on a future iteration, so resolution never mutates it.
func (l *ValList) FullEval(ctx *Context) (Value, error) {
	var result *ValList
	for i, v := range l.Values {
		switch v.(type) {
		case *ValTemp, *ValVar, *ValSeqElem:
			ev, err := v.Val(ctx)
			if err != nil {
				return nil, err
			}
			if result == nil {
				result = &ValList{Values: make([]Value, i, len(l.Values))}
				copy(result.Values, l.Values[:i])
			}
			result.Values = append(result.Values, ev)
		default:
			if result != nil {
				result.Values = append(result.Values, v)
			}
		}
	}
	if result != nil {
		return result, nil
	}
	return l, nil
}

// EvalCopy returns a new list whose elements are the evaluated elements
// of this one. Used by CopyA so each execution of a list literal yields a
// fresh, independently mutable list.
func (l *ValList) EvalCopy(ctx *Context) (*ValList, error) {
	result := &ValList{Values: make([]Value, len(l.Values))}
	for i, v := range l.Values {
		ev, err := ValOf(ctx, v)
		if err != nil {
			return nil, err
		}
		result.Values[i] = ev
	}
	return result, nil
}

func (l *ValList) BoolValue() bool      { return len(l.Values) > 0 }
func (l *ValList) IntValue() int        { return 0 }
func (l *ValList) DoubleValue() float64 { return 0 }
func (l *ValList) CanSetElem() bool     { return true }

// SetElem assigns an element by integer index, supporting negative
// indices from the end.
func (l *ValList) SetElem(index, value Value) error {
	i := IntValueOf(index)
	if i < 0 {
		i += len(l.Values)
	}
	if i < 0 || i >= len(l.Values) {
		return mserror.IndexError(IntValueOf(index), -len(l.Values), len(l.Values)-1, "list index")
	}
	l.Values[i] = value
	return nil
}

// GetElem returns the element at the given index, supporting negative
// indices from the end.
func (l *ValList) GetElem(index Value) (Value, error) {
	i := IntValueOf(index)
	if i < -len(l.Values) || i >= len(l.Values) {
		return nil, mserror.IndexError(i, -len(l.Values), len(l.Values)-1, "list index")
	}
	if i < 0 {
		i += len(l.Values)
	}
	return l.Values[i], nil
}

// Equality compares element-wise with fuzzy semantics: the result is the
// product of the element equalities, 0 on any length or type mismatch,
// and 0.5 when the recursion depth is exhausted before a verdict.
func (l *ValList) Equality(rhs Value, depth int) float64 {
	rl, ok := rhs.(*ValList)
	if !ok {
		return 0
	}
	if rl == l {
		return 1
	}
	if len(l.Values) != len(rl.Values) {
		return 0
	}
	if depth < 1 {
		return 0.5 // in too deep
	}
	result := 1.0
	for i := range l.Values {
		result *= EqualityOf(l.Values[i], rl.Values[i], depth-1)
		if result <= 0 {
			break
		}
	}
	return result
}

func (l *ValList) Hash(depth int) int {
	h := len(l.Values)
	if depth < 1 {
		return h
	}
	for _, v := range l.Values {
		h = h*31 + HashOf(v, depth-1)
	}
	return h
}

func (l *ValList) IsA(typ Value, vm *Machine) bool {
	return typ == Value(ListType())
}

func (l *ValList) ToString(vm *Machine) string {
	return l.CodeForm(vm, 3)
}

func (l *ValList) CodeForm(vm *Machine, recursionLimit int) string {
	if recursionLimit == 0 {
		return "[...]"
	}
	parts := make([]string, len(l.Values))
	for i, v := range l.Values {
		parts[i] = CodeFormOf(vm, v, recursionLimit-1)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// AssignOverrideFunc is the element-assignment hook a map may carry. It
// is invoked on every element-set; returning true means the assignment
// was handled and the underlying store must not be mutated.
type AssignOverrideFunc func(key, value Value) bool

type mapEntry struct {
	key   Value
	value Value
}

// ValMap represents a mutable mapping from values to values. Insertion
// order is preserved (iteration, indexes, pop and pull all rely on it),
// and key equivalence uses the language's fuzzy equality at the default
// recursion depth, so a key of 1.0 finds an entry stored under 1.
//
// The magic key __isa points at a parent map, forming the prototype
// chain used for method and field lookup.
type ValMap struct {
	entries []mapEntry
	index   map[int][]int // key hash -> entry indices

	// AssignOverride, when set, is consulted on every SetElem.
	AssignOverride AssignOverrideFunc
}

// NewValMap creates an empty map.
func NewValMap() *ValMap {
	return &ValMap{index: map[int][]int{}}
}

// Count returns the number of key/value pairs.
func (m *ValMap) Count() int { return len(m.entries) }

// findEntry locates the entry for key, or -1.
func (m *ValMap) findEntry(key Value) int {
	h := HashOf(key, DefaultEqualityDepth)
	for _, idx := range m.index[h] {
		if EqualityOf(m.entries[idx].key, key, DefaultEqualityDepth) == 1 {
			return idx
		}
	}
	return -1
}

// Get returns the value stored directly under key (no prototype walk).
func (m *ValMap) Get(key Value) (Value, bool) {
	idx := m.findEntry(key)
	if idx < 0 {
		return nil, false
	}
	return m.entries[idx].value, true
}

// GetString is a convenience form of Get for string keys.
func (m *ValMap) GetString(key string) (Value, bool) {
	return m.Get(NewValString(key))
}

// ContainsKey reports whether key is present directly in this map.
func (m *ValMap) ContainsKey(key Value) bool {
	return m.findEntry(key) >= 0
}

// Set stores value under key, bypassing any assignment override.
// Existing entries keep their position; new keys append.
func (m *ValMap) Set(key, value Value) {
	if idx := m.findEntry(key); idx >= 0 {
		m.entries[idx].value = value
		return
	}
	if m.index == nil {
		m.index = map[int][]int{}
	}
	h := HashOf(key, DefaultEqualityDepth)
	m.index[h] = append(m.index[h], len(m.entries))
	m.entries = append(m.entries, mapEntry{key: key, value: value})
}

// SetString is a convenience form of Set for string keys.
func (m *ValMap) SetString(key string, value Value) {
	m.Set(NewValString(key), value)
}

// Remove deletes the entry for key, reporting whether it was present.
func (m *ValMap) Remove(key Value) bool {
	idx := m.findEntry(key)
	if idx < 0 {
		return false
	}
	m.entries = append(m.entries[:idx], m.entries[idx+1:]...)
	m.rebuildIndex()
	return true
}

// rebuildIndex recomputes the hash index after an entry shift.
func (m *ValMap) rebuildIndex() {
	m.index = make(map[int][]int, len(m.entries))
	for i, e := range m.entries {
		h := HashOf(e.key, DefaultEqualityDepth)
		m.index[h] = append(m.index[h], i)
	}
}

// Keys returns the keys in insertion order.
func (m *ValMap) Keys() []Value {
	keys := make([]Value, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.key
	}
	return keys
}

// GetKeyValuePair returns the index'th key/value pair in insertion order.
func (m *ValMap) GetKeyValuePair(index int) (key, value Value, ok bool) {
	if index < 0 || index >= len(m.entries) {
		return nil, nil, false
	}
	e := m.entries[index]
	return e.key, e.value, true
}

// Lookup finds key in this map or, failing that, anywhere up the __isa
// prototype chain. It returns the value and the map it was found in.
// Walks at most MaxIsaDepth links.
func (m *ValMap) Lookup(key Value) (result Value, foundIn *ValMap, err error) {
	current := m
	for loopsLeft := MaxIsaDepth; loopsLeft >= 0; loopsLeft-- {
		if idx := current.findEntry(key); idx >= 0 {
			return current.entries[idx].value, current, nil
		}
		parent, ok := current.Get(MagicIsA)
		if !ok {
			return nil, nil, nil
		}
		current, ok = parent.(*ValMap)
		if !ok {
			return nil, nil, nil
		}
	}
	return nil, nil, mserror.LimitExceeded("__isa depth exceeded (perhaps a reference loop?)")
}

func (m *ValMap) Val(ctx *Context) (Value, error) { return m, nil }

// FullEval resolves any Var/Temp/SeqElem keys and values in place.
func (m *ValMap) FullEval(ctx *Context) (Value, error) {
	for i := range m.entries {
		e := &m.entries[i]
		switch e.key.(type) {
		case *ValTemp, *ValVar, *ValSeqElem:
			k, err := e.key.Val(ctx)
			if err != nil {
				return nil, err
			}
			e.key = k
		}
		if e.value != nil {
			switch e.value.(type) {
			case *ValTemp, *ValVar, *ValSeqElem:
				v, err := e.value.Val(ctx)
				if err != nil {
					return nil, err
				}
				e.value = v
			}
		}
	}
	m.rebuildIndex()
	return m, nil
}

// EvalCopy returns a new map with evaluated keys and values. Used by
// CopyA so each execution of a map literal (or `new` expression) yields
// a fresh instance.
func (m *ValMap) EvalCopy(ctx *Context) (*ValMap, error) {
	result := NewValMap()
	for _, e := range m.entries {
		k, err := ValOf(ctx, e.key)
		if err != nil {
			return nil, err
		}
		v, err := ValOf(ctx, e.value)
		if err != nil {
			return nil, err
		}
		result.Set(k, v)
	}
	return result, nil
}

func (m *ValMap) BoolValue() bool      { return len(m.entries) > 0 }
func (m *ValMap) IntValue() int        { return 0 }
func (m *ValMap) DoubleValue() float64 { return 0 }
func (m *ValMap) CanSetElem() bool     { return true }

// SetElem assigns value under index, consulting the assignment override
// first: a handled assignment leaves the underlying store untouched.
func (m *ValMap) SetElem(index, value Value) error {
	if m.AssignOverride != nil && m.AssignOverride(index, value) {
		return nil
	}
	m.Set(index, value)
	return nil
}

// Equality compares key sets and values with fuzzy semantics, like
// ValList.Equality.
func (m *ValMap) Equality(rhs Value, depth int) float64 {
	rm, ok := rhs.(*ValMap)
	if !ok {
		return 0
	}
	if rm == m {
		return 1
	}
	if len(m.entries) != len(rm.entries) {
		return 0
	}
	if depth < 1 {
		return 0.5 // in too deep
	}
	result := 1.0
	for _, e := range m.entries {
		rv, found := rm.Get(e.key)
		if !found {
			return 0
		}
		result *= EqualityOf(e.value, rv, depth-1)
		if result <= 0 {
			break
		}
	}
	return result
}

func (m *ValMap) Hash(depth int) int {
	h := len(m.entries)
	if depth < 1 {
		return h
	}
	for _, e := range m.entries {
		// Sum so the hash is independent of insertion order, matching
		// equality (which ignores order too).
		h += HashOf(e.key, depth-1) ^ HashOf(e.value, depth-1)
	}
	return h
}

// IsA walks this map's __isa chain looking for typ; the generic map type
// matches any map.
func (m *ValMap) IsA(typ Value, vm *Machine) bool {
	if typ == Value(MapType()) {
		return true
	}
	current := Value(m)
	for loopsLeft := MaxIsaDepth; loopsLeft >= 0; loopsLeft-- {
		if current == typ {
			return true
		}
		cm, ok := current.(*ValMap)
		if !ok {
			return false
		}
		parent, ok := cm.Get(MagicIsA)
		if !ok {
			return false
		}
		current = parent
	}
	return false
}

func (m *ValMap) ToString(vm *Machine) string {
	return m.CodeForm(vm, 3)
}

func (m *ValMap) CodeForm(vm *Machine, recursionLimit int) string {
	if recursionLimit == 0 {
		return "{...}"
	}
	if recursionLimit > 0 && recursionLimit < 3 && vm != nil {
		if shortName := vm.FindShortName(m); shortName != "" {
			return shortName
		}
	}
	parts := make([]string, len(m.entries))
	for i, e := range m.entries {
		nextLimit := recursionLimit - 1
		if ks, ok := e.key.(*ValString); ok && ks.Value == MagicIsA.Value {
			// Don't dump the whole ancestry; a name or {...} will do.
			nextLimit = 1
		}
		parts[i] = CodeFormOf(vm, e.key, nextLimit) + ": " + CodeFormOf(vm, e.value, nextLimit)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
