// Package settings holds the structured value model of adapter settings documents.
//
// A document is a tree of Values: null, bool, number, string, ordered map, list
// or an opaque callback handle produced by the script engine.
package settings

import (
	"strconv"
	"strings"
)

// Kind is the variant tag of a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Map
	List
	Callback
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Map:
		return "map"
	case List:
		return "list"
	case Callback:
		return "callback"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Func is a callable handle owned by an external interpreter.
type Func interface {
	Call(args ...interface{}) (Value, error)
}

// Value is a tagged union. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	m    *OrderedMap
	l    []Value
	fn   Func
}

func NullValue() Value { return Value{} }

func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

func NumberValue(n float64) Value { return Value{kind: Number, n: n} }

func IntValue(n int) Value { return Value{kind: Number, n: float64(n)} }

func StringValue(s string) Value { return Value{kind: String, s: s} }

// CallbackValue wraps an interpreter function handle.
func CallbackValue(fn Func) Value { return Value{kind: Callback, fn: fn} }

func ListValue(items ...Value) Value { return Value{kind: List, l: items} }

// MapValue wraps m. A nil map becomes an empty one.
func MapValue(m *OrderedMap) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: Map, m: m}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == Null }

func (v Value) Bool() (bool, bool) { return v.b, v.kind == Bool }

func (v Value) Number() (float64, bool) { return v.n, v.kind == Number }

func (v Value) Str() (string, bool) { return v.s, v.kind == String }

func (v Value) Map() (*OrderedMap, bool) { return v.m, v.kind == Map }

func (v Value) List() ([]Value, bool) { return v.l, v.kind == List }

func (v Value) Callback() (Func, bool) { return v.fn, v.kind == Callback }

// Int returns the value as an integer. Numbers must be integral, strings must
// parse as base-10 integers.
func (v Value) Int() (int, bool) {
	switch v.kind {
	case Number:
		if v.n != float64(int(v.n)) {
			return 0, false
		}
		return int(v.n), true
	case String:
		n, err := strconv.Atoi(strings.TrimSpace(v.s))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Get returns the member key of a map value, or null.
func (v Value) Get(key string) Value {
	if v.kind != Map {
		return Value{}
	}
	item, _ := v.m.Get(key)
	return item
}

// Has reports whether v is a map containing key.
func (v Value) Has(key string) bool {
	if v.kind != Map {
		return false
	}
	_, ok := v.m.Get(key)
	return ok
}

// String renders the textual form used on the wire: lists join their
// elements with commas and integral numbers drop the fraction.
func (v Value) String() string {
	switch v.kind {
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(v.b)
	case Number:
		return FormatNumber(v.n)
	case String:
		return v.s
	case List:
		parts := make([]string, len(v.l))
		for i, item := range v.l {
			parts[i] = item.String()
		}
		return strings.Join(parts, ",")
	case Map:
		return "[object Object]"
	case Callback:
		return "[function]"
	}
	return ""
}

// FormatNumber formats n the way the script engine prints numbers.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// OrderedMap is a string-keyed map that remembers insertion order.
type OrderedMap struct {
	keys []string
	vals map[string]Value
}

func NewMap() *OrderedMap {
	return &OrderedMap{vals: map[string]Value{}}
}

// Set stores val under key. Re-setting a key keeps its original position.
func (m *OrderedMap) Set(key string, val Value) *OrderedMap {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = val
	return m
}

func (m *OrderedMap) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *OrderedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}
