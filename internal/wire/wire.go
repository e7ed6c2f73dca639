// Package wire implements the flat key=value payload carried as the single
// string argument of a bus message: name1=value1&name2=value2.
//
// Nothing is escaped. List values are joined with commas, HSV triples use
// semicolons, and receivers rely on that structure.
package wire

import (
	"strings"

	"midi2dmx/internal/settings"
)

// Pair is one decoded key/value segment.
type Pair struct {
	Key   string
	Value string
}

// Values is a decoded payload in wire order.
type Values []Pair

// Get returns the value of the first pair named key.
func (v Values) Get(key string) (string, bool) {
	for _, p := range v {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Encode joins the entries of m in insertion order. A list value is
// flattened by joining its elements with commas.
func Encode(m *settings.OrderedMap) string {
	var sb strings.Builder
	for i, key := range m.Keys() {
		if i > 0 {
			sb.WriteByte('&')
		}
		val, _ := m.Get(key)
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(val.String())
	}
	return sb.String()
}

// Decode splits payload on '&' and each segment on '='. Empty pieces are
// ignored and a segment is kept only when exactly one key and one value
// remain; anything else is dropped. Later duplicates of a key are dropped.
func Decode(payload string) Values {
	var out Values
	for _, segment := range strings.FieldsFunc(payload, isAmp) {
		parts := strings.FieldsFunc(segment, isEq)
		if len(parts) != 2 {
			continue
		}
		if _, dup := out.Get(parts[0]); dup {
			continue
		}
		out = append(out, Pair{Key: parts[0], Value: parts[1]})
	}
	return out
}

// DecodeArgs decodes the first bus argument when it is a string.
func DecodeArgs(args []interface{}) Values {
	if len(args) == 0 {
		return nil
	}
	s, ok := args[0].(string)
	if !ok {
		return nil
	}
	return Decode(s)
}

func isAmp(r rune) bool { return r == '&' }

func isEq(r rune) bool { return r == '=' }
