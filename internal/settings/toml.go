package settings

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// keyOrder maps a joined key path to the position it was first defined at.
type keyOrder map[string]int

func newKeyOrder(md toml.MetaData) keyOrder {
	order := keyOrder{}
	for i, k := range md.Keys() {
		path := joinPath(k)
		if _, ok := order[path]; !ok {
			order[path] = i
		}
	}
	return order
}

func joinPath(parts []string) string {
	return strings.Join(parts, "\x00")
}

// DecodeTOML parses a standalone TOML settings document.
func DecodeTOML(doc string) (Value, error) {
	var raw map[string]interface{}
	md, err := toml.Decode(doc, &raw)
	if err != nil {
		return Value{}, fmt.Errorf("toml settings: %w", err)
	}
	return FromTOML(md, nil, raw), nil
}

// FromTOML converts a value decoded by BurntSushi/toml. Map keys are ordered
// by their position in the source document; prefix is the key path of raw.
func FromTOML(md toml.MetaData, prefix []string, raw interface{}) Value {
	return newKeyOrder(md).convert(prefix, raw)
}

func (o keyOrder) convert(path []string, raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Value{}
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.SliceStable(keys, func(i, j int) bool {
			pi, iok := o[joinPath(append(path[:len(path):len(path)], keys[i]))]
			pj, jok := o[joinPath(append(path[:len(path):len(path)], keys[j]))]
			switch {
			case iok && jok:
				return pi < pj
			case iok != jok:
				return iok
			}
			return keys[i] < keys[j]
		})
		m := NewMap()
		for _, k := range keys {
			m.Set(k, o.convert(append(path[:len(path):len(path)], k), t[k]))
		}
		return MapValue(m)
	case []map[string]interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = o.convert(path, item)
		}
		return ListValue(items...)
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = o.convert(path, item)
		}
		return ListValue(items...)
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case int64:
		return NumberValue(float64(t))
	case float64:
		return NumberValue(t)
	case time.Time:
		return StringValue(t.Format(time.RFC3339))
	}
	return StringValue(fmt.Sprint(raw))
}
