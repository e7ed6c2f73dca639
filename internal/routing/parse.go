package routing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"midi2dmx/internal/midi"
	"midi2dmx/internal/settings"
)

var errListKey = errors.New("expected whitelist or blacklist")

// ParseRules builds the rule set from a routing section: either a map of
// rule bodies keyed by name or a list of rule bodies. Entries that are not
// maps are skipped. The first malformed rule aborts parsing.
func ParseRules(node settings.Value) (Rules, error) {
	var rules Rules

	if m, ok := node.Map(); ok {
		for _, key := range m.Keys() {
			body, _ := m.Get(key)
			if body.Kind() != settings.Map {
				continue
			}
			r, err := ParseRule(key, body)
			if err != nil {
				return nil, err
			}
			rules = append(rules, r)
		}
		return rules, nil
	}

	if items, ok := node.List(); ok {
		for i, body := range items {
			if body.Kind() != settings.Map {
				continue
			}
			r, err := ParseRule(fmt.Sprintf("rule %d", i+1), body)
			if err != nil {
				return nil, err
			}
			rules = append(rules, r)
		}
		return rules, nil
	}

	if node.IsNull() {
		return rules, nil
	}
	return nil, &ConfigurationError{Field: "routing", Token: node.Kind().String()}
}

// ParseRule builds one rule. A string name member overrides name.
func ParseRule(name string, node settings.Value) (*Rule, error) {
	if s, ok := node.Get("name").Str(); ok && s != "" {
		name = s
	}
	r := &Rule{Name: name}
	r.Address, _ = node.Get("address").Str()
	r.Template, _ = node.Get("args").Str()
	r.Callback, _ = node.Get("data").Callback()

	var err error
	if r.types, err = parseFilter(name, "message", node.Get("message"), parseType); err != nil {
		return nil, err
	}
	if r.channel, err = parseFilter(name, "channel", node.Get("channel"), parseChannel); err != nil {
		return nil, err
	}
	if r.value1, err = parseFilter(name, "value1", node.Get("value1"), parseValue); err != nil {
		return nil, err
	}
	if r.value2, err = parseFilter(name, "value2", node.Get("value2"), parseValue); err != nil {
		return nil, err
	}
	return r, nil
}

// parseFilter accepts a single value, a list of values, or a map with
// whitelist and/or blacklist members each holding a value or a list.
// A null node means no filter.
func parseFilter[T comparable](rule, field string, node settings.Value, parse func(settings.Value) (T, bool)) (*Matcher[T], error) {
	if node.IsNull() {
		return nil, nil
	}
	fail := func(token string, err error) error {
		return &ConfigurationError{Rule: rule, Field: field, Token: token, Err: err}
	}
	collect := func(v settings.Value) ([]T, error) {
		items, ok := v.List()
		if !ok {
			items = []settings.Value{v}
		}
		out := make([]T, 0, len(items))
		for _, it := range items {
			x, ok := parse(it)
			if !ok {
				return nil, fail(it.String(), nil)
			}
			out = append(out, x)
		}
		return out, nil
	}

	var whitelist, blacklist []T
	if m, ok := node.Map(); ok {
		for _, key := range m.Keys() {
			val, _ := m.Get(key)
			items, err := collect(val)
			if err != nil {
				return nil, err
			}
			switch strings.ToLower(key) {
			case "whitelist":
				whitelist = append(whitelist, items...)
			case "blacklist":
				blacklist = append(blacklist, items...)
			default:
				return nil, fail(key, errListKey)
			}
		}
	} else {
		items, err := collect(node)
		if err != nil {
			return nil, err
		}
		whitelist = items
	}

	m, err := NewMatcher(whitelist, blacklist)
	if err != nil {
		return nil, fail(node.String(), err)
	}
	return m, nil
}

func parseType(v settings.Value) (midi.MessageType, bool) {
	s, ok := v.Str()
	if !ok {
		return 0, false
	}
	return midi.ParseMessageType(s)
}

func parseChannel(v settings.Value) (int, bool) {
	if s, ok := v.Str(); ok {
		n, err := strconv.Atoi(strings.ReplaceAll(s, " ", ""))
		return n, err == nil
	}
	return v.Int()
}

// parseValue accepts integers and symbolic note names such as C4 or F#2.
func parseValue(v settings.Value) (int, bool) {
	s, ok := v.Str()
	if !ok {
		return v.Int()
	}
	text := strings.ReplaceAll(s, " ", "")
	if n, err := strconv.Atoi(text); err == nil {
		return n, true
	}
	return ParsePitch(text)
}
