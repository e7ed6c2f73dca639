// Package routing decides which controller events become bus messages.
//
// A Rule filters events on message type, channel and both data bytes, each
// through an optional whitelist/blacklist Matcher, and carries the output
// address plus either an argument template or a data callback.
package routing

import (
	"midi2dmx/internal/midi"
	"midi2dmx/internal/settings"
)

type Rule struct {
	Name     string
	Address  string
	Template string
	Callback settings.Func

	types   *Matcher[midi.MessageType]
	channel *Matcher[int]
	value1  *Matcher[int]
	value2  *Matcher[int]
}

// Match reports whether ev passes every declared filter. A dimension with no
// filter, or whose event value is not applicable, is skipped.
func (r *Rule) Match(ev midi.Event) bool {
	if r.types != nil && !r.types.Match(ev.Type) {
		return false
	}
	return matchValue(r.channel, ev.Channel) &&
		matchValue(r.value1, ev.Value1) &&
		matchValue(r.value2, ev.Value2)
}

func matchValue(m *Matcher[int], v int) bool {
	return m == nil || v == midi.NA || m.Match(v)
}

// Rules is an ordered rule set. It is never modified after parsing.
type Rules []*Rule

// Matching returns every rule that matches ev, in declaration order.
func (rs Rules) Matching(ev midi.Event) []*Rule {
	var out []*Rule
	for _, r := range rs {
		if r.Match(ev) {
			out = append(out, r)
		}
	}
	return out
}
