package routing

import "errors"

var ErrEmptyMatcher = errors.New("matcher needs a whitelist or a blacklist")

// Matcher is a whitelist/blacklist inclusion test. The blacklist is checked
// first and always wins; a blacklist without a whitelist admits everything
// it does not name.
type Matcher[T comparable] struct {
	whitelist map[T]struct{}
	blacklist map[T]struct{}
}

// NewMatcher builds a matcher. Empty lists count as absent, and at least one
// list must be present.
func NewMatcher[T comparable](whitelist, blacklist []T) (*Matcher[T], error) {
	if len(whitelist) == 0 && len(blacklist) == 0 {
		return nil, ErrEmptyMatcher
	}
	return &Matcher[T]{
		whitelist: toSet(whitelist),
		blacklist: toSet(blacklist),
	}, nil
}

func toSet[T comparable](items []T) map[T]struct{} {
	if len(items) == 0 {
		return nil
	}
	set := make(map[T]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

func (m *Matcher[T]) Match(v T) bool {
	if m.blacklist != nil {
		if _, ok := m.blacklist[v]; ok {
			return false
		}
		if m.whitelist == nil {
			return true
		}
	}
	_, ok := m.whitelist[v]
	return ok
}
