package routing

import "fmt"

// ConfigurationError reports a routing rule field that could not be parsed.
type ConfigurationError struct {
	Rule  string
	Field string
	Token string
	Err   error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("routing rule %q: '%s' value is not formatted correctly: %s", e.Rule, e.Field, e.Token)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
