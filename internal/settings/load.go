package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotDocument is returned when a settings file does not evaluate to a map.
var ErrNotDocument = errors.New("settings document is not a map")

// ScriptFunc evaluates a settings script into a Value.
type ScriptFunc func(name, source string) (Value, error)

// LoadFile reads a settings document, choosing the decoder by extension.
// Files other than .toml, .yaml and .yml are handed to eval. The document
// must be a map.
func LoadFile(path string, eval ScriptFunc) (Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Value{}, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	var v Value
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		v, err = DecodeTOML(string(data))
	case ".yaml", ".yml":
		v, err = DecodeYAML(data)
	default:
		if eval == nil {
			return Value{}, fmt.Errorf("settings %s: no script engine configured", path)
		}
		v, err = eval(filepath.Base(path), string(data))
	}
	if err != nil {
		return Value{}, err
	}
	if v.Kind() != Map {
		return Value{}, fmt.Errorf("settings %s: %w, got %s", path, ErrNotDocument, v.Kind())
	}
	return v, nil
}
