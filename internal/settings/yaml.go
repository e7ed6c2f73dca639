package settings

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeYAML parses a YAML settings document keeping mapping order.
func DecodeYAML(doc []byte) (Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(doc, &root); err != nil {
		return Value{}, fmt.Errorf("yaml settings: %w", err)
	}
	return fromYAML(&root)
}

func fromYAML(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case 0:
		return Value{}, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Value{}, nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := fromYAML(n.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			m.Set(n.Content[i].Value, v)
		}
		return MapValue(m), nil
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromYAML(c)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return ListValue(items...), nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return Value{}, nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return Value{}, fmt.Errorf("yaml settings line %d: %w", n.Line, err)
			}
			return BoolValue(b), nil
		case "!!int", "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return Value{}, fmt.Errorf("yaml settings line %d: %w", n.Line, err)
			}
			return NumberValue(f), nil
		}
		return StringValue(n.Value), nil
	}
	return Value{}, fmt.Errorf("yaml settings line %d: unsupported node kind %v", n.Line, n.Kind)
}
