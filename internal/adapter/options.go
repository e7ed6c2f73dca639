package adapter

import (
	"fmt"
	"strings"

	"midi2dmx/internal/bus"
	"midi2dmx/internal/settings"
)

const (
	DefaultHost   = "127.0.0.1"
	DefaultPort   = 1337
	DefaultDevice = "LoopBe"
	DefaultBroker = "tcp://127.0.0.1:1883"
)

// checkDocument rejects settings that are not a map.
func checkDocument(doc settings.Value) error {
	if doc.Kind() != settings.Map {
		return fmt.Errorf("%w, got %s", settings.ErrNotDocument, doc.Kind())
	}
	return nil
}

func stringSetting(doc settings.Value, key, def string) string {
	if s, ok := doc.Get(key).Str(); ok && s != "" {
		return s
	}
	return def
}

func intSetting(doc settings.Value, key string, def int) (int, error) {
	v := doc.Get(key)
	if v.IsNull() {
		return def, nil
	}
	n, ok := v.Int()
	if !ok {
		return 0, fmt.Errorf("setting %s: %s is not an integer", key, v)
	}
	return n, nil
}

func stringList(v settings.Value) []string {
	if items, ok := v.List(); ok {
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, it.String())
		}
		return out
	}
	if v.IsNull() {
		return nil
	}
	return []string{v.String()}
}

// endpoint reads the bus settings: transport, ip, port, broker, clientID
// and topics.
func endpoint(doc settings.Value, clientSuffix string) (bus.Endpoint, error) {
	port, err := intSetting(doc, "port", DefaultPort)
	if err != nil {
		return bus.Endpoint{}, err
	}
	ep := bus.Endpoint{
		Kind:     strings.ToLower(stringSetting(doc, "transport", "osc")),
		Host:     stringSetting(doc, "ip", DefaultHost),
		Port:     port,
		Broker:   stringSetting(doc, "broker", DefaultBroker),
		ClientID: stringSetting(doc, "clientID", "midi2dmx-"+clientSuffix),
		Topics:   stringList(doc.Get("topics")),
	}
	return ep, nil
}
