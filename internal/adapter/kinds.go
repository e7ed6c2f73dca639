package adapter

import (
	"fmt"
	"strings"

	"midi2dmx/internal/settings"
)

// Kind is a registered adapter type.
type Kind struct {
	Name     string
	Defaults func() settings.Value
	New      func(info Info, deps Deps) Adapter
}

var kinds = []Kind{
	{
		Name:     KindMidiToOSC,
		Defaults: midiToOSCDefaults,
		New:      func(info Info, deps Deps) Adapter { return NewMidiToOSC(info, deps) },
	},
	{
		Name:     KindMidiToConsole,
		Defaults: controllerDefaults,
		New:      func(info Info, deps Deps) Adapter { return NewMidiToConsole(info, deps) },
	},
	{
		Name:     KindOscToDmx,
		Defaults: oscToDmxDefaults,
		New:      func(info Info, deps Deps) Adapter { return NewOscToDmx(info, deps) },
	},
	{
		Name:     KindOscToConsole,
		Defaults: func() settings.Value { return settings.MapValue(nil) },
		New:      func(info Info, deps Deps) Adapter { return NewOscToConsole(info, deps) },
	},
}

// Kinds lists the registered adapter kinds.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// LookupKind finds a kind by name, ignoring case and surrounding spaces.
func LookupKind(name string) (Kind, error) {
	name = strings.TrimSpace(name)
	for _, k := range kinds {
		if strings.EqualFold(k.Name, name) {
			return k, nil
		}
	}
	return Kind{}, fmt.Errorf("no message adapter was found by the name: %s", name)
}

// { routing: { "All": {} } }
func controllerDefaults() settings.Value {
	routing := settings.NewMap().Set("All", settings.MapValue(nil))
	return settings.MapValue(settings.NewMap().Set("routing", settings.MapValue(routing)))
}

// { routing: { "All": { address: "/midi", args: "channel={c}&value={v2}" } } }
func midiToOSCDefaults() settings.Value {
	all := settings.NewMap().
		Set("address", settings.StringValue("/midi")).
		Set("args", settings.StringValue("channel={c}&value={v2}"))
	routing := settings.NewMap().Set("All", settings.MapValue(all))
	return settings.MapValue(settings.NewMap().Set("routing", settings.MapValue(routing)))
}

// { maxChannel: 512, setup: [] }
func oscToDmxDefaults() settings.Value {
	return settings.MapValue(settings.NewMap().
		Set("maxChannel", settings.IntValue(512)).
		Set("setup", settings.ListValue()))
}
