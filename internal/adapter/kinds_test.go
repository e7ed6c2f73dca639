package adapter

import (
	"testing"
)

func TestLookupKind(t *testing.T) {
	for _, name := range []string{"MIDI to OSC", "midi to console", " OSC TO DMX ", "osc to console"} {
		k, err := LookupKind(name)
		if err != nil {
			t.Errorf("LookupKind(%q) error = %v", name, err)
			continue
		}
		a := k.New(Info{ID: 1, Kind: k.Name}, Deps{})
		if err := a.ApplySettings(k.Defaults()); err != nil {
			t.Errorf("%s: ApplySettings(defaults) error = %v", k.Name, err)
		}
		if a.State().Kind() != k.Name || a.State().Status() != Stopped {
			t.Errorf("%s: state = %s %v", k.Name, a.State().Kind(), a.State().Status())
		}
	}

	if _, err := LookupKind("MIDI to Smoke"); err == nil {
		t.Error("LookupKind(unknown) succeeded")
	}
	if n := len(Kinds()); n != 4 {
		t.Errorf("Kinds() = %d, want 4", n)
	}
}

func TestDefaults(t *testing.T) {
	d := midiToOSCDefaults()
	all := d.Get("routing").Get("All")
	if s, _ := all.Get("args").Str(); s != "channel={c}&value={v2}" {
		t.Errorf("args = %q", s)
	}
	if n, _ := oscToDmxDefaults().Get("maxChannel").Int(); n != 512 {
		t.Errorf("maxChannel = %d", n)
	}
}

func TestStatusString(t *testing.T) {
	if Started.String() != "started" || Status(9).String() != "Status(9)" {
		t.Error("unexpected status names")
	}
}
