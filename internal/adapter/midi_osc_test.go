package adapter

import (
	"errors"
	"reflect"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
	"midi2dmx/internal/midi"
	"midi2dmx/internal/routing"
	"midi2dmx/internal/settings"
)

func newMidiToOSC(t *testing.T, doc settings.Value, sources ...*fakeSource) (*MidiToOSC, *fakeBus, *countingObserver) {
	t.Helper()
	b := &fakeBus{}
	obs := &countingObserver{}
	a := NewMidiToOSC(Info{ID: 1, Kind: KindMidiToOSC}, Deps{MIDI: fakeDriver(sources), Bus: b.open, Observer: obs})
	if err := a.ApplySettings(doc); err != nil {
		t.Fatalf("ApplySettings() error = %v", err)
	}
	return a, b, obs
}

func TestMidiToOSCDefaults(t *testing.T) {
	src := &fakeSource{name: "LoopBe Internal MIDI"}
	kind, err := LookupKind("midi to osc")
	if err != nil {
		t.Fatalf("LookupKind() error = %v", err)
	}
	a, b, obs := newMidiToOSC(t, kind.Defaults(), &fakeSource{name: "Launchpad"}, src)

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if len(b.transports) != 1 {
		t.Fatalf("transports opened = %d, want 1", len(b.transports))
	}
	tr := b.last()
	if tr.ep.Host != DefaultHost || tr.ep.Port != DefaultPort || tr.ep.Kind != "osc" {
		t.Errorf("endpoint = %+v", tr.ep)
	}

	src.emit(gomidi.ControlChange(1, 7, 100))
	src.emit(gomidi.ProgramChange(0, 5))

	want := []sentMessage{
		{"/midi", "channel=2&value=100"},
		{"/midi", "channel=1&value=-1"},
	}
	if !reflect.DeepEqual(tr.sent, want) {
		t.Errorf("sent = %v, want %v", tr.sent, want)
	}
	if r, s := obs.counts(); r != 2 || s != 2 {
		t.Errorf("received, sent = %d, %d; want 2, 2", r, s)
	}

	a.Stop()
	if a.State().Status() != Stopped || !tr.closed || src.closed != 1 || src.recv != nil {
		t.Errorf("after Stop: status %v, transport closed %v, source closed %d", a.State().Status(), tr.closed, src.closed)
	}
}

func TestMidiToOSCRoutesMatchingRules(t *testing.T) {
	src := &fakeSource{name: "LoopBe"}
	notes := funcCallback(func(args ...interface{}) (settings.Value, error) {
		return obj(kv{"type", str(args[0].(string))}, kv{"key", num(args[2].(int))}, kv{"vel", num(args[3].(int))}), nil
	})
	doc := obj(
		kv{"ip", str("10.0.0.5")},
		kv{"port", str("9000")},
		kv{"routing", obj(
			kv{"notes", obj(
				kv{"message", obj(kv{"whitelist", settings.ListValue(str("NoteOn"))})},
				kv{"channel", settings.ListValue(num(1), num(2), num(3), num(4))},
				kv{"address", str("/notes")},
				kv{"data", settings.CallbackValue(notes)},
			)},
			kv{"faders", obj(
				kv{"message", str("ControlChange")},
				kv{"address", str("/fader")},
				kv{"args", str("t={t}&c={c}&v1={v1}&v2={v2}")},
			)},
		)},
	)
	a, b, _ := newMidiToOSC(t, doc, src)
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	tr := b.last()
	if tr.ep.Host != "10.0.0.5" || tr.ep.Port != 9000 {
		t.Errorf("endpoint = %+v", tr.ep)
	}

	src.emit(gomidi.NoteOn(1, 60, 100))
	src.emit(gomidi.ControlChange(1, 7, 1))
	src.emit(gomidi.NoteOn(8, 60, 100))

	want := []sentMessage{
		{"/notes", "type=NoteOn&key=60&vel=100"},
		{"/fader", "t=ControlChange&c=2&v1=7&v2=1"},
	}
	if !reflect.DeepEqual(tr.sent, want) {
		t.Errorf("sent = %v, want %v", tr.sent, want)
	}
}

func TestMidiToOSCErrorsAreSticky(t *testing.T) {
	src := &fakeSource{name: "LoopBe"}
	fail := true
	cb := funcCallback(func(...interface{}) (settings.Value, error) {
		if fail {
			return settings.NullValue(), errors.New("boom")
		}
		return str("ok=1"), nil
	})
	doc := obj(kv{"routing", obj(kv{"All", obj(kv{"address", str("/x")}, kv{"data", settings.CallbackValue(cb)})})})
	a, b, _ := newMidiToOSC(t, doc, src)
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	src.emit(gomidi.NoteOn(0, 1, 1))
	if !a.State().HasErrors() {
		t.Fatal("callback failure did not set HasErrors")
	}

	fail = false
	b.last().sendErr = errors.New("network down")
	src.emit(gomidi.NoteOn(0, 1, 1))
	if !a.State().HasErrors() {
		t.Fatal("send failure did not set HasErrors")
	}

	b.last().sendErr = nil
	src.emit(gomidi.NoteOn(0, 1, 1))
	if a.State().HasErrors() {
		t.Error("successful send did not clear HasErrors")
	}
	if got := b.last().sent; len(got) != 1 || got[0].payload != "ok=1" {
		t.Errorf("sent = %v", got)
	}
}

func TestMidiToOSCDeviceNotFound(t *testing.T) {
	a, b, _ := newMidiToOSC(t, obj(kv{"device", str("Launchpad")}), &fakeSource{name: "LoopBe"})

	err := a.Start()
	if !errors.Is(err, ErrDeviceNotFound) || !errors.Is(err, midi.ErrInputNotFound) {
		t.Fatalf("Start() error = %v, want ErrDeviceNotFound", err)
	}
	if a.State().Status() != Stopped || !a.State().HasErrors() {
		t.Errorf("status %v, HasErrors %v", a.State().Status(), a.State().HasErrors())
	}
	if !b.last().closed {
		t.Error("transport left open after failed start")
	}
}

func TestApplySettingsKeepsRulesOnError(t *testing.T) {
	good := obj(kv{"routing", obj(kv{"a", obj()}, kv{"b", obj()})})
	a, _, _ := newMidiToOSC(t, good)

	bad := obj(kv{"routing", obj(kv{"c", obj(kv{"value1", str("Cb-9")})})})
	err := a.ApplySettings(bad)
	var cfgErr *routing.ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Token != "Cb-9" {
		t.Fatalf("ApplySettings() error = %v, want ConfigurationError", err)
	}
	if n := len(a.Rules()); n != 2 {
		t.Errorf("rules = %d, want the previous 2", n)
	}
	if !a.State().HasErrors() {
		t.Error("HasErrors not set")
	}
	if !a.State().Settings().Get("routing").Has("a") {
		t.Error("settings replaced by a failed apply")
	}
}

func TestBuildPayload(t *testing.T) {
	ev := midi.Event{Type: midi.NoteOn, Channel: 3, Value1: 64, Value2: 127}
	returns := func(v settings.Value) settings.Func {
		return funcCallback(func(...interface{}) (settings.Value, error) { return v, nil })
	}

	tests := []struct {
		name     string
		rule     routing.Rule
		fallback settings.Func
		want     string
		wantSend bool
	}{
		{"template", routing.Rule{Template: "{t}:{c}:{v1}:{v2}"}, nil, "NoteOn:3:64:127", true},
		{"nothing", routing.Rule{}, nil, "", true},
		{"string", routing.Rule{Callback: returns(str("a=b"))}, nil, "a=b", true},
		{"null", routing.Rule{Callback: returns(settings.NullValue())}, nil, "", false},
		{"number", routing.Rule{Callback: returns(num(5))}, nil, "5", true},
		{"map", routing.Rule{Callback: returns(obj(
			kv{"channel", settings.ListValue(num(1), num(2), num(3))},
			kv{"value", str("0.5;1;1")},
		))}, nil, "channel=1,2,3&value=0.5;1;1", true},
		{"rule callback beats template", routing.Rule{Template: "t", Callback: returns(str("cb"))}, nil, "cb", true},
		{"adapter callback beats template", routing.Rule{Template: "t"}, returns(str("cb")), "cb", true},
		{"rule callback beats adapter callback", routing.Rule{Callback: returns(str("rule"))}, returns(str("adapter")), "rule", true},
		{"adapter callback", routing.Rule{}, returns(str("cb")), "cb", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, send, err := BuildPayload(&tt.rule, tt.fallback, ev)
			if err != nil {
				t.Fatalf("BuildPayload() error = %v", err)
			}
			if got != tt.want || send != tt.wantSend {
				t.Errorf("BuildPayload() = %q, %v; want %q, %v", got, send, tt.want, tt.wantSend)
			}
		})
	}
}

func TestBuildPayloadCallbackArgs(t *testing.T) {
	var got []interface{}
	cb := funcCallback(func(args ...interface{}) (settings.Value, error) {
		got = args
		return settings.NullValue(), nil
	})
	ev := midi.Event{Type: midi.PitchBend, Channel: 1, Value1: 8192, Value2: midi.NA}
	if _, _, err := BuildPayload(&routing.Rule{Callback: cb}, nil, ev); err != nil {
		t.Fatalf("BuildPayload() error = %v", err)
	}
	if want := []interface{}{"PitchBend", 1, 8192, -1}; !reflect.DeepEqual(got, want) {
		t.Errorf("callback args = %v, want %v", got, want)
	}
}

func TestMidiToConsole(t *testing.T) {
	src := &fakeSource{name: "LoopBe"}
	obs := &countingObserver{}
	a := NewMidiToConsole(Info{ID: 2, Kind: KindMidiToConsole}, Deps{MIDI: fakeDriver{src}, Observer: obs})
	doc := obj(kv{"routing", obj(kv{"All", obj()}, kv{"Notes", obj(kv{"message", str("note on")})})})
	if err := a.ApplySettings(doc); err != nil {
		t.Fatalf("ApplySettings() error = %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	src.emit(gomidi.NoteOn(0, 60, 1))
	src.emit(gomidi.NoteOff(0, 60))
	if r, s := obs.counts(); r != 2 || s != 3 {
		t.Errorf("received, sent = %d, %d; want 2, 3", r, s)
	}
	if a.State().Name() != KindMidiToConsole {
		t.Errorf("Name() = %q", a.State().Name())
	}
}
