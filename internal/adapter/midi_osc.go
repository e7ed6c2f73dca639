package adapter

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"midi2dmx/internal/bus"
	"midi2dmx/internal/midi"
	"midi2dmx/internal/routing"
	"midi2dmx/internal/settings"
	"midi2dmx/internal/wire"
)

const (
	KindMidiToOSC     = "MIDI to OSC"
	KindMidiToConsole = "MIDI to Console"
)

// MidiToOSC relays routed controller events as bus messages.
type MidiToOSC struct {
	controller

	data settings.Func // adapter-wide data callback

	mu        sync.Mutex
	transport bus.Transport
}

func NewMidiToOSC(info Info, deps Deps) *MidiToOSC {
	a := &MidiToOSC{}
	a.init(info, deps)
	a.route = a.send
	return a
}

func (a *MidiToOSC) State() *State { return a.controller.State }

func (a *MidiToOSC) ApplySettings(doc settings.Value) error {
	if err := a.applyRouting(doc); err != nil {
		return err
	}
	a.mu.Lock()
	a.data, _ = doc.Get("data").Callback()
	a.mu.Unlock()
	return nil
}

func (a *MidiToOSC) Start() error {
	return a.start(func() error {
		ep, err := endpoint(a.Settings(), strconv.Itoa(a.ID()))
		if err != nil {
			return err
		}
		if a.deps.Bus == nil {
			return fmt.Errorf("no bus transport for %s", ep)
		}
		t, err := a.deps.Bus(ep)
		if err != nil {
			return err
		}
		a.mu.Lock()
		a.transport = t
		a.mu.Unlock()

		if err := a.open(); err != nil {
			a.closeTransport()
			return err
		}
		a.log.Infof("Sending MIDI => OSC out on: %s", ep)
		return nil
	})
}

func (a *MidiToOSC) Stop() {
	a.stop(func() {
		a.close()
		a.closeTransport()
	})
}

func (a *MidiToOSC) closeTransport() {
	a.mu.Lock()
	t := a.transport
	a.transport = nil
	a.mu.Unlock()
	if t != nil {
		if err := t.Close(); err != nil {
			a.log.Warnf("close transport: %v", err)
		}
	}
}

func (a *MidiToOSC) send(r *routing.Rule, ev midi.Event) {
	a.mu.Lock()
	t, data := a.transport, a.data
	a.mu.Unlock()
	if t == nil {
		return
	}

	payload, ok, err := BuildPayload(r, data, ev)
	if err != nil {
		a.fail(fmt.Errorf("rule %s: %w", r.Name, err))
		return
	}
	if !ok {
		return
	}
	if err := t.Send(r.Address, payload); err != nil {
		a.fail(fmt.Errorf("rule %s: %w", r.Name, err))
		return
	}
	a.sent()
	a.SetHasErrors(false)
}

// BuildPayload renders the bus payload for ev. A data callback (the rule's,
// else the adapter-wide one) wins over the args template. ok is false when
// the callback returned null and nothing should be sent.
//
// A callback receives (type, channel, value1, value2). A string result is
// sent as is, a map is wire-encoded and anything else is sent in its
// textual form.
func BuildPayload(r *routing.Rule, fallback settings.Func, ev midi.Event) (payload string, ok bool, err error) {
	cb := r.Callback
	if cb == nil {
		cb = fallback
	}
	if cb == nil {
		return substitute(r.Template, ev), true, nil
	}

	res, err := cb.Call(ev.Type.String(), ev.Channel, ev.Value1, ev.Value2)
	if err != nil {
		return "", false, err
	}
	switch res.Kind() {
	case settings.Null:
		return "", false, nil
	case settings.Map:
		m, _ := res.Map()
		return wire.Encode(m), true, nil
	}
	return res.String(), true, nil
}

func substitute(tmpl string, ev midi.Event) string {
	if tmpl == "" {
		return ""
	}
	return strings.NewReplacer(
		"{t}", ev.Type.String(),
		"{c}", strconv.Itoa(ev.Channel),
		"{v1}", strconv.Itoa(ev.Value1),
		"{v2}", strconv.Itoa(ev.Value2),
	).Replace(tmpl)
}

// MidiToConsole logs controller events and the rules they match.
type MidiToConsole struct {
	controller
}

func NewMidiToConsole(info Info, deps Deps) *MidiToConsole {
	a := &MidiToConsole{}
	a.init(info, deps)
	a.onEvent = func(ev midi.Event) {
		a.log.Info(ev.String())
	}
	a.route = func(r *routing.Rule, _ midi.Event) {
		a.log.Infof("=> %s", r.Name)
		a.sent()
	}
	return a
}

func (a *MidiToConsole) State() *State { return a.controller.State }

func (a *MidiToConsole) ApplySettings(doc settings.Value) error { return a.applyRouting(doc) }

func (a *MidiToConsole) Start() error { return a.start(a.open) }

func (a *MidiToConsole) Stop() { a.stop(a.close) }
