package adapter

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"
	"midi2dmx/internal/midi"
	"midi2dmx/internal/routing"
	"midi2dmx/internal/settings"
)

// controller listens to one MIDI input and hands every event matching a
// routing rule to route.
type controller struct {
	*State
	deps Deps

	rules atomic.Pointer[routing.Rules]

	// onEvent and route run on the driver goroutine.
	onEvent func(ev midi.Event)
	route   func(r *routing.Rule, ev midi.Event)

	mu       sync.Mutex
	source   midi.Source
	unlisten func()
}

func (c *controller) init(info Info, deps Deps) {
	c.State = newState(info, deps)
	c.deps = deps
	c.rules.Store(&routing.Rules{})
}

// Rules returns the rule set in effect.
func (c *controller) Rules() routing.Rules { return *c.rules.Load() }

// applyRouting parses the routing section and swaps the rule set in. On
// error the current rules stay.
func (c *controller) applyRouting(doc settings.Value) error {
	if err := checkDocument(doc); err != nil {
		c.fail(err)
		return err
	}
	rules, err := routing.ParseRules(doc.Get("routing"))
	if err != nil {
		c.fail(err)
		return err
	}
	c.rules.Store(&rules)
	c.setSettings(doc)
	c.SetHasErrors(false)
	c.log.Infof("MIDI routing rules loaded: %d", len(rules))
	return nil
}

func (c *controller) open() error {
	if c.deps.MIDI == nil {
		return fmt.Errorf("%w: no MIDI driver", ErrDeviceNotFound)
	}
	device := stringSetting(c.Settings(), "device", DefaultDevice)
	src, err := midi.FindSource(c.deps.MIDI, device)
	if err != nil {
		if errors.Is(err, midi.ErrInputNotFound) {
			return fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
		}
		return err
	}

	stop, err := src.Listen(c.handle)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.source, c.unlisten = src, stop
	c.mu.Unlock()
	c.log.Infof("Started listening for MIDI input events on: %s", src.Name())
	return nil
}

func (c *controller) close() {
	c.mu.Lock()
	src, stop := c.source, c.unlisten
	c.source, c.unlisten = nil, nil
	c.mu.Unlock()
	if src == nil {
		return
	}

	stop()
	if err := src.Close(); err != nil {
		c.log.Warnf("close %s: %v", src.Name(), err)
	}
	c.log.Infof("Stopped listening for MIDI input events on: %s", src.Name())
}

func (c *controller) handle(msg gomidi.Message) {
	ev, ok := midi.Classify(msg)
	if !ok {
		return
	}
	c.dispatch(ev)
}

func (c *controller) dispatch(ev midi.Event) {
	if c.onEvent != nil {
		c.onEvent(ev)
	}
	c.received()

	for _, r := range c.rules.Load().Matching(ev) {
		c.route(r, ev)
	}
}
