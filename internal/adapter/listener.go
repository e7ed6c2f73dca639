package adapter

import (
	"fmt"
	"strconv"
	"sync"

	"midi2dmx/internal/bus"
	"midi2dmx/internal/settings"
	"midi2dmx/internal/wire"
)

// listener receives bus messages and hands the decoded payload to handle.
type listener struct {
	*State
	deps Deps

	handle func(address string, data wire.Values)

	mu        sync.Mutex
	transport bus.Transport
	endpoint  bus.Endpoint
}

func (l *listener) init(info Info, deps Deps) {
	l.State = newState(info, deps)
	l.deps = deps
}

func (l *listener) listen() error {
	ep, err := endpoint(l.Settings(), strconv.Itoa(l.ID()))
	if err != nil {
		return err
	}
	if l.deps.Bus == nil {
		return fmt.Errorf("no bus transport for %s", ep)
	}
	t, err := l.deps.Bus(ep)
	if err != nil {
		return err
	}
	if err := t.Listen(l.receive); err != nil {
		_ = t.Close()
		return err
	}

	l.mu.Lock()
	l.transport, l.endpoint = t, ep
	l.mu.Unlock()
	return nil
}

func (l *listener) unlisten() {
	l.mu.Lock()
	t := l.transport
	l.transport = nil
	l.mu.Unlock()
	if t == nil {
		return
	}
	if err := t.Close(); err != nil {
		l.log.Warnf("close transport: %v", err)
	}
}

// Endpoint is the bus endpoint of the last successful start.
func (l *listener) Endpoint() bus.Endpoint {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.endpoint
}

func (l *listener) receive(e bus.Envelope) {
	data := wire.DecodeArgs(e.Args)
	l.received()
	l.handle(e.Address, data)
}

const KindOscToConsole = "OSC to Console"

// OscToConsole logs every decoded bus message.
type OscToConsole struct {
	listener
}

func NewOscToConsole(info Info, deps Deps) *OscToConsole {
	a := &OscToConsole{}
	a.init(info, deps)
	a.handle = func(address string, data wire.Values) {
		a.log.Infof("OSC Received @ %s => %s", a.Endpoint(), address)
		for _, p := range data {
			a.log.Infof(" ° %-16s = %s", p.Key, p.Value)
		}
		a.sent()
	}
	return a
}

func (a *OscToConsole) State() *State { return a.listener.State }

func (a *OscToConsole) ApplySettings(doc settings.Value) error {
	if err := checkDocument(doc); err != nil {
		a.fail(err)
		return err
	}
	a.setSettings(doc)
	a.SetHasErrors(false)
	return nil
}

func (a *OscToConsole) Start() error { return a.start(a.listen) }

func (a *OscToConsole) Stop() { a.stop(a.unlisten) }
