package adapter

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Haba1234/go-artnet"
	gomidi "gitlab.com/gomidi/midi/v2"
	"midi2dmx/internal/bus"
	"midi2dmx/internal/midi"
	"midi2dmx/internal/settings"
)

type kv struct {
	k string
	v settings.Value
}

func obj(pairs ...kv) settings.Value {
	m := settings.NewMap()
	for _, p := range pairs {
		m.Set(p.k, p.v)
	}
	return settings.MapValue(m)
}

func str(s string) settings.Value { return settings.StringValue(s) }

func num(n int) settings.Value { return settings.IntValue(n) }

type funcCallback func(args ...interface{}) (settings.Value, error)

func (f funcCallback) Call(args ...interface{}) (settings.Value, error) { return f(args...) }

type fakeSource struct {
	name   string
	recv   func(gomidi.Message)
	closed int
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Listen(recv func(gomidi.Message)) (func(), error) {
	s.recv = recv
	return func() { s.recv = nil }, nil
}

func (s *fakeSource) Close() error {
	s.closed++
	return nil
}

func (s *fakeSource) emit(msg gomidi.Message) {
	if s.recv != nil {
		s.recv(msg)
	}
}

type fakeDriver []*fakeSource

func (d fakeDriver) Sources() ([]midi.Source, error) {
	out := make([]midi.Source, len(d))
	for i, s := range d {
		out[i] = s
	}
	return out, nil
}

type sentMessage struct {
	address string
	payload string
}

type fakeTransport struct {
	ep      bus.Endpoint
	sent    []sentMessage
	handler bus.Handler
	closed  bool
	sendErr error
}

func (t *fakeTransport) Send(address, payload string) error {
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, sentMessage{address, payload})
	return nil
}

func (t *fakeTransport) Listen(h bus.Handler) error {
	t.handler = h
	return nil
}

func (t *fakeTransport) Close() error {
	t.closed = true
	return nil
}

func (t *fakeTransport) deliver(address string, args ...interface{}) {
	t.handler(bus.Envelope{Address: address, Args: args})
}

// fakeBus hands out a new transport per open.
type fakeBus struct {
	mu         sync.Mutex
	transports []*fakeTransport
}

func (b *fakeBus) open(ep bus.Endpoint) (bus.Transport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := &fakeTransport{ep: ep}
	b.transports = append(b.transports, t)
	return t, nil
}

func (b *fakeBus) last() *fakeTransport {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.transports) == 0 {
		return nil
	}
	return b.transports[len(b.transports)-1]
}

type fakeLink struct {
	r  *io.PipeReader
	in *io.PipeWriter

	mu     sync.Mutex
	out    bytes.Buffer
	closed bool
}

func newFakeLink() *fakeLink {
	r, w := io.Pipe()
	return &fakeLink{r: r, in: w}
}

func (l *fakeLink) Read(p []byte) (int, error) { return l.r.Read(p) }

func (l *fakeLink) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Write(p)
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return l.r.Close()
}

func (l *fakeLink) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *fakeLink) written() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]byte(nil), l.out.Bytes()...)
}

// fakeOpener opens a fresh link each time.
type fakeOpener struct {
	ports []string
	links []*fakeLink
}

func (o *fakeOpener) Ports() ([]string, error) { return o.ports, nil }

func (o *fakeOpener) Open(string, int) (io.ReadWriteCloser, error) {
	if len(o.ports) == 0 {
		return nil, errors.New("no such port")
	}
	l := newFakeLink()
	o.links = append(o.links, l)
	return l, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent [][512]byte
}

func (s *fakeSender) Start() error { return nil }

func (s *fakeSender) Stop() {}

func (s *fakeSender) SendDMXToAddress(data [512]byte, _ artnet.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, data)
}

func (s *fakeSender) last() ([512]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return [512]byte{}, false
	}
	return s.sent[len(s.sent)-1], true
}

type countingObserver struct {
	mu       sync.Mutex
	received int
	sent     int
}

func (o *countingObserver) MessageReceived(*State) {
	o.mu.Lock()
	o.received++
	o.mu.Unlock()
}

func (o *countingObserver) MessageSent(*State) {
	o.mu.Lock()
	o.sent++
	o.mu.Unlock()
}

func (o *countingObserver) counts() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.received, o.sent
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
