package dmx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"midi2dmx/internal/logger"
)

var ErrClosed = errors.New("serial link is closed")

// PortConfig describes a fixture controller link.
type PortConfig struct {
	Name       string // Name - имя порта, пусто - первый найденный.
	Baud       int
	MaxChannel int
	Setup      []SetupMessage
	OnSent     func() // OnSent вызывается после каждой записи.
}

// Port is an open fixture controller link. Writes are serialized so frames,
// the handshake word and setup replays never interleave.
type Port struct {
	name       string
	maxChannel int
	setup      []SetupMessage
	onSent     func()
	log        *logger.Log

	mu   sync.Mutex
	link io.ReadWriteCloser
	open atomic.Bool
	done chan struct{}
}

// OpenPort selects and opens the link, replays the setup messages and starts
// answering handshake requests.
func OpenPort(o Opener, cfg PortConfig, log logger.Logger) (*Port, error) {
	name, err := SelectPort(o, cfg.Name)
	if err != nil {
		return nil, err
	}
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.MaxChannel == 0 {
		cfg.MaxChannel = DefaultMaxChannel
	}
	if cfg.OnSent == nil {
		cfg.OnSent = func() {}
	}

	link, err := o.Open(name, cfg.Baud)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}

	p := &Port{
		name:       name,
		maxChannel: cfg.MaxChannel,
		setup:      append([]SetupMessage(nil), cfg.Setup...),
		onSent:     cfg.OnSent,
		log:        log.With(logger.Fields{"module": "serial", "port": name}),
		link:       link,
		done:       make(chan struct{}),
	}
	p.open.Store(true)

	p.mu.Lock()
	err = p.replaySetupLocked()
	p.mu.Unlock()
	if err != nil {
		if p.open.Swap(false) {
			_ = link.Close()
		}
		return nil, err
	}
	go p.readLoop()

	p.log.Infof("Sending DMX requests to serial port: %s", name)
	return p, nil
}

func (p *Port) Name() string { return p.name }

func (p *Port) IsOpen() bool { return p.open.Load() }

// WriteFrame writes f with a single write call.
func (p *Port) WriteFrame(f Frame) error {
	if !p.IsOpen() {
		return ErrClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.write(f[:])
}

// Handshake answers a "setup" request. The word and the setup frames go out
// back to back; no frame can get in between.
func (p *Port) Handshake() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.write(maxChannelWord(p.maxChannel)); err != nil {
		return err
	}
	return p.replaySetupLocked()
}

// replaySetupLocked must be called with mu held.
func (p *Port) replaySetupLocked() error {
	for _, m := range p.setup {
		f := m.Frame()
		if err := p.write(f[:]); err != nil {
			return err
		}
	}
	p.log.Debugf("%d DMX setup messages applied", len(p.setup))
	return nil
}

// write must be called with mu held. A failed write closes the link so the
// next message reconnects.
func (p *Port) write(b []byte) error {
	if _, err := p.link.Write(b); err != nil {
		if p.open.Swap(false) {
			p.log.Warnf("serial link lost: %v", err)
			_ = p.link.Close()
		}
		return fmt.Errorf("serial write: %w", err)
	}
	p.onSent()
	return nil
}

func (p *Port) readLoop() {
	defer close(p.done)
	scanner := bufio.NewScanner(p.link)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "setup" {
			continue
		}
		p.log.Debug("controller requested setup")
		if err := p.Handshake(); err != nil {
			p.log.Errorf("handshake: %v", err)
		}
	}
	if p.open.Swap(false) {
		// the controller went away; the next write triggers a reconnect
		p.log.Warnf("serial link lost: %v", scanner.Err())
		_ = p.link.Close()
	}
}

// Close closes the link and waits for the reader to exit.
func (p *Port) Close() error {
	var err error
	if p.open.Swap(false) {
		p.log.Infof("Closing DMX serial port: %s", p.name)
		err = p.link.Close()
	}
	<-p.done
	return err
}
