// Package adapter implements the message adapters: controller input routed
// onto the bus, and bus messages translated into fixture frames.
//
// Every adapter shares a State that tracks its lifecycle and its sticky
// error flag. Event handling never returns errors to the transport; a
// failure is logged, flags the adapter and drops the message.
package adapter

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"midi2dmx/internal/logger"
	"midi2dmx/internal/settings"
)

// ErrDeviceNotFound is returned by Start when the controller input or the
// fixture port is missing.
var ErrDeviceNotFound = errors.New("device not found")

// Adapter is one running translation unit.
type Adapter interface {
	Start() error
	Stop()
	// ApplySettings replaces the adapter settings. On error the previous
	// settings stay in effect.
	ApplySettings(doc settings.Value) error
	State() *State
}

// Status is the lifecycle state of an adapter.
type Status int32

const (
	Stopped Status = iota
	Starting
	Started
	Stopping
)

func (s Status) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Started:
		return "started"
	case Stopping:
		return "stopping"
	}
	return fmt.Sprintf("Status(%d)", int32(s))
}

// Observer is told about every message an adapter receives or sends.
type Observer interface {
	MessageReceived(s *State)
	MessageSent(s *State)
}

type nopObserver struct{}

func (nopObserver) MessageReceived(*State) {}

func (nopObserver) MessageSent(*State) {}

// Info identifies an adapter instance.
type Info struct {
	ID   int
	Kind string
	Name string
}

// State is the part of an adapter shared by every kind.
type State struct {
	info     Info
	log      *logger.Log
	observer Observer

	mu     sync.Mutex // serializes Start and Stop
	status atomic.Int32

	hasErrors atomic.Bool
	doc       atomic.Pointer[settings.Value]
}

func newState(info Info, deps Deps) *State {
	if info.Name == "" {
		info.Name = info.Kind
	}
	s := &State{
		info:     info,
		log:      deps.log().With(logger.Fields{"module": "adapter", "adapter": info.Name, "id": info.ID}),
		observer: deps.observer(),
	}
	doc := settings.NullValue()
	s.doc.Store(&doc)
	return s
}

func (s *State) ID() int { return s.info.ID }

func (s *State) Kind() string { return s.info.Kind }

func (s *State) Name() string { return s.info.Name }

func (s *State) Info() Info { return s.info }

func (s *State) Status() Status { return Status(s.status.Load()) }

func (s *State) Running() bool { return s.Status() == Started }

// HasErrors reports whether the last operation failed. It clears on the
// next success or on Stop.
func (s *State) HasErrors() bool { return s.hasErrors.Load() }

func (s *State) SetHasErrors(v bool) { s.hasErrors.Store(v) }

// Settings returns the settings document last applied successfully.
func (s *State) Settings() settings.Value { return *s.doc.Load() }

func (s *State) setSettings(doc settings.Value) { s.doc.Store(&doc) }

// fail logs err and sets the error flag.
func (s *State) fail(err error) {
	s.hasErrors.Store(true)
	s.log.Error(err)
}

func (s *State) received() { s.observer.MessageReceived(s) }

func (s *State) sent() { s.observer.MessageSent(s) }

// start runs open when the adapter is stopped. A failed open leaves it
// stopped with the error flag set.
func (s *State) start(open func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status() != Stopped {
		return nil
	}

	s.log.Infof("Starting: %s", s.info.Name)
	s.status.Store(int32(Starting))
	if err := open(); err != nil {
		s.status.Store(int32(Stopped))
		s.hasErrors.Store(true)
		return fmt.Errorf("start %s: %w", s.info.Name, err)
	}
	s.status.Store(int32(Started))
	return nil
}

// stop runs closeFn when the adapter is started and clears the error flag.
func (s *State) stop(closeFn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status() != Started {
		return
	}

	s.log.Infof("Stopping: %s", s.info.Name)
	s.status.Store(int32(Stopping))
	closeFn()
	s.status.Store(int32(Stopped))
	s.hasErrors.Store(false)
}
