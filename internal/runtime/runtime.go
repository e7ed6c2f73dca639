// Package runtime owns the set of configured adapters.
package runtime

import (
	"errors"
	"fmt"
	"sync"

	"midi2dmx/internal/adapter"
	"midi2dmx/internal/logger"
	"midi2dmx/internal/settings"
)

var ErrUnknownAdapter = errors.New("adapter not found")

// Runtime is the adapter registry. Structural changes and bulk start/stop
// are serialized by one lock.
type Runtime struct {
	log  *logger.Log
	deps adapter.Deps

	mu       sync.Mutex
	running  bool
	nextID   int
	adapters []adapter.Adapter
	byID     map[int]adapter.Adapter
}

func New(log logger.Logger, deps adapter.Deps) *Runtime {
	if deps.Log == nil {
		deps.Log = log
	}
	return &Runtime{
		log:  log.With(logger.Fields{"module": "runtime"}),
		deps: deps,
		byID: map[int]adapter.Adapter{},
	}
}

// Add creates an adapter of the named kind. A null doc applies the kind's
// defaults. The adapter is started right away when the runtime is running;
// a failed start is logged and leaves the adapter registered with errors.
func (r *Runtime) Add(kind, name string, doc settings.Value) (adapter.Adapter, error) {
	k, err := adapter.LookupKind(kind)
	if err != nil {
		return nil, err
	}
	if doc.IsNull() {
		doc = k.Defaults()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	a := k.New(adapter.Info{ID: r.nextID, Kind: k.Name, Name: name}, r.deps)
	if err := a.ApplySettings(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", k.Name, err)
	}

	r.adapters = append(r.adapters, a)
	r.byID[a.State().ID()] = a
	r.log.Infof("Added => %s (#%d)", a.State().Name(), a.State().ID())

	if r.running {
		if err := a.Start(); err != nil {
			r.log.Errorf("%v", err)
		}
	}
	return a, nil
}

// Remove stops and drops the adapter with id.
func (r *Runtime) Remove(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: #%d", ErrUnknownAdapter, id)
	}
	a.Stop()
	delete(r.byID, id)
	for i, x := range r.adapters {
		if x == a {
			r.adapters = append(r.adapters[:i], r.adapters[i+1:]...)
			break
		}
	}
	r.log.Infof("Removed => %s (#%d)", a.State().Name(), id)
	return nil
}

// Clear stops and drops every adapter. The running flag is kept so that
// adapters added afterwards start right away.
func (r *Runtime) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.adapters {
		a.Stop()
	}
	r.adapters = nil
	r.byID = map[int]adapter.Adapter{}
}

// Get returns the adapter with id.
func (r *Runtime) Get(id int) (adapter.Adapter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	return a, ok
}

// Adapters returns the registered adapters in insertion order.
func (r *Runtime) Adapters() []adapter.Adapter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]adapter.Adapter(nil), r.adapters...)
}

func (r *Runtime) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start starts every adapter. Failures are logged per adapter and returned
// joined; the other adapters keep running.
func (r *Runtime) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	r.log.Info("Starting")
	var errs []error
	for _, a := range r.adapters {
		if err := a.Start(); err != nil {
			r.log.Errorf("%v", err)
			errs = append(errs, err)
		}
	}
	r.running = true
	r.log.Info("Started")
	return errors.Join(errs...)
}

// Stop stops every adapter and clears their error flags.
func (r *Runtime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}

	r.log.Info("Stopping")
	for _, a := range r.adapters {
		a.Stop()
		a.State().SetHasErrors(false)
	}
	r.running = false
	r.log.Info("Stopped")
}

// StartAdapter starts one adapter.
func (r *Runtime) StartAdapter(id int) error {
	a, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%w: #%d", ErrUnknownAdapter, id)
	}
	return a.Start()
}

// StopAdapter stops one adapter.
func (r *Runtime) StopAdapter(id int) error {
	a, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%w: #%d", ErrUnknownAdapter, id)
	}
	a.Stop()
	return nil
}
