package midi

import (
	"errors"
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"midi2dmx/internal/logger"
)

var ErrInputNotFound = errors.New("MIDI input device not found")

// Source is one controller input port.
type Source interface {
	Name() string
	// Listen opens the port and delivers every message to recv on the
	// driver's goroutine until stop is called.
	Listen(recv func(gomidi.Message)) (stop func(), err error)
	Close() error
}

// Driver enumerates controller inputs.
type Driver interface {
	Sources() ([]Source, error)
}

// FindSource returns the first source whose name contains name, compared
// case-insensitively.
func FindSource(d Driver, name string) (Source, error) {
	sources, err := d.Sources()
	if err != nil {
		return nil, fmt.Errorf("failed to list MIDI inputs: %w", err)
	}
	for _, s := range sources {
		if containsCI(s.Name(), name) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrInputNotFound, name)
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// RtDriver reads controller input through rtmidi.
type RtDriver struct {
	drv *rtmididrv.Driver
	log *logger.Log
}

func NewRtDriver(log logger.Logger) (*RtDriver, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return &RtDriver{drv: drv, log: log.With(logger.Fields{"module": "midi"})}, nil
}

func (d *RtDriver) Sources() ([]Source, error) {
	ins, err := d.drv.Ins()
	if err != nil {
		return nil, err
	}
	out := make([]Source, len(ins))
	for i, in := range ins {
		out[i] = &inPort{in: in, log: d.log}
	}
	return out, nil
}

// Close shuts the rtmidi driver down.
func (d *RtDriver) Close() error {
	return d.drv.Close()
}

type inPort struct {
	in  drivers.In
	log *logger.Log
}

func (p *inPort) Name() string { return p.in.String() }

func (p *inPort) Listen(recv func(gomidi.Message)) (func(), error) {
	if !p.in.IsOpen() {
		if err := p.in.Open(); err != nil {
			return nil, fmt.Errorf("open %q: %w", p.in.String(), err)
		}
	}
	stop, err := gomidi.ListenTo(p.in, func(msg gomidi.Message, _ int32) {
		recv(msg)
	}, gomidi.HandleError(func(err error) {
		p.log.Warnf("listener error on %s: %v", p.in.String(), err)
	}))
	if err != nil {
		_ = p.in.Close()
		return nil, fmt.Errorf("listen %q: %w", p.in.String(), err)
	}
	return stop, nil
}

func (p *inPort) Close() error {
	if !p.in.IsOpen() {
		return nil
	}
	return p.in.Close()
}
