package adapter

import (
	"midi2dmx/internal/artnet"
	"midi2dmx/internal/bus"
	"midi2dmx/internal/dmx"
	"midi2dmx/internal/logger"
	"midi2dmx/internal/midi"
)

// Deps are the collaborators adapters are built with.
type Deps struct {
	Log      logger.Logger
	MIDI     midi.Driver
	Serial   dmx.Opener
	Bus      func(ep bus.Endpoint) (bus.Transport, error)
	ArtNet   func(cidr string) (artnet.Sender, error)
	Observer Observer
}

func (d Deps) log() logger.Logger {
	if d.Log == nil {
		return logger.NewDiscard()
	}
	return d.Log
}

func (d Deps) observer() Observer {
	if d.Observer == nil {
		return nopObserver{}
	}
	return d.Observer
}
