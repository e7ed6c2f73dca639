package adapter

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"midi2dmx/internal/artnet"
	"midi2dmx/internal/dmx"
	"midi2dmx/internal/settings"
	"midi2dmx/internal/wire"
)

const KindOscToDmx = "OSC to DMX"

// dmxConf is the fixture side of the OSC to DMX settings.
type dmxConf struct {
	maxChannel int
	setup      []dmx.SetupMessage
	port       string
	baud       int
	output     string // serial или artnet.
	universe   uint16
	cidr       string
}

// OscToDmx translates decoded bus messages into fixture frames.
type OscToDmx struct {
	listener

	confMu sync.Mutex
	conf   dmxConf

	sinkMu sync.Mutex
	sink   dmx.Sink

	reconnecting sync.Mutex
}

func NewOscToDmx(info Info, deps Deps) *OscToDmx {
	a := &OscToDmx{conf: dmxConf{maxChannel: dmx.DefaultMaxChannel, baud: dmx.DefaultBaud, output: "serial"}}
	a.init(info, deps)
	a.handle = a.translate
	return a
}

func (a *OscToDmx) State() *State { return a.listener.State }

// ApplySettings reads maxChannel, setup, serial, baud, output, universe and
// artnetCIDR. Port settings take effect on the next start.
func (a *OscToDmx) ApplySettings(doc settings.Value) error {
	conf, err := parseDmxConf(doc)
	if err != nil {
		a.fail(err)
		return err
	}
	a.confMu.Lock()
	a.conf = conf
	a.confMu.Unlock()
	a.setSettings(doc)
	a.SetHasErrors(false)
	a.log.Infof("DMX max output channel: %d", conf.maxChannel)
	return nil
}

func parseDmxConf(doc settings.Value) (dmxConf, error) {
	var c dmxConf
	err := checkDocument(doc)
	if err != nil {
		return c, err
	}
	if c.maxChannel, err = intSetting(doc, "maxChannel", dmx.DefaultMaxChannel); err != nil {
		return c, err
	}
	if c.baud, err = intSetting(doc, "baud", dmx.DefaultBaud); err != nil {
		return c, err
	}
	universe, err := intSetting(doc, "universe", 0)
	if err != nil {
		return c, err
	}
	if universe < 0 || universe > 0xFFFF {
		return c, fmt.Errorf("setting universe: %d out of range", universe)
	}
	c.universe = uint16(universe)
	c.port = stringSetting(doc, "serial", "")
	c.cidr = stringSetting(doc, "artnetCIDR", artnet.DefaultAddressRange)
	c.output = strings.ToLower(stringSetting(doc, "output", "serial"))
	if c.output != "serial" && c.output != "artnet" {
		return c, fmt.Errorf("setting output: unknown output %q", c.output)
	}
	c.setup, err = parseSetup(doc.Get("setup"))
	return c, err
}

// parseSetup reads a list of {channel, value} entries.
func parseSetup(v settings.Value) ([]dmx.SetupMessage, error) {
	if v.IsNull() {
		return nil, nil
	}
	items, ok := v.List()
	if !ok {
		return nil, fmt.Errorf("DMX setup messages list is not formatted correctly: %s", v)
	}
	out := make([]dmx.SetupMessage, 0, len(items))
	for i, it := range items {
		ch, ok1 := it.Get("channel").Int()
		val, ok2 := it.Get("value").Int()
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("DMX setup message %d needs integer channel and value", i+1)
		}
		out = append(out, dmx.SetupMessage{Channel: ch, Value: val})
	}
	return out, nil
}

func (a *OscToDmx) Start() error {
	return a.start(func() error {
		sink, err := a.openSink()
		if err != nil {
			return err
		}
		a.setSink(sink)
		if err := a.listen(); err != nil {
			a.setSink(nil)
			_ = sink.Close()
			return err
		}
		return nil
	})
}

func (a *OscToDmx) Stop() {
	a.stop(func() {
		a.unlisten()
		if sink := a.setSink(nil); sink != nil {
			if err := sink.Close(); err != nil {
				a.log.Warnf("close output: %v", err)
			}
		}
	})
}

func (a *OscToDmx) openSink() (dmx.Sink, error) {
	a.confMu.Lock()
	conf := a.conf
	a.confMu.Unlock()

	if conf.output == "artnet" {
		if a.deps.ArtNet == nil {
			return nil, fmt.Errorf("%w: no Art-Net sender", ErrDeviceNotFound)
		}
		sender, err := a.deps.ArtNet(conf.cidr)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
		}
		out := artnet.NewOutput(a.log, sender, artnet.OutputConf{Universe: conf.universe, OnSent: a.sent})
		if err := out.Start(); err != nil {
			return nil, err
		}
		return out, nil
	}

	if a.deps.Serial == nil {
		return nil, fmt.Errorf("%w: no serial ports", ErrDeviceNotFound)
	}
	port, err := dmx.OpenPort(a.deps.Serial, dmx.PortConfig{
		Name:       conf.port,
		Baud:       conf.baud,
		MaxChannel: conf.maxChannel,
		Setup:      conf.setup,
		OnSent:     a.sent,
	}, a.log)
	if errors.Is(err, dmx.ErrNoPort) || errors.Is(err, dmx.ErrPortNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
	}
	return port, err
}

// setSink installs sink and returns the previous one.
func (a *OscToDmx) setSink(sink dmx.Sink) dmx.Sink {
	a.sinkMu.Lock()
	defer a.sinkMu.Unlock()
	prev := a.sink
	a.sink = sink
	return prev
}

func (a *OscToDmx) currentSink() dmx.Sink {
	a.sinkMu.Lock()
	defer a.sinkMu.Unlock()
	return a.sink
}

func (a *OscToDmx) translate(_ string, data wire.Values) {
	sink := a.currentSink()
	if sink == nil || !sink.IsOpen() {
		if !a.reconnect() {
			return
		}
		if sink = a.currentSink(); sink == nil {
			return
		}
	}

	frames, err := dmx.Translate(data)
	if errors.Is(err, dmx.ErrMissingField) {
		a.log.Warnf("ignored message: %v", err)
		return
	}
	if err != nil {
		a.fail(err)
		return
	}
	for _, f := range frames {
		if err := sink.WriteFrame(f); err != nil {
			a.fail(fmt.Errorf("write %s: %w", f, err))
			return
		}
	}
	a.SetHasErrors(false)
}

// reconnect cycles the adapter after the output was lost. Concurrent
// callers drop their message instead of cycling again.
func (a *OscToDmx) reconnect() bool {
	if a.Status() != Started || !a.reconnecting.TryLock() {
		return false
	}
	defer a.reconnecting.Unlock()

	a.log.Warn("Incoming OSC but the DMX output is closed, restarting")
	a.Stop()
	if err := a.Start(); err != nil {
		a.fail(err)
		return false
	}
	return true
}
