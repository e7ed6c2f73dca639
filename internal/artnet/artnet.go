// Package artnet sends fixture frames as DMX universes over Art-Net.
package artnet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Haba1234/go-artnet"
	"midi2dmx/internal/dmx"
	"midi2dmx/internal/logger"
)

var ErrChannelRange = errors.New("DMX channel outside 1..512")

// Sender is the part of the Art-Net controller the output drives.
type Sender interface {
	Start() error
	Stop()
	SendDMXToAddress(data [512]byte, address artnet.Address)
}

// OutputConf describes an Art-Net output.
type OutputConf struct {
	Universe uint16 // Universe: старший байт - Net, младший байт - SubUni.
	CIDR     string // CIDR - сеть Art-Net, по умолчанию DefaultAddressRange.
	OnSent   func()
}

// Output applies frames to one universe and sends the universe in the
// background. Frames arriving faster than the sender are coalesced.
type Output struct {
	logger      *logger.Log
	sender      Sender
	state       *State
	universe    uint16
	onSent      func()
	sendTrigger chan struct{}
	quit        chan struct{}
	done        chan struct{}
	open        atomic.Bool
}

// NewController builds an Art-Net controller on the interface inside the
// configured network.
func NewController(log logger.Logger, cidr string) (*artnet.Controller, error) {
	ip, err := FindArtNetIP(cidr)
	if err != nil {
		return nil, fmt.Errorf("failed to find the art-net IP: %w", err)
	}

	if len(ip) == 0 {
		return nil, errors.New("failed to find the art-net IP: No interface found")
	}

	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve hostname: %w", err)
	}

	host = strings.ToLower(strings.Split(host, ".")[0])
	log.With(logger.Fields{"module": "art-net"}).Infof("Using ArtNet IP %s and hostname %s", ip.String(), host)

	senderLogger := artnet.NewDefaultLogger(log.GetLevel())
	return artnet.NewController(host, ip, senderLogger, artnet.MaxFPS(40)), nil
}

// NewOutput wraps sender. Call Start before writing frames.
func NewOutput(log logger.Logger, sender Sender, cfg OutputConf) *Output {
	if cfg.OnSent == nil {
		cfg.OnSent = func() {}
	}
	return &Output{
		logger:      log.With(logger.Fields{"module": "art-net", "universe": cfg.Universe}),
		sender:      sender,
		state:       NewState(),
		universe:    cfg.Universe,
		onSent:      cfg.OnSent,
		sendTrigger: make(chan struct{}, 1),
	}
}

// Start the ArtNet.
func (c *Output) Start() error {
	if c.open.Load() {
		return nil
	}
	if err := c.sender.Start(); err != nil {
		return fmt.Errorf("failed to start Controller: %w", err)
	}
	c.quit = make(chan struct{})
	c.done = make(chan struct{})
	c.open.Store(true)
	go c.sendBackground()
	if ctrl, ok := c.sender.(*artnet.Controller); ok {
		go c.debugDevices(ctrl)
	}
	return nil
}

func (c *Output) IsOpen() bool { return c.open.Load() }

// WriteFrame stores the frame in the universe and schedules a send.
// Channels are 1-based.
func (c *Output) WriteFrame(f dmx.Frame) error {
	if !c.open.Load() {
		return dmx.ErrClosed
	}
	ch := f.Channel()
	if ch < 1 || ch > len(Universe{}) {
		return fmt.Errorf("%w: %d", ErrChannelRange, ch)
	}
	c.state.SetChannel(c.universe, uint16(ch-1), f.Value())
	c.triggerSend()
	c.onSent()
	return nil
}

// Close stops the ArtNet.
func (c *Output) Close() error {
	if !c.open.Swap(false) {
		return nil
	}
	close(c.quit)
	<-c.done
	c.sender.Stop()
	return nil
}

func (c *Output) triggerSend() {
	select {
	case c.sendTrigger <- struct{}{}:
	default:
	}
}

func (c *Output) sendBackground() {
	defer close(c.done)
	addr := universeToAddress(c.universe)
	for {
		select {
		case <-c.quit:
			return
		case <-c.sendTrigger:
			c.logger.Debugf("DMX. Отправка в контроллер по адресу %v", addr)
			c.sender.SendDMXToAddress(c.state.Universe(c.universe), addr)
		}
	}
}

// universeToAddress converts a dmx universe to art-net address
// universe: старший байт - Net, младший байт - SubUni.
func universeToAddress(universe uint16) artnet.Address {
	v := make([]uint8, 2)
	binary.BigEndian.PutUint16(v, universe)

	return artnet.Address{
		Net:    v[0],
		SubUni: v[1],
	}
}

// NodeToString returns a string representation of the given Node.
func NodeToString(n *artnet.ControlledNode) string {
	var inputs, outputs []string
	for _, p := range n.Node.InputPorts {
		inputs = append(inputs, fmt.Sprintf("%s: %s", p.Address.String(), p.Type.String()))
	}

	for _, p := range n.Node.OutputPorts {
		outputs = append(outputs, fmt.Sprintf("%s: %s", p.Address.String(), p.Type.String()))
	}

	return fmt.Sprintf(
		" | IP=%s name=%q type=%q manufacturer=%q desc=%q inputs=%q outputs=%q",
		n.UDPAddress.String(), n.Node.Name, n.Node.Type,
		n.Node.Manufacturer, n.Node.Description,
		strings.Join(inputs, "; "), strings.Join(outputs, "; "),
	)
}

func (c *Output) debugDevices(ctrl *artnet.Controller) {
	t := time.NewTicker(30 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-c.quit:
			return
		case <-t.C:
			var nodes []string
			for _, n := range ctrl.Nodes {
				nodes = append(nodes, NodeToString(n))
			}
			c.logger.Debugf("Currently %d devices are registered: %v", len(nodes), nodes)
		}
	}
}
