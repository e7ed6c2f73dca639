package bus

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/hypebeast/go-osc/osc"
	"midi2dmx/internal/logger"
)

// OSC sends to and listens on one UDP endpoint.
type OSC struct {
	host string
	port int
	log  *logger.Log

	client *osc.Client

	mu   sync.Mutex
	conn net.PacketConn
}

func NewOSC(host string, port int, log logger.Logger) *OSC {
	return &OSC{
		host:   host,
		port:   port,
		log:    log.With(logger.Fields{"module": "osc"}),
		client: osc.NewClient(host, port),
	}
}

func (o *OSC) Send(address, payload string) error {
	msg := osc.NewMessage(address)
	msg.Append(payload)
	if err := o.client.Send(msg); err != nil {
		return fmt.Errorf("osc send %s: %w", address, err)
	}
	return nil
}

// Listen binds the endpoint and serves incoming packets until Close.
func (o *OSC) Listen(h Handler) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.conn != nil {
		return errors.New("osc: already listening")
	}

	conn, err := net.ListenPacket("udp", net.JoinHostPort(o.host, strconv.Itoa(o.port)))
	if err != nil {
		return fmt.Errorf("osc listen: %w", err)
	}
	o.conn = conn

	go o.serve(conn, dispatcher(h))
	o.log.Infof("Started listening for OSC input events on: %s", conn.LocalAddr())
	return nil
}

// serve delivers packets in arrival order on a single goroutine.
func (o *OSC) serve(conn net.PacketConn, d dispatcher) {
	buf := make([]byte, 65535)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				o.log.Errorf("server stopped: %v", err)
			}
			return
		}
		packet, err := osc.ParsePacket(string(buf[:n]))
		if err != nil {
			o.log.Warnf("malformed packet: %v", err)
			continue
		}
		d.Dispatch(packet)
	}
}

// Addr is the bound listen address, or nil before Listen.
func (o *OSC) Addr() net.Addr {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.conn == nil {
		return nil
	}
	return o.conn.LocalAddr()
}

func (o *OSC) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.conn == nil {
		return nil
	}
	err := o.conn.Close()
	o.log.Infof("Stopped listening for OSC input events on: %s", o.conn.LocalAddr())
	o.conn = nil
	return err
}

// dispatcher hands every message, bundled or not, to the handler. It
// satisfies osc.Dispatcher.
type dispatcher Handler

func (d dispatcher) Dispatch(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Message:
		d(Envelope{Address: p.Address, Args: p.Arguments})
	case *osc.Bundle:
		for _, m := range p.Messages {
			d.Dispatch(m)
		}
		for _, b := range p.Bundles {
			d.Dispatch(b)
		}
	}
}
