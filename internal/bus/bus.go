// Package bus carries wire payloads between adapters over an addressable
// message bus. OSC over UDP is the default transport, MQTT the alternative.
package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"midi2dmx/internal/logger"
)

var ErrUnknownTransport = errors.New("unknown bus transport")

// Envelope is one received bus message.
type Envelope struct {
	Address string
	Args    []interface{}
}

// Handler receives envelopes on the transport's goroutine.
type Handler func(Envelope)

// Transport sends payloads as the single string argument of a message and
// delivers incoming messages to a handler.
type Transport interface {
	Send(address, payload string) error
	Listen(h Handler) error
	Close() error
}

// Endpoint selects and addresses a transport.
type Endpoint struct {
	Kind     string // osc или mqtt.
	Host     string
	Port     int
	Broker   string   // Broker - URL брокера MQTT, например tcp://localhost:1883.
	ClientID string   // ClientID - уникальное имя клиента для брокера.
	Topics   []string // Topics - подписки MQTT.
}

func (e Endpoint) String() string {
	if strings.EqualFold(e.Kind, "mqtt") {
		return e.Broker
	}
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Open returns a transport for ep. MQTT connects before returning.
func Open(ctx context.Context, ep Endpoint, log logger.Logger) (Transport, error) {
	switch strings.ToLower(ep.Kind) {
	case "", "osc":
		return NewOSC(ep.Host, ep.Port, log), nil
	case "mqtt":
		t := NewMQTT(log, MQTTConf{Broker: ep.Broker, ClientID: ep.ClientID, Topics: ep.Topics})
		if err := t.Connect(ctx); err != nil {
			return nil, fmt.Errorf("mqtt %s: %w", ep.Broker, err)
		}
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, ep.Kind)
}
