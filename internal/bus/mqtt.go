package bus

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"midi2dmx/internal/logger"
)

// MQTTConf структура конфигурации клиента.
type MQTTConf struct {
	Broker   string   // Broker - URL брокера, например tcp://localhost:1883.
	ClientID string   // ClientID - уникальное имя клиента для брокеров.
	Topics   []string // Topics - темы для подписки, по умолчанию "#".
}

// MQTT publishes payloads to the topic named by the bus address and turns
// subscribed messages into envelopes.
//
// Incoming messages are handed over one at a time, in arrival order, from a
// goroutine owned by the transport, so a handler may close the transport.
type MQTT struct {
	ctx    context.Context
	log    *logger.Log
	cfg    MQTTConf
	client mqtt.Client

	inbox    chan Envelope
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMQTT конструктор.
func NewMQTT(log logger.Logger, cfg MQTTConf) *MQTT {
	if len(cfg.Topics) == 0 {
		cfg.Topics = []string{"#"}
	}
	return &MQTT{
		ctx: context.Background(),
		log: log.With(logger.Fields{"module": "mqtt"}),
		cfg: cfg,

		inbox: make(chan Envelope, 64),
		stop:  make(chan struct{}),
	}
}

func (c *MQTT) Connect(ctx context.Context) error {
	if c.log.GetLevel() == "debug" {
		mqtt.ERROR = log.New(os.Stdout, "[ERROR] ", 0)
		mqtt.CRITICAL = log.New(os.Stdout, "[CRIT] ", 0)
		mqtt.WARN = log.New(os.Stdout, "[WARN]  ", 0)
	}
	c.ctx = ctx

	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.Broker).
		SetOnConnectHandler(c.connectHandler).
		SetConnectionLostHandler(c.connectLostHandler).
		SetClientID(c.cfg.ClientID).
		SetOrderMatters(true).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	c.client = mqtt.NewClient(opts)

	token := c.client.Connect()
	select {
	case <-token.Done():
		if token.Error() != nil {
			return token.Error()
		}
	case <-ctx.Done():
		return errors.New("context canceled")
	}

	c.log.Infof("Status: %v", c.client.IsConnected())
	return nil
}

func (c *MQTT) Send(address, payload string) error {
	if c.client == nil {
		return errors.New("mqtt: not connected")
	}
	token := c.client.Publish(address, 0, false, payload)
	select {
	case <-token.Done():
		if token.Error() != nil {
			return fmt.Errorf("error publish topic %s: %w", address, token.Error())
		}
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
	return nil
}

// Listen subscribes to every configured topic.
func (c *MQTT) Listen(h Handler) error {
	if c.client == nil {
		return errors.New("mqtt: not connected")
	}
	filters := make(map[string]byte, len(c.cfg.Topics))
	for _, t := range c.cfg.Topics {
		filters[t] = 0
	}
	go c.deliver(h)
	token := c.client.SubscribeMultiple(filters, func(_ mqtt.Client, msg mqtt.Message) {
		c.log.Debugf("received message: %s from topic: %s", msg.Payload(), msg.Topic())
		c.enqueue(Envelope{Address: msg.Topic(), Args: []interface{}{string(msg.Payload())}})
	})
	select {
	case <-token.Done():
		if token.Error() != nil {
			return fmt.Errorf("topics %v subscription error: %w", c.cfg.Topics, token.Error())
		}
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
	c.log.Debugf("topics %v subscribed", c.cfg.Topics)
	return nil
}

// enqueue runs on the paho router goroutine and gives up once the transport
// is closed.
func (c *MQTT) enqueue(e Envelope) {
	select {
	case c.inbox <- e:
	case <-c.stop:
	}
}

func (c *MQTT) deliver(h Handler) {
	for {
		select {
		case <-c.stop:
			return
		case e := <-c.inbox:
			h(e)
		}
	}
}

func (c *MQTT) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(500)
	}
	return nil
}

func (c *MQTT) connectHandler(_ mqtt.Client) {
	c.log.Info("client connected to server")
}

func (c *MQTT) connectLostHandler(_ mqtt.Client, err error) {
	c.log.Errorf("server connect lost: %v", err)
}
