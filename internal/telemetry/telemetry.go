// Package telemetry records adapter activity.
package telemetry

import (
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"midi2dmx/internal/adapter"
	"midi2dmx/internal/config"
	"midi2dmx/internal/logger"
)

const measurement = "adapter_messages"

type pointWriter interface {
	WritePoint(point *write.Point)
}

// Influx writes one point per received or sent message.
type Influx struct {
	log    *logger.Log
	client influxdb2.Client
	writer pointWriter
}

// NewInflux connects the non-blocking write API and logs its errors.
func NewInflux(cfg config.TelemetryConf, log logger.Logger) *Influx {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	i := &Influx{
		log:    log.With(logger.Fields{"module": "telemetry"}),
		client: client,
		writer: writeAPI,
	}
	go func() {
		for err := range writeAPI.Errors() {
			i.log.Warnf("influxdb write: %v", err)
		}
	}()
	i.log.Infof("writing adapter activity to %s, bucket %s", cfg.URL, cfg.Bucket)
	return i
}

func (i *Influx) MessageReceived(s *adapter.State) { i.write(s, "received") }

func (i *Influx) MessageSent(s *adapter.State) { i.write(s, "sent") }

func (i *Influx) write(s *adapter.State, direction string) {
	p := influxdb2.NewPoint(measurement,
		map[string]string{
			"id":        strconv.Itoa(s.ID()),
			"kind":      s.Kind(),
			"adapter":   s.Name(),
			"direction": direction,
		},
		map[string]interface{}{"count": 1},
		time.Now())
	i.writer.WritePoint(p)
}

// Close flushes pending points.
func (i *Influx) Close() {
	if i.client == nil {
		return
	}
	i.client.Close()
}

// Counter keeps per-adapter message totals.
type Counter struct {
	mu     sync.Mutex
	counts map[int]*Counts
}

// Counts are the totals of one adapter.
type Counts struct {
	Name     string
	Received int
	Sent     int
}

func NewCounter() *Counter {
	return &Counter{counts: map[int]*Counts{}}
}

func (c *Counter) entry(s *adapter.State) *Counts {
	e, ok := c.counts[s.ID()]
	if !ok {
		e = &Counts{Name: s.Name()}
		c.counts[s.ID()] = e
	}
	return e
}

func (c *Counter) MessageReceived(s *adapter.State) {
	c.mu.Lock()
	c.entry(s).Received++
	c.mu.Unlock()
}

func (c *Counter) MessageSent(s *adapter.State) {
	c.mu.Lock()
	c.entry(s).Sent++
	c.mu.Unlock()
}

// Snapshot returns a copy of the totals keyed by adapter id.
func (c *Counter) Snapshot() map[int]Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]Counts, len(c.counts))
	for id, e := range c.counts {
		out[id] = *e
	}
	return out
}

// Multi fans notifications out to every observer.
type Multi []adapter.Observer

func (m Multi) MessageReceived(s *adapter.State) {
	for _, o := range m {
		o.MessageReceived(s)
	}
}

func (m Multi) MessageSent(s *adapter.State) {
	for _, o := range m {
		o.MessageSent(s)
	}
}
