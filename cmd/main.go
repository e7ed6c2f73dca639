package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"midi2dmx/internal/adapter"
	"midi2dmx/internal/artnet"
	"midi2dmx/internal/bus"
	"midi2dmx/internal/config"
	"midi2dmx/internal/dmx"
	"midi2dmx/internal/logger"
	"midi2dmx/internal/midi"
	"midi2dmx/internal/runtime"
	"midi2dmx/internal/script"
	"midi2dmx/internal/settings"
	"midi2dmx/internal/telemetry"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "configs/conf.toml", "Path to configuration file")
}

func main() {
	flag.Parse()
	cfg, err := config.NewConfig(configFile)
	if err != nil {
		fmt.Printf("configuration file read error: %v", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Printf("failed to create a logger: %v", err)
		os.Exit(1)
	}

	log.With(logger.Fields{"module": "logger"}).Debug("newLogger created ok")

	counter := telemetry.NewCounter()
	observers := telemetry.Multi{counter}
	if cfg.Telemetry.Enabled() {
		influx := telemetry.NewInflux(cfg.Telemetry, log)
		defer influx.Close()
		observers = append(observers, influx)
	}

	engine := script.New(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps := adapter.Deps{
		Log:    log,
		Serial: dmx.SerialOpener{},
		Bus: func(ep bus.Endpoint) (bus.Transport, error) {
			return bus.Open(ctx, ep, log)
		},
		ArtNet: func(cidr string) (artnet.Sender, error) {
			return artnet.NewController(log, cidr)
		},
		Observer: observers,
	}

	drv, err := midi.NewRtDriver(log)
	if err != nil {
		log.With(logger.Fields{"module": "midi"}).Errorf("MIDI input is unavailable: %v", err)
	} else {
		defer drv.Close()
		deps.MIDI = drv
	}

	rt := runtime.New(log, deps)
	loadAdapters(rt, cfg, engine, log)

	if err = rt.Start(); err != nil {
		log.Warn("some adapters failed to start")
	}

	// SIGHUP перечитывает конфигурацию.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case <-hup:
			reload(rt, engine, log)
		}
	}

	rt.Stop()

	for id, c := range counter.Snapshot() {
		log.Infof("#%d %s: received %d, sent %d", id, c.Name, c.Received, c.Sent)
	}
	log.Info("shutdown complete")
}

// loadAdapters registers the configured adapters. An adapter whose settings
// cannot be loaded is skipped.
func loadAdapters(rt *runtime.Runtime, cfg *config.Config, engine *script.Engine, log *logger.Log) {
	if len(cfg.Adapters) == 0 {
		log.Warn("no adapters configured")
	}
	for i, a := range cfg.Adapters {
		doc := cfg.InlineSettings(i)
		if a.Script != "" {
			v, err := settings.LoadFile(a.Script, engine.Eval)
			if err != nil {
				log.Errorf("adapter %s: %v", a.Kind, err)
				continue
			}
			doc = v
		}
		if _, err := rt.Add(a.Kind, a.Name, doc); err != nil {
			log.Errorf("adapter %s: %v", a.Kind, err)
		}
	}
}

func reload(rt *runtime.Runtime, engine *script.Engine, log *logger.Log) {
	cfg, err := config.NewConfig(configFile)
	if err != nil {
		log.Errorf("reload: configuration file read error: %v", err)
		return
	}
	log.Info("reloading adapters")
	rt.Stop()
	rt.Clear()
	loadAdapters(rt, cfg, engine, log)
	if err := rt.Start(); err != nil {
		log.Warn("some adapters failed to start")
	}
}
