package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"midi2dmx/internal/settings"
)

// Config структура конфигурации.
type Config struct {
	Logger    LogConf       `toml:"logger"`    // Logger - конфигурация регистратора.
	Telemetry TelemetryConf `toml:"telemetry"` // Telemetry - запись активности адаптеров в InfluxDB.
	Adapters  []AdapterConf `toml:"adapters"`  // Adapters - адаптеры сообщений в порядке запуска.

	md toml.MetaData
}

// LogConf структура конфигурации.
type LogConf struct {
	Level  string `toml:"log-level"` // Level - уровень логирования.
	Format string `toml:"format"`    // Format - text или json.
	Output string `toml:"output"`    // Output - stdout, stderr или путь к файлу.
}

// TelemetryConf структура конфигурации.
type TelemetryConf struct {
	URL    string `toml:"url"`    // URL - адрес InfluxDB, пусто - телеметрия выключена.
	Token  string `toml:"token"`  // Token - токен доступа.
	Org    string `toml:"org"`    // Org - организация.
	Bucket string `toml:"bucket"` // Bucket - корзина для точек.
}

// Enabled reports whether an InfluxDB endpoint is configured.
func (t TelemetryConf) Enabled() bool {
	return t.URL != ""
}

// AdapterConf describes one message adapter. Settings come from the script
// document when set, otherwise from the inline settings table, otherwise the
// adapter kind's defaults apply.
type AdapterConf struct {
	Kind     string                 `toml:"kind"`     // Kind - тип адаптера, например "MIDI to OSC".
	Name     string                 `toml:"name"`     // Name - отображаемое имя, по умолчанию Kind.
	Script   string                 `toml:"script"`   // Script - путь к документу настроек (.js, .yaml, .toml).
	Settings map[string]interface{} `toml:"settings"` // Settings - встроенные настройки.
}

// NewConfig конструктор.
func NewConfig(path string) (*Config, error) {
	// default values
	cfg := Config{
		Logger: LogConf{Level: "info"},
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return &cfg, err
	}
	cfg.md = md

	for i, a := range cfg.Adapters {
		if a.Kind == "" {
			return &cfg, fmt.Errorf("adapter #%d: kind is required", i+1)
		}
	}
	return &cfg, nil
}

// InlineSettings returns the inline settings table of adapter i in document
// order, or null when the adapter has none.
func (c *Config) InlineSettings(i int) settings.Value {
	if i < 0 || i >= len(c.Adapters) || c.Adapters[i].Settings == nil {
		return settings.NullValue()
	}
	return settings.FromTOML(c.md, []string{"adapters", "settings"}, c.Adapters[i].Settings)
}
