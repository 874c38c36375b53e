package config

import (
	"fmt"
	"time"
)

// Config represents the persistent counsel configuration stored as
// config.toml in the .counsel/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Client    ClientConfig    `toml:"client"`
	Stream    StreamConfig    `toml:"stream"`
	History   HistoryConfig   `toml:"history"`
	DevServer DevServerConfig `toml:"devserver"`
	Events    EventsConfig    `toml:"events"`
}

// ClientConfig holds the backend endpoints and request defaults used by the
// ask, chat and voice commands. Endpoints are full URLs.
type ClientConfig struct {
	Endpoint      string `toml:"endpoint,omitempty"`
	VoiceEndpoint string `toml:"voice_endpoint,omitempty"`
	Language      string `toml:"language,omitempty"`
	Profile       string `toml:"profile,omitempty"`
}

// StreamConfig holds streaming timeouts as Go duration strings ("60s", "5m").
type StreamConfig struct {
	IdleTimeout    string `toml:"idle_timeout,omitempty"`
	RequestTimeout string `toml:"request_timeout,omitempty"`
}

// HistoryConfig selects the transcript store.
type HistoryConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// DevServerConfig holds settings for the local mock backend.
type DevServerConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventsConfig configures publishing of recorded exchanges. Publishing is
// off while KafkaBrokers is empty.
type EventsConfig struct {
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.endpoint": {
		get: func(c *Config) string { return c.Client.Endpoint },
		set: func(c *Config, v string) error { c.Client.Endpoint = v; return nil },
	},
	"client.voice_endpoint": {
		get: func(c *Config) string { return c.Client.VoiceEndpoint },
		set: func(c *Config, v string) error { c.Client.VoiceEndpoint = v; return nil },
	},
	"client.language": {
		get: func(c *Config) string { return c.Client.Language },
		set: func(c *Config, v string) error { c.Client.Language = v; return nil },
	},
	"client.profile": {
		get: func(c *Config) string { return c.Client.Profile },
		set: func(c *Config, v string) error { c.Client.Profile = v; return nil },
	},
	"stream.idle_timeout": {
		get: func(c *Config) string { return c.Stream.IdleTimeout },
		set: func(c *Config, v string) error {
			if err := validateDuration("stream.idle_timeout", v); err != nil {
				return err
			}
			c.Stream.IdleTimeout = v
			return nil
		},
	},
	"stream.request_timeout": {
		get: func(c *Config) string { return c.Stream.RequestTimeout },
		set: func(c *Config, v string) error {
			if err := validateDuration("stream.request_timeout", v); err != nil {
				return err
			}
			c.Stream.RequestTimeout = v
			return nil
		},
	},
	"history.provider": {
		get: func(c *Config) string { return c.History.Provider },
		set: func(c *Config, v string) error {
			switch v {
			case HistorySQLite, HistoryPostgres, HistoryMemory, HistoryNone:
			default:
				return fmt.Errorf("invalid value for history.provider: %q (available: sqlite, postgres, memory, none)", v)
			}
			c.History.Provider = v
			return nil
		},
	},
	"history.sqlite_path": {
		get: func(c *Config) string { return c.History.SQLitePath },
		set: func(c *Config, v string) error { c.History.SQLitePath = v; return nil },
	},
	"history.postgres_dsn": {
		get: func(c *Config) string { return c.History.PostgresDSN },
		set: func(c *Config, v string) error { c.History.PostgresDSN = v; return nil },
	},
	"devserver.listen": {
		get: func(c *Config) string { return c.DevServer.Listen },
		set: func(c *Config, v string) error { c.DevServer.Listen = v; return nil },
	},
	"events.kafka_brokers": {
		get: func(c *Config) string { return c.Events.KafkaBrokers },
		set: func(c *Config, v string) error { c.Events.KafkaBrokers = v; return nil },
	},
	"events.kafka_topic": {
		get: func(c *Config) string { return c.Events.KafkaTopic },
		set: func(c *Config, v string) error { c.Events.KafkaTopic = v; return nil },
	},
}

func validateDuration(key, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if d < 0 {
		return fmt.Errorf("invalid value for %s: must not be negative", key)
	}
	return nil
}
