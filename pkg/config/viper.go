package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/counsel/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the COUNSEL_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (COUNSEL_CLIENT_ENDPOINT, COUNSEL_STREAM_IDLE_TIMEOUT, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("COUNSEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Client
	v.SetDefault("client.endpoint", d.Client.Endpoint)
	v.SetDefault("client.voice_endpoint", d.Client.VoiceEndpoint)
	v.SetDefault("client.language", d.Client.Language)
	v.SetDefault("client.profile", d.Client.Profile)

	// Stream
	v.SetDefault("stream.idle_timeout", d.Stream.IdleTimeout)
	v.SetDefault("stream.request_timeout", d.Stream.RequestTimeout)

	// History
	v.SetDefault("history.provider", d.History.Provider)
	v.SetDefault("history.sqlite_path", d.History.SQLitePath)
	v.SetDefault("history.postgres_dsn", d.History.PostgresDSN)

	// Dev server
	v.SetDefault("devserver.listen", d.DevServer.Listen)

	// Events
	v.SetDefault("events.kafka_brokers", d.Events.KafkaBrokers)
	v.SetDefault("events.kafka_topic", d.Events.KafkaTopic)
}
