package config

import "time"

// History providers accepted by history.provider.
const (
	HistorySQLite   = "sqlite"
	HistoryPostgres = "postgres"
	HistoryMemory   = "memory"
	HistoryNone     = "none"
)

const (
	defaultEndpoint      = "http://localhost:8000/api/chat"
	defaultVoiceEndpoint = "http://localhost:8000/api"
	defaultLanguage      = "en"
	defaultProfile       = "default"

	defaultIdleTimeout    = 60 * time.Second
	defaultRequestTimeout = 5 * time.Minute

	defaultHistoryProvider = HistorySQLite

	defaultDevServerListen = ":8000"

	defaultKafkaTopic = "counsel.exchanges"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			Endpoint:      defaultEndpoint,
			VoiceEndpoint: defaultVoiceEndpoint,
			Language:      defaultLanguage,
			Profile:       defaultProfile,
		},
		Stream: StreamConfig{
			IdleTimeout:    defaultIdleTimeout.String(),
			RequestTimeout: defaultRequestTimeout.String(),
		},
		History: HistoryConfig{
			Provider: defaultHistoryProvider,
		},
		DevServer: DevServerConfig{
			Listen: defaultDevServerListen,
		},
		Events: EventsConfig{
			KafkaTopic: defaultKafkaTopic,
		},
	}
}
