package cmdutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/counsel/pkg/chat"
	"github.com/papercomputeco/counsel/pkg/config"
	"github.com/papercomputeco/counsel/pkg/credentials"
	"github.com/papercomputeco/counsel/pkg/dotdir"
	"github.com/papercomputeco/counsel/pkg/eventstream"
	"github.com/papercomputeco/counsel/pkg/eventstream/kafka"
	"github.com/papercomputeco/counsel/pkg/history"
	"github.com/papercomputeco/counsel/pkg/history/inmemory"
	"github.com/papercomputeco/counsel/pkg/history/postgres"
	"github.com/papercomputeco/counsel/pkg/history/recorder"
	"github.com/papercomputeco/counsel/pkg/history/sqlite"
	"github.com/papercomputeco/counsel/pkg/logger"
	"github.com/papercomputeco/counsel/pkg/voice"
)

const historyFile = "history.sqlite"

// Env is the resolved configuration of one command invocation.
type Env struct {
	ConfigDir string
	Debug     bool
	Viper     *viper.Viper
	Logger    *slog.Logger
}

// Load resolves config for cmd: it reads the global flags, initializes viper
// and binds the registered flags in keys.
func Load(cmd *cobra.Command, keys ...string) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, Flags, keys)

	return &Env{
		ConfigDir: configDir,
		Debug:     debug,
		Viper:     v,
		Logger: logger.New(
			logger.WithDebug(debug),
			logger.WithPretty(true),
			logger.WithWriter(os.Stderr),
		),
	}, nil
}

// Token resolves the bearer token for the configured profile.
func (e *Env) Token() (string, error) {
	mgr, err := credentials.NewManager(e.ConfigDir)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}
	return mgr.ResolveToken(e.Viper.GetString("client.profile"))
}

// Language returns the configured answer language.
func (e *Env) Language() string {
	return e.Viper.GetString("client.language")
}

// ChatClient builds a chat client from the resolved config.
func (e *Env) ChatClient() (*chat.Client, error) {
	token, err := e.Token()
	if err != nil {
		return nil, err
	}

	return chat.NewClient(chat.Config{
		Endpoint:       e.Viper.GetString("client.endpoint"),
		AuthToken:      token,
		IdleTimeout:    e.Viper.GetDuration("stream.idle_timeout"),
		RequestTimeout: e.Viper.GetDuration("stream.request_timeout"),
		Logger:         e.Logger,
	})
}

// VoiceClient builds a voice client from the resolved config.
func (e *Env) VoiceClient() (*voice.Client, error) {
	token, err := e.Token()
	if err != nil {
		return nil, err
	}

	return voice.NewClient(voice.Config{
		Endpoint:   e.Viper.GetString("client.voice_endpoint"),
		AuthToken:  token,
		HTTPClient: e.httpClient(),
		Logger:     e.Logger,
	})
}

// HistoryDriver opens the configured history store. It returns a nil driver
// when history is disabled.
func (e *Env) HistoryDriver(ctx context.Context) (history.Driver, error) {
	provider := e.Viper.GetString("history.provider")

	switch provider {
	case config.HistoryNone:
		e.Logger.Debug("history disabled")
		return nil, nil

	case config.HistoryMemory:
		e.Logger.Debug("using in-memory history")
		return inmemory.NewDriver(), nil

	case config.HistoryPostgres:
		dsn := e.Viper.GetString("history.postgres_dsn")
		if dsn == "" {
			return nil, fmt.Errorf("history.postgres_dsn is required for the %q history provider", provider)
		}
		driver, err := postgres.NewDriver(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL history: %w", err)
		}
		e.Logger.Debug("using PostgreSQL history")
		return driver, nil

	case config.HistorySQLite, "":
		path := e.Viper.GetString("history.sqlite_path")
		if path == "" {
			var err error
			path, err = dotdir.NewManager().Path(e.ConfigDir, historyFile)
			if err != nil {
				return nil, fmt.Errorf("resolving history path: %w", err)
			}
		}
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite history: %w", err)
		}
		e.Logger.Debug("using SQLite history", "path", path)
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown history provider: %q", provider)
	}
}

// httpClient returns an HTTP client bounded by the request timeout. A zero
// timeout leaves requests unbounded.
func (e *Env) httpClient() *http.Client {
	return &http.Client{Timeout: e.Viper.GetDuration("stream.request_timeout")}
}

// Recorder opens the configured history store and starts a recorder on it.
// The returned close function drains the recorder and closes the store. Both
// are no-ops when history is disabled.
func (e *Env) Recorder(ctx context.Context) (*recorder.Recorder, func(), error) {
	driver, err := e.HistoryDriver(ctx)
	if err != nil {
		return nil, nil, err
	}
	if driver == nil {
		return nil, func() {}, nil
	}

	rec, stop, err := e.StartRecorder(driver)
	if err != nil {
		_ = driver.Close()
		return nil, nil, err
	}

	return rec, func() {
		stop()
		if err := driver.Close(); err != nil {
			e.Logger.Debug("closing history store", "error", err)
		}
	}, nil
}

// StartRecorder starts a recorder writing to driver, publishing events when
// events.kafka_brokers is set. The returned stop function drains the recorder
// and closes the publisher but leaves driver open.
func (e *Env) StartRecorder(driver history.Driver) (*recorder.Recorder, func(), error) {
	publisher, err := e.Publisher()
	if err != nil {
		return nil, nil, err
	}

	rec, err := recorder.New(&recorder.Config{
		Driver:    driver,
		Publisher: publisher,
		Logger:    e.Logger,
	})
	if err != nil {
		if publisher != nil {
			_ = publisher.Close()
		}
		return nil, nil, err
	}

	return rec, func() {
		rec.Close()
		if publisher == nil {
			return
		}
		if err := publisher.Close(); err != nil {
			e.Logger.Warn("closing event publisher", "error", err)
		}
	}, nil
}

// Publisher builds the exchange event publisher. It returns nil when no
// Kafka brokers are configured.
func (e *Env) Publisher() (eventstream.Publisher, error) {
	brokers := kafka.ParseBrokers(e.Viper.GetString("events.kafka_brokers"))
	if len(brokers) == 0 {
		return nil, nil
	}

	publisher, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   e.Viper.GetString("events.kafka_topic"),
		Logger:  e.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}
	e.Logger.Debug("publishing exchange events", "brokers", brokers)
	return publisher, nil
}
