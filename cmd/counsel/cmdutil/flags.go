// Package cmdutil holds the wiring shared by counsel commands: the flag
// registry, the viper-backed environment, client construction and output
// helpers.
package cmdutil

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/counsel/pkg/config"
)

// Flags is the registry of flags shared across commands.
var Flags = config.FlagSet{
	config.FlagEndpoint: {
		Name:        "endpoint",
		Shorthand:   "e",
		ViperKey:    "client.endpoint",
		Description: "Streaming chat endpoint URL",
	},
	config.FlagVoiceEndpoint: {
		Name:        "voice-endpoint",
		ViperKey:    "client.voice_endpoint",
		Description: "Voice API base URL (requests go to <url>/voice-query)",
	},
	config.FlagLanguage: {
		Name:        "language",
		Shorthand:   "l",
		ViperKey:    "client.language",
		Description: "Answer language code (e.g. en, cs)",
	},
	config.FlagProfile: {
		Name:        "profile",
		ViperKey:    "client.profile",
		Description: "Credentials profile whose token is sent",
	},
	config.FlagIdleTimeout: {
		Name:        "idle-timeout",
		ViperKey:    "stream.idle_timeout",
		Description: "Fail when the stream is silent this long (0 disables)",
	},
	config.FlagRequestTimeout: {
		Name:        "request-timeout",
		ViperKey:    "stream.request_timeout",
		Description: "Overall limit for one request",
	},
	config.FlagHistory: {
		Name:        "history",
		ViperKey:    "history.provider",
		Description: "History store: sqlite, postgres, memory or none",
	},
	config.FlagSQLite: {
		Name:        "sqlite",
		ViperKey:    "history.sqlite_path",
		Description: "Path to the SQLite history database",
	},
	config.FlagPostgres: {
		Name:        "postgres",
		ViperKey:    "history.postgres_dsn",
		Description: "PostgreSQL DSN for the history store",
	},
	config.FlagListen: {
		Name:        "listen",
		ViperKey:    "devserver.listen",
		Description: "Address for the dev server to listen on",
	},
}

// ClientFlagKeys are the flags of commands that talk to the chat endpoint.
var ClientFlagKeys = []string{
	config.FlagEndpoint,
	config.FlagLanguage,
	config.FlagProfile,
	config.FlagIdleTimeout,
	config.FlagRequestTimeout,
}

// HistoryFlagKeys are the flags selecting the history store.
var HistoryFlagKeys = []string{
	config.FlagHistory,
	config.FlagSQLite,
	config.FlagPostgres,
}

// ClientFlags hold the values of the client flag group. Values are read back
// through viper, so the fields only serve as flag targets.
type ClientFlags struct {
	Endpoint       string
	Language       string
	Profile        string
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// AddClientFlags registers the client flag group on cmd.
func AddClientFlags(cmd *cobra.Command, f *ClientFlags) {
	config.AddStringFlag(cmd, Flags, config.FlagEndpoint, &f.Endpoint)
	config.AddStringFlag(cmd, Flags, config.FlagLanguage, &f.Language)
	config.AddStringFlag(cmd, Flags, config.FlagProfile, &f.Profile)
	config.AddDurationFlag(cmd, Flags, config.FlagIdleTimeout, &f.IdleTimeout)
	config.AddDurationFlag(cmd, Flags, config.FlagRequestTimeout, &f.RequestTimeout)
}

// HistoryFlags hold the values of the history flag group.
type HistoryFlags struct {
	Provider string
	SQLite   string
	Postgres string
}

// AddHistoryFlags registers the history flag group on cmd.
func AddHistoryFlags(cmd *cobra.Command, f *HistoryFlags) {
	config.AddStringFlag(cmd, Flags, config.FlagHistory, &f.Provider)
	config.AddStringFlag(cmd, Flags, config.FlagSQLite, &f.SQLite)
	config.AddStringFlag(cmd, Flags, config.FlagPostgres, &f.Postgres)
}

// ClientAndHistoryFlagKeys returns the registry keys of both flag groups.
func ClientAndHistoryFlagKeys() []string {
	keys := make([]string, 0, len(ClientFlagKeys)+len(HistoryFlagKeys))
	keys = append(keys, ClientFlagKeys...)
	return append(keys, HistoryFlagKeys...)
}
