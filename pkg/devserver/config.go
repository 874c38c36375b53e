// Package devserver is a local stand-in for the counsel backend. It speaks
// the same SSE chat protocol and voice endpoint so the CLI can be exercised
// without network access.
package devserver

import "time"

const (
	DefaultChatPath  = "/api/chat"
	DefaultVoicePath = "/api/voice-query"

	defaultChunkSize = 7
)

// Config is the dev server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string

	// ChatPath and VoicePath default to DefaultChatPath and DefaultVoicePath.
	ChatPath  string
	VoicePath string

	// ChunkSize is the number of bytes written per flush of the SSE body.
	// Small odd sizes split events and multi-byte characters across writes.
	ChunkSize int

	// Delay is slept between chunks.
	Delay time.Duration

	// Token, when set, is required as a bearer token on every request.
	Token string
}

func (c Config) withDefaults() Config {
	if c.ChatPath == "" {
		c.ChatPath = DefaultChatPath
	}
	if c.VoicePath == "" {
		c.VoicePath = DefaultVoicePath
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	return c
}
