package devserver

import (
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/counsel/pkg/logger"
)

// Server is the local mock backend.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new dev server.
func NewServer(config Config, log *slog.Logger) *Server {
	config = config.withDefaults()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger.OrNop(log),
		app:    app,
	}

	app.Use(s.requireToken)
	app.Get("/ping", s.handlePing)
	app.Post(config.ChatPath, s.handleChat)
	app.Post(config.VoicePath, s.handleVoice)

	return s
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting dev server",
		"listen", s.config.ListenAddr,
		"chat_path", s.config.ChatPath,
		"voice_path", s.config.VoicePath,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting dev server", "listen", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// streamChunks writes body to pw in ChunkSize pieces, sleeping Delay between
// them, and stops early if the client goes away.
func (s *Server) streamChunks(pw *io.PipeWriter, body []byte) {
	defer pw.Close()

	size := s.config.ChunkSize
	for len(body) > 0 {
		n := min(size, len(body))
		if _, err := pw.Write(body[:n]); err != nil {
			s.logger.Debug("client stopped reading", "error", err)
			return
		}
		body = body[n:]
		if s.config.Delay > 0 && len(body) > 0 {
			time.Sleep(s.config.Delay)
		}
	}
}
