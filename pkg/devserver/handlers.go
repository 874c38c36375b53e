package devserver

import (
	"bytes"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/counsel/pkg/chat"
)

const maxVoiceUpload = 32 << 20

// ErrorResponse is the JSON body of every non-streaming error.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) requireToken(c *fiber.Ctx) error {
	if s.config.Token == "" || c.Path() == "/ping" {
		return c.Next()
	}
	if c.Get(fiber.HeaderAuthorization) != "Bearer "+s.config.Token {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid or missing bearer token"})
	}
	return c.Next()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleChat streams a scripted answer as SSE.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chat.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query is required"})
	}

	s.logger.Debug("chat request",
		"query", req.Query,
		"language", req.Language,
	)

	body := Script(req)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	// io.Pipe gives per-chunk flushing; fasthttp writes each pipe read as
	// its own chunk.
	pr, pw := io.Pipe()
	go s.streamChunks(pw, body)
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// handleVoice accepts a WAV recording and answers with audio. The reply is
// the uploaded recording itself.
func (s *Server) handleVoice(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "file is required"})
	}
	if fh.Size > maxVoiceUpload {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(ErrorResponse{Error: "recording too large"})
	}

	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "unreadable file"})
	}
	defer f.Close()

	audio, err := io.ReadAll(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "unreadable file"})
	}
	if len(audio) < 12 || !bytes.Equal(audio[0:4], []byte("RIFF")) || !bytes.Equal(audio[8:12], []byte("WAVE")) {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(ErrorResponse{Error: "expected a WAV recording"})
	}

	s.logger.Debug("voice request",
		"language", c.FormValue("language"),
		"bytes", len(audio),
	)

	c.Set(fiber.HeaderContentType, "audio/wav")
	return c.Send(audio)
}
