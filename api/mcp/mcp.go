// Package mcp provides an MCP (Model Context Protocol) server that lets agents
// consult the counsel legal assistant and recall past exchanges.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/counsel/pkg/chat"
	"github.com/papercomputeco/counsel/pkg/history"
	"github.com/papercomputeco/counsel/pkg/history/recorder"
	"github.com/papercomputeco/counsel/pkg/logger"
	"github.com/papercomputeco/counsel/pkg/utils"
)

const defaultLanguage = "en"

// ChatClient sends a question to the backend and waits for the full answer.
// *chat.Client satisfies it.
type ChatClient interface {
	SendMessage(ctx context.Context, content, language string, opts ...chat.SendOption) (*chat.Result, error)
}

type Config struct {
	// Chat answers ask_counsel calls
	Chat ChatClient

	// Language is used when a call doesn't name one (defaults to "en")
	Language string

	// Recorder, when set, persists every completed answer
	Recorder *recorder.Recorder

	// History enables the history_search tool (optional)
	History history.Driver

	Logger *slog.Logger
}

type Server struct {
	config    Config
	logger    *slog.Logger
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the counsel tools.
func NewServer(c Config) (*Server, error) {
	if c.Chat == nil {
		return nil, errors.New("chat client is required")
	}
	if c.Language == "" {
		c.Language = defaultLanguage
	}

	s := &Server{
		config: c,
		logger: logger.OrNop(c.Logger),
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "counsel",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        askToolName,
		Description: askDescription,
	}, s.handleAsk)

	if c.History != nil {
		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        historySearchToolName,
			Description: historySearchDescription,
		}, s.handleHistorySearch)
	}

	s.mcpServer = mcpServer
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves a single session over t until the client disconnects or ctx is
// done.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.mcpServer.Run(ctx, t)
}

// Connect starts a session over t without blocking.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// jsonResult serializes out into a TextContent block alongside the
// structured output.
func jsonResult(out any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}, nil
}
