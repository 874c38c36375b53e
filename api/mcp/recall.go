package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/counsel/pkg/chat"
)

var (
	historySearchToolName    = "history_search"
	historySearchDescription = "Search previously answered counsel questions. Matches the query case-insensitively against stored questions and answers and returns the newest matches first. An empty query returns the most recent exchanges."
)

const defaultHistoryLimit = 5

// HistorySearchInput represents the input arguments for the history_search tool.
type HistorySearchInput struct {
	Query string `json:"query,omitempty" jsonschema:"text to look for in past questions and answers"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of exchanges to return (default: 5)"`
}

// HistoryResult is a single stored exchange. CreatedAt is RFC 3339.
type HistoryResult struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	Question  string        `json:"question"`
	Answer    string        `json:"answer"`
	Language  string        `json:"language"`
	Sources   []chat.Source `json:"sources"`
	CreatedAt string        `json:"created_at"`
}

// HistorySearchOutput represents the output of the history_search tool.
type HistorySearchOutput struct {
	Query   string          `json:"query"`
	Results []HistoryResult `json:"results"`
	Count   int             `json:"count"`
}

func (s *Server) handleHistorySearch(ctx context.Context, _ *mcp.CallToolRequest, input HistorySearchInput) (*mcp.CallToolResult, HistorySearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	exchanges, err := s.config.History.List(ctx, 0)
	if err != nil {
		s.logger.Error("failed to list history", "error", err)
		return errorResult("Failed to read history: %v", err), emptySearchOutput(input.Query), nil
	}

	needle := strings.ToLower(strings.TrimSpace(input.Query))
	results := make([]HistoryResult, 0, min(limit, len(exchanges)))
	for _, ex := range exchanges {
		if len(results) == limit {
			break
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(ex.Question), needle) &&
			!strings.Contains(strings.ToLower(ex.Answer), needle) {
			continue
		}

		sources := ex.Sources
		if sources == nil {
			sources = []chat.Source{}
		}
		results = append(results, HistoryResult{
			ID:        ex.ID,
			SessionID: ex.SessionID,
			Question:  ex.Question,
			Answer:    ex.Answer,
			Language:  ex.Language,
			Sources:   sources,
			CreatedAt: ex.CreatedAt.Format(time.RFC3339),
		})
	}

	output := HistorySearchOutput{
		Query:   input.Query,
		Results: results,
		Count:   len(results),
	}

	res, err := jsonResult(output)
	if err != nil {
		return errorResult("Failed to serialize results: %v", err), emptySearchOutput(input.Query), nil
	}
	return res, output, nil
}

func emptySearchOutput(query string) HistorySearchOutput {
	return HistorySearchOutput{Query: query, Results: []HistoryResult{}}
}
