package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/counsel/pkg/chat"
	"github.com/papercomputeco/counsel/pkg/history"
)

var (
	askToolName    = "ask_counsel"
	askDescription = "Ask the counsel legal assistant a question. Waits for the complete streamed answer and returns it with the cited legal sources and suggested follow-up questions."
)

// AskInput represents the input arguments for the ask_counsel tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the legal question to ask"`
	Language string `json:"language,omitempty" jsonschema:"answer language code, e.g. en or cs"`
}

// AskOutput is the completed answer.
type AskOutput struct {
	SessionID          string        `json:"session_id"`
	Answer             string        `json:"answer"`
	Sources            []chat.Source `json:"sources"`
	SuggestedQuestions []string      `json:"suggested_questions"`
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return errorResult("question is required"), emptyAskOutput(), nil
	}

	language := input.Language
	if language == "" {
		language = s.config.Language
	}

	s.logger.Debug("MCP ask request", "language", language, "question_len", len(question))

	result, err := s.config.Chat.SendMessage(ctx, question, language)
	if err != nil {
		s.logger.Warn("ask failed", "error", err)

		var partial *chat.PartialError
		if errors.As(err, &partial) && partial.Text != "" {
			return errorResult("Answer was cut off (%v). Partial answer:\n%s", err, partial.Text), emptyAskOutput(), nil
		}
		return errorResult("Ask failed: %v", err), emptyAskOutput(), nil
	}

	if s.config.Recorder != nil {
		s.config.Recorder.Record(history.NewExchange(question, language, result))
	}

	output := emptyAskOutput()
	output.SessionID = result.SessionID
	output.Answer = result.Answer()
	if result.Sources != nil {
		output.Sources = result.Sources
	}
	if result.SuggestedQuestions != nil {
		output.SuggestedQuestions = result.SuggestedQuestions
	}

	res, err := jsonResult(output)
	if err != nil {
		return errorResult("Failed to serialize answer: %v", err), emptyAskOutput(), nil
	}
	return res, output, nil
}

// emptyAskOutput has non-nil lists so it validates against the output schema,
// which types them as arrays, on error results too.
func emptyAskOutput() AskOutput {
	return AskOutput{
		Sources:            []chat.Source{},
		SuggestedQuestions: []string{},
	}
}
