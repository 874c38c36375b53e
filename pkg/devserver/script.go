package devserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/papercomputeco/counsel/pkg/chat"
)

// Markers in a query that change the scripted reply.
const (
	MarkerError    = "[error]"
	MarkerTruncate = "[truncate]"
)

// ScriptedErrorMessage is sent in the error event for MarkerError queries.
const ScriptedErrorMessage = "scripted failure"

var scriptedSources = map[string][]chat.Source{
	"cs": {
		{Source: "Občanský zákoník", ArticleNumber: "2"},
		{Source: "Zákoník práce", ArticleNumber: "52"},
	},
	"en": {
		{Source: "Civil Code", ArticleNumber: "2"},
		{Source: "Labour Code", ArticleNumber: "52"},
	},
}

var scriptedSuggestions = map[string][]string{
	"cs": {"Jaké mám lhůty?", "Kdo nese náklady řízení?"},
	"en": {"What deadlines apply?", "Who bears the costs?"},
}

var answerPrefix = map[string]string{
	"cs": "Na váš dotaz „%s“ odpovídám: záleží na okolnostech.",
	"en": "Regarding “%s”: it depends on the circumstances.",
}

// Script renders the full SSE body the server streams for req.
func Script(req chat.Request) []byte {
	lang := scriptLanguage(req.Language)

	var buf bytes.Buffer
	writeEvent(&buf, chat.EventSessionID, chat.SessionPayload{ID: uuid.NewString()})

	words := strings.SplitAfter(ScriptedAnswer(req), " ")

	// The first half of the answer carries the sources.
	half := len(words) / 2
	for i, w := range words[:half] {
		payload := chat.MessagePayload{Text: w}
		if i == 0 {
			payload.Sources = scriptedSources[lang]
		}
		writeEvent(&buf, chat.EventMessage, payload)
	}

	if strings.Contains(req.Query, MarkerError) {
		writeEvent(&buf, chat.EventError, chat.ErrorPayload{Message: ScriptedErrorMessage})
		return buf.Bytes()
	}

	for _, w := range words[half:] {
		writeEvent(&buf, chat.EventMessage, chat.MessagePayload{Text: w})
	}

	if strings.Contains(req.Query, MarkerTruncate) {
		return buf.Bytes()
	}

	writeEvent(&buf, chat.EventComplete, chat.CompletePayload{
		SuggestedQuestions: scriptedSuggestions[lang],
	})
	return buf.Bytes()
}

// ScriptedAnswer returns the answer text Script streams for req.
func ScriptedAnswer(req chat.Request) string {
	return fmt.Sprintf(answerPrefix[scriptLanguage(req.Language)], req.Query)
}

func scriptLanguage(lang string) string {
	if _, ok := answerPrefix[lang]; ok {
		return lang
	}
	return "en"
}

func writeEvent(buf *bytes.Buffer, eventType string, payload any) {
	data, _ := json.Marshal(payload)
	fmt.Fprintf(buf, "event: %s\ndata: %s\n\n", eventType, data)
}
