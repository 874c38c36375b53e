package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/papercomputeco/counsel/pkg/chat"
	"github.com/papercomputeco/counsel/pkg/cliui"
	"github.com/papercomputeco/counsel/pkg/history"
	"github.com/papercomputeco/counsel/pkg/history/recorder"
	"github.com/papercomputeco/counsel/pkg/logger"
)

// Asker sends questions and renders their answers.
type Asker struct {
	Client *chat.Client

	// Recorder records completed exchanges when non-nil.
	Recorder *recorder.Recorder

	// Out receives the answer, Err receives progress and diagnostics.
	Out io.Writer
	Err io.Writer

	// Markdown renders the final answer with glamour behind a spinner.
	// Otherwise the answer is streamed to Out as it arrives.
	Markdown bool

	// Tap receives a copy of the raw response stream when non-nil.
	Tap io.Writer

	Logger *slog.Logger
}

// Ask sends question and renders the answer. A stream that fails after
// producing text still prints that text before the error is returned.
func (a *Asker) Ask(ctx context.Context, question, language string) (*chat.Result, error) {
	log := logger.OrNop(a.Logger)

	opts := []chat.SendOption{}
	if a.Tap != nil {
		opts = append(opts, chat.WithTap(a.Tap))
	}

	var (
		result *chat.Result
		err    error
	)

	if a.Markdown {
		err = cliui.Step(a.Err, "Consulting counsel", func() error {
			result, err = a.Client.SendMessage(ctx, question, language, opts...)
			return err
		})
	} else {
		var printed int
		opts = append(opts, chat.WithPartial(func(text string) {
			if len(text) > printed {
				fmt.Fprint(a.Out, text[printed:])
				printed = len(text)
			}
		}))
		result, err = a.Client.SendMessage(ctx, question, language, opts...)
		if printed > 0 {
			fmt.Fprintln(a.Out)
		}
	}

	if err != nil {
		a.reportPartial(err)
		return nil, err
	}

	if a.Markdown {
		rendered, rerr := cliui.RenderMarkdown(result.Answer())
		if rerr != nil {
			log.Debug("markdown render failed", "error", rerr)
		}
		fmt.Fprintln(a.Out, strings.TrimRight(rendered, "\n"))
	}

	PrintSources(a.Out, result.Sources)
	PrintSuggestions(a.Out, result.SuggestedQuestions)

	if a.Recorder != nil {
		a.Recorder.Record(history.NewExchange(question, language, result))
	}

	return result, nil
}

func (a *Asker) reportPartial(err error) {
	var partial *chat.PartialError
	if !errors.As(err, &partial) || !a.Markdown || partial.Text == "" {
		return
	}

	fmt.Fprintf(a.Err, "  %s %s\n", cliui.WarnStyle.Render("!"), "The answer was cut off:")
	fmt.Fprintln(a.Out, partial.Text)
}
