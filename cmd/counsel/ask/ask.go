// Package askcmder provides the ask command, which sends a single question
// to the counsel backend.
package askcmder

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/counsel/cmd/counsel/cmdutil"
	"github.com/papercomputeco/counsel/pkg/cliui"
)

type askCommander struct {
	client   cmdutil.ClientFlags
	history  cmdutil.HistoryFlags
	tap      string
	plain    bool
	markdown bool
}

const askLongDesc string = `Ask the legal assistant a single question.

The answer is streamed from the chat endpoint. When stdout is a terminal the
finished answer is rendered as markdown; pass --plain to print the text as
it arrives instead. Cited sources and suggested follow-up questions are
printed after the answer, and the exchange is recorded in the history store.

Examples:
  counsel ask "What is the notice period for an employment contract?"
  counsel ask --language cs "Jaká je výpovědní lhůta?"
  counsel ask --plain --tap stream.log "Can my landlord keep the deposit?"`

const askShortDesc string = "Ask the legal assistant a question"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, strings.Join(args, " "))
		},
	}

	cmdutil.AddClientFlags(cmd, &cmder.client)
	cmdutil.AddHistoryFlags(cmd, &cmder.history)
	cmd.Flags().StringVar(&cmder.tap, "tap", "", "Append the raw SSE stream to this file")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Stream plain text instead of rendering markdown")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render markdown even when stdout is not a terminal")
	cmd.MarkFlagsMutuallyExclusive("plain", "markdown")

	return cmd
}

func (c *askCommander) run(cmd *cobra.Command, question string) error {
	env, err := cmdutil.Load(cmd, cmdutil.ClientAndHistoryFlagKeys()...)
	if err != nil {
		return err
	}

	client, err := env.ChatClient()
	if err != nil {
		return err
	}

	rec, closeHistory, err := env.Recorder(cmd.Context())
	if err != nil {
		return err
	}
	defer closeHistory()

	asker := &cmdutil.Asker{
		Client:   client,
		Recorder: rec,
		Out:      cmd.OutOrStdout(),
		Err:      cmd.ErrOrStderr(),
		Markdown: c.markdown || (!c.plain && cliui.IsTerminal(cmd.OutOrStdout())),
		Logger:   env.Logger,
	}

	if c.tap != "" {
		f, err := os.OpenFile(c.tap, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening tap file: %w", err)
		}
		defer f.Close()
		asker.Tap = f
	}

	_, err = asker.Ask(cmd.Context(), question, env.Language())
	return err
}
