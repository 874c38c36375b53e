// Package chatcmder provides the chat command for an interactive session
// with the legal assistant.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/counsel/cmd/counsel/cmdutil"
	"github.com/papercomputeco/counsel/pkg/cliui"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("counsel> ")
)

type chatCommander struct {
	client  cmdutil.ClientFlags
	history cmdutil.HistoryFlags
	plain   bool
}

const chatLongDesc string = `Start an interactive session with the legal assistant.

Each line you type is sent as a question. After an answer, its suggested
follow-up questions are numbered; type /1, /2, ... to ask one of them.
Type /exit or press Ctrl+D to quit.

Examples:
  counsel chat
  counsel chat --language cs --history memory`

const chatShortDesc string = "Interactive session with the legal assistant"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmdutil.AddClientFlags(cmd, &cmder.client)
	cmdutil.AddHistoryFlags(cmd, &cmder.history)
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Stream plain text instead of rendering markdown")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
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

	out := cmd.OutOrStdout()
	asker := &cmdutil.Asker{
		Client:   client,
		Recorder: rec,
		Out:      out,
		Err:      cmd.ErrOrStderr(),
		Markdown: !c.plain && cliui.IsTerminal(out),
		Logger:   env.Logger,
	}

	fmt.Fprintf(out, "\n  %s %s\n", cliui.KeyStyle.Render("Endpoint:"), client.Endpoint())
	fmt.Fprintf(out, "  %s %s\n\n", cliui.KeyStyle.Render("Language:"), env.Language())
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your question and press Enter. /exit or Ctrl+D to quit."))

	return repl(cmd.Context(), cmd.InOrStdin(), out, asker, env.Language())
}

// repl reads questions from in until EOF or /exit. Failed questions are
// reported and the session continues.
func repl(ctx context.Context, in io.Reader, out io.Writer, asker *cmdutil.Asker, language string) error {
	scanner := bufio.NewScanner(in)
	var suggestions []string

	for {
		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		question, err := resolveInput(input, suggestions)
		if err != nil {
			fmt.Fprintf(asker.Err, "  %s %v\n", cliui.FailMark, err)
			continue
		}
		if question != input {
			fmt.Fprintf(out, "%s%s\n", userPrompt, question)
		}

		fmt.Fprintln(out, assistantPrompt)
		result, err := asker.Ask(ctx, question, language)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(asker.Err, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		suggestions = result.SuggestedQuestions
		fmt.Fprintln(out)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}

// resolveInput maps "/N" to the N-th suggested question.
func resolveInput(input string, suggestions []string) (string, error) {
	if !strings.HasPrefix(input, "/") {
		return input, nil
	}

	n, err := strconv.Atoi(input[1:])
	if err != nil {
		return "", fmt.Errorf("unknown command %q", input)
	}
	if n < 1 || n > len(suggestions) {
		return "", fmt.Errorf("no suggested question %d", n)
	}
	return suggestions[n-1], nil
}
