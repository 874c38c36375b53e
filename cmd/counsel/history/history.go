// Package historycmder provides the history command for browsing recorded
// question and answer exchanges.
package historycmder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/counsel/cmd/counsel/cmdutil"
	"github.com/papercomputeco/counsel/pkg/cliui"
	"github.com/papercomputeco/counsel/pkg/history"
	"github.com/papercomputeco/counsel/pkg/utils"
)

const historyLongDesc string = `Browse recorded question and answer exchanges.

Exchanges are recorded by "counsel ask" and "counsel chat" in the configured
history store (sqlite by default).

Examples:
  counsel history list
  counsel history list --limit 5
  counsel history show 3f2a
  counsel history clear`

const historyShortDesc string = "Browse recorded exchanges"

const defaultListLimit = 20

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newClearCmd())

	return cmd
}

func openDriver(cmd *cobra.Command) (history.Driver, error) {
	env, err := cmdutil.Load(cmd, cmdutil.HistoryFlagKeys...)
	if err != nil {
		return nil, err
	}

	driver, err := env.HistoryDriver(cmd.Context())
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, errors.New("history is disabled (history.provider = none)")
	}
	return driver, nil
}

func newListCmd() *cobra.Command {
	var (
		limit int
		flags cmdutil.HistoryFlags
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent exchanges, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			driver, err := openDriver(cmd)
			if err != nil {
				return err
			}
			defer driver.Close()

			exchanges, err := driver.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("listing history: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(exchanges) == 0 {
				fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render("No recorded exchanges."))
				return nil
			}

			for _, ex := range exchanges {
				fmt.Fprintf(out, "  %s  %s  %s  %s\n",
					cliui.KeyStyle.Render(utils.Truncate(ex.ID, 8)),
					cliui.DimStyle.Render(ex.CreatedAt.Local().Format("2006-01-02 15:04")),
					cliui.DimStyle.Render(ex.Language),
					utils.Truncate(oneLine(ex.Question), 60),
				)
			}
			return nil
		},
	}

	cmdutil.AddHistoryFlags(cmd, &flags)
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultListLimit, "Maximum number of exchanges to list (0 for all)")

	return cmd
}

func newShowCmd() *cobra.Command {
	var flags cmdutil.HistoryFlags

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one exchange; the id may be a unique prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			driver, err := openDriver(cmd)
			if err != nil {
				return err
			}
			defer driver.Close()

			ex, err := findExchange(cmd, driver, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("ID:"), ex.ID)
			fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("Session:"), ex.SessionID)
			fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("Asked:"), ex.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "%s %s\n\n", cliui.KeyStyle.Render("Language:"), ex.Language)
			fmt.Fprintf(out, "%s\n%s\n\n", cliui.HeadingStyle.Render("Question"), ex.Question)
			fmt.Fprintf(out, "%s\n%s\n", cliui.HeadingStyle.Render("Answer"), ex.Answer)
			cmdutil.PrintSources(out, ex.Sources)
			cmdutil.PrintSuggestions(out, ex.SuggestedQuestions)
			return nil
		},
	}

	cmdutil.AddHistoryFlags(cmd, &flags)

	return cmd
}

// findExchange resolves an exact id, falling back to a unique prefix match.
func findExchange(cmd *cobra.Command, driver history.Driver, id string) (*history.Exchange, error) {
	ex, err := driver.Get(cmd.Context(), id)
	if err == nil {
		return ex, nil
	}
	if !errors.Is(err, history.ErrNotFound) {
		return nil, err
	}

	all, err := driver.List(cmd.Context(), 0)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}

	var matches []*history.Exchange
	for _, candidate := range all {
		if strings.HasPrefix(candidate.ID, id) {
			matches = append(matches, candidate)
		}
	}

	switch len(matches) {
	case 0:
		return nil, history.NotFoundError{ID: id}
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("id prefix %q matches %d exchanges", id, len(matches))
	}
}

func newClearCmd() *cobra.Command {
	var flags cmdutil.HistoryFlags

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded exchanges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			driver, err := openDriver(cmd)
			if err != nil {
				return err
			}
			defer driver.Close()

			n, err := driver.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clearing history: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "  %s Removed %d exchanges\n", cliui.SuccessMark, n)
			return nil
		},
	}

	cmdutil.AddHistoryFlags(cmd, &flags)

	return cmd
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
