// Package authcmder provides the auth command for storing bearer tokens.
package authcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/counsel/pkg/cliui"
	"github.com/papercomputeco/counsel/pkg/config"
	"github.com/papercomputeco/counsel/pkg/credentials"
)

const authLongDesc string = `Store bearer tokens for the counsel backend.

Tokens are stored per profile in credentials.toml in the .counsel/ directory
and sent as "Authorization: Bearer <token>" with chat and voice requests.
The COUNSEL_TOKEN environment variable overrides any stored token.

Examples:
  counsel auth                   Prompt for the default profile's token
  counsel auth staging           Prompt for the "staging" profile's token
  counsel auth --list            List profiles with stored tokens
  counsel auth --remove staging  Remove the "staging" token
  echo $TOKEN | counsel auth     Pipe the token from stdin`

const authShortDesc string = "Store bearer tokens for the counsel backend"

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string

	cmd := &cobra.Command{
		Use:   "auth [profile]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			mgr, err := credentials.NewManager(configDir)
			if err != nil {
				return fmt.Errorf("loading credentials: %w", err)
			}

			out := cmd.OutOrStdout()
			switch {
			case listFlag:
				return runList(out, mgr)
			case removeFlag != "":
				return runRemove(out, mgr, removeFlag)
			default:
				profile := config.NewDefaultConfig().Client.Profile
				if len(args) == 1 {
					profile = args[0]
				}
				return runAuth(out, cmd.InOrStdin(), mgr, profile)
			}
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List profiles with stored tokens")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove the stored token for a profile")

	return cmd
}

func runAuth(out io.Writer, in io.Reader, mgr *credentials.Manager, profile string) error {
	profile = strings.TrimSpace(profile)

	interactive := cliui.IsTerminalReader(in)
	if interactive {
		fmt.Fprintf(out, "Enter token for profile %s: ", profile)
	}
	token, err := cliui.ReadSecret(in)
	if interactive {
		fmt.Fprintln(out)
	}
	if err != nil {
		return err
	}
	if token == "" {
		return errors.New("token cannot be empty")
	}

	if err := mgr.SetToken(profile, token); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Stored token for profile %s %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(profile),
		cliui.DimStyle.Render("("+mgr.GetTarget()+")"),
	)
	if os.Getenv(credentials.TokenEnvVar) != "" {
		fmt.Fprintf(out, "  %s %s is set and takes precedence over stored tokens.\n",
			cliui.WarnStyle.Render("!"),
			credentials.TokenEnvVar,
		)
	}
	fmt.Fprintln(out)
	return nil
}

func runList(out io.Writer, mgr *credentials.Manager) error {
	profiles, err := mgr.ListProfiles()
	if err != nil {
		return err
	}

	if len(profiles) == 0 {
		fmt.Fprintf(out, "\n  %s No stored tokens.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(out, "  Use 'counsel auth [profile]' to store one.\n\n")
		return nil
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeadingStyle.Render("Stored tokens"))
	for _, p := range profiles {
		fmt.Fprintf(out, "  %s  %s\n", cliui.SuccessMark, cliui.NameStyle.Render(p))
	}
	fmt.Fprintln(out)

	return nil
}

func runRemove(out io.Writer, mgr *credentials.Manager, profile string) error {
	profile = strings.TrimSpace(profile)

	if err := mgr.RemoveToken(profile); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Removed token for profile %s.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(profile))
	return nil
}
