// Package configcmder provides the config command for managing persistent
// counsel configuration stored in the .counsel/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/counsel/pkg/cliui"
	"github.com/papercomputeco/counsel/pkg/config"
)

const configLongDesc string = `Manage persistent counsel configuration.

Configuration is stored as config.toml in the .counsel/ directory and provides
default values for command flags. CLI flags and COUNSEL_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.endpoint, client.voice_endpoint, client.language, client.profile,
  stream.idle_timeout, stream.request_timeout,
  history.provider, history.sqlite_path, history.postgres_dsn,
  devserver.listen

Use subcommands to get, set, or list configuration values:
  counsel config set <key> <value>    Set a configuration value
  counsel config get <key>            Get a configuration value
  counsel config list                 List all configuration values

Examples:
  counsel config set client.endpoint https://counsel.example.com/api/chat
  counsel config set stream.idle_timeout 90s
  counsel config get client.language
  counsel config list`

const configShortDesc string = "Manage persistent counsel configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// validKeys completes the first argument with the known config keys.
func validKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func printTarget(out io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(out, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}
}
