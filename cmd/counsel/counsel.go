// Package counselcmder is the root of the counsel command tree.
package counselcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/counsel/cmd/counsel/ask"
	authcmder "github.com/papercomputeco/counsel/cmd/counsel/auth"
	chatcmder "github.com/papercomputeco/counsel/cmd/counsel/chat"
	configcmder "github.com/papercomputeco/counsel/cmd/counsel/config"
	historycmder "github.com/papercomputeco/counsel/cmd/counsel/history"
	mcpcmder "github.com/papercomputeco/counsel/cmd/counsel/mcp"
	servecmder "github.com/papercomputeco/counsel/cmd/counsel/serve"
	voicecmder "github.com/papercomputeco/counsel/cmd/counsel/voice"
	versioncmder "github.com/papercomputeco/counsel/cmd/version"
)

const counselLongDesc string = `Counsel is a terminal client for the counsel legal assistant.

Ask questions, keep a conversation going and browse past answers:
  counsel ask "<question>"    Ask a single question
  counsel chat                Start an interactive session
  counsel voice <pcm-file>    Ask by voice
  counsel history list        Browse recorded exchanges

Expose counsel to agents with "counsel mcp" and run a local backend for
development with "counsel serve".`

const counselShortDesc string = "Counsel - legal assistant client"

func NewCounselCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "counsel",
		Short:        counselShortDesc,
		Long:         counselLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .counsel/ configuration directory")

	// Add subcommands
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(voicecmder.NewVoiceCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(mcpcmder.NewMCPCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
