// Package relaycmder assembles the relay root command.
package relaycmder

import (
	"fmt"

	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/relay/cmd/relay/auth"
	chatcmder "github.com/papercomputeco/relay/cmd/relay/chat"
	configcmder "github.com/papercomputeco/relay/cmd/relay/config"
	servecmder "github.com/papercomputeco/relay/cmd/relay/serve"
	versioncmder "github.com/papercomputeco/relay/cmd/version"
	"github.com/papercomputeco/relay/pkg/client"
	"github.com/papercomputeco/relay/pkg/cliui"
)

const relayLongDesc string = `Relay streams answers from a hosted LLM to the terminal.

Run the server and chat with it using:
  relay serve          Run the relay server on :8000
  relay chat           Send a prompt and watch the answer being typed
  relay auth gemini    Store a Gemini API key
  relay config list    Show the persistent configuration`

const relayShortDesc string = "Relay - streaming LLM relay"

func NewRelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "relay",
		Short:         relayShortDesc,
		Long:          relayLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .relay/ config directory")
	cmd.PersistentFlags().String("log-format", "text", "Log output format (text, json, pretty)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

// ExecuteCmd runs cmd and prints a failure once to its error stream.
// Relay status errors print as "Error: <code>".
func ExecuteCmd(cmd *cobra.Command) error {
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), cliui.ErrorStyle.Render(client.ErrorText(err)))
	}
	return err
}
