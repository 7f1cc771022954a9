// Package authcmder provides the auth command for storing provider credentials.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/relay/pkg/cliui"
	"github.com/papercomputeco/relay/pkg/credentials"
)

const authLongDesc string = `Store credentials for model providers.

Credentials are stored in credentials.toml in the .relay/ directory and are
used by "relay serve" when the provider's environment variable is not set.

  gemini   Gemini API key from aistudio.google.com        (GEMINI_API_KEY)
  vertex   OAuth access token, e.g. from
           "gcloud auth print-access-token"               (GOOGLE_OAUTH_ACCESS_TOKEN)

Examples:
  relay auth gemini                Prompt for a Gemini API key
  relay auth --list                List stored credentials
  relay auth --remove gemini       Remove stored Gemini credentials
  echo $KEY | relay auth gemini    Pipe the key from stdin`

const authShortDesc string = "Store credentials for model providers"

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			out := cmd.OutOrStdout()

			switch {
			case listFlag:
				return runList(out, configDir)
			case removeFlag != "":
				return runRemove(out, removeFlag, configDir)
			default:
				if len(args) == 0 {
					return fmt.Errorf("provider argument required\n\nSupported providers: %s",
						strings.Join(credentials.SupportedProviders(), ", "))
				}
				return runAuth(cmd.InOrStdin(), out, args[0], configDir)
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List stored credentials")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove stored credentials for a provider")

	return cmd
}

func runAuth(in io.Reader, out io.Writer, provider, configDir string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	if !credentials.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}

	apiKey, err := readAPIKey(in, out, provider)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("credential cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(provider, apiKey); err != nil {
		return err
	}

	envVar := credentials.EnvVarForProvider(provider)
	fmt.Fprintf(out, "\n  %s Stored %s credentials %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(provider),
		cliui.DimStyle.Render("("+envVar+" takes precedence when set)"),
	)

	return nil
}

func runList(out io.Writer, configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	providers, err := mgr.ListProviders()
	if err != nil {
		return err
	}

	if len(providers) == 0 {
		fmt.Fprintf(out, "\n  %s No stored credentials.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(out, "  Use 'relay auth <provider>' to store credentials.\n")
		fmt.Fprintf(out, "  Supported providers: %s\n\n", strings.Join(credentials.SupportedProviders(), ", "))
		return nil
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored credentials"))
	for _, p := range providers {
		if envVar := credentials.EnvVarForProvider(p); envVar != "" {
			fmt.Fprintf(out, "  %s  %s  %s\n",
				cliui.SuccessMark,
				cliui.KeyStyle.Render(p),
				cliui.DimStyle.Render("→ "+envVar),
			)
		} else {
			fmt.Fprintf(out, "  %s  %s\n", cliui.SuccessMark, cliui.KeyStyle.Render(p))
		}
	}
	fmt.Fprintln(out)

	return nil
}

func runRemove(out io.Writer, provider, configDir string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(provider); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.KeyStyle.Render(provider))

	return nil
}

// readAPIKey reads a credential from in. A terminal gets a hidden prompt;
// anything else (a pipe, a test buffer) is read up to the first newline.
func readAPIKey(in io.Reader, out io.Writer, provider string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(out, "Enter %s for %s (%s): ",
			credentials.Kind(provider), provider, credentials.EnvVarForProvider(provider))

		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out) // newline after hidden input
		if err != nil {
			return "", fmt.Errorf("reading credential: %w", err)
		}
		return string(keyBytes), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
