// Package chatcmder provides the chat command, the display client for a
// running relay server.
package chatcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/relay/pkg/cliui"
	"github.com/papercomputeco/relay/pkg/client"
	"github.com/papercomputeco/relay/pkg/config"
)

const chatLongDesc string = `Send a prompt to a running relay server and display the answer.

The answer is fetched from /run_stream (or /run with --sync) in full and
then replayed one character at a time. In a terminal an interactive prompt is shown; use
--plain (or pipe the output) for one-shot typewriter output.

Examples:
  relay chat
  relay chat --plain --prompt "Who invented baseball?"
  relay chat --target http://localhost:8000 --pace 5`

const chatShortDesc string = "Chat with a relay server"

var chatFlags = []string{
	config.FlagClientTarget,
	config.FlagClientPrompt,
	config.FlagClientPace,
}

type flagSink struct {
	target, prompt string
	pace           uint
}

type chatCommander struct {
	target string
	prompt string
	pace   time.Duration
	plain  bool
	sync   bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}
	sink := &flagSink{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)

			cfg := config.FromViper(v)
			cmder.target = cfg.Client.Target
			cmder.prompt = cfg.Client.Prompt
			cmder.pace = time.Duration(cfg.Client.PaceMS) * time.Millisecond
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if cmder.plain || !isTerminal(out) {
				return cmder.runPlain(cmd.Context(), out)
			}
			return cmder.runTUI(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagClientTarget, &sink.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagClientPrompt, &sink.prompt)
	config.AddUintFlag(cmd, config.Flags, config.FlagClientPace, &sink.pace)
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print the answer as plain typewriter output instead of the interactive UI")
	cmd.Flags().BoolVar(&cmder.sync, "sync", false, "Ask /run for the answer instead of /run_stream")

	return cmd
}

// runPlain sends the prompt once and types the answer to out.
func (c *chatCommander) runPlain(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	send := c.sender()

	var body string
	err := cliui.Step(os.Stderr, "Waiting for "+c.target, func() error {
		var err error
		body, err = send(ctx, c.prompt)
		return err
	})
	if err != nil {
		return err
	}

	for ch := range client.Typewriter(ctx, body, c.pace) {
		if _, err := io.WriteString(out, ch); err != nil {
			return err
		}
	}
	_, err = io.WriteString(out, "\n")
	return err
}

func (c *chatCommander) runTUI(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	m := newChatModel(ctx, c.sender(), c.target, c.prompt, c.pace)
	program := tea.NewProgram(m, tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

// sender picks the relay route: the streamed body by default, the
// synchronous answer with --sync.
func (c *chatCommander) sender() sendFunc {
	cl := client.New(c.target, nil)
	if c.sync {
		return cl.Run
	}
	return cl.RunStream
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
