// Package servecmder provides the serve command that runs the relay server.
package servecmder

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/relay/pkg/config"
	"github.com/papercomputeco/relay/pkg/credentials"
	"github.com/papercomputeco/relay/pkg/eventstream"
	"github.com/papercomputeco/relay/pkg/eventstream/kafka"
	"github.com/papercomputeco/relay/pkg/eventstream/nop"
	"github.com/papercomputeco/relay/pkg/llm/provider"
	"github.com/papercomputeco/relay/pkg/logger"
	"github.com/papercomputeco/relay/relay"
)

const serveLongDesc string = `Run the relay server.

The relay accepts a prompt on POST /run or POST /run_stream (as the "message"
query or form parameter, default "What is baseball?"), forwards it to the
configured model provider and returns the answer. /run_stream relays each
generated chunk as soon as it arrives, followed by a separator line.

Supported providers:
  gemini   Gemini API            (credential: GEMINI_API_KEY or "relay auth gemini")
  vertex   Gemini on Vertex AI   (credential: GOOGLE_OAUTH_ACCESS_TOKEN or "relay auth vertex")
  ollama   local Ollama server   (no credential)

Completion events can be published to Kafka with --events kafka.`

const serveShortDesc string = "Run the relay server"

// serveFlags are the registry keys bound to viper for this command.
var serveFlags = []string{
	config.FlagListen,
	config.FlagMCP,
	config.FlagProvider,
	config.FlagModel,
	config.FlagModelTarget,
	config.FlagModelProject,
	config.FlagModelLocation,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

// flagSink receives parsed flag values. Effective values are read back
// through viper so flag > env > file > default holds uniformly.
type flagSink struct {
	listen, provider, model, target, project, location string
	events, brokers, topic                             string
	mcp                                                bool
}

type serveCommander struct {
	cfg       *config.Config
	configDir string
	debug     bool
	logFormat string
	logFile   string

	logger *slog.Logger
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}
	sink := &flagSink{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			cmder.cfg = config.FromViper(v)

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			format, _ := cmd.Flags().GetString("log-format")
			cmder.logFormat, err = logger.ParseFormat(format)
			if err != nil {
				return err
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &sink.listen)
	config.AddBoolFlag(cmd, config.Flags, config.FlagMCP, &sink.mcp)
	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &sink.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &sink.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagModelTarget, &sink.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagModelProject, &sink.project)
	config.AddStringFlag(cmd, config.Flags, config.FlagModelLocation, &sink.location)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProvider, &sink.events)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsBrokers, &sink.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsTopic, &sink.topic)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

func (c *serveCommander) run() error {
	closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	r, err := c.newRelay()
	if err != nil {
		return err
	}

	// Channel to capture the server error
	errChan := make(chan error, 1)
	go func() {
		if err := r.Run(); err != nil {
			errChan <- fmt.Errorf("relay error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		_ = r.Close()
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return r.Close()
	}
}

// setupLogger builds the console logger and, with --log-file, fans records
// out to a JSON log file as well.
func (c *serveCommander) setupLogger() (func(), error) {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithFormat(c.logFormat),
	)
	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(console, logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	))
	return func() { _ = f.Close() }, nil
}

// newRelay wires the model handle, event publisher and server from config.
func (c *serveCommander) newRelay() (*relay.Relay, error) {
	credential, err := c.resolveCredential()
	if err != nil {
		return nil, err
	}

	model, err := provider.New(provider.Config{
		Provider:   c.cfg.Model.Provider,
		Model:      c.cfg.Model.Name,
		Target:     c.cfg.Model.Target,
		Credential: credential,
		Project:    c.cfg.Model.Project,
		Location:   c.cfg.Model.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("creating model: %w", err)
	}

	publisher, err := newPublisher(c.cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}

	r, err := relay.New(relay.Config{
		ListenAddr: c.cfg.Server.Listen,
		EnableMCP:  c.cfg.Server.MCP,
	}, model, publisher, c.logger)
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("creating relay: %w", err)
	}

	return r, nil
}

// resolveCredential returns the provider's credential from the environment
// or credentials.toml. Providers without credentials get an empty string.
func (c *serveCommander) resolveCredential() (string, error) {
	name := c.cfg.Model.Provider
	if !credentials.IsSupportedProvider(name) {
		return "", nil
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}

	cred, err := mgr.Resolve(name)
	if err != nil {
		return "", fmt.Errorf("resolving %s credentials: %w", name, err)
	}

	if !cred.Found() {
		c.logger.Warn("no "+credentials.Kind(name)+" configured, upstream calls will likely be rejected",
			"provider", name,
			"env", cred.EnvVar,
			"hint", "relay auth "+name,
		)
		return "", nil
	}

	c.logger.Debug("resolved provider credential", "provider", name, "source", string(cred.Source))
	return cred.Value, nil
}

// newPublisher builds the configured completion event publisher.
func newPublisher(cfg config.EventsConfig) (eventstream.Publisher, error) {
	switch cfg.Provider {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{
			Brokers: splitBrokers(cfg.Brokers),
			Topic:   cfg.Topic,
		})
	default:
		return nil, errors.New("unknown events provider " + cfg.Provider + " (use nop or kafka)")
	}
}

func splitBrokers(s string) []string {
	var brokers []string
	for b := range strings.SplitSeq(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
