package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline.
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "server.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagListen         = "listen"
	FlagMCP            = "mcp"
	FlagProvider       = "provider"
	FlagModel          = "model"
	FlagModelTarget    = "model-target"
	FlagModelProject   = "project"
	FlagModelLocation  = "location"
	FlagClientTarget   = "target"
	FlagClientPrompt   = "prompt"
	FlagClientPace     = "pace"
	FlagEventsProvider = "events"
	FlagEventsBrokers  = "events-brokers"
	FlagEventsTopic    = "events-topic"
)

// Flags is the registry shared by every relay command.
var Flags = FlagSet{
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "server.listen",
		Description: "Address for the relay server to listen on",
	},
	FlagMCP: {
		Name:        "mcp",
		ViperKey:    "server.mcp",
		Description: "Expose the MCP endpoint at /mcp",
	},
	FlagProvider: {
		Name:        "provider",
		ViperKey:    "model.provider",
		Description: "Model provider (gemini, vertex, ollama)",
	},
	FlagModel: {
		Name:        "model",
		Shorthand:   "m",
		ViperKey:    "model.name",
		Description: "Model identifier passed to the provider",
	},
	FlagModelTarget: {
		Name:        "model-target",
		ViperKey:    "model.target",
		Description: "Provider base URL (default: the provider's public endpoint)",
	},
	FlagModelProject: {
		Name:        "project",
		ViperKey:    "model.project",
		Description: "Google Cloud project (vertex only)",
	},
	FlagModelLocation: {
		Name:        "location",
		ViperKey:    "model.location",
		Description: "Google Cloud location (vertex only)",
	},
	FlagClientTarget: {
		Name:        "target",
		Shorthand:   "t",
		ViperKey:    "client.target",
		Description: "Relay server URL",
	},
	FlagClientPrompt: {
		Name:        "prompt",
		Shorthand:   "p",
		ViperKey:    "client.prompt",
		Description: "Prompt to send",
	},
	FlagClientPace: {
		Name:        "pace",
		ViperKey:    "client.pace_ms",
		Description: "Delay between displayed characters, in milliseconds",
	},
	FlagEventsProvider: {
		Name:        "events",
		ViperKey:    "events.provider",
		Description: "Completion event publisher (nop, kafka)",
	},
	FlagEventsBrokers: {
		Name:        "events-brokers",
		ViperKey:    "events.brokers",
		Description: "Comma-separated Kafka brokers",
	},
	FlagEventsTopic: {
		Name:        "events-topic",
		ViperKey:    "events.topic",
		Description: "Kafka topic for completion events",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultViper() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}

func defaultString(viperKey string) string {
	return defaultViper().GetString(viperKey)
}

func defaultUint(viperKey string) uint {
	return defaultViper().GetUint(viperKey)
}

func defaultBool(viperKey string) bool {
	return defaultViper().GetBool(viperKey)
}
