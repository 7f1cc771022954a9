package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/relay/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (RELAY_SERVER_LISTEN, RELAY_MODEL_NAME, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the resolved viper values.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Server: ServerConfig{
			Listen: v.GetString("server.listen"),
			MCP:    v.GetBool("server.mcp"),
		},
		Model: ModelConfig{
			Provider: v.GetString("model.provider"),
			Name:     v.GetString("model.name"),
			Target:   v.GetString("model.target"),
			Project:  v.GetString("model.project"),
			Location: v.GetString("model.location"),
		},
		Client: ClientConfig{
			Target: v.GetString("client.target"),
			Prompt: v.GetString("client.prompt"),
			PaceMS: v.GetUint("client.pace_ms"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.mcp", d.Server.MCP)

	v.SetDefault("model.provider", d.Model.Provider)
	v.SetDefault("model.name", d.Model.Name)
	v.SetDefault("model.target", d.Model.Target)
	v.SetDefault("model.project", d.Model.Project)
	v.SetDefault("model.location", d.Model.Location)

	v.SetDefault("client.target", d.Client.Target)
	v.SetDefault("client.prompt", d.Client.Prompt)
	v.SetDefault("client.pace_ms", d.Client.PaceMS)

	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}
