package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent relay configuration stored as config.toml
// in the .relay/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Server  ServerConfig `toml:"server"`
	Model   ModelConfig  `toml:"model"`
	Client  ClientConfig `toml:"client"`
	Events  EventsConfig `toml:"events"`
}

// ServerConfig holds relay server settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
	MCP    bool   `toml:"mcp,omitempty"`
}

// ModelConfig selects the upstream model provider.
// Target is the provider base URL; empty means the provider's public endpoint.
// Project and Location are only read by the vertex provider.
type ModelConfig struct {
	Provider string `toml:"provider,omitempty"`
	Name     string `toml:"name,omitempty"`
	Target   string `toml:"target,omitempty"`
	Project  string `toml:"project,omitempty"`
	Location string `toml:"location,omitempty"`
}

// ClientConfig holds settings for "relay chat".
// Target is a full URL (scheme + host + port) of a running relay server.
type ClientConfig struct {
	Target string `toml:"target,omitempty"`
	Prompt string `toml:"prompt,omitempty"`
	PaceMS uint   `toml:"pace_ms,omitempty"`
}

// EventsConfig holds completion event publishing settings.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
var configKeys = map[string]configKeyInfo{
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"server.mcp": {
		get: func(c *Config) string { return strconv.FormatBool(c.Server.MCP) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for server.mcp: %w", err)
			}
			c.Server.MCP = b
			return nil
		},
	},
	"model.provider": {
		get: func(c *Config) string { return c.Model.Provider },
		set: func(c *Config, v string) error { c.Model.Provider = v; return nil },
	},
	"model.name": {
		get: func(c *Config) string { return c.Model.Name },
		set: func(c *Config, v string) error { c.Model.Name = v; return nil },
	},
	"model.target": {
		get: func(c *Config) string { return c.Model.Target },
		set: func(c *Config, v string) error { c.Model.Target = v; return nil },
	},
	"model.project": {
		get: func(c *Config) string { return c.Model.Project },
		set: func(c *Config, v string) error { c.Model.Project = v; return nil },
	},
	"model.location": {
		get: func(c *Config) string { return c.Model.Location },
		set: func(c *Config, v string) error { c.Model.Location = v; return nil },
	},
	"client.target": {
		get: func(c *Config) string { return c.Client.Target },
		set: func(c *Config, v string) error { c.Client.Target = v; return nil },
	},
	"client.prompt": {
		get: func(c *Config) string { return c.Client.Prompt },
		set: func(c *Config, v string) error { c.Client.Prompt = v; return nil },
	},
	"client.pace_ms": {
		get: func(c *Config) string {
			if c.Client.PaceMS == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Client.PaceMS), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for client.pace_ms: %w", err)
			}
			c.Client.PaceMS = uint(n)
			return nil
		},
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}
