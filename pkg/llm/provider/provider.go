// Package provider builds the llm.Model the relay talks to.
package provider

import (
	"fmt"
	"net/http"

	"github.com/papercomputeco/relay/pkg/llm"
	"github.com/papercomputeco/relay/pkg/llm/provider/gemini"
	"github.com/papercomputeco/relay/pkg/llm/provider/ollama"
)

// Provider names accepted by New.
const (
	Gemini = "gemini"
	Vertex = "vertex"
	Ollama = "ollama"
)

// Config selects and configures a model provider.
type Config struct {
	// Provider is one of Gemini, Vertex or Ollama.
	Provider string

	// Model is the provider's model identifier.
	Model string

	// Target overrides the provider's default endpoint.
	Target string

	// Credential is the API key or access token. Unused by Ollama.
	Credential string

	// Project and Location are only used by Vertex.
	Project  string
	Location string

	HTTPClient *http.Client
}

// SupportedProviders returns the provider names accepted by New.
func SupportedProviders() []string {
	return []string{Gemini, Vertex, Ollama}
}

// New returns the model handle for cfg. The handle is safe for concurrent
// use and is meant to be built once at startup.
func New(cfg Config) (llm.Model, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("provider %q: model name is required", cfg.Provider)
	}

	switch cfg.Provider {
	case Gemini, "":
		return gemini.New(gemini.Config{
			BaseURL:    cfg.Target,
			Model:      cfg.Model,
			Credential: cfg.Credential,
			HTTPClient: cfg.HTTPClient,
		}), nil
	case Vertex:
		return gemini.NewVertex(gemini.Config{
			BaseURL:    cfg.Target,
			Model:      cfg.Model,
			Credential: cfg.Credential,
			Project:    cfg.Project,
			Location:   cfg.Location,
			HTTPClient: cfg.HTTPClient,
		})
	case Ollama:
		return ollama.New(cfg.Target, cfg.Model, cfg.HTTPClient), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: %v)", cfg.Provider, SupportedProviders())
	}
}
