package config

const (
	defaultListen = ":8000"

	defaultModelProvider = "gemini"
	defaultModelName     = "gemini-1.5-flash-preview-0514"
	defaultModelLocation = "us-central1"

	defaultClientTarget = "http://localhost:8000"
	defaultClientPrompt = "What is baseball?"
	defaultClientPaceMS = 20

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "relay.completions"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen: defaultListen,
		},
		Model: ModelConfig{
			Provider: defaultModelProvider,
			Name:     defaultModelName,
			Location: defaultModelLocation,
		},
		Client: ClientConfig{
			Target: defaultClientTarget,
			Prompt: defaultClientPrompt,
			PaceMS: defaultClientPaceMS,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
