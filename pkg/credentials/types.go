package credentials

import "time"

// Credentials is the on-disk layout of credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Providers map[string]ProviderCredential `toml:"providers"`
}

// ProviderCredential is one stored provider secret. For gemini it is an API
// key, for vertex an OAuth access token.
type ProviderCredential struct {
	APIKey    string    `toml:"api_key"`
	UpdatedAt time.Time `toml:"updated_at"`
}

// Source tells where a resolved credential came from.
type Source string

const (
	SourceNone Source = ""
	SourceEnv  Source = "env"
	SourceFile Source = "file"
)

// Credential is the result of Resolve.
type Credential struct {
	Provider string
	Value    string
	Source   Source
	EnvVar   string
}

// Found reports whether a non-empty credential was resolved.
func (c Credential) Found() bool {
	return c.Value != ""
}
