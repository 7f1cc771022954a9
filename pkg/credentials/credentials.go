// Package credentials stores and resolves the secrets the relay sends to
// its upstream model provider.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/relay/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// ErrUnsupportedProvider is returned when storing a credential for a
// provider that does not take one.
var ErrUnsupportedProvider = errors.New("unsupported provider")

type providerInfo struct {
	name   string
	envVar string
	kind   string
}

// providers lists every provider that authenticates upstream calls. The
// environment variable wins over the stored value.
var providers = []providerInfo{
	{name: "gemini", envVar: "GEMINI_API_KEY", kind: "API key"},
	{name: "vertex", envVar: "GOOGLE_OAUTH_ACCESS_TOKEN", kind: "access token"},
}

func lookup(name string) (providerInfo, bool) {
	i := slices.IndexFunc(providers, func(p providerInfo) bool { return p.name == name })
	if i < 0 {
		return providerInfo{}, false
	}
	return providers[i], true
}

// Manager reads and writes credentials.toml in the .relay/ directory.
type Manager struct {
	path string
	now  func() time.Time
}

// NewManager creates a Manager. A non-empty override is used as the .relay/
// directory instead of the standard dotdir resolution.
func NewManager(override string) (*Manager, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}

	return &Manager{
		path: filepath.Join(dir, credentialsFile),
		now:  time.Now,
	}, nil
}

// GetTarget returns the path of credentials.toml.
func (m *Manager) GetTarget() string {
	return m.path
}

// Load reads credentials.toml. A missing file yields empty Credentials.
func (m *Manager) Load() (*Credentials, error) {
	creds := &Credentials{Version: currentVersion}

	data, err := os.ReadFile(m.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", m.path, err)
	default:
		if err := toml.Unmarshal(data, creds); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", m.path, err)
		}
	}

	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderCredential)
	}
	return creds, nil
}

// Save replaces credentials.toml with creds. The file is written to a
// temporary sibling with 0600 permissions and renamed into place.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), credentialsFile+".*")
	if err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// update loads, mutates and saves credentials.toml.
func (m *Manager) update(fn func(*Credentials)) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}
	fn(creds)
	return m.Save(creds)
}

// SetKey stores the credential for a supported provider.
func (m *Manager) SetKey(provider, key string) error {
	if !IsSupportedProvider(provider) {
		return fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedProvider, provider, strings.Join(SupportedProviders(), ", "))
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("empty %s for %s", Kind(provider), provider)
	}

	return m.update(func(c *Credentials) {
		c.Providers[provider] = ProviderCredential{APIKey: key, UpdatedAt: m.now().UTC()}
	})
}

// GetKey returns the stored credential, or "" when none is stored.
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Providers[provider].APIKey, nil
}

// RemoveKey deletes the stored credential for provider. Removing a missing
// entry is not an error.
func (m *Manager) RemoveKey(provider string) error {
	return m.update(func(c *Credentials) {
		delete(c.Providers, provider)
	})
}

// ListProviders returns the sorted names of providers with a stored credential.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(creds.Providers))
	for name := range creds.Providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Resolve finds the credential the relay should send upstream: the
// provider's environment variable when set, else the stored value.
// Providers that take no credential resolve to SourceNone.
func (m *Manager) Resolve(provider string) (Credential, error) {
	info, ok := lookup(provider)
	if !ok {
		return Credential{Provider: provider}, nil
	}

	cred := Credential{Provider: provider, EnvVar: info.envVar}
	if v := os.Getenv(info.envVar); v != "" {
		cred.Value, cred.Source = v, SourceEnv
		return cred, nil
	}

	stored, err := m.GetKey(provider)
	if err != nil {
		return cred, err
	}
	if stored != "" {
		cred.Value, cred.Source = stored, SourceFile
	}
	return cred, nil
}

// EnvVarForProvider returns the environment variable that overrides the
// stored credential, or "" for providers without one.
func EnvVarForProvider(provider string) string {
	info, _ := lookup(provider)
	return info.envVar
}

// Kind describes the credential a provider expects ("API key" or
// "access token").
func Kind(provider string) string {
	if info, ok := lookup(provider); ok {
		return info.kind
	}
	return "credential"
}

// SupportedProviders returns the providers that take a credential.
func SupportedProviders() []string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.name
	}
	return names
}

// IsSupportedProvider reports whether provider takes a credential.
func IsSupportedProvider(provider string) bool {
	_, ok := lookup(provider)
	return ok
}
