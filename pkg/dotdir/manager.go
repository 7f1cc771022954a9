// Package dotdir resolves the .relay/ directory holding config.toml and
// credentials.toml.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of the relay state directory.
const DirName = ".relay"

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to the .relay/ directory to use,
// creating it when needed. Precedence:
//  1. overrideDir, when non-empty
//  2. ./.relay/ in the working directory, when it exists
//  3. ~/.relay/
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, DirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, DirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating relay directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, DirName))
	return err == nil && info.IsDir()
}
