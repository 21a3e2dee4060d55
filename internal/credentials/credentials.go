// Package credentials persists the session token and username between runs.
// They are stored in ~/.config/snooze/credentials.toml.
package credentials

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// ErrNone is returned by Load when no usable credentials are stored.
var ErrNone = errors.New("no stored credentials")

// Credentials identify a previously established session.
type Credentials struct {
	Token    string `toml:"token"`
	Username string `toml:"username"`
}

const defaultPath = "~/.config/snooze/credentials.toml"

// DefaultPath returns the default credentials file path.
func DefaultPath() string {
	return defaultPath
}

// File stores credentials in a TOML file.
type File struct {
	Path string // empty uses DefaultPath
}

// Load reads stored credentials. A missing, unreadable, malformed or
// incomplete file yields ErrNone.
func (f File) Load() (Credentials, error) {
	resolved, err := resolvePath(f.Path)
	if err != nil {
		return Credentials{}, fmt.Errorf("resolve path: %w", err)
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Credentials{}, ErrNone
		}
		return Credentials{}, fmt.Errorf("%w: open: %v", ErrNone, err)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: read: %v", ErrNone, err)
	}

	var creds Credentials
	if err := toml.Unmarshal(bytes, &creds); err != nil {
		return Credentials{}, fmt.Errorf("%w: parse: %v", ErrNone, err)
	}
	creds.Token = strings.TrimSpace(creds.Token)
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Token == "" || creds.Username == "" {
		return Credentials{}, ErrNone
	}
	return creds, nil
}

// Save writes creds, creating directories as needed. The file is readable
// by its owner only.
func (f File) Save(creds Credentials) error {
	resolved, err := resolvePath(f.Path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	bytes, err := toml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Clear removes stored credentials. Clearing when nothing is stored is not an error.
func (f File) Clear() error {
	resolved, err := resolvePath(f.Path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.Remove(resolved); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
