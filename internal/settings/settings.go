// Package settings persists the remembered recipient address as
// {"to_email": "..."} next to the config file.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// ErrInvalidRecipient reports an address net/mail cannot parse.
var ErrInvalidRecipient = errors.New("invalid recipient address")

// Settings is the on-disk document.
type Settings struct {
	ToEmail string `json:"to_email"`
}

// Store reads and writes one settings file. Concurrent processes are
// serialized with an advisory lock on "<path>.lock".
type Store struct {
	path     string
	fallback string
}

// NewStore returns a store for path. fallback is returned by Recipient when
// the file is missing, unreadable or malformed.
func NewStore(path, fallback string) *Store {
	return &Store{path: path, fallback: strings.TrimSpace(fallback)}
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// Load reads the document. A missing file yields an empty document.
func (s *Store) Load() (Settings, error) {
	lock := flock.New(s.path + ".lock")
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return Settings{}, fmt.Errorf("create settings directory: %w", err)
	}
	if err := lock.RLock(); err != nil {
		return Settings{}, fmt.Errorf("lock settings: %w", err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Settings{}, nil
		}
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	var doc Settings
	if err := json.Unmarshal(data, &doc); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	return doc, nil
}

// Recipient returns the remembered address, or the fallback when none is
// stored or the file cannot be used.
func (s *Store) Recipient() string {
	doc, err := s.Load()
	if err != nil {
		return s.fallback
	}
	if addr := strings.TrimSpace(doc.ToEmail); addr != "" {
		return addr
	}
	return s.fallback
}

// SaveRecipient validates addr and stores it atomically.
func (s *Store) SaveRecipient(addr string) error {
	addr = strings.TrimSpace(addr)
	if err := ValidateRecipient(addr); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock settings: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(Settings{ToEmail: addr}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.json")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// ValidateRecipient accepts a bare address or "Name <address>".
func ValidateRecipient(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidRecipient)
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidRecipient, addr, err)
	}
	return nil
}
