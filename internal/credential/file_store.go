package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const credentialsFile = "credentials.json"

// ErrNotStored is returned by Load when no credential has been saved.
var ErrNotStored = errors.New("no stored credential")

// Stored is the persisted form of the credential cookie.
type Stored struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	URL      string    `json:"url"`
	Domain   string    `json:"domain,omitempty"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
}

// Persister keeps the credential cookie across restarts.
type Persister interface {
	Save(c *Stored) error
	Load() (*Stored, error)
	Delete() error
}

// FileStore implements Persister using a JSON file only its owner can read.
type FileStore struct {
	path string
}

var _ Persister = (*FileStore)(nil)

// DefaultPath is ~/.staff-console/credentials.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".staff-console", credentialsFile), nil
}

// NewFileStore creates the parent directory of path if needed.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("credential file path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the file the credential is written to.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the credential to the file.
func (s *FileStore) Save(c *Stored) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Load reads the credential back. A missing or empty file yields ErrNotStored.
func (s *FileStore) Load() (*Stored, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotStored
		}
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}
	var c Stored
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	if c.Value == "" {
		return nil, ErrNotStored
	}
	return &c, nil
}

// Delete removes the file. Deleting a missing file is not an error.
func (s *FileStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
