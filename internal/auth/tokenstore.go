package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrNoCredential is returned by Load when no credential has been saved.
	ErrNoCredential = errors.New("no stored credential")
	// ErrCredentialExpired is returned by Load when the stored credential has
	// passed its expiry. Distinct from ErrNoCredential so callers can tell
	// "never logged in" apart from "needs re-authentication".
	ErrCredentialExpired = errors.New("stored credential expired")
)

// Credential is an access token with its expiry instant.
type Credential struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the credential is no longer valid at the given instant.
func (c Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Store persists a single credential as a JSON file on disk.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore creates a Store writing to token.json inside dataDir.
func NewStore(dataDir string) *Store {
	return &Store{
		path: filepath.Join(dataDir, "token.json"),
		now:  time.Now,
	}
}

// NewStoreWithClock creates a Store with a custom clock (for testing).
func NewStoreWithClock(dataDir string, now func() time.Time) *Store {
	s := NewStore(dataDir)
	s.now = now
	return s
}

// Load reads the stored credential. An expired credential is never returned
// as valid: Load fails with ErrCredentialExpired instead.
func (s *Store) Load() (Credential, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Credential{}, ErrNoCredential
	}
	if err != nil {
		return Credential{}, fmt.Errorf("reading credential: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return Credential{}, fmt.Errorf("parsing credential: %w", err)
	}
	if cred.AccessToken == "" {
		return Credential{}, ErrNoCredential
	}
	if cred.Expired(s.now()) {
		return Credential{}, ErrCredentialExpired
	}
	return cred, nil
}

// Save overwrites the stored credential. The write goes through a temp file
// and an atomic rename so a concurrent Load never observes a partial write.
func (s *Store) Save(cred Credential) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating credential directory: %w", err)
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "token-*.json")
	if err != nil {
		return fmt.Errorf("creating temp credential file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing credential: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("setting credential permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing credential file: %w", err)
	}
	return nil
}
