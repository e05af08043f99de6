package profile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ProfileStore defines the storage operations the Manager needs.
// Implemented by storage.Store.
type ProfileStore interface {
	SetProfileKey(key, value string) error
	GetProfileKey(key string) (string, error)
	GetAllProfileKeys() (map[string]string, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager provides cached, structured access to the candidate profile stored
// in SQLite.
type Manager struct {
	store ProfileStore
	clock Clock
	ttl   time.Duration

	mu       sync.RWMutex
	cached   *Profile
	cachedAt time.Time
}

// NewManager creates a Manager with a 60-second cache TTL.
func NewManager(store ProfileStore) *Manager {
	return &Manager{
		store: store,
		clock: realClock{},
		ttl:   60 * time.Second,
	}
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store ProfileStore, clock Clock, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		clock: clock,
		ttl:   ttl,
	}
}

// Get reads all profile keys from storage (or cache) and assembles a
// structured Profile. Returns a zero-value Profile on empty store.
func (m *Manager) Get() (Profile, error) {
	// Fast path: read lock for cache hit.
	m.mu.RLock()
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		p := copyProfile(m.cached)
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	// Slow path: write lock for cache miss.
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock.
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		return copyProfile(m.cached), nil
	}

	keys, err := m.store.GetAllProfileKeys()
	if err != nil {
		return Profile{}, fmt.Errorf("loading profile keys: %w", err)
	}

	p := buildProfile(keys)
	m.cached = &p
	m.cachedAt = m.clock.Now()
	return copyProfile(&p), nil
}

// SetField persists a profile key and invalidates the cache. Non-string
// values (the skill list) are stored as JSON.
func (m *Manager) SetField(key string, value interface{}) error {
	var str string
	switch v := value.(type) {
	case string:
		str = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshalling value for key %q: %w", key, err)
		}
		str = string(b)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SetProfileKey(key, str); err != nil {
		return fmt.Errorf("setting profile key %q: %w", key, err)
	}

	m.cached = nil
	return nil
}

// Summary returns a compact one-line description of the candidate, used to
// anchor generated outreach text.
func (m *Manager) Summary() (string, error) {
	p, err := m.Get()
	if err != nil {
		return "", fmt.Errorf("getting profile for summary: %w", err)
	}
	return summarize(p), nil
}

func summarize(p Profile) string {
	var parts []string
	if name := p.FullName(); name != "" {
		parts = append(parts, name)
	}
	if p.Headline != "" {
		parts = append(parts, p.Headline)
	}
	if len(p.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(p.Skills, ", "))
	}
	if p.Summary != "" {
		parts = append(parts, p.Summary)
	}
	if len(parts) == 0 {
		return "Candidate profile: not yet configured."
	}
	return strings.Join(parts, ". ")
}

func copyProfile(p *Profile) Profile {
	if p == nil {
		return Profile{}
	}
	cp := *p
	if p.Skills != nil {
		cp.Skills = make([]string, len(p.Skills))
		copy(cp.Skills, p.Skills)
	}
	return cp
}

// buildProfile assembles a Profile from flat key-value pairs. Keys use
// dot-notation: "name.first", "name.last", "headline", "summary",
// "resume_id"; "skills" is stored as a JSON array.
func buildProfile(keys map[string]string) Profile {
	var p Profile

	if v, ok := keys["name.first"]; ok {
		p.FirstName = v
	}
	if v, ok := keys["name.last"]; ok {
		p.LastName = v
	}
	if v, ok := keys["headline"]; ok {
		p.Headline = v
	}
	if v, ok := keys["summary"]; ok {
		p.Summary = v
	}
	if v, ok := keys["resume_id"]; ok {
		p.ResumeID = v
	}
	unmarshalProfileKey(keys, "skills", &p.Skills)

	return p
}

// unmarshalProfileKey unmarshals a JSON value from keys into target, logging
// a warning if the value is present but malformed.
func unmarshalProfileKey(keys map[string]string, key string, target interface{}) {
	v, ok := keys[key]
	if !ok {
		return
	}
	if err := json.Unmarshal([]byte(v), target); err != nil {
		slog.Warn("malformed profile key, skipping", "key", key, "error", err)
	}
}
