package profile

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// --- Mock store ---

type mockStore struct {
	mu   sync.Mutex
	data map[string]string

	getAllCalls int
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) SetProfileKey(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockStore) GetProfileKey(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", nil
	}
	return v, nil
}

func (m *mockStore) GetAllProfileKeys() (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getAllCalls++
	cp := make(map[string]string, len(m.data))
	for k, v := range m.data {
		cp[k] = v
	}
	return cp, nil
}

// --- Mock clock ---

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- Tests ---

func TestGet_Empty(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	p, err := mgr.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FullName() != "" {
		t.Errorf("expected empty name, got %q", p.FullName())
	}
	if len(p.Skills) != 0 {
		t.Errorf("expected no skills, got %v", p.Skills)
	}
}

func TestSetAndGetField(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	if err := mgr.SetField("headline", "Backend engineer"); err != nil {
		t.Fatalf("SetField error: %v", err)
	}
	if err := mgr.SetField("skills", []string{"go", "sql"}); err != nil {
		t.Fatalf("SetField error: %v", err)
	}

	p, err := mgr.Get()
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if p.Headline != "Backend engineer" {
		t.Errorf("headline = %q", p.Headline)
	}
	if len(p.Skills) != 2 || p.Skills[0] != "go" {
		t.Errorf("skills = %v", p.Skills)
	}
}

func TestSummary_Empty(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	summary, err := mgr.Summary()
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	if summary == "" {
		t.Error("expected non-empty summary for empty profile")
	}
}

func TestSummary_Full(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	mgr.SetField("name.first", "Jane")
	mgr.SetField("name.last", "Doe")
	mgr.SetField("headline", "Go engineer")
	mgr.SetField("skills", []string{"go", "docker"})

	summary, err := mgr.Summary()
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	for _, want := range []string{"Jane Doe", "Go engineer", "go, docker"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q: %s", want, summary)
		}
	}
}

func TestCacheTTL(t *testing.T) {
	store := newMockStore()
	clock := &mockClock{now: time.Now()}
	mgr := NewManagerWithClock(store, clock, 60*time.Second)

	mgr.SetField("headline", "engineer")

	mgr.Get()
	mgr.Get()

	store.mu.Lock()
	calls := store.getAllCalls
	store.mu.Unlock()

	if calls != 1 {
		t.Errorf("expected 1 store call (cache hit on second), got %d", calls)
	}
}

func TestCacheInvalidation(t *testing.T) {
	store := newMockStore()
	clock := &mockClock{now: time.Now()}
	ttl := 60 * time.Second
	mgr := NewManagerWithClock(store, clock, ttl)

	mgr.SetField("headline", "engineer")

	mgr.Get()

	// Advance past TTL
	clock.Advance(ttl + time.Second)

	mgr.Get()

	store.mu.Lock()
	calls := store.getAllCalls
	store.mu.Unlock()

	if calls != 2 {
		t.Errorf("expected 2 store calls (cache expired), got %d", calls)
	}
}

func TestSetFieldInvalidatesCache(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	mgr.SetField("headline", "one")
	if p, _ := mgr.Get(); p.Headline != "one" {
		t.Fatalf("headline = %q", p.Headline)
	}
	mgr.SetField("headline", "two")
	if p, _ := mgr.Get(); p.Headline != "two" {
		t.Errorf("headline after update = %q, want two", p.Headline)
	}
}
