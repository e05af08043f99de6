package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(id string, kind ActionKind, at time.Time, success bool) ActionRecord {
	return ActionRecord{
		ID:        id,
		CreatedAt: at,
		Kind:      kind,
		Details:   fmt.Sprintf(`{"id":%q}`, id),
		Success:   success,
	}
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestAppendAndGetAction(t *testing.T) {
	s := openTestStore(t)

	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	rec := testRecord("a1", ActionMessage, at, true)
	if err := s.AppendAction(rec); err != nil {
		t.Fatalf("AppendAction: %v", err)
	}

	got, err := s.GetAction("a1")
	if err != nil {
		t.Fatalf("GetAction: %v", err)
	}
	if got.Kind != ActionMessage {
		t.Errorf("kind = %q, want %q", got.Kind, ActionMessage)
	}
	if !got.Success {
		t.Error("success = false, want true")
	}
	if !got.CreatedAt.Equal(at) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, at)
	}
}

func TestGetAction_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetAction("missing"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAppendAction_RejectsUnknownKind(t *testing.T) {
	s := openTestStore(t)
	rec := testRecord("a1", ActionKind("bogus"), time.Now(), true)
	if err := s.AppendAction(rec); err == nil {
		t.Error("expected error for unknown action kind")
	}
}

func TestListActions_OrderAndFilter(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	records := []ActionRecord{
		testRecord("a1", ActionLogin, base, true),
		testRecord("a2", ActionApply, base.Add(1*time.Minute), true),
		testRecord("a3", ActionApply, base.Add(2*time.Minute), false),
		testRecord("a4", ActionMessage, base.Add(3*time.Minute), true),
	}
	for _, rec := range records {
		if err := s.AppendAction(rec); err != nil {
			t.Fatalf("AppendAction(%s): %v", rec.ID, err)
		}
	}

	all, err := s.ListActions(0, "")
	if err != nil {
		t.Fatalf("ListActions: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("got %d records, want 4", len(all))
	}
	for i, want := range []string{"a1", "a2", "a3", "a4"} {
		if all[i].ID != want {
			t.Errorf("all[%d].ID = %q, want %q", i, all[i].ID, want)
		}
	}

	applies, err := s.ListActions(0, ActionApply)
	if err != nil {
		t.Fatalf("ListActions(apply): %v", err)
	}
	if len(applies) != 2 {
		t.Fatalf("got %d apply records, want 2", len(applies))
	}

	limited, err := s.ListActions(2, "")
	if err != nil {
		t.Fatalf("ListActions(limit=2): %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d records, want 2", len(limited))
	}
}

func TestListActions_SubSecondOrder(t *testing.T) {
	s := openTestStore(t)

	// A whole-second timestamp must sort before a fractional one in the same
	// second. Stored as text, that only holds if the fractional part has a
	// fixed width ("...00Z" would sort after "...00.5Z").
	at := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	if err := s.AppendAction(testRecord("a1", ActionApply, at, true)); err != nil {
		t.Fatalf("AppendAction: %v", err)
	}
	if err := s.AppendAction(testRecord("a2", ActionApply, at.Add(500*time.Millisecond), true)); err != nil {
		t.Fatalf("AppendAction: %v", err)
	}

	all, err := s.ListActions(0, "")
	if err != nil {
		t.Fatalf("ListActions: %v", err)
	}
	if len(all) != 2 || all[0].ID != "a1" || all[1].ID != "a2" {
		t.Errorf("order = %v, want [a1 a2]", []string{all[0].ID, all[1].ID})
	}
}

func TestListRecentActions_NewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	records := []ActionRecord{
		testRecord("a1", ActionLogin, base, true),
		testRecord("a2", ActionApply, base.Add(1*time.Minute), true),
		testRecord("a3", ActionApply, base.Add(2*time.Minute), false),
	}
	for _, rec := range records {
		if err := s.AppendAction(rec); err != nil {
			t.Fatalf("AppendAction(%s): %v", rec.ID, err)
		}
	}

	recent, err := s.ListRecentActions(2, "")
	if err != nil {
		t.Fatalf("ListRecentActions: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d records, want 2", len(recent))
	}
	if recent[0].ID != "a3" || recent[1].ID != "a2" {
		t.Errorf("order = [%s %s], want [a3 a2]", recent[0].ID, recent[1].ID)
	}

	applies, err := s.ListRecentActions(1, ActionApply)
	if err != nil {
		t.Fatalf("ListRecentActions(apply): %v", err)
	}
	if len(applies) != 1 || applies[0].ID != "a3" {
		t.Errorf("filtered = %v, want [a3]", applies)
	}
}

func TestCountSuccessfulSince(t *testing.T) {
	s := openTestStore(t)

	dayStart := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	records := []ActionRecord{
		testRecord("y1", ActionApply, dayStart.Add(-2*time.Hour), true), // yesterday
		testRecord("t1", ActionApply, dayStart.Add(1*time.Hour), true),
		testRecord("t2", ActionApply, dayStart.Add(2*time.Hour), false), // failed, not counted
		testRecord("t3", ActionApply, dayStart.Add(3*time.Hour), true),
		testRecord("t4", ActionMessage, dayStart.Add(4*time.Hour), true), // wrong kind
		// In the first second of the day: the text comparison against the
		// day-start bound must still include it.
		testRecord("t5", ActionApply, dayStart.Add(200*time.Millisecond), true),
	}
	for _, rec := range records {
		if err := s.AppendAction(rec); err != nil {
			t.Fatalf("AppendAction(%s): %v", rec.ID, err)
		}
	}

	n, err := s.CountSuccessfulSince(ActionApply, dayStart)
	if err != nil {
		t.Fatalf("CountSuccessfulSince: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestCountActions_NeverDecreases(t *testing.T) {
	s := openTestStore(t)

	prev := 0
	for i := range 5 {
		rec := testRecord(fmt.Sprintf("a%d", i), ActionMessage, time.Now().Add(time.Duration(i)*time.Second), i%2 == 0)
		if err := s.AppendAction(rec); err != nil {
			t.Fatalf("AppendAction: %v", err)
		}
		n, err := s.CountActions()
		if err != nil {
			t.Fatalf("CountActions: %v", err)
		}
		if n <= prev {
			t.Fatalf("count did not grow: %d -> %d", prev, n)
		}
		prev = n
	}
}

func TestExportActionsCSV(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	if err := s.AppendAction(testRecord("a1", ActionApply, base, true)); err != nil {
		t.Fatalf("AppendAction: %v", err)
	}
	if err := s.AppendAction(testRecord("a2", ActionMessage, base.Add(time.Minute), false)); err != nil {
		t.Fatalf("AppendAction: %v", err)
	}

	var buf bytes.Buffer
	if err := s.ExportActionsCSV(&buf); err != nil {
		t.Fatalf("ExportActionsCSV: %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("parsing exported CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (header + 2 records)", len(rows))
	}

	header := rows[0]
	want := []string{"timestamp", "action", "details"}
	for i := range want {
		if header[i] != want[i] {
			t.Errorf("header[%d] = %q, want %q", i, header[i], want[i])
		}
	}
	if rows[1][1] != "apply" {
		t.Errorf("rows[1] action = %q, want apply", rows[1][1])
	}
	if rows[2][1] != "message" {
		t.Errorf("rows[2] action = %q, want message", rows[2][1])
	}
}

func TestProfileKeys(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetProfileKey("first_name"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	if err := s.SetProfileKey("first_name", "Jane"); err != nil {
		t.Fatalf("SetProfileKey: %v", err)
	}
	if err := s.SetProfileKey("first_name", "Janet"); err != nil {
		t.Fatalf("SetProfileKey (overwrite): %v", err)
	}

	v, err := s.GetProfileKey("first_name")
	if err != nil {
		t.Fatalf("GetProfileKey: %v", err)
	}
	if v != "Janet" {
		t.Errorf("value = %q, want %q", v, "Janet")
	}

	if err := s.SetProfileKey("headline", "Full Stack Engineer"); err != nil {
		t.Fatalf("SetProfileKey: %v", err)
	}

	all, err := s.GetAllProfileKeys()
	if err != nil {
		t.Fatalf("GetAllProfileKeys: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("got %d keys, want 2", len(all))
	}
}
