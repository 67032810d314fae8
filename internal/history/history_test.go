// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var day1 = time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
var day2 = time.Date(2026, time.February, 11, 0, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fetched_papers_history.json")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s, path
}

func TestAcceptAndIsKnown(t *testing.T) {
	s, _ := newTestStore(t)

	if s.IsKnown("2507.13353") {
		t.Error("fresh store should know nothing")
	}
	if err := s.Accept(day1, []string{"2507.13353", "gs-0011223344556677"}); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if !s.IsKnown("2507.13353") {
		t.Error("accepted id should be known")
	}
	if !s.IsKnown("gs-0011223344556677") {
		t.Error("accepted hash id should be known")
	}
	if s.IsKnown("2507.99999") {
		t.Error("unaccepted id should not be known")
	}
}

func TestVersionFolding(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.Accept(day1, []string{"2507.13353v1"}); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	// Accepting v1 makes v2 (and the bare id) known.
	for _, id := range []string{"2507.13353v2", "2507.13353v1", "2507.13353"} {
		if !s.IsKnown(id) {
			t.Errorf("IsKnown(%q) = false, want true", id)
		}
	}
}

func TestAcceptIdempotent(t *testing.T) {
	s, path := newTestStore(t)

	if err := s.Accept(day1, []string{"2507.13353v1"}); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	// Re-accepting the same paper, even under another version and another
	// date, is a no-op, not an error.
	if err := s.Accept(day2, []string{"2507.13353v2"}); err != nil {
		t.Fatalf("re-Accept() error = %v", err)
	}

	var byDay map[string][]string
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading history file: %v", err)
	}
	if err := json.Unmarshal(data, &byDay); err != nil {
		t.Fatalf("parsing history file: %v", err)
	}
	if len(byDay) != 1 {
		t.Errorf("history has %d dates, want 1 (no-op accept must not add a date)", len(byDay))
	}
	if got := byDay["2026-02-10"]; len(got) != 1 || got[0] != "2507.13353" {
		t.Errorf("history[2026-02-10] = %v, want [2507.13353] (normalized)", got)
	}
}

func TestReloadAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := s.Accept(day1, []string{"2507.13353v1", "2508.00001"}); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	s2, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() reload error = %v", err)
	}
	if !s2.IsKnown("2507.13353v3") {
		t.Error("reloaded store lost version-folded membership")
	}
	if !s2.HasDate(day1) {
		t.Error("reloaded store lost the acquisition date")
	}
	if s2.HasDate(day2) {
		t.Error("HasDate reports a date that was never accepted")
	}

	known := s2.AllKnownIDs()
	if len(known) != 2 {
		t.Errorf("AllKnownIDs() has %d entries, want 2", len(known))
	}
	if _, ok := known["2507.13353"]; !ok {
		t.Error("AllKnownIDs() missing normalized id")
	}
}

func TestAllKnownIDsIsACopy(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Accept(day1, []string{"2507.13353"}); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	known := s.AllKnownIDs()
	delete(known, "2507.13353")
	if !s.IsKnown("2507.13353") {
		t.Error("mutating the returned set must not affect the store")
	}
}
