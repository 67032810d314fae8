// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"testing"
	"time"

	"github.com/sea-turt1e/scholar-rss/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.ArchiveConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePapers() []types.Paper {
	return []types.Paper{
		{
			ID:            "2507.13353v1",
			Title:         "Scaling Laws for Test-Time Compute",
			Authors:       []string{"A. Researcher", "B. Scholar"},
			Published:     time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC),
			CitationCount: 42,
			Source:        "arxiv",
			SourceURL:     "https://arxiv.org/abs/2507.13353v1",
			PDFURL:        "https://arxiv.org/pdf/2507.13353v1",
		},
		{
			ID:            "gs-0011223344556677",
			Title:         "Deep Residual Learning",
			CitationCount: 180000,
			Source:        "scholar",
		},
	}
}

func TestRecordAndHas(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)

	if err := s.Record(day, samplePapers()); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	// Archive membership follows the same normalization rule as history:
	// any version of a recorded paper is found.
	for _, id := range []string{"2507.13353v1", "2507.13353v2", "2507.13353", "gs-0011223344556677"} {
		ok, err := s.Has(id)
		if err != nil {
			t.Fatalf("Has(%q) error = %v", id, err)
		}
		if !ok {
			t.Errorf("Has(%q) = false, want true", id)
		}
	}
	ok, err := s.Has("2599.00000")
	if err != nil {
		t.Fatalf("Has() error = %v", err)
	}
	if ok {
		t.Error("Has() = true for a paper never recorded")
	}
}

func TestRecordIsReplayTolerant(t *testing.T) {
	s := newTestStore(t)
	day1 := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	papers := samplePapers()
	if err := s.Record(day1, papers); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	// Crash-replay of the same batch (possibly under a new version and a
	// new citation count) is an update, not an error.
	papers[0].ID = "2507.13353v2"
	papers[0].CitationCount = 50
	if err := s.Record(day2, papers); err != nil {
		t.Fatalf("re-Record() error = %v", err)
	}

	n, err := s.CountFetchedInPeriod("2026-02")
	if err != nil {
		t.Fatalf("CountFetchedInPeriod() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountFetchedInPeriod() = %d, want 2 (no duplicate rows)", n)
	}
}

func TestCountFetchedInPeriod(t *testing.T) {
	s := newTestStore(t)

	if err := s.Record(time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
		[]types.Paper{{ID: "2501.00001", Title: "January Paper"}}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := s.Record(time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		samplePapers()); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	for period, want := range map[string]int{"2026-01": 1, "2026-02": 2, "2026-03": 0} {
		n, err := s.CountFetchedInPeriod(period)
		if err != nil {
			t.Fatalf("CountFetchedInPeriod(%q) error = %v", period, err)
		}
		if n != want {
			t.Errorf("CountFetchedInPeriod(%q) = %d, want %d", period, n, want)
		}
	}
}

func TestPublicationMarks(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
	if err := s.Record(day, samplePapers()); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	ok, err := s.IsPublished("2507.13353v1", "qiita")
	if err != nil {
		t.Fatalf("IsPublished() error = %v", err)
	}
	if ok {
		t.Error("IsPublished() = true before any publish")
	}

	if err := s.MarkPublished("2507.13353v1", "qiita", "https://qiita.example/items/1"); err != nil {
		t.Fatalf("MarkPublished() error = %v", err)
	}
	// Double-marking is a no-op.
	if err := s.MarkPublished("2507.13353v2", "qiita", "https://qiita.example/items/1"); err != nil {
		t.Fatalf("re-MarkPublished() error = %v", err)
	}

	// The check folds versions, agreeing with the history store.
	ok, err = s.IsPublished("2507.13353v2", "qiita")
	if err != nil {
		t.Fatalf("IsPublished() error = %v", err)
	}
	if !ok {
		t.Error("IsPublished() = false for another version of a published paper")
	}

	// A different platform is independent.
	ok, err = s.IsPublished("2507.13353", "zenn")
	if err != nil {
		t.Fatalf("IsPublished() error = %v", err)
	}
	if ok {
		t.Error("IsPublished() = true for a platform never published to")
	}
}
