// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists the identifiers of previously accepted papers,
// keyed by acquisition date, and answers membership tests across all
// historical dates.
// Implements: prd003-history (R1-R3);
//
//	docs/ARCHITECTURE § History.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sea-turt1e/scholar-rss/pkg/types"
)

const dateFmt = "2006-01-02"

// Store holds the cross-run paper history. The backing file maps an
// acquisition date ("YYYY-MM-DD") to the set of normalized paper ids
// accepted that day; it is append-only, loaded fully at construction, and
// persisted after every successful acceptance batch. Store is the sole
// writer of its file.
//
// Durability is at-least-once: a crash after accept-but-before-persist can
// hand an already-seen paper downstream again on the next run, which
// callers must tolerate.
type Store struct {
	path  string
	byDay map[string][]string
	known map[string]struct{}
}

// NewStore loads the history file at path. A missing file yields an empty
// store, not an error.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:  path,
		byDay: make(map[string][]string),
		known: make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading history file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.byDay); err != nil {
		return nil, fmt.Errorf("parsing history file %s: %w", path, err)
	}

	for _, ids := range s.byDay {
		for _, id := range ids {
			s.known[types.NormalizeID(id)] = struct{}{}
		}
	}
	return s, nil
}

// IsKnown reports whether a paper with this id was accepted on any prior
// date. The id is normalized before comparison, so any version of a known
// paper is known.
func (s *Store) IsKnown(id string) bool {
	_, ok := s.known[types.NormalizeID(id)]
	return ok
}

// HasDate reports whether an acceptance batch was already recorded for day.
func (s *Store) HasDate(day time.Time) bool {
	_, ok := s.byDay[day.Format(dateFmt)]
	return ok
}

// AllKnownIDs returns the set of every normalized id accepted on any date.
// Linear in the total history size, which is bounded by a handful of
// papers per day.
func (s *Store) AllKnownIDs() map[string]struct{} {
	out := make(map[string]struct{}, len(s.known))
	for id := range s.known {
		out[id] = struct{}{}
	}
	return out
}

// Accept records ids as accepted on day and persists the file before
// returning. Already-known ids are silently skipped, so re-accepting after
// a crash-replay is a no-op rather than an error. A persistence failure is
// returned and means the batch must not be reported as accepted.
func (s *Store) Accept(day time.Time, ids []string) error {
	key := day.Format(dateFmt)

	added := false
	for _, id := range ids {
		norm := types.NormalizeID(id)
		if _, ok := s.known[norm]; ok {
			continue
		}
		s.known[norm] = struct{}{}
		s.byDay[key] = append(s.byDay[key], norm)
		added = true
	}
	if !added {
		return nil
	}
	sort.Strings(s.byDay[key])
	return s.save()
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.byDay, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing history file %s: %w", s.path, err)
	}
	return nil
}
