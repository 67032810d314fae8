// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package budget enforces a rolling monthly call quota per external source.
// Implements: prd002-budget (R1-R4);
//
//	docs/ARCHITECTURE § Budget.
package budget

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Tracker persists and enforces per-source monthly call quotas. The quota
// file maps source name to a period ("YYYY-MM") to call-count map; counts
// only grow within a period and reset by period rollover, never by
// decrement. Tracker is the sole writer of its file.
type Tracker struct {
	mu     sync.Mutex
	path   string
	limits map[string]int
	used   map[string]map[string]int

	// now is replaceable in tests to pin the quota period.
	now func() time.Time
}

// NewTracker loads the quota file at path, creating state for a fresh file
// if it does not exist. Limits maps source name to its monthly call limit;
// a missing or zero entry means the source is untracked and always allowed.
func NewTracker(path string, limits map[string]int) (*Tracker, error) {
	t := &Tracker{
		path:   path,
		limits: limits,
		used:   make(map[string]map[string]int),
		now:    time.Now,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("reading quota file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &t.used); err != nil {
		return nil, fmt.Errorf("parsing quota file %s: %w", path, err)
	}
	return t, nil
}

// periodKey returns the current quota period ("YYYY-MM").
func (t *Tracker) periodKey() string {
	return t.now().Format("2006-01")
}

// CanUse reports whether source has budget left this period and how many
// calls remain. Untracked sources are always allowed with remaining -1.
func (t *Tracker) CanUse(source string) (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canUseLocked(source)
}

func (t *Tracker) canUseLocked(source string) (bool, int) {
	limit := t.limits[source]
	if limit <= 0 {
		return true, -1
	}
	remaining := limit - t.used[source][t.periodKey()]
	return remaining > 0, remaining
}

// Increment charges one call against source's quota and persists the new
// count before returning. It must be called exactly once per outbound call
// the provider accepted, whether or not the response succeeded: the
// provider bills transport, not application-level results. A persistence
// failure is returned so the caller can fail the run rather than silently
// lose consumed quota.
func (t *Tracker) Increment(source string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.incrementLocked(source)
}

func (t *Tracker) incrementLocked(source string) error {
	if t.used[source] == nil {
		t.used[source] = make(map[string]int)
	}
	t.used[source][t.periodKey()]++
	return t.saveLocked()
}

// Reserve atomically checks and charges source's quota: the check and the
// increment happen under one lock so that concurrent adapters cannot
// overspend the monthly budget through a check-then-act race. It returns
// whether the call may proceed and the remaining budget after the charge.
func (t *Tracker) Reserve(source string) (bool, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	allowed, remaining := t.canUseLocked(source)
	if !allowed {
		return false, 0, nil
	}
	if err := t.incrementLocked(source); err != nil {
		return false, remaining, err
	}
	if remaining > 0 {
		remaining--
	}
	return true, remaining, nil
}

// Used returns the calls charged to source in the current period.
func (t *Tracker) Used(source string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used[source][t.periodKey()]
}

// Limit returns the configured monthly limit for source (0 = untracked).
func (t *Tracker) Limit(source string) int {
	return t.limits[source]
}

// saveLocked writes the quota file eagerly so a crash cannot lose consumed
// quota. Caller holds t.mu.
func (t *Tracker) saveLocked() error {
	data, err := json.MarshalIndent(t.used, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling quota: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("creating quota directory: %w", err)
	}
	if err := os.WriteFile(t.path, data, 0o644); err != nil {
		return fmt.Errorf("writing quota file %s: %w", t.path, err)
	}
	return nil
}
