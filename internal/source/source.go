// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source queries the external paper APIs and translates each
// source's native response into the canonical Paper record.
// Implements: prd001-sources (R1-R5);
//
//	docs/ARCHITECTURE § Sources.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/sea-turt1e/scholar-rss/pkg/types"
)

// Adapter fetches candidate papers from a single external source. Each
// adapter (arXiv, citation graph, scholar search) implements this
// interface per the Strategy pattern (R1.6).
type Adapter interface {
	Name() string

	// Fetch returns up to limit papers matching query within window. An
	// empty query selects the adapter's canned query for the day. A
	// zero-result fetch returns (nil, nil); errors mean the fetch as a
	// whole failed and no partial data is returned.
	Fetch(ctx context.Context, query string, window Window, limit int) ([]types.Paper, error)
}

// ErrRateLimited marks a fetch that kept hitting HTTP 429 after bounded
// retries. Callers log it and continue with the remaining sources.
var ErrRateLimited = errors.New("rate limited after retries")

// nowFunc is replaceable in tests to pin query rotation.
var nowFunc = time.Now

// Window is a half-open date interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Widen returns a window with the same end and the start moved back to
// lookback before the end. Used when a strict filter yields no results.
func (w Window) Widen(lookback time.Duration) Window {
	return Window{Start: w.End.Add(-lookback), End: w.End}
}

// RotateQuery deterministically selects one of the canned query strings by
// day-of-month, so repeated daily runs sample different queries without
// any external state: queries[(day-1) mod len(queries)].
func RotateQuery(queries []string, day int) string {
	if len(queries) == 0 {
		return ""
	}
	if day < 1 {
		day = 1
	}
	return queries[(day-1)%len(queries)]
}
