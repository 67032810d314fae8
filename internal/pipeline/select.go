// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one acquisition pass: it fans the query out to the
// source adapters under the budget tracker, enriches citation data,
// filters against the cross-run history, and ranks and truncates the
// merged candidates.
// Implements: prd006-pipeline (R1-R5);
//
//	docs/ARCHITECTURE § Pipeline.
package pipeline

import (
	"sort"

	"github.com/sea-turt1e/scholar-rss/pkg/types"
)

// Select merges candidate papers into the ranked acceptance list: it
// drops candidates whose normalized id is already known or was seen
// earlier in the same batch (first occurrence wins), sorts by citation
// count, then citation velocity, then publication date, all descending,
// and truncates to wanted.
//
// Select is a pure function: no I/O, deterministic for identical inputs.
func Select(candidates []types.Paper, known map[string]struct{}, wanted int) []types.Paper {
	seen := make(map[string]struct{}, len(candidates))
	var selected []types.Paper

	for _, c := range candidates {
		id := types.NormalizeID(c.ID)
		if _, ok := known[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		selected = append(selected, c)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if a.CitationCount != b.CitationCount {
			return a.CitationCount > b.CitationCount
		}
		if a.CitationVelocity != b.CitationVelocity {
			return a.CitationVelocity > b.CitationVelocity
		}
		return a.Published.After(b.Published)
	})

	if wanted > 0 && len(selected) > wanted {
		selected = selected[:wanted]
	}
	return selected
}
