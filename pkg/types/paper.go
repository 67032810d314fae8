// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the scholar-rss pipeline.
// Implements: prd001-sources (Paper);
//
//	prd003-history (NormalizeID);
//	docs/ARCHITECTURE § Data Structures.
package types

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Paper is the canonical record produced by a source adapter. It is
// immutable after creation except for the citation fields, which the
// enrichment stage may fill in.
type Paper struct {
	// ID is the stable external identifier: an arXiv ID for sources that
	// carry one (e.g. "2507.13353v1"), or a content hash of title+link for
	// sources without a stable identifier.
	ID string `json:"id" yaml:"id"`

	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract, or the result snippet for sources
	// that only return snippets.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Published is the publication or preprint date. Sources that only
	// report a year use January 1 of that year.
	Published time.Time `json:"published" yaml:"published"`

	// Categories lists subject classifications (e.g. "cs.AI").
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// SourceURL is the paper's landing page.
	SourceURL string `json:"source_url" yaml:"source_url"`

	// PDFURL is a direct PDF link when one is known.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// CitationCount is the number of citations reported by the source or
	// filled by enrichment. Zero means unavailable, not an error.
	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// CitationVelocity is the recent-citation rate when the enrichment
	// source reports one. Zero means unavailable.
	CitationVelocity int `json:"citation_velocity" yaml:"citation_velocity"`

	// Source identifies which adapter produced this record
	// (e.g. "arxiv", "citation_graph", "scholar").
	Source string `json:"source" yaml:"source"`
}

// NormalizeID strips a trailing version suffix ("v1", "v2", ...) from a
// paper identifier. Two versions of the same paper normalize to the same
// key and are treated as the same publication for history purposes.
func NormalizeID(id string) string {
	vIdx := strings.LastIndex(id, "v")
	if vIdx <= 0 || vIdx == len(id)-1 {
		return id
	}
	if _, err := strconv.Atoi(id[vIdx+1:]); err != nil {
		return id
	}
	return id[:vIdx]
}

// HashID derives a stable identifier for a paper from a source that has
// no native ID, by hashing title and link.
func HashID(title, link string) string {
	h := sha256.Sum256([]byte(title + link))
	return fmt.Sprintf("gs-%x", h[:8])
}
