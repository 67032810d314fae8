// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich augments papers with citation metrics from the citation
// graph, tolerating partial failure per item.
// Implements: prd004-enrich (R1-R3);
//
//	docs/ARCHITECTURE § Enrichment.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/sea-turt1e/scholar-rss/pkg/types"
)

// lookupAPIBase is the per-paper citation lookup endpoint. Declared as a
// var so tests can substitute an httptest server.
var lookupAPIBase = "https://api.semanticscholar.org/graph/v1/paper/"

const lookupFields = "citationCount,citationVelocity"

// defaultInterval is the provider-documented minimum spacing between
// lookups on the keyless tier.
const defaultInterval = 3 * time.Second

// Enricher fills CitationCount and CitationVelocity on papers that carry
// an arXiv id. Lookups run strictly serially, paced by a token bucket, to
// stay inside the provider's no-quota-bucket rate, which is separate from
// the budget-tracked monthly quota.
type Enricher struct {
	client  *http.Client
	limiter *rate.Limiter
	apiKey  string

	// preferVelocity selects the citation-metric precedence: when false,
	// velocity reported by the provider is discarded.
	preferVelocity bool

	userAgent string
	log       zerolog.Logger
}

// New builds an Enricher from config.
func New(cfg types.EnrichConfig, log zerolog.Logger) *Enricher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Enricher{
		client:         &http.Client{Timeout: timeout},
		limiter:        rate.NewLimiter(rate.Every(interval), 1),
		apiKey:         cfg.APIKey,
		preferVelocity: cfg.PreferVelocity,
		userAgent:      cfg.UserAgent,
		log:            log,
	}
}

// Enrich looks up citation metrics for each paper and returns the updated
// slice. Per-item failures (timeout, not-found, malformed) leave the
// paper's citation fields at their prior values and never abort the
// batch. Papers without an arXiv-style id are skipped: the lookup
// endpoint is keyed by arXiv id. Context cancellation stops further
// lookups and returns what has been enriched so far.
func (e *Enricher) Enrich(ctx context.Context, papers []types.Paper) []types.Paper {
	out := make([]types.Paper, len(papers))
	copy(out, papers)

	for i := range out {
		if ctx.Err() != nil {
			e.log.Warn().Err(ctx.Err()).Msg("enrichment stopped early")
			return out
		}
		id := types.NormalizeID(out[i].ID)
		if !looksLikeArxivID(id) {
			continue
		}
		if err := e.limiter.Wait(ctx); err != nil {
			e.log.Warn().Err(err).Msg("enrichment stopped early")
			return out
		}

		count, velocity, err := e.lookup(ctx, id)
		if err != nil {
			e.log.Debug().Err(err).Str("paper", id).Msg("citation lookup failed, keeping prior values")
			continue
		}
		if count > 0 {
			out[i].CitationCount = count
		}
		if e.preferVelocity && velocity > 0 {
			out[i].CitationVelocity = velocity
		}
	}
	return out
}

// lookup fetches citation metrics for one arXiv id. The response schema
// varies across API versions ("citationCount" vs "numCitedBy"), so both
// field names are decoded and the first available one wins; an unknown
// schema fails closed to zero values rather than erroring.
func (e *Enricher) lookup(ctx context.Context, arxivID string) (count, velocity int, err error) {
	url := fmt.Sprintf("%sarXiv:%s?fields=%s", lookupAPIBase, arxivID, lookupFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	if e.apiKey != "" {
		req.Header.Set("x-api-key", e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("citation lookup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("citation lookup returned HTTP %d", resp.StatusCode)
	}

	var lr lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return 0, 0, fmt.Errorf("parsing citation lookup response: %w", err)
	}

	switch {
	case lr.CitationCount != nil:
		count = *lr.CitationCount
	case lr.NumCitedBy != nil:
		count = *lr.NumCitedBy
	}
	return count, lr.CitationVelocity, nil
}

// looksLikeArxivID reports whether id has the "NNNN.NNNNN" shape.
func looksLikeArxivID(id string) bool {
	if len(id) < 9 {
		return false
	}
	for i, r := range id {
		switch {
		case i == 4:
			if r != '.' {
				return false
			}
		case r < '0' || r > '9':
			return false
		}
	}
	return true
}

// lookupResponse tolerates both citation field naming schemes.
type lookupResponse struct {
	PaperID          string `json:"paperId"`
	CitationCount    *int   `json:"citationCount"`
	NumCitedBy       *int   `json:"numCitedBy"`
	CitationVelocity int    `json:"citationVelocity"`
}
