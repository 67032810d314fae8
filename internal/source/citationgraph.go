// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/sea-turt1e/scholar-rss/internal/httputil"
	"github.com/sea-turt1e/scholar-rss/pkg/types"
)

// citationGraphAPIBase is the citation-graph paper search endpoint.
// Declared as a var so tests can substitute an httptest server.
var citationGraphAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const citationGraphFields = "title,abstract,authors,externalIds,year,publicationDate,citationCount"

// defaultLookback bounds window widening when a strict date filter yields
// no results.
const defaultLookback = 365 * 24 * time.Hour

// CitationGraphAdapter queries the Semantic Scholar citation graph (R2.2).
// The search endpoint cannot filter to an arbitrary day range, so the
// adapter requests the full look-back span server-side, over-fetches, and
// applies the strict window client-side. When the strict filter would
// return nothing it falls back to the widened set, preferring some ranked
// result over an empty one.
type CitationGraphAdapter struct {
	Client *http.Client
	Config types.SourceConfig
	Log    zerolog.Logger
}

// Name returns the adapter identifier.
func (a *CitationGraphAdapter) Name() string { return "citation_graph" }

// Fetch queries the citation-graph search API. A query string is required
// for this source; the caller supplies the rotated canned query.
func (a *CitationGraphAdapter) Fetch(ctx context.Context, query string, window Window, limit int) ([]types.Paper, error) {
	if query == "" {
		query = RotateQuery(a.Config.ScholarQueries, nowFunc().Day())
	}
	if query == "" {
		return nil, fmt.Errorf("citation-graph query is empty")
	}
	if limit <= 0 {
		limit = 10
	}

	lookback := a.Config.MaxLookback
	if lookback <= 0 {
		lookback = defaultLookback
	}
	wide := window.Widen(lookback)

	params := url.Values{
		"query":  {query},
		"fields": {citationGraphFields},
		// Over-fetch so the client-side window filter still has material.
		"limit": {strconv.Itoa(overFetch(limit))},
		"sort":  {"citationCount:desc"},
	}
	if !window.End.IsZero() {
		params.Set("publicationDateOrYear",
			wide.Start.Format("2006-01-02")+":"+wide.End.Format("2006-01-02"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, citationGraphAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.Config.UserAgent)
	if a.Config.SemanticScholarAPIKey != "" {
		req.Header.Set("x-api-key", a.Config.SemanticScholarAPIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("citation-graph API request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("citation-graph API: %w", ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("citation-graph API returned HTTP %d", resp.StatusCode)
	}

	var sr citationGraphResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing citation-graph response: %w", err)
	}

	var all []types.Paper
	for _, raw := range sr.Data {
		p, err := a.parsePaper(raw)
		if err != nil {
			a.Log.Warn().Err(err).Msg("skipping malformed citation-graph entry")
			continue
		}
		all = append(all, p)
	}

	var strict []types.Paper
	for _, p := range all {
		if window.Contains(p.Published) {
			strict = append(strict, p)
		}
	}
	if len(strict) > 0 {
		return strict, nil
	}
	if len(all) > 0 {
		a.Log.Info().
			Time("window_start", window.Start).
			Time("widened_start", wide.Start).
			Int("candidates", len(all)).
			Msg("strict window empty, returning widened results")
	}
	return all, nil
}

// overFetch returns the server-side result count for a requested limit.
func overFetch(limit int) int {
	n := limit * 3
	if n > 100 {
		n = 100
	}
	return n
}

func (a *CitationGraphAdapter) parsePaper(raw citationGraphPaper) (types.Paper, error) {
	if raw.Title == "" {
		return types.Paper{}, fmt.Errorf("entry has no title")
	}

	p := types.Paper{
		Title:         raw.Title,
		Abstract:      raw.Abstract,
		CitationCount: raw.CitationCount,
		Source:        "citation_graph",
	}

	// Cross-reference into the canonical id space via the arXiv external
	// id; papers outside arXiv fall back to a content hash.
	if raw.ExternalIDs.ArXiv != "" {
		p.ID = raw.ExternalIDs.ArXiv
		p.SourceURL = "https://arxiv.org/abs/" + raw.ExternalIDs.ArXiv
		p.PDFURL = arxivPDFBase + raw.ExternalIDs.ArXiv
	} else if raw.URL != "" {
		p.ID = types.HashID(raw.Title, raw.URL)
		p.SourceURL = raw.URL
	} else {
		p.ID = types.HashID(raw.Title, raw.PaperID)
	}

	for _, au := range raw.Authors {
		p.Authors = append(p.Authors, au.Name)
	}

	if raw.PublicationDate != "" {
		t, err := time.Parse("2006-01-02", raw.PublicationDate)
		if err != nil {
			return types.Paper{}, fmt.Errorf("entry %q has unparseable date %q", raw.Title, raw.PublicationDate)
		}
		p.Published = t
	} else if raw.Year > 0 {
		p.Published = time.Date(raw.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return p, nil
}

// Citation-graph API JSON structures.
type citationGraphResponse struct {
	Total  int                  `json:"total"`
	Offset int                  `json:"offset"`
	Data   []citationGraphPaper `json:"data"`
}

type citationGraphPaper struct {
	PaperID         string                 `json:"paperId"`
	Title           string                 `json:"title"`
	Abstract        string                 `json:"abstract"`
	URL             string                 `json:"url"`
	Year            int                    `json:"year"`
	PublicationDate string                 `json:"publicationDate"`
	CitationCount   int                    `json:"citationCount"`
	Authors         []citationGraphAuthor  `json:"authors"`
	ExternalIDs     citationGraphExternals `json:"externalIds"`
}

type citationGraphAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type citationGraphExternals struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
