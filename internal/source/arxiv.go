// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sea-turt1e/scholar-rss/internal/httputil"
	"github.com/sea-turt1e/scholar-rss/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

const arxivPDFBase = "https://arxiv.org/pdf/"

// defaultArxivCategories is the AI category set searched when none are
// configured.
var defaultArxivCategories = []string{"cs.AI", "cs.LG", "cs.CL", "cs.CV", "cs.NE"}

// ArxivAdapter queries the arXiv Atom API (R2.1). arXiv supports native
// date filtering, so the window is pushed server-side via submittedDate.
type ArxivAdapter struct {
	Client *http.Client
	Config types.SourceConfig
	Log    zerolog.Logger
}

// Name returns the adapter identifier.
func (a *ArxivAdapter) Name() string { return "arxiv" }

// Fetch queries the arXiv API and returns canonical papers sorted by
// submission date. Citation fields are left at zero for the enrichment
// stage to fill.
func (a *ArxivAdapter) Fetch(ctx context.Context, query string, window Window, limit int) ([]types.Paper, error) {
	if query == "" {
		query = a.categoryQuery()
	}
	if !window.Start.IsZero() {
		query = fmt.Sprintf("(%s) AND submittedDate:[%s TO %s]",
			query, window.Start.Format("200601021504"), window.End.Format("200601021504"))
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{
		"search_query": {query},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(limit)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("arXiv API: %w", ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var papers []types.Paper
	for _, entry := range feed.Entries {
		p, err := a.parseEntry(entry)
		if err != nil {
			// A single malformed entry is skipped; the batch continues.
			a.Log.Warn().Err(err).Str("entry", entry.ID).Msg("skipping malformed arXiv entry")
			continue
		}
		papers = append(papers, p)
	}
	return papers, nil
}

func (a *ArxivAdapter) categoryQuery() string {
	cats := a.Config.ArxivCategories
	if len(cats) == 0 {
		cats = defaultArxivCategories
	}
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = "cat:" + c
	}
	return strings.Join(parts, " OR ")
}

func (a *ArxivAdapter) parseEntry(entry arxivEntry) (types.Paper, error) {
	id := arxivIDFromURL(entry.ID)
	if id == "" {
		return types.Paper{}, fmt.Errorf("entry has no arXiv id")
	}

	published, err := time.Parse(time.RFC3339, strings.TrimSpace(entry.Published))
	if err != nil {
		return types.Paper{}, fmt.Errorf("entry %s has unparseable published date %q", id, entry.Published)
	}

	p := types.Paper{
		ID:        id,
		Title:     strings.TrimSpace(entry.Title),
		Abstract:  strings.TrimSpace(entry.Summary),
		Published: published,
		SourceURL: strings.TrimSpace(entry.ID),
		// The PDF URL is derived by template from the id's trailing
		// identifier.
		PDFURL: arxivPDFBase + id,
		Source: "arxiv",
	}
	for _, au := range entry.Authors {
		p.Authors = append(p.Authors, strings.TrimSpace(au.Name))
	}
	for _, c := range entry.Categories {
		if c.Term != "" {
			p.Categories = append(p.Categories, c.Term)
		}
	}
	return p, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Authors    []arxivAuthor   `xml:"author"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// arxivIDFromURL pulls the arXiv ID from the entry's <id> URL, keeping any
// version suffix (e.g. "http://arxiv.org/abs/2507.13353v1" → "2507.13353v1").
func arxivIDFromURL(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(idURL[idx+len(prefix):])
}
