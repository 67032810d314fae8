// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sea-turt1e/scholar-rss/internal/httputil"
	"github.com/sea-turt1e/scholar-rss/pkg/types"
)

// scholarAPIBase is the scholar search-engine endpoint. Declared as a var
// so tests can substitute an httptest server.
var scholarAPIBase = "https://serpapi.com/search"

// freeDomains hosts papers that are openly accessible. Results whose links
// fall outside this set (and carry no PDF resource) are dropped.
var freeDomains = []string{
	"arxiv.org",
	"openreview.net",
	"aclanthology.org",
	"proceedings.neurips.cc",
	"proceedings.mlr.press",
	"openaccess.thecvf.com",
	"plos.org",
	"ncbi.nlm.nih.gov/pmc",
	"biorxiv.org",
	"medrxiv.org",
}

// yearPattern extracts a publication year from the free-text
// publication_info summary.
var yearPattern = regexp.MustCompile(`\b(20[1-2]\d)\b`)

// ScholarAdapter queries a scholar search engine through its search API
// (R2.3). The engine has no stable paper ids, so ids are content hashes of
// title+link. Date filtering is limited to year bounds, which the adapter
// derives from the window.
type ScholarAdapter struct {
	Client *http.Client
	Config types.SourceConfig
	Log    zerolog.Logger
}

// Name returns the adapter identifier.
func (a *ScholarAdapter) Name() string { return "scholar" }

// Fetch runs one search-engine query and returns the free, sufficiently
// cited results as canonical papers. An empty query selects today's canned
// query by day-of-month rotation.
func (a *ScholarAdapter) Fetch(ctx context.Context, query string, window Window, limit int) ([]types.Paper, error) {
	if query == "" {
		query = RotateQuery(a.Config.ScholarQueries, nowFunc().Day())
	}
	if query == "" {
		return nil, fmt.Errorf("scholar query is empty")
	}
	if a.Config.SerpAPIKey == "" {
		return nil, fmt.Errorf("scholar search requires an API key")
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{
		"engine":  {"google_scholar"},
		"q":       {query},
		"api_key": {a.Config.SerpAPIKey},
		"num":     {strconv.Itoa(overFetch(limit))},
		"hl":      {"en"},
	}
	if !window.Start.IsZero() {
		params.Set("as_ylo", strconv.Itoa(window.Start.Year()))
	}
	if !window.End.IsZero() {
		params.Set("as_yhi", strconv.Itoa(window.End.Year()))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scholarAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("scholar API request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("scholar API: %w", ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr scholarResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing scholar response: %w", err)
	}
	if len(sr.OrganicResults) == 0 {
		a.Log.Info().Str("query", query).Msg("scholar search returned no organic results")
		return nil, nil
	}

	minCitations := a.Config.MinCitations
	if minCitations <= 0 {
		minCitations = 10
	}

	var papers []types.Paper
	for _, result := range sr.OrganicResults {
		if result.Title == "" && result.Link == "" {
			// No identity to hash; skip this entry and keep the batch.
			a.Log.Warn().Msg("skipping scholar entry without title or link")
			continue
		}
		if !isFreePaper(result) {
			continue
		}
		citations := result.InlineLinks.CitedBy.Total
		if citations < minCitations {
			continue
		}

		p := types.Paper{
			ID:            types.HashID(result.Title, result.Link),
			Title:         result.Title,
			Abstract:      result.Snippet,
			SourceURL:     result.Link,
			PDFURL:        extractPDFLink(result),
			CitationCount: citations,
			Source:        "scholar",
		}
		for _, au := range result.PublicationInfo.Authors {
			if au.Name != "" {
				p.Authors = append(p.Authors, au.Name)
			}
		}
		if year := extractYear(result.PublicationInfo.Summary); year > 0 {
			p.Published = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// isFreePaper reports whether a result points at an openly accessible
// copy: a PDF resource, a free-domain link, or an arXiv-tagged title.
func isFreePaper(result scholarResult) bool {
	for _, res := range result.Resources {
		link := strings.ToLower(res.Link)
		if link == "" {
			continue
		}
		if strings.HasSuffix(link, ".pdf") || hasFreeDomain(link) {
			return true
		}
	}
	if hasFreeDomain(strings.ToLower(result.Link)) {
		return true
	}
	title := strings.ToLower(result.Title)
	return strings.Contains(title, "arxiv:") || strings.Contains(title, "[arxiv]")
}

func hasFreeDomain(link string) bool {
	for _, domain := range freeDomains {
		if strings.Contains(link, domain) {
			return true
		}
	}
	return false
}

// extractPDFLink returns the best direct PDF link, preferring explicit
// .pdf resources over free-repository links.
func extractPDFLink(result scholarResult) string {
	for _, res := range result.Resources {
		if strings.HasSuffix(strings.ToLower(res.Link), ".pdf") {
			return res.Link
		}
	}
	for _, res := range result.Resources {
		if hasFreeDomain(strings.ToLower(res.Link)) {
			return res.Link
		}
	}
	return ""
}

// extractYear regex-extracts the publication year from the free-text
// publication summary (e.g. "J Smith, A Jones - 2023 - arxiv.org").
func extractYear(summary string) int {
	m := yearPattern.FindString(summary)
	if m == "" {
		return 0
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return year
}

// Scholar search API JSON structures.
type scholarResponse struct {
	OrganicResults []scholarResult `json:"organic_results"`
}

type scholarResult struct {
	Title           string             `json:"title"`
	Link            string             `json:"link"`
	Snippet         string             `json:"snippet"`
	Resources       []scholarResource  `json:"resources"`
	InlineLinks     scholarInlineLinks `json:"inline_links"`
	PublicationInfo scholarPubInfo     `json:"publication_info"`
}

type scholarResource struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

type scholarInlineLinks struct {
	CitedBy scholarCitedBy `json:"cited_by"`
}

type scholarCitedBy struct {
	Total int `json:"total"`
}

type scholarPubInfo struct {
	Summary string          `json:"summary"`
	Authors []scholarAuthor `json:"authors"`
}

type scholarAuthor struct {
	Name string `json:"name"`
}
