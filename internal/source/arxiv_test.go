// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sea-turt1e/scholar-rss/internal/httputil"
	"github.com/sea-turt1e/scholar-rss/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = 1 * time.Millisecond
}

const arxivFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2507.13353v1</id>
    <title>Scaling Laws for Test-Time Compute</title>
    <summary>  We study scaling behaviour at inference time.  </summary>
    <published>2026-02-05T17:59:00Z</published>
    <author><name>A. Researcher</name></author>
    <author><name>B. Scholar</name></author>
    <category term="cs.LG"/>
    <category term="cs.AI"/>
  </entry>
  <entry>
    <id></id>
    <title>Entry Without An Identifier</title>
    <summary>Malformed: no id.</summary>
    <published>2026-02-04T00:00:00Z</published>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2507.99999v2</id>
    <title>Sparse Attention Revisited</title>
    <summary>Another paper.</summary>
    <published>not-a-date</published>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2508.00001v1</id>
    <title>Diffusion Models for Tabular Data</title>
    <summary>Third paper.</summary>
    <published>2026-02-03T09:30:00Z</published>
    <author><name>C. Author</name></author>
    <category term="cs.LG"/>
  </entry>
</feed>`

func testWindow() Window {
	end := time.Date(2026, time.February, 8, 0, 0, 0, 0, time.UTC)
	return Window{Start: end.AddDate(0, 0, -7), End: end}
}

func newArxivAdapter(url string) *ArxivAdapter {
	return &ArxivAdapter{
		Client: http.DefaultClient,
		Config: types.SourceConfig{
			HTTPConfig: types.HTTPConfig{UserAgent: "scholar-rss-test/0.1"},
		},
		Log: zerolog.Nop(),
	}
}

func TestArxivFetch(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		if r.URL.Query().Get("sortBy") != "submittedDate" {
			t.Errorf("sortBy = %q, want submittedDate", r.URL.Query().Get("sortBy"))
		}
		w.Write([]byte(arxivFeedXML))
	}))
	defer ts.Close()
	prev := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = prev }()

	a := newArxivAdapter(ts.URL)
	papers, err := a.Fetch(context.Background(), "", testWindow(), 10)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	// The two malformed entries (missing id, unparseable date) are
	// skipped; the batch continues.
	if len(papers) != 2 {
		t.Fatalf("len(papers) = %d, want 2", len(papers))
	}

	p := papers[0]
	if p.ID != "2507.13353v1" {
		t.Errorf("ID = %q, want 2507.13353v1", p.ID)
	}
	if p.Title != "Scaling Laws for Test-Time Compute" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Abstract != "We study scaling behaviour at inference time." {
		t.Errorf("Abstract not trimmed: %q", p.Abstract)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "A. Researcher" {
		t.Errorf("Authors = %v", p.Authors)
	}
	if len(p.Categories) != 2 || p.Categories[0] != "cs.LG" {
		t.Errorf("Categories = %v", p.Categories)
	}
	if p.PDFURL != "https://arxiv.org/pdf/2507.13353v1" {
		t.Errorf("PDFURL = %q, want template-derived link", p.PDFURL)
	}
	if p.Source != "arxiv" {
		t.Errorf("Source = %q, want arxiv", p.Source)
	}
	if p.CitationCount != 0 {
		t.Errorf("CitationCount = %d, want 0 before enrichment", p.CitationCount)
	}

	// The default category set and the window are pushed server-side.
	if !strings.Contains(gotQuery, "cat:cs.AI") {
		t.Errorf("search_query %q missing category filter", gotQuery)
	}
	if !strings.Contains(gotQuery, "submittedDate:[202602010000 TO 202602080000]") {
		t.Errorf("search_query %q missing date filter", gotQuery)
	}
}

func TestArxivFetchNotFoundIsZeroResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()
	prev := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = prev }()

	a := newArxivAdapter(ts.URL)
	papers, err := a.Fetch(context.Background(), "", testWindow(), 10)
	if err != nil {
		t.Fatalf("Fetch() error = %v, want nil for 404", err)
	}
	if len(papers) != 0 {
		t.Errorf("len(papers) = %d, want 0", len(papers))
	}
}

func TestArxivFetchRateLimitBounded(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()
	prev := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = prev }()

	a := newArxivAdapter(ts.URL)
	_, err := a.Fetch(context.Background(), "", testWindow(), 10)
	if err == nil {
		t.Fatal("Fetch() error = nil, want rate-limit error")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want exactly 3 attempts", calls)
	}
}

func TestArxivFetchCancelledContextIsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(arxivFeedXML))
	}))
	defer ts.Close()
	prev := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = prev }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := newArxivAdapter(ts.URL)
	_, err := a.Fetch(ctx, "", testWindow(), 10)
	// A cancelled fetch must surface as an error, never masquerade as
	// "no papers exist".
	if err == nil {
		t.Fatal("Fetch() with cancelled context returned nil error")
	}
}

func TestArxivIDFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://arxiv.org/abs/2507.13353v1", "2507.13353v1"},
		{"https://arxiv.org/abs/2301.07041", "2301.07041"},
		{"https://example.org/nothing", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := arxivIDFromURL(tt.in); got != tt.want {
			t.Errorf("arxivIDFromURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
