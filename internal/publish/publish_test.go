// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sea-turt1e/scholar-rss/internal/archive"
	"github.com/sea-turt1e/scholar-rss/internal/summarize"
	"github.com/sea-turt1e/scholar-rss/pkg/types"
)

type fakeSummarizer struct {
	failFor map[string]bool
	calls   int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, paper types.Paper) (summarize.Summary, error) {
	f.calls++
	if f.failFor[paper.ID] {
		return summarize.Summary{}, errors.New("model unavailable")
	}
	return summarize.Summary{PaperID: paper.ID, Title: paper.Title, Text: "summary of " + paper.ID}, nil
}

func newTestRunner(t *testing.T) (*Runner, *fakeSummarizer, string) {
	t.Helper()
	store, err := archive.NewStore(types.ArchiveConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	articles := t.TempDir()
	sum := &fakeSummarizer{failFor: map[string]bool{}}
	r := &Runner{
		Publisher:  &FilePublisher{Dir: articles},
		Summarizer: sum,
		Archive:    store,
		Log:        zerolog.Nop(),
	}
	return r, sum, articles
}

func testPapers() []types.Paper {
	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	return []types.Paper{
		{ID: "2502.00001v1", Title: "First", Authors: []string{"A. Author"}, Published: day, CitationCount: 4, SourceURL: "https://arxiv.org/abs/2502.00001v1"},
		{ID: "2502.00002", Title: "Second", Published: day},
	}
}

func TestPublishAllWritesArticlesAndMarks(t *testing.T) {
	r, _, articles := newTestRunner(t)
	papers := testPapers()

	posted, err := r.PublishAll(context.Background(), papers)
	if err != nil {
		t.Fatalf("PublishAll: %v", err)
	}
	if posted != 2 {
		t.Fatalf("posted = %d, want 2", posted)
	}

	// Article file name uses the normalized id.
	data, err := os.ReadFile(filepath.Join(articles, "2502.00001.md"))
	if err != nil {
		t.Fatalf("reading article: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "# First") || !strings.Contains(text, "summary of 2502.00001v1") {
		t.Errorf("article content:\n%s", text)
	}
	if !strings.Contains(text, "Citations: 4") {
		t.Errorf("article missing citation line:\n%s", text)
	}

	ok, err := r.Archive.IsPublished("2502.00001v2", "file")
	if err != nil {
		t.Fatalf("IsPublished: %v", err)
	}
	if !ok {
		t.Error("publication mark does not fold versions")
	}
}

func TestPublishAllSkipsAlreadyPublished(t *testing.T) {
	r, sum, _ := newTestRunner(t)
	papers := testPapers()

	if _, err := r.PublishAll(context.Background(), papers); err != nil {
		t.Fatalf("first PublishAll: %v", err)
	}
	calls := sum.calls

	posted, err := r.PublishAll(context.Background(), papers)
	if err != nil {
		t.Fatalf("second PublishAll: %v", err)
	}
	if posted != 0 {
		t.Errorf("second pass posted %d, want 0", posted)
	}
	if sum.calls != calls {
		t.Error("already-published papers were summarized again")
	}
}

func TestPublishAllSummarizerFailureSkipsPaper(t *testing.T) {
	r, sum, _ := newTestRunner(t)
	papers := testPapers()
	sum.failFor["2502.00001v1"] = true

	posted, err := r.PublishAll(context.Background(), papers)
	if err != nil {
		t.Fatalf("PublishAll: %v", err)
	}
	if posted != 1 {
		t.Fatalf("posted = %d, want 1", posted)
	}

	ok, err := r.Archive.IsPublished("2502.00001", "file")
	if err != nil {
		t.Fatalf("IsPublished: %v", err)
	}
	if ok {
		t.Error("failed paper was marked published")
	}
}

func TestPublishAllCancelledContext(t *testing.T) {
	r, _, _ := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.PublishAll(ctx, testPapers()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
