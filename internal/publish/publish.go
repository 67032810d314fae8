// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package publish turns summarized papers into articles and records which
// platforms already carry them, so a paper is never posted twice.
package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sea-turt1e/scholar-rss/internal/archive"
	"github.com/sea-turt1e/scholar-rss/internal/summarize"
	"github.com/sea-turt1e/scholar-rss/pkg/types"
)

// Publisher posts one summarized paper to a platform.
type Publisher interface {
	Platform() string
	Publish(ctx context.Context, paper types.Paper, sum summarize.Summary) (url string, err error)
}

// FilePublisher writes one markdown article per paper into a directory.
// It stands in for a real blogging API: the article file path doubles as
// the published URL.
type FilePublisher struct {
	Dir string
}

func (p *FilePublisher) Platform() string { return "file" }

func (p *FilePublisher) Publish(ctx context.Context, paper types.Paper, sum summarize.Summary) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating articles directory: %w", err)
	}

	path := filepath.Join(p.Dir, articleFileName(paper))
	if err := os.WriteFile(path, []byte(renderArticle(paper, sum)), 0o644); err != nil {
		return "", fmt.Errorf("writing article for %s: %w", paper.ID, err)
	}
	return path, nil
}

func articleFileName(paper types.Paper) string {
	return types.NormalizeID(paper.ID) + ".md"
}

func renderArticle(paper types.Paper, sum summarize.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", paper.Title)
	if !paper.Published.IsZero() {
		fmt.Fprintf(&b, "Published: %s\n", paper.Published.Format("2006-01-02"))
	}
	if len(paper.Authors) > 0 {
		fmt.Fprintf(&b, "Authors: %s\n", strings.Join(paper.Authors, ", "))
	}
	if paper.CitationCount > 0 {
		fmt.Fprintf(&b, "Citations: %d\n", paper.CitationCount)
	}
	b.WriteString("\n")
	b.WriteString(sum.Text)
	b.WriteString("\n")
	for _, h := range sum.Highlight {
		fmt.Fprintf(&b, "\n- %s", h)
	}
	if len(sum.Highlight) > 0 {
		b.WriteString("\n")
	}
	if paper.SourceURL != "" {
		fmt.Fprintf(&b, "\n[%s](%s)\n", paper.ID, paper.SourceURL)
	}
	return b.String()
}

// Runner publishes a batch through one publisher, skipping papers the
// archive already shows on that platform. Per-paper failures are logged
// and skipped; they never stop the batch.
type Runner struct {
	Publisher  Publisher
	Summarizer summarize.Summarizer
	Archive    *archive.Store
	Log        zerolog.Logger
}

// PublishAll processes papers in order and returns how many were posted.
func (r *Runner) PublishAll(ctx context.Context, papers []types.Paper) (int, error) {
	posted := 0
	for _, paper := range papers {
		if err := ctx.Err(); err != nil {
			return posted, err
		}

		done, err := r.Archive.IsPublished(paper.ID, r.Publisher.Platform())
		if err != nil {
			return posted, fmt.Errorf("checking publication state for %s: %w", paper.ID, err)
		}
		if done {
			r.Log.Debug().Str("paper", paper.ID).Msg("already published, skipping")
			continue
		}

		sum, err := r.Summarizer.Summarize(ctx, paper)
		if err != nil {
			r.Log.Warn().Str("paper", paper.ID).Err(err).Msg("summarization failed, skipping")
			continue
		}

		url, err := r.Publisher.Publish(ctx, paper, sum)
		if err != nil {
			r.Log.Warn().Str("paper", paper.ID).Err(err).Msg("publishing failed, skipping")
			continue
		}

		if err := r.Archive.MarkPublished(paper.ID, r.Publisher.Platform(), url); err != nil {
			return posted, fmt.Errorf("recording publication of %s: %w", paper.ID, err)
		}
		posted++
		r.Log.Info().Str("paper", paper.ID).Str("url", url).Msg("published")
	}
	return posted, nil
}
