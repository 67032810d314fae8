// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sea-turt1e/scholar-rss/internal/archive"
	"github.com/sea-turt1e/scholar-rss/internal/budget"
	"github.com/sea-turt1e/scholar-rss/internal/enrich"
	"github.com/sea-turt1e/scholar-rss/internal/history"
	"github.com/sea-turt1e/scholar-rss/internal/source"
	"github.com/sea-turt1e/scholar-rss/pkg/types"
)

// Enricher is the citation-completion stage. Satisfied by *enrich.Enricher.
type Enricher interface {
	Enrich(ctx context.Context, papers []types.Paper) []types.Paper
}

var _ Enricher = (*enrich.Enricher)(nil)

// Pipeline wires the acquisition stages together for one run. Adapters
// are queried concurrently with each other; calls to any single source
// stay sequential inside its adapter.
type Pipeline struct {
	Adapters []source.Adapter
	Enricher Enricher       // optional; nil disables enrichment
	Budget   *budget.Tracker
	History  *history.Store
	Archive  *archive.Store // optional; nil disables archiving
	Config   types.PipelineConfig
	Log      zerolog.Logger

	// now is replaceable in tests to pin the acquisition date.
	now func() time.Time
}

// Result holds the outcome of one acquisition run.
type Result struct {
	// Papers is the ranked, deduplicated, truncated acceptance list.
	Papers []types.Paper

	// SourceErrors records per-source failures that did not stop the run
	// (rate limiting after retries, quota exhaustion, fatal fetch errors
	// on one source while siblings continued).
	SourceErrors []string

	// Widened reports whether the run fell back to the widened window
	// after the strict window produced nothing new.
	Widened bool
}

// Run performs one acquisition pass and returns up to wanted new papers.
// A run that acquires zero papers is a valid outcome, not an error; an
// error is returned only when accepted papers could not be persisted or
// every stage was unusable.
func (p *Pipeline) Run(ctx context.Context, wanted int, force bool) (Result, error) {
	nowFn := p.now
	if nowFn == nil {
		nowFn = time.Now
	}
	today := nowFn()

	if wanted <= 0 {
		wanted = p.Config.MaxPapers
	}
	if wanted <= 0 {
		wanted = 3
	}

	if !force && p.History.HasDate(today) {
		p.Log.Info().Str("date", today.Format("2006-01-02")).Msg("papers already fetched today")
		return Result{}, nil
	}

	daysBack := p.Config.DaysBack
	if daysBack <= 0 {
		daysBack = 7
	}
	strict := source.Window{Start: today.AddDate(0, 0, -daysBack), End: today}

	var result Result
	known := p.History.AllKnownIDs()

	selected, errs := p.fetchAndSelect(ctx, strict, known, wanted)
	result.SourceErrors = append(result.SourceErrors, errs...)

	// One widened retry when the strict window yields nothing new,
	// bounded by the configured look-back. Never more than one.
	if len(selected) == 0 && ctx.Err() == nil {
		lookback := p.Config.Sources.MaxLookback
		if lookback <= 0 {
			lookback = 365 * 24 * time.Hour
		}
		wide := strict.Widen(lookback)
		p.Log.Info().
			Time("start", wide.Start).
			Msg("strict window yielded nothing new, retrying with widened window")
		selected, errs = p.fetchAndSelect(ctx, wide, known, wanted)
		result.SourceErrors = append(result.SourceErrors, errs...)
		result.Widened = true
	}

	if len(selected) == 0 {
		p.Log.Info().Msg("no new papers acquired this run")
		return result, nil
	}

	ids := make([]string, len(selected))
	for i, paper := range selected {
		ids[i] = paper.ID
	}
	// Acceptance must be durable before it is reported: a history write
	// failure fails the run.
	if err := p.History.Accept(today, ids); err != nil {
		return result, fmt.Errorf("persisting accepted papers: %w", err)
	}

	if p.Archive != nil {
		if err := p.Archive.Record(today, selected); err != nil {
			// The history store is the source of truth; a stale archive
			// only costs a redundant downstream check.
			p.Log.Warn().Err(err).Msg("archiving accepted papers failed")
		}
	}

	result.Papers = selected
	p.Log.Info().Int("papers", len(selected)).Bool("widened", result.Widened).Msg("acquisition run complete")
	return result, nil
}

// fetchAndSelect fans out to all adapters for one window and reduces the
// candidates to the ranked acceptance list.
func (p *Pipeline) fetchAndSelect(ctx context.Context, window source.Window, known map[string]struct{}, wanted int) ([]types.Paper, []string) {
	candidates, errs := p.fetch(ctx, window, wanted)
	if p.Enricher != nil && len(candidates) > 0 {
		candidates = p.Enricher.Enrich(ctx, candidates)
	}
	return Select(candidates, known, wanted), errs
}

// fetch queries every adapter concurrently. Each adapter's call is gated
// by an atomic budget reservation; a denied reservation or a failed fetch
// is recorded and the remaining sources continue independently.
func (p *Pipeline) fetch(ctx context.Context, window source.Window, limit int) ([]types.Paper, []string) {
	type fetchResult struct {
		name   string
		papers []types.Paper
		err    error
	}

	ch := make(chan fetchResult, len(p.Adapters))
	var wg sync.WaitGroup

	for _, a := range p.Adapters {
		wg.Add(1)
		go func(a source.Adapter) {
			defer wg.Done()

			// Quota is charged on the request attempt, not on response
			// success: the provider bills transport.
			allowed, remaining, err := p.Budget.Reserve(a.Name())
			if err != nil {
				ch <- fetchResult{name: a.Name(), err: fmt.Errorf("reserving budget: %w", err)}
				return
			}
			if !allowed {
				ch <- fetchResult{name: a.Name(), err: fmt.Errorf("monthly quota exhausted")}
				return
			}
			if remaining >= 0 {
				p.Log.Debug().Str("source", a.Name()).Int("remaining", remaining).Msg("budget reserved")
			}

			// Over-fetch so dedup and history filtering still leave
			// enough candidates.
			papers, err := a.Fetch(ctx, "", window, limit*3)
			ch <- fetchResult{name: a.Name(), papers: papers, err: err}
		}(a)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var all []types.Paper
	var errs []string
	for fr := range ch {
		if fr.err != nil {
			msg := fmt.Sprintf("%s: %v", fr.name, fr.err)
			errs = append(errs, msg)
			p.Log.Warn().Str("source", fr.name).Err(fr.err).Msg("source fetch failed")
			continue
		}
		all = append(all, fr.papers...)
	}
	return all, errs
}
