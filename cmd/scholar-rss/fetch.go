// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sea-turt1e/scholar-rss/internal/archive"
	"github.com/sea-turt1e/scholar-rss/internal/budget"
	"github.com/sea-turt1e/scholar-rss/internal/enrich"
	"github.com/sea-turt1e/scholar-rss/internal/history"
	"github.com/sea-turt1e/scholar-rss/internal/pipeline"
	"github.com/sea-turt1e/scholar-rss/internal/publish"
	"github.com/sea-turt1e/scholar-rss/internal/secrets"
	"github.com/sea-turt1e/scholar-rss/internal/source"
	"github.com/sea-turt1e/scholar-rss/internal/summarize"
	"github.com/sea-turt1e/scholar-rss/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "scholar-rss/0.1"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one acquisition pass",
	Long: `Fetch queries the enabled paper sources for the configured window, enriches
citation counts, filters out every previously accepted paper, and accepts the
top-ranked new papers. Accepted papers are recorded in the history file, the
archive database, and a per-day YAML run file.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Int("max-papers", 0, "number of new papers to accept (default 3)")
	fetchCmd.Flags().Int("days-back", 0, "strict acquisition window in days (default 7)")
	fetchCmd.Flags().Bool("prefer-recent", false, "use the recency-focused scholar queries and a citation floor of 1")
	fetchCmd.Flags().Bool("force", false, "run even when papers were already fetched today")
	fetchCmd.Flags().Bool("json", false, "print accepted papers as JSON")
	fetchCmd.Flags().String("summarize-cmd", "", "external command that summarizes each accepted paper")
	fetchCmd.Flags().String("publish-dir", "", "publish summarized papers as markdown articles into this directory")
	fetchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 30s)")

	rootCmd.AddCommand(fetchCmd)
}

// loadPipelineConfig merges the config file over the built-in defaults and
// fills API keys from the loaded secrets.
func loadPipelineConfig() (types.PipelineConfig, error) {
	viper.SetDefault("sources.enable_arxiv", true)
	viper.SetDefault("sources.enable_citation_graph", true)
	viper.SetDefault("sources.enable_scholar", true)
	viper.SetDefault("budget.path", "cache/api_usage.json")
	viper.SetDefault("budget.limits", map[string]interface{}{"scholar": 250})
	viper.SetDefault("history.path", "cache/fetched_papers_history.json")
	viper.SetDefault("enrich.enabled", true)
	viper.SetDefault("enrich.prefer_velocity", true)
	viper.SetDefault("archive.dir", "cache")
	viper.SetDefault("papers_dir", "cache")
	viper.SetDefault("max_papers", 3)
	viper.SetDefault("days_back", 7)

	cfg := types.PipelineConfig{
		Sources: types.SourceConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("sources.timeout"),
				UserAgent: viper.GetString("sources.user_agent"),
			},
			EnableArxiv:          viper.GetBool("sources.enable_arxiv"),
			EnableCitationGraph:  viper.GetBool("sources.enable_citation_graph"),
			EnableScholar:        viper.GetBool("sources.enable_scholar"),
			ArxivCategories:      viper.GetStringSlice("sources.arxiv_categories"),
			ScholarQueries:       viper.GetStringSlice("sources.scholar_queries"),
			ScholarRecentQueries: viper.GetStringSlice("sources.scholar_recent_queries"),
			MinCitations:         viper.GetInt("sources.min_citations"),
			MaxLookback:          viper.GetDuration("sources.max_lookback"),
		},
		Budget: types.BudgetConfig{
			Path:   viper.GetString("budget.path"),
			Limits: budgetLimits(),
		},
		History: types.HistoryConfig{Path: viper.GetString("history.path")},
		Enrich: types.EnrichConfig{
			Enabled:        viper.GetBool("enrich.enabled"),
			Interval:       viper.GetDuration("enrich.interval"),
			PreferVelocity: viper.GetBool("enrich.prefer_velocity"),
		},
		Archive:   types.ArchiveConfig{Dir: viper.GetString("archive.dir")},
		MaxPapers: viper.GetInt("max_papers"),
		DaysBack:  viper.GetInt("days_back"),
		PapersDir: viper.GetString("papers_dir"),
	}

	if cfg.Sources.Timeout == 0 {
		cfg.Sources.Timeout = defaultTimeout
	}
	if cfg.Sources.UserAgent == "" {
		cfg.Sources.UserAgent = defaultUserAgent
	}
	if cfg.Enrich.Timeout == 0 {
		cfg.Enrich.Timeout = cfg.Sources.Timeout
	}
	if cfg.Enrich.UserAgent == "" {
		cfg.Enrich.UserAgent = cfg.Sources.UserAgent
	}

	cfg.Sources.SerpAPIKey = secretDefault(secrets.KeySerpAPI, cfg.Sources.SerpAPIKey)
	cfg.Sources.SemanticScholarAPIKey = secretDefault(secrets.KeySemanticScholar, cfg.Sources.SemanticScholarAPIKey)
	cfg.Enrich.APIKey = secretDefault(secrets.KeySemanticScholar, cfg.Enrich.APIKey)
	return cfg, nil
}

func budgetLimits() map[string]int {
	raw := viper.GetStringMap("budget.limits")
	limits := make(map[string]int, len(raw))
	for name := range raw {
		limits[name] = viper.GetInt("budget.limits." + name)
	}
	return limits
}

func buildAdapters(cfg types.PipelineConfig, client *http.Client) []source.Adapter {
	var adapters []source.Adapter
	if cfg.Sources.EnableArxiv {
		adapters = append(adapters, &source.ArxivAdapter{Client: client, Config: cfg.Sources, Log: logger})
	}
	if cfg.Sources.EnableCitationGraph {
		adapters = append(adapters, &source.CitationGraphAdapter{Client: client, Config: cfg.Sources, Log: logger})
	}
	if cfg.Sources.EnableScholar && cfg.Sources.SerpAPIKey != "" {
		adapters = append(adapters, &source.ScholarAdapter{Client: client, Config: cfg.Sources, Log: logger})
	}
	return adapters
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadPipelineConfig()
	if err != nil {
		return err
	}

	if n, _ := cmd.Flags().GetInt("max-papers"); n > 0 {
		cfg.MaxPapers = n
	}
	if n, _ := cmd.Flags().GetInt("days-back"); n > 0 {
		cfg.DaysBack = n
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		cfg.Sources.Timeout = timeout
		cfg.Enrich.Timeout = timeout
	}
	if recent, _ := cmd.Flags().GetBool("prefer-recent"); recent {
		if len(cfg.Sources.ScholarRecentQueries) > 0 {
			cfg.Sources.ScholarQueries = cfg.Sources.ScholarRecentQueries
		}
		cfg.Sources.MinCitations = 1
	}
	force, _ := cmd.Flags().GetBool("force")

	client := &http.Client{Timeout: cfg.Sources.Timeout}
	adapters := buildAdapters(cfg, client)
	if len(adapters) == 0 {
		return fmt.Errorf("no sources enabled; check the sources section of the config and the serp-api-key secret")
	}

	tracker, err := budget.NewTracker(cfg.Budget.Path, cfg.Budget.Limits)
	if err != nil {
		return fmt.Errorf("opening budget tracker: %w", err)
	}
	store, err := history.NewStore(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	arc, err := archive.NewStore(cfg.Archive)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer arc.Close()

	p := &pipeline.Pipeline{
		Adapters: adapters,
		Budget:   tracker,
		History:  store,
		Archive:  arc,
		Config:   cfg,
		Log:      logger,
	}
	if cfg.Enrich.Enabled {
		p.Enricher = enrich.New(cfg.Enrich, logger)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := p.Run(ctx, cfg.MaxPapers, force)
	if err != nil {
		return err
	}

	if len(result.Papers) > 0 {
		path := pipeline.RunFilePath(cfg.PapersDir, time.Now())
		if err := pipeline.WriteRunFile(path, time.Now(), result); err != nil {
			logger.Warn().Err(err).Msg("writing run file failed")
		} else {
			logger.Info().Str("path", path).Msg("run file written")
		}
	}

	if summarizeCmd, _ := cmd.Flags().GetString("summarize-cmd"); summarizeCmd != "" && len(result.Papers) > 0 {
		publishDir, _ := cmd.Flags().GetString("publish-dir")
		if publishDir == "" {
			publishDir = "articles"
		}
		runner := &publish.Runner{
			Publisher:  &publish.FilePublisher{Dir: publishDir},
			Summarizer: summarize.NewCommandSummarizer(summarizeCmd),
			Archive:    arc,
			Log:        logger,
		}
		posted, err := runner.PublishAll(ctx, result.Papers)
		if err != nil {
			return fmt.Errorf("publishing: %w", err)
		}
		logger.Info().Int("posted", posted).Msg("publishing complete")
	}

	return printFetchResult(cmd, result)
}

func printFetchResult(cmd *cobra.Command, result pipeline.Result) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if len(result.Papers) == 0 {
		fmt.Println("No new papers acquired.")
	}
	for i, paper := range result.Papers {
		fmt.Printf("%d. %s (%s)\n", i+1, paper.Title, paper.ID)
		fmt.Printf("   citations=%d velocity=%d published=%s source=%s\n",
			paper.CitationCount, paper.CitationVelocity,
			paper.Published.Format("2006-01-02"), paper.Source)
	}
	for _, msg := range result.SourceErrors {
		fmt.Fprintf(os.Stderr, "source error: %s\n", msg)
	}
	return nil
}
