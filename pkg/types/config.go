package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "scholar-rss/0.1"). Per prd001-sources R5.2.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SourceConfig holds settings for the source adapters.
// Per prd001-sources R1.4, R2.3, R5.1-R5.5.
type SourceConfig struct {
	HTTPConfig `yaml:",inline"`

	// EnableArxiv controls whether the arXiv adapter is used.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv"`

	// EnableCitationGraph controls whether the citation-graph adapter is used.
	EnableCitationGraph bool `json:"enable_citation_graph" yaml:"enable_citation_graph"`

	// EnableScholar controls whether the scholar-search adapter is used.
	EnableScholar bool `json:"enable_scholar" yaml:"enable_scholar"`

	// ArxivCategories are the arXiv subject classes searched by the
	// bibliographic adapter (default: the AI category set).
	ArxivCategories []string `json:"arxiv_categories" yaml:"arxiv_categories"`

	// ScholarQueries are the canned scholar-search query strings. One is
	// selected per run by day-of-month rotation.
	ScholarQueries []string `json:"scholar_queries" yaml:"scholar_queries"`

	// ScholarRecentQueries are the alternate queries used when the
	// prefer-recent strategy is selected.
	ScholarRecentQueries []string `json:"scholar_recent_queries" yaml:"scholar_recent_queries"`

	// MinCitations is the citation floor applied to scholar-search results
	// (default 10, or 1 under the prefer-recent strategy).
	MinCitations int `json:"min_citations" yaml:"min_citations"`

	// MaxLookback bounds window widening when a strict date filter yields
	// no results (default 365 days).
	MaxLookback time.Duration `json:"max_lookback" yaml:"max_lookback"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// SerpAPIKey authenticates scholar-search requests.
	SerpAPIKey string `json:"serp_api_key,omitempty" yaml:"serp_api_key,omitempty"`
}

// BudgetConfig holds settings for the monthly call budget.
// Per prd002-budget R1.1-R1.3.
type BudgetConfig struct {
	// Path is the quota file location (default "cache/api_usage.json").
	Path string `json:"path" yaml:"path"`

	// Limits maps a source name to its monthly call limit. A missing or
	// zero entry means the source is untracked.
	Limits map[string]int `json:"limits" yaml:"limits"`
}

// HistoryConfig holds settings for the cross-run paper history.
// Per prd003-history R1.1.
type HistoryConfig struct {
	// Path is the history file location (default "cache/fetched_papers_history.json").
	Path string `json:"path" yaml:"path"`
}

// EnrichConfig holds settings for the citation enrichment stage.
// Per prd004-enrich R2.1-R2.4.
type EnrichConfig struct {
	HTTPConfig `yaml:",inline"`

	// Enabled controls whether enrichment runs at all.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Interval is the minimum spacing between enrichment lookups
	// (provider-documented rate, default 3s).
	Interval time.Duration `json:"interval" yaml:"interval"`

	// PreferVelocity selects the citation-metric precedence when the
	// provider reports both a total and a velocity: when true (default)
	// velocity is used as the ranking tiebreak; when false it is ignored.
	PreferVelocity bool `json:"prefer_velocity" yaml:"prefer_velocity"`

	// APIKey is an optional key for the enrichment endpoint.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// ArchiveConfig holds settings for the accepted-paper archive.
type ArchiveConfig struct {
	// Dir is the directory holding the archive database (default "cache").
	Dir string `json:"dir" yaml:"dir"`
}

// PipelineConfig groups all stage configurations for an acquisition run.
type PipelineConfig struct {
	Sources SourceConfig  `json:"sources" yaml:"sources"`
	Budget  BudgetConfig  `json:"budget" yaml:"budget"`
	History HistoryConfig `json:"history" yaml:"history"`
	Enrich  EnrichConfig  `json:"enrich" yaml:"enrich"`
	Archive ArchiveConfig `json:"archive" yaml:"archive"`

	// MaxPapers is the number of new papers a run hands downstream (default 3).
	MaxPapers int `json:"max_papers" yaml:"max_papers"`

	// DaysBack sets the strict acquisition window length (default 7 days).
	DaysBack int `json:"days_back" yaml:"days_back"`

	// PapersDir is where per-run paper files are written (default "cache").
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`
}
