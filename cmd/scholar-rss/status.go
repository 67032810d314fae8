// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/sea-turt1e/scholar-rss/internal/archive"
	"github.com/sea-turt1e/scholar-rss/internal/budget"
	"github.com/sea-turt1e/scholar-rss/internal/history"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report this month's API usage and acquisition counts",
	Long: `Status summarizes the current month: calls charged against each source's
quota, papers acquired, and the total number of papers seen across all runs.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "output the summary as JSON")

	rootCmd.AddCommand(statusCmd)
}

type sourceUsage struct {
	Source string `json:"source"`
	Used   int    `json:"used"`
	Limit  int    `json:"limit"` // 0 means untracked
}

type monthStatus struct {
	Month         string        `json:"month"`
	Usage         []sourceUsage `json:"usage"`
	PapersFetched int           `json:"papers_fetched"`
	PapersAllTime int           `json:"papers_all_time"`
	FetchedToday  bool          `json:"fetched_today"`

	// PapersPerCall is this month's acquisition efficiency: papers
	// archived per budget-tracked API call. Zero when no calls were made.
	PapersPerCall float64 `json:"papers_per_call"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadPipelineConfig()
	if err != nil {
		return err
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

	now := time.Now()
	status := monthStatus{
		Month:         now.Format("2006-01"),
		PapersAllTime: len(store.AllKnownIDs()),
		FetchedToday:  store.HasDate(now),
	}

	fetched, err := arc.CountFetchedInPeriod(status.Month)
	if err != nil {
		return fmt.Errorf("counting archived papers: %w", err)
	}
	status.PapersFetched = fetched

	names := make([]string, 0, len(cfg.Budget.Limits))
	for name := range cfg.Budget.Limits {
		names = append(names, name)
	}
	sort.Strings(names)
	totalCalls := 0
	for _, name := range names {
		used := tracker.Used(name)
		totalCalls += used
		status.Usage = append(status.Usage, sourceUsage{
			Source: name,
			Used:   used,
			Limit:  tracker.Limit(name),
		})
	}
	if totalCalls > 0 {
		status.PapersPerCall = float64(status.PapersFetched) / float64(totalCalls)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Printf("Month: %s\n", status.Month)
	fmt.Printf("Papers acquired this month: %d (all time: %d)\n", status.PapersFetched, status.PapersAllTime)
	if status.FetchedToday {
		fmt.Println("Today's run: done")
	} else {
		fmt.Println("Today's run: pending")
	}
	for _, u := range status.Usage {
		if u.Limit > 0 {
			fmt.Printf("  %-16s %d/%d calls\n", u.Source, u.Used, u.Limit)
		} else {
			fmt.Printf("  %-16s %d calls (untracked)\n", u.Source, u.Used)
		}
	}
	if status.PapersPerCall > 0 {
		fmt.Printf("Efficiency: %.2f papers per API call\n", status.PapersPerCall)
	}
	return nil
}
