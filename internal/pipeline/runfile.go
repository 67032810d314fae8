// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/sea-turt1e/scholar-rss/pkg/types"
)

// RunFile is the on-disk record of one acquisition run. Each run writes
// a papers_<date>.yaml file so a reader can see what was acquired that
// day without touching the history store or the archive.
type RunFile struct {
	Date    string        `yaml:"date"`
	Papers  []types.Paper `yaml:"papers"`
	Summary RunSummary    `yaml:"summary"`
}

// RunSummary stores run statistics and a timestamp.
type RunSummary struct {
	Total        int       `yaml:"total"`
	Widened      bool      `yaml:"widened"`
	SourceErrors []string  `yaml:"source_errors,omitempty"`
	Timestamp    time.Time `yaml:"timestamp"`
}

const runDateFmt = "2006-01-02"

// RunFilePath returns the per-day papers file path under dir.
func RunFilePath(dir string, day time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("papers_%s.yaml", day.Format(runDateFmt)))
}

// WriteRunFile saves an acquisition result to a YAML file.
func WriteRunFile(path string, day time.Time, res Result) error {
	rf := RunFile{
		Date:   day.Format(runDateFmt),
		Papers: res.Papers,
		Summary: RunSummary{
			Total:        len(res.Papers),
			Widened:      res.Widened,
			SourceErrors: res.SourceErrors,
			Timestamp:    time.Now(),
		},
	}

	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling run file: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating papers directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadRunFile loads a previously saved run file from disk.
func ReadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run file: %w", err)
	}
	var rf RunFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing run file: %w", err)
	}
	return &rf, nil
}
