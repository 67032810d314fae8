// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize produces short plain-language summaries of acquired
// papers by shelling out to an external summarizer command. The command
// receives the paper as JSON on stdin and must print the summary JSON on
// stdout.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/sea-turt1e/scholar-rss/pkg/types"
)

// Summary is one paper's generated summary.
type Summary struct {
	PaperID   string   `json:"paper_id" yaml:"paper_id"`
	Title     string   `json:"title" yaml:"title"`
	Text      string   `json:"text" yaml:"text"`
	Highlight []string `json:"highlight,omitempty" yaml:"highlight,omitempty"`
}

// Summarizer generates a summary for one paper.
type Summarizer interface {
	Summarize(ctx context.Context, paper types.Paper) (Summary, error)
}

// executor abstracts command execution for testing.
type executor interface {
	RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error
}

type osExecutor struct{}

func (o *osExecutor) RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	return cmd.Run()
}

// CommandSummarizer runs a configured external command per paper.
type CommandSummarizer struct {
	Command string
	Args    []string

	exec executor
}

// NewCommandSummarizer builds a summarizer around the given command line.
func NewCommandSummarizer(command string, args ...string) *CommandSummarizer {
	return &CommandSummarizer{Command: command, Args: args, exec: &osExecutor{}}
}

// Summarize pipes the paper into the command as JSON and parses the
// summary it prints. The paper id in the result is always taken from the
// input paper, not from the command output.
func (s *CommandSummarizer) Summarize(ctx context.Context, paper types.Paper) (Summary, error) {
	if s.Command == "" {
		return Summary{}, fmt.Errorf("no summarizer command configured")
	}

	input, err := json.Marshal(paper)
	if err != nil {
		return Summary{}, fmt.Errorf("encoding paper %s: %w", paper.ID, err)
	}

	var out bytes.Buffer
	if err := s.exec.RunPiped(ctx, s.Command, s.Args, bytes.NewReader(input), &out); err != nil {
		return Summary{}, fmt.Errorf("running summarizer for %s: %w", paper.ID, err)
	}

	var sum Summary
	if err := json.Unmarshal(out.Bytes(), &sum); err != nil {
		return Summary{}, fmt.Errorf("parsing summarizer output for %s: %w", paper.ID, err)
	}
	if strings.TrimSpace(sum.Text) == "" {
		return Summary{}, fmt.Errorf("summarizer produced empty summary for %s", paper.ID)
	}

	sum.PaperID = paper.ID
	if sum.Title == "" {
		sum.Title = paper.Title
	}
	return sum, nil
}
