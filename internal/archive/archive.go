// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive persists every accepted paper and its publication marks
// in a SQLite database. It backs the downstream publisher's
// "already processed" check, which must agree with the history store's id
// normalization rule.
// Implements: prd005-archive (R1-R3);
//
//	docs/ARCHITECTURE § Archive.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sea-turt1e/scholar-rss/pkg/types"
)

const dbFile = "papers.db"

// Store manages the accepted-paper archive database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the archive database at dir/papers.db,
// creating the schema if it does not exist.
func NewStore(cfg types.ArchiveConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "cache"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening archive database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating archive schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT,
			authors TEXT,
			published TEXT,
			citation_count INTEGER,
			citation_velocity INTEGER,
			source TEXT,
			source_url TEXT,
			pdf_url TEXT,
			fetched_date TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_fetched_date ON papers(fetched_date)`,
		`CREATE TABLE IF NOT EXISTS publications (
			paper_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			url TEXT,
			published_at TEXT,
			PRIMARY KEY (paper_id, platform)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores the papers accepted on day, keyed by normalized id.
// Re-recording a known paper updates its citation fields and fetch date
// rather than erroring, so crash-replayed batches are tolerated.
func (s *Store) Record(day time.Time, papers []types.Paper) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting archive transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO papers
		(id, title, authors, published, citation_count, citation_velocity, source, source_url, pdf_url, fetched_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			citation_count = excluded.citation_count,
			citation_velocity = excluded.citation_velocity,
			fetched_date = excluded.fetched_date`)
	if err != nil {
		return fmt.Errorf("preparing archive insert: %w", err)
	}
	defer stmt.Close()

	date := day.Format("2006-01-02")
	for _, p := range papers {
		authors, err := json.Marshal(p.Authors)
		if err != nil {
			return fmt.Errorf("marshaling authors for %s: %w", p.ID, err)
		}
		published := ""
		if !p.Published.IsZero() {
			published = p.Published.UTC().Format(time.RFC3339)
		}
		if _, err := stmt.Exec(
			types.NormalizeID(p.ID), p.Title, string(authors), published,
			p.CitationCount, p.CitationVelocity, p.Source, p.SourceURL, p.PDFURL, date,
		); err != nil {
			return fmt.Errorf("recording paper %s: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing archive transaction: %w", err)
	}
	return nil
}

// Has reports whether a paper with this id (any version) is archived.
func (s *Store) Has(id string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM papers WHERE id = ?`,
		types.NormalizeID(id)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying archive: %w", err)
	}
	return n > 0, nil
}

// CountFetchedInPeriod returns the number of papers archived in a quota
// period ("YYYY-MM").
func (s *Store) CountFetchedInPeriod(period string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM papers WHERE fetched_date LIKE ?`,
		period+"%").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("querying archive: %w", err)
	}
	return n, nil
}

// MarkPublished records that a paper was published to platform at url.
// Marking the same paper and platform twice is a no-op.
func (s *Store) MarkPublished(id, platform, url string) error {
	_, err := s.db.Exec(`INSERT INTO publications (paper_id, platform, url, published_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(paper_id, platform) DO NOTHING`,
		types.NormalizeID(id), platform, url, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("marking %s published to %s: %w", id, platform, err)
	}
	return nil
}

// IsPublished reports whether a paper with this id (any version) was
// already published to platform.
func (s *Store) IsPublished(id, platform string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM publications WHERE paper_id = ? AND platform = ?`,
		types.NormalizeID(id), platform).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying publications: %w", err)
	}
	return n > 0, nil
}
