package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrUnknownRun is returned when a run id has no row in the ledger.
var ErrUnknownRun = errors.New("ledger: unknown run")

// SetupSchema creates the ledger tables. It is idempotent.
func SetupSchema(db *sql.DB) error {

	const (
		schemaRuns = `
CREATE TABLE IF NOT EXISTS build_runs (
    run_id        TEXT    PRIMARY KEY,
    started_at    INTEGER NOT NULL,
    finished_at   INTEGER,
    pages_total   INTEGER NOT NULL DEFAULT 0,
    pages_changed INTEGER NOT NULL DEFAULT 0
);
`
		schemaPages = `
CREATE TABLE IF NOT EXISTS build_pages (
    page_path     TEXT    PRIMARY KEY,
    content_hash  TEXT    NOT NULL,
    year          TEXT    NOT NULL DEFAULT '',
    active_links  TEXT    NOT NULL DEFAULT '',
    builds        INTEGER NOT NULL DEFAULT 1,
    last_run_id   TEXT    NOT NULL,
    processed_at  INTEGER NOT NULL
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaRuns); err != nil {
		return fmt.Errorf("could not create runs schema: %w", err)
	}
	if _, err = tx.Exec(schemaPages); err != nil {
		return fmt.Errorf("could not create pages schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// PageRecord is the stored state of one page after a build.
type PageRecord struct {
	Path        string    `json:"path"`
	ContentHash string    `json:"content_hash"`
	Year        string    `json:"year"`
	ActiveLinks []string  `json:"active_links"`
	Builds      int       `json:"builds"`
	LastRunID   string    `json:"last_run_id"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Run is one build invocation.
type Run struct {
	ID           string     `json:"id"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	PagesTotal   int        `json:"pages_total"`
	PagesChanged int        `json:"pages_changed"`
}

// Summary is a high-level overview of the ledger.
type Summary struct {
	Runs         int64      `json:"runs"`
	Pages        int64      `json:"pages"`
	LastRunID    string     `json:"last_run_id,omitempty"`
	LastFinished *time.Time `json:"last_finished,omitempty"`
}

// Ledger wraps the database handle and the prepared statements it uses.
// All methods are safe for concurrent use.
type Ledger struct {
	db              *sql.DB
	clock           clockwork.Clock
	logger          *slog.Logger
	stmtBeginRun    *sql.Stmt
	stmtFinishRun   *sql.Stmt
	stmtUpsertPage  *sql.Stmt
	stmtGetPageHash *sql.Stmt
}

// New prepares the ledger statements. SetupSchema must have been called.
// A nil clock uses the real clock.
func New(db *sql.DB, clock clockwork.Clock, logger *slog.Logger) (*Ledger, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	l := &Ledger{db: db, clock: clock, logger: logger}

	var err error
	if l.stmtBeginRun, err = db.Prepare("INSERT INTO build_runs (run_id, started_at) VALUES (?, ?)"); err != nil {
		return nil, fmt.Errorf("failed to prepare begin run statement: %w", err)
	}
	if l.stmtFinishRun, err = db.Prepare("UPDATE build_runs SET finished_at = ?, pages_total = ?, pages_changed = ? WHERE run_id = ?"); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to prepare finish run statement: %w", err)
	}
	if l.stmtUpsertPage, err = db.Prepare(`
        INSERT INTO build_pages (page_path, content_hash, year, active_links, last_run_id, processed_at) VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(page_path) DO UPDATE SET content_hash = excluded.content_hash, year = excluded.year,
            active_links = excluded.active_links, builds = builds + 1, last_run_id = excluded.last_run_id,
            processed_at = excluded.processed_at
    `); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to prepare upsert page statement: %w", err)
	}
	if l.stmtGetPageHash, err = db.Prepare("SELECT content_hash FROM build_pages WHERE page_path = ?"); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to prepare page hash statement: %w", err)
	}
	return l, nil
}

// Close releases the prepared statements. The database itself stays open.
func (l *Ledger) Close() {
	for _, stmt := range []*sql.Stmt{l.stmtBeginRun, l.stmtFinishRun, l.stmtUpsertPage, l.stmtGetPageHash} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// BeginRun records the start of a build and returns its id.
func (l *Ledger) BeginRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if _, err := l.stmtBeginRun.ExecContext(ctx, id, l.clock.Now().Unix()); err != nil {
		return "", fmt.Errorf("failed to insert build run: %w", err)
	}
	return id, nil
}

// FinishRun closes a run with its page counts.
func (l *Ledger) FinishRun(ctx context.Context, runID string, total, changed int) error {
	res, err := l.stmtFinishRun.ExecContext(ctx, l.clock.Now().Unix(), total, changed, runID)
	if err != nil {
		return fmt.Errorf("failed to finish build run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	l.logger.DebugContext(ctx, "Build run recorded", "run_id", runID, "pages_total", total, "pages_changed", changed)
	return nil
}

// RecordPage upserts the state of a page for the given run.
func (l *Ledger) RecordPage(ctx context.Context, runID string, page PageRecord) error {
	_, err := l.stmtUpsertPage.ExecContext(ctx,
		page.Path,
		page.ContentHash,
		page.Year,
		strings.Join(page.ActiveLinks, " "),
		runID,
		l.clock.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record page %s: %w", page.Path, err)
	}
	return nil
}

// PageHash returns the stored content hash for path. ok is false when the
// page has never been recorded.
func (l *Ledger) PageHash(ctx context.Context, path string) (hash string, ok bool, err error) {
	err = l.stmtGetPageHash.QueryRowContext(ctx, path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query page hash for %s: %w", path, err)
	}
	return hash, true, nil
}

// Summary returns counts over the whole ledger.
func (l *Ledger) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM build_runs").Scan(&s.Runs); err != nil {
		return s, fmt.Errorf("failed to count runs: %w", err)
	}
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM build_pages").Scan(&s.Pages); err != nil {
		return s, fmt.Errorf("failed to count pages: %w", err)
	}

	var finished sql.NullInt64
	err := l.db.QueryRowContext(ctx,
		"SELECT run_id, finished_at FROM build_runs WHERE finished_at IS NOT NULL ORDER BY finished_at DESC, started_at DESC LIMIT 1",
	).Scan(&s.LastRunID, &finished)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return s, fmt.Errorf("failed to query last run: %w", err)
	}
	if finished.Valid {
		t := time.Unix(finished.Int64, 0).UTC()
		s.LastFinished = &t
	}
	return s, nil
}

// Pages lists recorded pages, most recently processed first.
func (l *Ledger) Pages(ctx context.Context, limit int) ([]PageRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
        SELECT page_path, content_hash, year, active_links, builds, last_run_id, processed_at
        FROM build_pages ORDER BY processed_at DESC, page_path LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var pages []PageRecord
	for rows.Next() {
		var p PageRecord
		var active string
		var processed int64
		if err = rows.Scan(&p.Path, &p.ContentHash, &p.Year, &active, &p.Builds, &p.LastRunID, &processed); err != nil {
			return nil, fmt.Errorf("failed to scan page row: %w", err)
		}
		p.ActiveLinks = strings.Fields(active)
		p.ProcessedAt = time.Unix(processed, 0).UTC()
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// Runs lists build runs, newest first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx, `
        SELECT run_id, started_at, finished_at, pages_total, pages_changed
        FROM build_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var runs []Run
	for rows.Next() {
		var r Run
		var started int64
		var finished sql.NullInt64
		if err = rows.Scan(&r.ID, &started, &finished, &r.PagesTotal, &r.PagesChanged); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.StartedAt = time.Unix(started, 0).UTC()
		if finished.Valid {
			t := time.Unix(finished.Int64, 0).UTC()
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
