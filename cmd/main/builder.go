package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/CTAG07/sitekit/pkg/ledger"
	"github.com/CTAG07/sitekit/pkg/pagefix"
	"github.com/jonboulle/clockwork"
	"github.com/natefinch/atomic"
)

// BuildReport summarizes one pass over the site directory.
type BuildReport struct {
	RunID    string        `json:"run_id"`
	Total    int           `json:"pages_total"`
	Changed  int           `json:"pages_changed"`
	Skipped  int           `json:"pages_skipped"`
	Failed   []string      `json:"pages_failed,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Builder rewrites every HTML page under the site directory through the page
// fixer. Pages whose content, year and options match the ledger are left alone.
type Builder struct {
	siteDir string
	exclude map[string]bool
	fixer   *pagefix.Fixer
	ledger  *ledger.Ledger
	clock   clockwork.Clock
	logger  *slog.Logger

	// A build holds the whole site, so only one runs at a time.
	mu sync.Mutex
}

// NewBuilder creates a Builder. A nil ledger disables incremental skipping
// and run recording.
func NewBuilder(siteDir string, excludeDirs []string, fixer *pagefix.Fixer, l *ledger.Ledger, clock clockwork.Clock, logger *slog.Logger) *Builder {
	exclude := make(map[string]bool, len(excludeDirs))
	for _, d := range excludeDirs {
		exclude[d] = true
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Builder{
		siteDir: siteDir,
		exclude: exclude,
		fixer:   fixer,
		ledger:  l,
		clock:   clock,
		logger:  logger,
	}
}

// buildKey identifies the inputs of a fix other than the page itself: the
// year and the fixer options. Changing either invalidates every stored hash.
func buildKey(f *pagefix.Fixer) (string, error) {
	opts, err := json.Marshal(f.Options())
	if err != nil {
		return "", fmt.Errorf("failed to encode page options: %w", err)
	}
	return f.Year() + "\x00" + string(opts), nil
}

// pageHash keys a page on the build key as well as its bytes, so a page
// built last year or with other options is rebuilt even though its content
// did not change.
func pageHash(key string, content []byte) string {
	h := sha256.New()
	h.Write([]byte(key))
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func isPage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".html" || ext == ".htm"
}

// Build walks the site and fixes every page. With force set, the ledger is
// not consulted and every page is rewritten. A page that fails to parse is
// logged and reported but does not stop the build.
func (b *Builder) Build(ctx context.Context, force bool) (*BuildReport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := os.Stat(b.siteDir); err != nil {
		return nil, fmt.Errorf("site directory unavailable: %w", err)
	}

	start := b.clock.Now()
	report := &BuildReport{}
	if b.ledger != nil {
		runID, err := b.ledger.BeginRun(ctx)
		if err != nil {
			return nil, err
		}
		report.RunID = runID
	}
	key, err := buildKey(b.fixer)
	if err != nil {
		return nil, err
	}

	err = filepath.WalkDir(b.siteDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != b.siteDir && b.exclude[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !isPage(d.Name()) {
			return nil
		}
		report.Total++

		changed, skipped, err := b.buildPage(ctx, path, key, force, report.RunID)
		if err != nil {
			b.logger.Warn("Failed to fix page", "path", path, "error", err)
			report.Failed = append(report.Failed, path)
			return nil
		}
		if skipped {
			report.Skipped++
		}
		if changed {
			report.Changed++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk site directory: %w", err)
	}

	if b.ledger != nil {
		if err = b.ledger.FinishRun(ctx, report.RunID, report.Total, report.Changed); err != nil {
			return nil, err
		}
	}
	report.Duration = b.clock.Since(start)
	b.logger.Info("Build finished",
		"run_id", report.RunID,
		"pages", report.Total,
		"changed", report.Changed,
		"skipped", report.Skipped,
		"failed", len(report.Failed),
		"duration", report.Duration)
	return report, nil
}

func (b *Builder) buildPage(ctx context.Context, path, key string, force bool, runID string) (changed, skipped bool, err error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return false, false, err
	}
	urlPath, err := pagefix.PagePath(b.siteDir, path)
	if err != nil {
		return false, false, err
	}

	if b.ledger != nil && !force {
		stored, ok, err := b.ledger.PageHash(ctx, urlPath)
		if err != nil {
			return false, false, err
		}
		if ok && stored == pageHash(key, src) {
			b.logger.Debug("Page unchanged, skipping", "path", urlPath)
			return false, true, nil
		}
	}

	out, res, err := b.fixer.RewriteBytes(src, urlPath)
	if err != nil {
		return false, false, err
	}
	if !bytes.Equal(out, src) {
		if err = atomic.WriteFile(path, bytes.NewReader(out)); err != nil {
			return false, false, fmt.Errorf("failed to write %s: %w", path, err)
		}
		changed = true
	}
	b.logger.Debug("Page fixed", "path", urlPath, "year_stamped", res.YearStamped, "active", res.Active, "changed", changed)

	if b.ledger != nil {
		err = b.ledger.RecordPage(ctx, runID, ledger.PageRecord{
			Path:        urlPath,
			ContentHash: pageHash(key, out),
			Year:        res.Year,
			ActiveLinks: res.Active,
		})
		if err != nil {
			return changed, false, err
		}
	}
	return changed, false, nil
}
