package publish

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CTAG07/sitekit/pkg/pagefix"
	"github.com/CTAG07/sitekit/pkg/templating"
	"github.com/jonboulle/clockwork"
	"github.com/natefinch/atomic"
)

// ErrSourceMissing is returned when a job's required source does not exist.
var ErrSourceMissing = errors.New("publish: source not found")

// Publisher renders pages into a site directory.
type Publisher struct {
	siteDir string
	tm      *templating.TemplateManager
	fixer   *pagefix.Fixer
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewPublisher returns a Publisher writing into siteDir. When fixer is not
// nil, every rendered page is passed through it before being written. A nil
// clock uses the real clock.
func NewPublisher(siteDir string, tm *templating.TemplateManager, fixer *pagefix.Fixer, clock clockwork.Clock, logger *slog.Logger) *Publisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Publisher{
		siteDir: siteDir,
		tm:      tm,
		fixer:   fixer,
		clock:   clock,
		logger:  logger,
	}
}

// nowISO returns the current time as RFC 3339 in UTC, e.g.
// "2026-10-16T09:00:00Z".
func (p *Publisher) nowISO() string {
	return p.clock.Now().UTC().Format(time.RFC3339)
}

// writeFile atomically writes data to a path relative to the site dir.
func (p *Publisher) writeFile(rel string, data []byte) error {
	path := filepath.Join(p.siteDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	p.logger.Debug("Wrote file", "path", rel, "bytes", len(data))
	return nil
}

// writeJSON writes v as indented JSON with a trailing newline. HTML
// characters are kept literal.
func (p *Publisher) writeJSON(rel string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", rel, err)
	}
	return p.writeFile(rel, buf.Bytes())
}

// renderPage executes a page template, optionally fixes the result for the
// page's own path, and writes it to rel.
func (p *Publisher) renderPage(rel, tmpl string, page templating.Page) error {
	var buf bytes.Buffer
	if err := p.tm.Execute(&buf, tmpl, page); err != nil {
		return fmt.Errorf("failed to render %s: %w", rel, err)
	}
	out := buf.Bytes()
	if p.fixer != nil {
		fixed, _, err := p.fixer.RewriteBytes(out, "/"+rel)
		if err != nil {
			return err
		}
		out = fixed
	}
	return p.writeFile(rel, out)
}

// editionPath returns the page file for a language edition, e.g.
// "zh/tasks/index.html".
func editionPath(lang, section string) string {
	return strings.Join([]string{lang, section, "index.html"}, "/")
}

// readOptional reads path, reporting ok=false when it does not exist.
func readOptional(path string) (data []byte, ok bool, err error) {
	data, err = os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Result summarises what a job wrote.
type Result struct {
	Job      string        `json:"job"`
	Files    []string      `json:"files"`
	Duration time.Duration `json:"duration"`
}
