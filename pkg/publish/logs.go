package publish

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/CTAG07/sitekit/pkg/templating"
)

var (
	githubTokenRe = regexp.MustCompile(`github_pat_[A-Za-z0-9_]+`)
	secretKeyRe   = regexp.MustCompile(`sk-[A-Za-z0-9]{10,}`)
	indexLinkRe   = regexp.MustCompile(`\[(\d{4}-\d{2}-\d{2})\]\(([^)]+)\)`)
)

// Redacted replaces every recognised secret token.
const Redacted = "[REDACTED_TOKEN]"

// Redact replaces GitHub personal access tokens and "sk-" API keys in s.
// Invalid UTF-8 is dropped.
func Redact(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = githubTokenRe.ReplaceAllString(s, Redacted)
	return secretKeyRe.ReplaceAllString(s, Redacted)
}

// LogEntry is one dated link from the logs index.
type LogEntry struct {
	Date string
	Href string
}

// ParseLogIndex extracts the first "[YYYY-MM-DD](href)" link of every line.
func ParseLogIndex(index string) []LogEntry {
	var entries []LogEntry
	for _, line := range strings.Split(index, "\n") {
		m := indexLinkRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entries = append(entries, LogEntry{Date: m[1], Href: m[2]})
	}
	return entries
}

// LogsView is the template data of the logs index page.
type LogsView struct {
	Entries []LogEntry
}

// SyncLogs copies INDEX.md and daily/*.md from srcDir into logs/ with
// secrets redacted, then renders logs/index.html from the copied index.
func (p *Publisher) SyncLogs(srcDir string) (*Result, error) {
	start := p.clock.Now()
	if _, err := os.Stat(srcDir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceMissing, srcDir)
		}
		return nil, err
	}
	res := &Result{Job: "logs"}

	index, haveIndex, err := readOptional(filepath.Join(srcDir, "INDEX.md"))
	if err != nil {
		return nil, fmt.Errorf("failed to read logs index: %w", err)
	}
	if haveIndex {
		if err = p.copyRedacted(index, "logs/INDEX.md", res); err != nil {
			return nil, err
		}
	}

	daily, err := filepath.Glob(filepath.Join(srcDir, "daily", "*.md"))
	if err != nil {
		return nil, err
	}
	sort.Strings(daily)
	for _, path := range daily {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err = p.copyRedacted(data, "logs/daily/"+filepath.Base(path), res); err != nil {
			return nil, err
		}
	}

	if haveIndex {
		langs := p.tm.Languages()
		lang := "en"
		if len(langs) > 0 {
			lang = langs[0]
		}
		page := templating.Page{
			Lang:     lang,
			Path:     "/logs/",
			Section:  "Logs",
			Subtitle: "Daily activity log",
			Data:     LogsView{Entries: ParseLogIndex(Redact(string(index)))},
		}
		if err = p.renderPage("logs/index.html", "logs.tmpl.html", page); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, "logs/index.html")
	}

	res.Duration = p.clock.Since(start)
	p.logger.Info("Logs synced", "source", srcDir, "files", len(res.Files))
	return res, nil
}

func (p *Publisher) copyRedacted(data []byte, rel string, res *Result) error {
	if err := p.writeFile(rel, []byte(Redact(string(data)))); err != nil {
		return err
	}
	res.Files = append(res.Files, rel)
	return nil
}
