package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

const testPage = `<!doctype html>
<html><head><title>t</title></head><body>
<div class="nav"><a href="/en/">Home</a><a href="/logs/">Logs</a><a href="/en/tasks/">Tasks</a></div>
<p>body</p>
<div class="footer">© <span id="y">2019</span></div>
</body></html>`

// newTestApp builds an App over a temporary site directory and database,
// reading time from a fake clock set to 2026-10-16 09:30 UTC.
func newTestApp(t *testing.T) (*App, *clockwork.FakeClock) {
	t.Helper()
	dir := t.TempDir()

	cm, err := NewConfigManager(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}
	cm.config.Server.SiteDir = filepath.Join(dir, "site")
	cm.config.Server.DatabasePath = filepath.Join(dir, "data", "sitekit.db")
	cm.config.Server.LogLevel = "error"
	cm.config.Page.Timezone = "UTC"
	cm.config.Publish.LogsSource = filepath.Join(dir, "src", "log")
	cm.config.Publish.TasksState = filepath.Join(dir, "src", "tasks.json")
	cm.config.Publish.HealthSource = filepath.Join(dir, "src", "health.json")

	if err = os.MkdirAll(cm.config.Server.SiteDir, 0755); err != nil {
		t.Fatalf("failed to create site dir: %v", err)
	}

	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC))
	app, err := NewApp(cm, clock)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	t.Cleanup(app.Close)
	return app, clock
}

func writeSiteFile(t *testing.T, app *App, rel, content string) string {
	t.Helper()
	path := filepath.Join(app.cm.Get().Server.SiteDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func readSiteFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func assertContains(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
