package publish

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CTAG07/sitekit/pkg/pagefix"
	"github.com/CTAG07/sitekit/pkg/templating"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
)

var testNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

// setupTestPublisher returns a Publisher writing into a temp site dir, with
// page fixing enabled and a frozen clock.
func setupTestPublisher(t *testing.T) (*Publisher, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tm, err := templating.NewTemplateManager(logger, templating.DefaultConfig())
	if err != nil {
		t.Fatalf("NewTemplateManager failed: %v", err)
	}
	clock := clockwork.NewFakeClockAt(testNow)
	opts := pagefix.DefaultOptions()
	opts.Timezone = "UTC"
	fixer, err := pagefix.NewFixer(opts, clock)
	if err != nil {
		t.Fatalf("NewFixer failed: %v", err)
	}
	site := t.TempDir()
	return NewPublisher(site, tm, fixer, clock, logger), site
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"token github_pat_ABC_123xyz here", "token [REDACTED_TOKEN] here"},
		{"key sk-abcdefghij0123", "key [REDACTED_TOKEN]"},
		{"short sk-abc stays", "short sk-abc stays"},
		{"bad \xff byte", "bad  byte"},
	}
	for _, tt := range tests {
		if got := Redact(tt.in); got != tt.want {
			t.Errorf("Redact(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLogIndex(t *testing.T) {
	index := "# Index\n- [2026-10-15](daily/2026-10-15.md)\n- nothing\n- [2026-10-16](daily/2026-10-16.md) and [2026-10-01](x.md)\n"
	want := []LogEntry{
		{Date: "2026-10-15", Href: "daily/2026-10-15.md"},
		{Date: "2026-10-16", Href: "daily/2026-10-16.md"},
	}
	if diff := cmp.Diff(want, ParseLogIndex(index)); diff != "" {
		t.Errorf("ParseLogIndex mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncLogs(t *testing.T) {
	p, site := setupTestPublisher(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "INDEX.md"), "- [2026-10-16](daily/2026-10-16.md)\n")
	writeFile(t, filepath.Join(src, "daily", "2026-10-16.md"), "pushed with github_pat_SECRET\n")
	writeFile(t, filepath.Join(src, "daily", "notes.txt"), "ignored")

	res, err := p.SyncLogs(src)
	if err != nil {
		t.Fatalf("SyncLogs failed: %v", err)
	}
	want := []string{"logs/INDEX.md", "logs/daily/2026-10-16.md", "logs/index.html"}
	if diff := cmp.Diff(want, res.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	daily := readFile(t, filepath.Join(site, "logs", "daily", "2026-10-16.md"))
	if strings.Contains(daily, "SECRET") || !strings.Contains(daily, Redacted) {
		t.Errorf("daily log not redacted: %q", daily)
	}

	page := readFile(t, filepath.Join(site, "logs", "index.html"))
	for _, want := range []string{
		`<a href="daily/2026-10-16.md">2026-10-16</a>`,
		`<span id="y">2026</span>`,
		`<a href="/logs/" class="active">Logs</a>`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("logs page missing %q:\n%s", want, page)
		}
	}
}

func TestSyncLogs_MissingSource(t *testing.T) {
	p, _ := setupTestPublisher(t)
	_, err := p.SyncLogs(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrSourceMissing) {
		t.Fatalf("expected ErrSourceMissing, got %v", err)
	}
}

func TestSortTasksAndViews(t *testing.T) {
	tasks := []Task{
		{Text: "a", CreatedAt: "2026-10-01"},
		{Text: "b", CreatedAt: "2026-10-03", Status: "done"},
		{Text: "c", CreatedAt: "2026-10-01", Status: "weird"},
	}
	SortTasks(tasks)
	var order []string
	for _, task := range tasks {
		order = append(order, task.Text)
	}
	if diff := cmp.Diff([]string{"b", "a", "c"}, order); diff != "" {
		t.Errorf("sort order mismatch (-want +got):\n%s", diff)
	}

	v := NewTaskView(tasks[2])
	if v.Status != "open" || v.Badge != "OPEN" {
		t.Errorf("unknown status should normalise to open, got %+v", v)
	}
	v = NewTaskView(Task{Text: "x", Status: "done", DueAt: "tomorrow", Owner: "me"})
	if v.Badge != "DONE" || v.MetaDue != "due: tomorrow" || v.MetaOwner != "owner: me" || v.MetaCreated != "" {
		t.Errorf("unexpected view: %+v", v)
	}
}

func TestSyncTasks(t *testing.T) {
	p, site := setupTestPublisher(t)
	state := filepath.Join(t.TempDir(), "tasks.json")
	writeFile(t, state, `{"meta":{"version":1},"tasks":[
		{"text":"older <b>task</b>","createdAt":"2026-10-01T00:00:00Z","status":"open"},
		{"text":"newer task","createdAt":"2026-10-02T00:00:00Z","status":"done","note":"fine"}
	]}`)

	res, err := p.SyncTasks(state)
	if err != nil {
		t.Fatalf("SyncTasks failed: %v", err)
	}
	want := []string{"tasks/tasks.json", "en/tasks/index.html", "zh/tasks/index.html"}
	if diff := cmp.Diff(want, res.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	published := readFile(t, filepath.Join(site, "tasks", "tasks.json"))
	if !strings.HasSuffix(published, "}\n") || !strings.Contains(published, "<b>task</b>") {
		t.Errorf("published JSON not as expected:\n%s", published)
	}
	var roundTrip map[string]any
	if err = json.Unmarshal([]byte(published), &roundTrip); err != nil {
		t.Fatalf("published JSON invalid: %v", err)
	}

	en := readFile(t, filepath.Join(site, "en", "tasks", "index.html"))
	if strings.Index(en, "newer task") > strings.Index(en, "older") {
		t.Error("tasks should be rendered newest first")
	}
	for _, want := range []string{
		"older &lt;b&gt;task&lt;/b&gt;",
		"updated: 2026-10-16T09:30:00Z",
		`<a href="/en/tasks/" class="active">Tasks</a>`,
		`<div class="task-note">fine</div>`,
	} {
		if !strings.Contains(en, want) {
			t.Errorf("en tasks page missing %q", want)
		}
	}

	zh := readFile(t, filepath.Join(site, "zh", "tasks", "index.html"))
	if !strings.Contains(zh, `<a href="/zh/tasks/" class="active">任务</a>`) {
		t.Errorf("zh tasks page missing active nav link:\n%s", zh)
	}
}

func TestSyncTasks_MissingState(t *testing.T) {
	p, site := setupTestPublisher(t)
	if _, err := p.SyncTasks(filepath.Join(t.TempDir(), "missing.json")); err != nil {
		t.Fatalf("SyncTasks failed: %v", err)
	}
	published := readFile(t, filepath.Join(site, "tasks", "tasks.json"))
	var state struct {
		Meta  map[string]int `json:"meta"`
		Tasks []any          `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(published), &state); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if state.Meta["version"] != 1 || len(state.Tasks) != 0 {
		t.Errorf("unexpected empty state: %+v", state)
	}
	if en := readFile(t, filepath.Join(site, "en", "tasks", "index.html")); !strings.Contains(en, "No tasks yet") {
		t.Error("empty tasks page should say so")
	}
}

func TestNewHealthView(t *testing.T) {
	h := Health{
		Severity: "warn",
		Host:     map[string]any{"diskFreePct": 41.5, "loadavg": "1.2 1.0 0.9"},
		Systems: map[string]Check{
			"selfHeal": {OK: true, Detail: "watchdog alive"},
			"mail":     {OK: false},
		},
		Integrations: map[string]Check{
			"gateway":   {OK: true, URL: "http://127.0.0.1:18789"},
			"gmailPush": {State: "active"},
		},
	}
	v := NewHealthView(h)
	if v.DiskFreePct != "41.5" || v.DiskFreeGB != "-" || v.Loadavg != "1.2 1.0 0.9" {
		t.Errorf("unexpected host values: %+v", v)
	}
	wantSystems := []Row{
		{Name: "Self-heal", State: "OK", Detail: "watchdog alive"},
		{Name: "Logging", State: "-"},
		{Name: "Monitoring", State: "-"},
		{Name: "Mail", State: "BAD"},
		{Name: "Tasks", State: "-"},
	}
	if diff := cmp.Diff(wantSystems, v.Systems); diff != "" {
		t.Errorf("systems mismatch (-want +got):\n%s", diff)
	}
	wantModules := []Row{
		{Name: "VPN/Proxy", State: "-"},
		{Name: "Gateway", State: "OK", Detail: "http://127.0.0.1:18789"},
		{Name: "Gmail Push", State: "active", Detail: "Pub/Sub"},
	}
	if diff := cmp.Diff(wantModules, v.Modules); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncHealth(t *testing.T) {
	p, site := setupTestPublisher(t)
	src := filepath.Join(t.TempDir(), "health.json")
	writeFile(t, src, `{"updatedAt":"2026-10-16T09:00:00Z","severity":"crit","notes":["disk <low>"],"extra":{"kept":true}}`)

	if _, err := p.SyncHealth(src); err != nil {
		t.Fatalf("SyncHealth failed: %v", err)
	}
	published := readFile(t, filepath.Join(site, "status", "health.json"))
	if !strings.Contains(published, `"kept": true`) {
		t.Errorf("unknown fields should be preserved:\n%s", published)
	}

	zh := readFile(t, filepath.Join(site, "zh", "status", "index.html"))
	for _, want := range []string{
		"background:#e74c3c",
		"总体: crit",
		"<li>disk &lt;low&gt;</li>",
		"自救系统",
		`<a href="/zh/status/" class="active">状态</a>`,
		`<a href="/en/status/">EN</a>`,
	} {
		if !strings.Contains(zh, want) {
			t.Errorf("zh status page missing %q", want)
		}
	}
}

func TestSyncHealth_NonBooleanOK(t *testing.T) {
	p, site := setupTestPublisher(t)
	src := filepath.Join(t.TempDir(), "health.json")
	writeFile(t, src, `{"severity":"ok","systems":{"mail":{"ok":"yes","detail":"smtp up"},"tasks":{"ok":1},"logging":{"ok":true}}}`)

	if _, err := p.SyncHealth(src); err != nil {
		t.Fatalf("SyncHealth failed: %v", err)
	}
	en := readFile(t, filepath.Join(site, "en", "status", "index.html"))
	for _, want := range []string{"smtp up", "OK"} {
		if !strings.Contains(en, want) {
			t.Errorf("en status page missing %q", want)
		}
	}

	if got := yesNo("yes"); got != "-" {
		t.Errorf(`yesNo("yes") = %q, want "-"`, got)
	}
	if got := yesNo(1.0); got != "-" {
		t.Errorf("yesNo(1.0) = %q, want \"-\"", got)
	}
}

func TestSyncHealth_Missing(t *testing.T) {
	p, site := setupTestPublisher(t)
	if _, err := p.SyncHealth(filepath.Join(t.TempDir(), "missing.json")); err != nil {
		t.Fatalf("SyncHealth failed: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(readFile(t, filepath.Join(site, "status", "health.json"))), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc["severity"] != "unknown" || doc["updatedAt"] != "2026-10-16T09:30:00Z" {
		t.Errorf("unexpected fallback document: %v", doc)
	}
	en := readFile(t, filepath.Join(site, "en", "status", "index.html"))
	if !strings.Contains(en, "<li>health.json missing</li>") {
		t.Error("fallback note not rendered")
	}
}
