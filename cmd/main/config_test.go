package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/CTAG07/sitekit/pkg/templating"
	"github.com/google/go-cmp/cmp"
)

func TestLoadConfig_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if _, err = os.Stat(path); err != nil {
		t.Fatalf("expected default config file to be written: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	reloaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig of written defaults failed: %v", err)
	}
	if diff := cmp.Diff(cfg, reloaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"server_config": {"site_dir": "./public"}, "page_config": {"nav_class": "menu", "timezone": "Asia/Shanghai"}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.SiteDir != "./public" || cfg.Server.SiteAddr != DefaultServerConfig().SiteAddr {
		t.Errorf("server section not merged with defaults: %+v", cfg.Server)
	}
	if cfg.Page.NavClass != "menu" || cfg.Page.YearElementID != "y" || !cfg.Page.ClearStale {
		t.Errorf("page section not merged with defaults: %+v", cfg.Page)
	}
	if len(cfg.Templates.Languages) != 2 {
		t.Errorf("expected default languages, got %+v", cfg.Templates.Languages)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"bad json":     `{"server_config": `,
		"bad timezone": `{"page_config": {"timezone": "Mars/Olympus"}}`,
		"no site dir":  `{"server_config": {"site_dir": ""}}`,
		"no languages": `{"template_config": {"languages": []}}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConfigManager_UpdateRollsBackTemplates(t *testing.T) {
	dir := t.TempDir()
	cm, err := NewConfigManager(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}
	cm.SetLogger(newLogger("error"))
	tm, err := templating.NewTemplateManager(newLogger("error"), nil)
	if err != nil {
		t.Fatalf("NewTemplateManager failed: %v", err)
	}
	cm.SetTemplateManager(tm)

	broken := filepath.Join(dir, "broken")
	if err = os.MkdirAll(broken, 0755); err != nil {
		t.Fatal(err)
	}
	if err = os.WriteFile(filepath.Join(broken, "bad.tmpl.html"), []byte("{{if}}"), 0644); err != nil {
		t.Fatal(err)
	}

	next := cm.Get()
	tmplConfig := *next.Templates
	tmplConfig.TemplateDir = broken
	next.Templates = &tmplConfig

	if err = cm.Update(next); err == nil {
		t.Fatal("expected Update to reject a broken template directory")
	}
	if got := tm.GetConfig().TemplateDir; got != "" {
		t.Errorf("template config not rolled back, dir = %q", got)
	}
	if got := cm.Get().Templates.TemplateDir; got != "" {
		t.Errorf("config changed despite failed update, dir = %q", got)
	}
}
