package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/CTAG07/sitekit/pkg/pagefix"
	"github.com/CTAG07/sitekit/pkg/templating"
	"github.com/natefinch/atomic"
)

// ServerConfig holds the configuration for the site directory, the ledger
// database and the preview servers.
type ServerConfig struct {
	SiteAddr     string            `json:"site_addr"`
	ApiAddr      string            `json:"api_addr"`
	LogLevel     string            `json:"log_level"`
	SiteDir      string            `json:"site_dir"`
	DatabasePath string            `json:"database_path"`
	ExcludeDirs  []string          `json:"exclude_dirs"`
	BuildOnStart bool              `json:"build_on_start"`
	WatchFiles   bool              `json:"watch_files"`
	Headers      map[string]string `json:"headers"`
}

// PublishConfig holds the sources of the publish jobs and their schedules.
type PublishConfig struct {
	LogsSource   string `json:"logs_source"`
	TasksState   string `json:"tasks_state"`
	HealthSource string `json:"health_source"`

	// FixPages runs generated pages through the page fixer before writing.
	FixPages bool `json:"fix_pages"`

	// Schedules maps a job name (logs, tasks, health) to a standard cron
	// expression or descriptor such as "@hourly". Jobs run while serving.
	// An empty expression disables the job.
	Schedules map[string]string `json:"schedules"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server    *ServerConfig              `json:"server_config"`
	Page      *pagefix.Options           `json:"page_config"`
	Templates *templating.TemplateConfig `json:"template_config"`
	Publish   *PublishConfig             `json:"publish_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		SiteAddr:     "127.0.0.1:7277",
		ApiAddr:      "127.0.0.1:7278",
		LogLevel:     "info",
		SiteDir:      "./site",
		DatabasePath: "./data/sitekit.db",
		ExcludeDirs:  []string{".git", "node_modules"},
		BuildOnStart: false,
		WatchFiles:   true,
		Headers: map[string]string{
			"Cache-Control": "no-store, no-cache",
		},
	}
}

// DefaultPublishConfig creates a publish configuration with default values.
func DefaultPublishConfig() *PublishConfig {
	return &PublishConfig{
		LogsSource:   "./data/openclaw_log",
		TasksState:   "./data/openclaw_state/tasks.json",
		HealthSource: "./data/openclaw_state/health.json",
		FixPages:     true,
		Schedules: map[string]string{
			"health": "@hourly",
		},
	}
}

// DefaultConfig returns a Config with every section set to its defaults.
func DefaultConfig() *Config {
	page := pagefix.DefaultOptions()
	return &Config{
		Server:    DefaultServerConfig(),
		Page:      &page,
		Templates: templating.DefaultConfig(),
		Publish:   DefaultPublishConfig(),
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The defaults are still usable without a file on disk.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that every section is present and usable.
func (c *Config) Validate() error {
	if c.Server == nil || c.Page == nil || c.Templates == nil || c.Publish == nil {
		return fmt.Errorf("config is missing a section")
	}
	if c.Server.SiteDir == "" {
		return fmt.Errorf("server_config.site_dir must not be empty")
	}
	if _, err := c.Page.Location(); err != nil {
		return err
	}
	if len(c.Templates.Languages) == 0 {
		return fmt.Errorf("template_config.languages must list at least one language")
	}
	return nil
}

// parseLogLevel maps a config level name to a slog level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ConfigManager handles thread-safe access to the configuration.
type ConfigManager struct {
	config     *Config
	mu         sync.RWMutex
	configPath string
	logger     *slog.Logger
	tm         *templating.TemplateManager
}

// NewConfigManager loads the config and initializes the manager.
func NewConfigManager(path string) (*ConfigManager, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return &ConfigManager{
		config:     cfg,
		configPath: path,
		// Log to stdout before the application-specific logger is set.
		logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})),
	}, nil
}

// SetTemplateManager registers the template manager to receive config updates.
func (cm *ConfigManager) SetTemplateManager(tm *templating.TemplateManager) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.tm = tm
	if tm != nil {
		tm.SetConfig(cm.config.Templates)
	}
}

// SetLogger sets the logger.
func (cm *ConfigManager) SetLogger(logger *slog.Logger) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.logger = logger
}

// Get returns a copy of the current configuration.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return *cm.config
}

// Path returns the file the configuration is persisted to.
func (cm *ConfigManager) Path() string {
	return cm.configPath
}

// Update validates and applies a new configuration, then saves it to disk.
// A template configuration that fails to load is rolled back.
func (cm *ConfigManager) Update(newConfig Config) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.tm != nil {
		oldTmplConfig := cm.config.Templates

		cm.tm.SetConfig(newConfig.Templates)
		if err := cm.tm.Refresh(); err != nil {
			cm.tm.SetConfig(oldTmplConfig)
			_ = cm.tm.Refresh()
			return fmt.Errorf("template configuration rejected: %w", err)
		}
	}

	*cm.config = newConfig

	data, err := json.MarshalIndent(cm.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err = atomic.WriteFile(cm.configPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	cm.logger.Info("Configuration updated", "path", cm.configPath)
	return nil
}
