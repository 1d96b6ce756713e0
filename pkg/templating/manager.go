package templating

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

// ErrUnknownTemplate is returned by Execute for names that are not loaded.
var ErrUnknownTemplate = errors.New("templating: unknown template")

// Page is the data passed to every page template.
type Page struct {
	// Lang is the edition code, e.g. "en".
	Lang string
	// Path is the URL path the page is published at.
	Path string
	// Section is the untranslated section name shown after the brand.
	Section string
	// Subtitle is the untranslated line shown under the brand.
	Subtitle string
	// Updated is the generation timestamp shown on the page, if any.
	Updated string
	// Data carries the section-specific content.
	Data any
}

// TemplateManager is the central controller for the templating engine.
// It manages the template set, configuration and function map, and is
// responsible for loading, parsing, and executing templates in a
// concurrent-safe manner.
// All methods are concurrent-safe.
type TemplateManager struct {
	logger         *slog.Logger
	config         *TemplateConfig
	templates      *template.Template
	cleanTemplates *template.Template
	templateNames  []string
	funcMap        template.FuncMap
	catalog        catalog.Catalog
	messageKeys    map[string]struct{}
	printers       map[string]*message.Printer
	printersMu     sync.Mutex
	mu             sync.RWMutex
}

// NewTemplateManager creates a TemplateManager and performs an initial
// Refresh. A nil config uses DefaultConfig.
func NewTemplateManager(logger *slog.Logger, config *TemplateConfig) (*TemplateManager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	cat, err := newCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to build message catalog: %w", err)
	}

	tm := &TemplateManager{
		logger:      logger,
		config:      config,
		catalog:     cat,
		messageKeys: make(map[string]struct{}, len(zhMessages)),
		printers:    make(map[string]*message.Printer),
	}
	for _, m := range zhMessages {
		tm.messageKeys[m[0]] = struct{}{}
	}
	tm.funcMap = tm.makeFuncMap()

	if err = tm.Refresh(); err != nil {
		return nil, err
	}

	logger.Info("Template manager initialized")
	return tm, nil
}

func (tm *TemplateManager) makeFuncMap() template.FuncMap {
	return template.FuncMap{
		// Text (from funcs_text.go)
		"tr":       tm.tr,
		"htmlLang": tm.htmlLang,
		"brand":    tm.brand,
		"sevColor": sevColor,
		"join":     join,

		// Link & Navigation (from funcs_links.go)
		"navLinks": tm.navLinks,

		// Simple (from funcs_simple.go)
		"list": list,
	}
}

// SetConfig applies a new configuration. Call Refresh afterwards to pick up
// a changed TemplateDir.
func (tm *TemplateManager) SetConfig(config *TemplateConfig) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.config = config
}

// Refresh reloads the embedded templates and, if configured, the override
// directory. This allows updates to templates without restarting.
func (tm *TemplateManager) Refresh() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.logger.Info("Loading template files...")
	parsed, err := template.New("").Funcs(tm.funcMap).ParseFS(defaultTemplates, "templates/*.html")
	if err != nil {
		tm.logger.Error("failed to parse embedded templates", "error", err)
		return err
	}

	if dir := tm.config.TemplateDir; dir != "" {
		for _, pattern := range []string{"*.part.html", "*.tmpl.html"} {
			filePattern := filepath.Join(dir, pattern)
			matches, _ := filepath.Glob(filePattern)
			if len(matches) == 0 {
				continue
			}
			if parsed, err = parsed.ParseFiles(matches...); err != nil {
				tm.logger.Error("failed to parse template overrides", "pattern", filePattern, "error", err)
				return err
			}
		}
	}

	var names []string
	for _, t := range parsed.Templates() {
		// The root template has no name and partials only define blocks.
		if strings.HasSuffix(t.Name(), ".tmpl.html") {
			names = append(names, t.Name())
		}
	}
	sort.Strings(names)

	// Create a clean clone for string executions before anything is executed.
	clean, err := parsed.Clone()
	if err != nil {
		tm.logger.Error("failed to create a clean clone of templates", "error", err)
		return err
	}

	tm.templates = parsed
	tm.cleanTemplates = clean
	tm.templateNames = names
	tm.logger.Info("Loaded template and partial files", "count", len(names))
	return nil
}

// Execute renders a specific template by name, writing the output to w.
func (tm *TemplateManager) Execute(w io.Writer, name string, data any) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	if tm.templates.Lookup(name) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	return tm.templates.ExecuteTemplate(w, name, data)
}

// ExecuteTemplateString parses and executes a raw template string using the
// manager's function map and partials. Useful for previews.
func (tm *TemplateManager) ExecuteTemplateString(w io.Writer, content string, data any) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	// Clone the clean, unexecuted set to avoid execution state issues.
	tempSet, err := tm.cleanTemplates.Clone()
	if err != nil {
		return fmt.Errorf("failed to clone clean templates for string execution: %w", err)
	}
	t, err := tempSet.New("preview").Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse string template: %w", err)
	}
	return t.Execute(w, data)
}

// GetConfig returns a copy of the current configuration.
func (tm *TemplateManager) GetConfig() TemplateConfig {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return *tm.config
}

// GetTemplateNames returns the names of the loaded page templates.
func (tm *TemplateManager) GetTemplateNames() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return append([]string(nil), tm.templateNames...)
}

// Languages returns the configured edition codes.
func (tm *TemplateManager) Languages() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	codes := make([]string, 0, len(tm.config.Languages))
	for _, l := range tm.config.Languages {
		codes = append(codes, l.Code)
	}
	return codes
}

// TemplateDirExists reports whether the override directory is configured
// and present on disk.
func (tm *TemplateManager) TemplateDirExists() bool {
	tm.mu.RLock()
	dir := tm.config.TemplateDir
	tm.mu.RUnlock()
	if dir == "" {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// DefaultTemplates exposes the embedded template set, e.g. for exporting
// it as a starting point for overrides.
func DefaultTemplates() fs.FS {
	sub, _ := fs.Sub(defaultTemplates, "templates")
	return sub
}
