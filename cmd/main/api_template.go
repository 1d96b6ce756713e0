package main

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/sitekit/pkg/templating"
	"github.com/go-chi/chi/v5"
)

// TemplateAPI holds the dependencies for the template API handlers.
type TemplateAPI struct {
	tm     *templating.TemplateManager
	logger *slog.Logger
}

// NewTemplateAPI creates a new instance of the TemplateAPI.
func NewTemplateAPI(tm *templating.TemplateManager, logger *slog.Logger) *TemplateAPI {
	return &TemplateAPI{
		tm:     tm,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/templates endpoints.
func (t *TemplateAPI) RegisterRoutes(r chi.Router) {
	r.Route("/api/templates", func(r chi.Router) {
		r.Get("/", t.handleList)
		r.Post("/refresh", t.handleRefresh)
		r.Post("/test", t.handleTest)
		r.Get("/{name}", t.handleFile)
	})
}

// handleRefresh triggers a manual refresh of templates from disk.
func (t *TemplateAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := t.tm.Refresh(); err != nil {
		t.logger.Error("API triggered refresh failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to refresh templates: %v", err))
		return
	}
	t.logger.Info("Templates refreshed via API")
	w.WriteHeader(http.StatusNoContent)
}

// handleList returns a list of all available template names.
func (t *TemplateAPI) handleList(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, t.tm.GetTemplateNames())
}

// handleTest executes the request body as a template with the loaded
// partials and functions. ?lang= and ?path= fill in the page context.
func (t *TemplateAPI) handleTest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read request body: %v", err))
		return
	}

	page := templating.Page{
		Lang:    r.URL.Query().Get("lang"),
		Path:    r.URL.Query().Get("path"),
		Section: "Preview",
	}
	if langs := t.tm.Languages(); page.Lang == "" && len(langs) > 0 {
		page.Lang = langs[0]
	}
	if page.Path == "" {
		page.Path = "/" + page.Lang + "/"
	}

	var buf bytes.Buffer
	if err = t.tm.ExecuteTemplateString(&buf, string(body), page); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Template execution failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleFile returns the source of a template, from the override directory
// when it has one and from the built-in set otherwise.
func (t *TemplateAPI) handleFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) ||
		(!strings.HasSuffix(name, ".tmpl.html") && !strings.HasSuffix(name, ".part.html")) {
		respondWithError(w, http.StatusBadRequest, "Invalid template name format")
		return
	}

	var content []byte
	var err error
	if dir := t.tm.GetConfig().TemplateDir; dir != "" {
		content, err = os.ReadFile(filepath.Join(dir, name))
	}
	if content == nil {
		content, err = fs.ReadFile(templating.DefaultTemplates(), name)
	}
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Template not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(content)
}
