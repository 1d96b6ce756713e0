package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/CTAG07/sitekit/pkg/ledger"
	"github.com/go-chi/chi/v5"
)

// BuildAPI exposes site builds and the build ledger.
type BuildAPI struct {
	builder *Builder
	ledger  *ledger.Ledger
	logger  *slog.Logger
}

func NewBuildAPI(builder *Builder, l *ledger.Ledger, logger *slog.Logger) *BuildAPI {
	return &BuildAPI{
		builder: builder,
		ledger:  l,
		logger:  logger,
	}
}

func (b *BuildAPI) RegisterRoutes(r chi.Router) {
	r.Route("/api/build", func(r chi.Router) {
		r.Post("/", b.handleBuild)
		r.Get("/summary", b.handleSummary)
		r.Get("/pages", b.handlePages)
		r.Get("/runs", b.handleRuns)
	})
}

// handleBuild runs a build synchronously. ?force=true rewrites every page.
func (b *BuildAPI) handleBuild(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	report, err := b.builder.Build(r.Context(), force)
	if err != nil {
		b.logger.Error("API triggered build failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Build failed: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

func (b *BuildAPI) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := b.ledger.Summary(r.Context())
	if err != nil {
		b.logger.Error("Failed to query build summary", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (b *BuildAPI) handlePages(w http.ResponseWriter, r *http.Request) {
	pages, err := b.ledger.Pages(r.Context(), queryLimit(r, 100, 1000))
	if err != nil {
		b.logger.Error("Failed to query build pages", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	if pages == nil {
		pages = []ledger.PageRecord{}
	}
	respondWithJSON(w, http.StatusOK, pages)
}

func (b *BuildAPI) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := b.ledger.Runs(r.Context(), queryLimit(r, 20, 500))
	if err != nil {
		b.logger.Error("Failed to query build runs", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	if runs == nil {
		runs = []ledger.Run{}
	}
	respondWithJSON(w, http.StatusOK, runs)
}
