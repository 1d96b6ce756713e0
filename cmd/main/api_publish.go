package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/CTAG07/sitekit/pkg/publish"
	"github.com/go-chi/chi/v5"
)

// PublishAPI lets the publish jobs be triggered by hand.
type PublishAPI struct {
	app       *App
	scheduler *Scheduler
	logger    *slog.Logger
}

func NewPublishAPI(app *App, scheduler *Scheduler, logger *slog.Logger) *PublishAPI {
	return &PublishAPI{app: app, scheduler: scheduler, logger: logger}
}

func (p *PublishAPI) RegisterRoutes(r chi.Router) {
	r.Get("/api/publish/schedule", p.handleSchedule)
	r.Post("/api/publish/{job}", p.handleRun)
}

func (p *PublishAPI) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if p.scheduler == nil {
		respondWithJSON(w, http.StatusOK, []ScheduleEntry{})
		return
	}
	respondWithJSON(w, http.StatusOK, p.scheduler.Entries())
}

func (p *PublishAPI) handleRun(w http.ResponseWriter, r *http.Request) {
	job := chi.URLParam(r, "job")
	if job != jobAll && !slices.Contains(jobNames, job) {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Unknown job '%s'", job))
		return
	}
	results, err := p.app.RunJob(job)
	if err != nil {
		p.logger.Error("API triggered publish job failed", "job", job, "error", err)
		code := http.StatusInternalServerError
		if errors.Is(err, publish.ErrSourceMissing) {
			code = http.StatusConflict
		}
		respondWithError(w, code, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, results)
}
