package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs publish jobs on their configured cron schedules while the
// preview server is up.
type Scheduler struct {
	cron    *cron.Cron
	entries map[string]cron.EntryID
	specs   map[string]string
	logger  *slog.Logger
}

// ScheduleEntry describes one scheduled job.
type ScheduleEntry struct {
	Job  string    `json:"job"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev,omitempty"`
}

// NewScheduler registers run for every job in schedules. An empty spec
// disables the job. Unknown job names and unparsable specs are errors.
func NewScheduler(schedules map[string]string, run func(job string) error, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID, len(schedules)),
		specs:   make(map[string]string, len(schedules)),
		logger:  logger,
	}

	jobs := make([]string, 0, len(schedules))
	for job := range schedules {
		jobs = append(jobs, job)
	}
	sort.Strings(jobs)

	for _, job := range jobs {
		spec := schedules[job]
		if spec == "" {
			continue
		}
		if job != jobAll && !slices.Contains(jobNames, job) {
			return nil, fmt.Errorf("unknown job %q in schedules", job)
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("invalid schedule %q for job %s: %w", spec, job, err)
		}
		id, err := s.cron.AddFunc(spec, func() {
			logger.Debug("Running scheduled job", "job", job)
			if err := run(job); err != nil {
				logger.Error("Scheduled job failed", "job", job, "error", err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("failed to schedule job %s: %w", job, err)
		}
		s.entries[job] = id
		s.specs[job] = spec
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	if len(s.entries) == 0 {
		return
	}
	s.logger.Info("Starting publish scheduler", "jobs", len(s.entries))
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduled jobs still running at shutdown")
	}
}

// Entries lists the scheduled jobs, sorted by name.
func (s *Scheduler) Entries() []ScheduleEntry {
	entries := make([]ScheduleEntry, 0, len(s.entries))
	for job, id := range s.entries {
		e := s.cron.Entry(id)
		entries = append(entries, ScheduleEntry{
			Job:  job,
			Spec: s.specs[job],
			Next: e.Next,
			Prev: e.Prev,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Job < entries[j].Job })
	return entries
}
