package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/CTAG07/sitekit/pkg/ledger"
	"github.com/CTAG07/sitekit/pkg/pagefix"
	"github.com/CTAG07/sitekit/pkg/publish"
	"github.com/CTAG07/sitekit/pkg/templating"
	"github.com/jonboulle/clockwork"
)

// App wires the libraries together for one command invocation or one serve
// cycle.
type App struct {
	cm        *ConfigManager
	logger    *slog.Logger
	clock     clockwork.Clock
	db        *sql.DB
	ledger    *ledger.Ledger
	tm        *templating.TemplateManager
	fixer     *pagefix.Fixer
	publisher *publish.Publisher
	builder   *Builder
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(level)}))
}

// NewApp builds every component from the current configuration.
// The caller must Close the App.
func NewApp(cm *ConfigManager, clock clockwork.Clock) (*App, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	config := cm.Get()
	logger := newLogger(config.Server.LogLevel)
	cm.SetLogger(logger)

	fixer, err := pagefix.NewFixer(*config.Page, clock)
	if err != nil {
		return nil, fmt.Errorf("failed to create page fixer: %w", err)
	}

	tm, err := templating.NewTemplateManager(logger, config.Templates)
	if err != nil {
		return nil, fmt.Errorf("failed to create template manager: %w", err)
	}
	cm.SetTemplateManager(tm)

	db, err := initDB(config.Server.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	l, err := ledger.New(db, clock, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create build ledger: %w", err)
	}

	var pubFixer *pagefix.Fixer
	if config.Publish.FixPages {
		pubFixer = fixer
	}

	return &App{
		cm:        cm,
		logger:    logger,
		clock:     clock,
		db:        db,
		ledger:    l,
		tm:        tm,
		fixer:     fixer,
		publisher: publish.NewPublisher(config.Server.SiteDir, tm, pubFixer, clock, logger),
		builder:   NewBuilder(config.Server.SiteDir, config.Server.ExcludeDirs, fixer, l, clock, logger),
	}, nil
}

// Close releases the ledger and the database.
func (a *App) Close() {
	a.ledger.Close()
	a.logger.Debug("Closing database connection.")
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database", "error", err)
	}
}

// Job names accepted by RunJob and the schedules config.
const (
	jobLogs   = "logs"
	jobTasks  = "tasks"
	jobHealth = "health"
	jobAll    = "all"
)

var jobNames = []string{jobLogs, jobTasks, jobHealth}

// RunJob runs one publish job by name. "all" runs every job and stops at the
// first failure.
func (a *App) RunJob(name string) ([]*publish.Result, error) {
	pub := a.cm.Get().Publish
	var res *publish.Result
	var err error
	switch name {
	case jobLogs:
		res, err = a.publisher.SyncLogs(pub.LogsSource)
	case jobTasks:
		res, err = a.publisher.SyncTasks(pub.TasksState)
	case jobHealth:
		res, err = a.publisher.SyncHealth(pub.HealthSource)
	case jobAll:
		var results []*publish.Result
		for _, job := range jobNames {
			r, err := a.RunJob(job)
			results = append(results, r...)
			if err != nil {
				return results, err
			}
		}
		return results, nil
	default:
		return nil, fmt.Errorf("unknown job %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s job failed: %w", name, err)
	}
	a.logger.Debug("Publish job finished", "job", res.Job, "files", len(res.Files), "duration", res.Duration)
	return []*publish.Result{res}, nil
}
