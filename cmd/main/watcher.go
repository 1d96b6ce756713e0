package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/CTAG07/sitekit/pkg/templating"
	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
)

const templateDebounce = 250 * time.Millisecond

// TemplateWatcher reloads the template manager when files in the override
// directory change. Editors often write a file in several steps, so changes
// are collected for a short quiet period before reloading.
type TemplateWatcher struct {
	fsWatcher *fsnotify.Watcher
	tm        *templating.TemplateManager
	clock     clockwork.Clock
	debounce  time.Duration
	logger    *slog.Logger
}

// NewTemplateWatcher starts watching dir. It does not reload anything until
// Run is called.
func NewTemplateWatcher(dir string, tm *templating.TemplateManager, clock clockwork.Clock, logger *slog.Logger) (*TemplateWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create watcher: %w", err)
	}
	if err = fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("unable to watch %s: %w", dir, err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger.Info("Watching template directory", "path", dir)
	return &TemplateWatcher{
		fsWatcher: fsWatcher,
		tm:        tm,
		clock:     clock,
		debounce:  templateDebounce,
		logger:    logger,
	}, nil
}

func isTemplateEvent(event fsnotify.Event) bool {
	if !strings.HasSuffix(event.Name, ".tmpl.html") && !strings.HasSuffix(event.Name, ".part.html") {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

// Run processes events until ctx is cancelled or the watcher is closed.
// A watcher closed after ctx is done is a clean exit.
func (w *TemplateWatcher) Run(ctx context.Context) error {
	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher events channel closed")
			}
			if isTemplateEvent(event) {
				w.logger.Debug("Template change detected", "path", event.Name, "op", event.Op.String())
				reload = w.clock.After(w.debounce)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher errors channel closed")
			}
			w.logger.Warn("Watcher error", "error", err)

		case <-reload:
			reload = nil
			if err := w.tm.Refresh(); err != nil {
				w.logger.Error("Template reload failed, keeping previous templates", "error", err)
				continue
			}
			w.logger.Info("Templates reloaded", "templates", len(w.tm.GetTemplateNames()))
		}
	}
}

// Close stops watching.
func (w *TemplateWatcher) Close() error {
	return w.fsWatcher.Close()
}
