// Package filterwatch turns edits of a YAML filter file into filter changes.
package filterwatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"live-dashboard/src/logger"
	"live-dashboard/src/models"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// LoadFilter reads a filter file. Empty fields take the defaults.
func LoadFilter(path string) (models.MFilterState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.MFilterState{}, err
	}

	var filter models.MFilterState
	if err := yaml.Unmarshal(data, &filter); err != nil {
		return models.MFilterState{}, fmt.Errorf("parsing filter file %s: %w", path, err)
	}
	filter = filter.WithDefaults()
	if err := filter.Validate(); err != nil {
		return models.MFilterState{}, fmt.Errorf("filter file %s: %w", path, err)
	}
	return filter, nil
}

// -----------------------------------------------------------------------------
// Watcher applies the filter file whenever it changes. The parent directory
// is watched so editors that replace the file are followed.
// -----------------------------------------------------------------------------

type Watcher struct {
	Path   string
	Apply  func(models.MFilterState) error
	Logger *logger.Logger

	watcher *fsnotify.Watcher
	last    *models.MFilterState
}

func NewWatcher(path string, apply func(models.MFilterState) error, log *logger.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		Path:    abs,
		Apply:   apply,
		Logger:  log,
		watcher: watcher,
	}, nil
}

// -----------------------------------------------------------------------------

// Run applies the current file, then every change, until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if _, err := os.Stat(w.Path); err == nil {
		w.reload()
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.Path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			// Log error but continue running
			w.Logger.Warning("Filter watch error: %v", err)
		}
	}
}

// reload applies the file unless it is unreadable or unchanged.
func (w *Watcher) reload() {
	filter, err := LoadFilter(w.Path)
	if err != nil {
		w.Logger.Warning("Filter file ignored: %v", err)
		return
	}
	if w.last != nil && *w.last == filter {
		return
	}

	if err := w.Apply(filter); err != nil {
		w.Logger.Warning("Filter from %s rejected: %v", w.Path, err)
		return
	}
	w.last = &filter
	w.Logger.Info("Filter loaded from %s: %+v", w.Path, filter)
}
