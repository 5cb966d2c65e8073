// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// ManuscriptWatcher watches the session's manuscript files and raises a
// dirty flag when any of them change on disk. The review loop polls the
// flag between commands; the watcher never interrupts an in-flight
// operation.
//
// Writes are debounced so an editor save (often several events) counts
// once. The flag is level-triggered: it stays raised until consumed via
// DirtyAndReset.
type ManuscriptWatcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu       sync.Mutex
	dirty    bool
	lastSeen time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// NewManuscriptWatcher watches the given files. Paths that cannot be
// watched are skipped with a warning rather than failing the session;
// staleness checking still works without the watcher, just less eagerly.
func NewManuscriptWatcher(paths []string, logger *slog.Logger) (*ManuscriptWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watched := 0
	for _, path := range paths {
		if err := fsw.Add(path); err != nil {
			logger.Warn("cannot watch manuscript", "path", path, "error", err)
			continue
		}
		watched++
	}

	w := &ManuscriptWatcher{
		watcher: fsw,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go w.run()

	logger.Debug("manuscript watcher started", "watched", watched, "requested", len(paths))
	return w, nil
}

func (w *ManuscriptWatcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.mark(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *ManuscriptWatcher) mark(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if w.dirty && now.Sub(w.lastSeen) < watchDebounce {
		w.lastSeen = now
		return
	}
	if !w.dirty {
		w.logger.Debug("manuscript changed on disk", "path", path)
	}
	w.dirty = true
	w.lastSeen = now
}

// DirtyAndReset reports whether a change was seen since the last call,
// clearing the flag.
func (w *ManuscriptWatcher) DirtyAndReset() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	was := w.dirty
	w.dirty = false
	return was
}

// Close stops watching. Safe to call more than once.
func (w *ManuscriptWatcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
