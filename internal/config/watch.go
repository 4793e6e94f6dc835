package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// Path returns the YAML file named by FORECASTHUB_CONFIG, or "".
func Path() string {
	return strings.TrimSpace(os.Getenv(envConfig))
}

// Watch reloads the configuration whenever the file at path changes and
// hands every valid result to onChange. Reloads that fail to load or
// validate are reported to onError and otherwise skipped. path should be
// Path(), since every reload goes through Load. The watcher is registered
// before Watch returns and stops when ctx ends.
func Watch(ctx context.Context, path string, onChange func(*Config), onError func(error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	file := filepath.Base(path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		// debounce partial writes
		timer = time.AfterFunc(reloadDebounce, func() {
			if ctx.Err() != nil {
				return
			}
			cfg, err := Load(ctx)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				return
			}
			onChange(cfg)
		})
	}

	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) == file && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					reload()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				if onError != nil && err != nil {
					onError(err)
				}
			}
		}
	}()
	return nil
}
