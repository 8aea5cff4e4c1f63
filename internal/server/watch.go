package server

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/fidgetstar/internal/model"
)

const debounce = 100 * time.Millisecond

// watchModels broadcasts the model name whenever a script in the models
// directory is written or created.
func (s *Server) watchModels(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.loader.Dir()); err != nil {
		// Keep serving without live reload.
		s.logger.Error("failed to watch models directory", "dir", s.loader.Dir(), "error", err)
		<-ctx.Done()
		return nil
	}

	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Ext(event.Name) != model.Ext {
				continue
			}
			name := strings.TrimSuffix(filepath.Base(event.Name), model.Ext)
			if t, ok := timers[name]; ok {
				t.Stop()
			}
			timers[name] = time.AfterFunc(debounce, func() {
				s.logger.Debug("model changed", "model", name)
				s.notifier.Broadcast(name)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
