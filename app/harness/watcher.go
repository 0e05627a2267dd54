package harness

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange with freshly loaded samples every time the file is written or replaced.
// The parent directory is watched, so saves done as write-to-temp and rename are seen too.
// Blocks until ctx is canceled.
func Watch(ctx context.Context, path string, onChange func([]Sample) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err = watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("[INFO] stopping watcher for %s, %v", path, ctx.Err())
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			samples, e := loadFile(target)
			if e != nil {
				log.Printf("[WARN] samples file %s changed but can't be loaded: %v", path, e)
				continue
			}
			log.Printf("[DEBUG] samples file %s changed, %d samples", path, len(samples))
			if e = onChange(samples); e != nil {
				log.Printf("[WARN] failed to process updated samples from %s: %v", path, e)
			}
		case e, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[WARN] watcher error: %v", e)
		}
	}
}
