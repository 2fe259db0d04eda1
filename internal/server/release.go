package server

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/bnema/wlseat/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// Release drops stuck input on SIGUSR1 or when a trigger file appears, for
// keys left latched by a lost key-up
type Release struct {
	release     func() int
	triggerFile string
	watcher     *fsnotify.Watcher

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu    sync.Mutex
	count int
}

// NewRelease creates a release watcher calling release on every trigger.
// release returns the number of keys it dropped. An empty triggerFile
// disables the file trigger.
func NewRelease(release func() int, triggerFile string) *Release {
	if triggerFile != "" {
		triggerFile = filepath.Clean(triggerFile)
	}
	return &Release{
		release:     release,
		triggerFile: triggerFile,
		stopChan:    make(chan struct{}),
	}
}

// Start begins watching for release triggers. The trigger file's directory
// must exist; a stale trigger file is removed without releasing.
func (r *Release) Start() error {
	if r.triggerFile != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create release watcher: %w", err)
		}
		if err := watcher.Add(filepath.Dir(r.triggerFile)); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", filepath.Dir(r.triggerFile), err)
		}
		r.watcher = watcher
		_ = os.Remove(r.triggerFile)

		r.wg.Add(1)
		go r.watchFile()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGUSR1)
	r.wg.Add(1)
	go r.handleSignals(sigChan)

	logger.Debug("Input release triggers armed", "file", r.triggerFile)
	return nil
}

// Stop stops watching and waits for the watchers to exit
func (r *Release) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()
}

// Count returns how many releases were triggered
func (r *Release) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *Release) handleSignals(sigChan chan os.Signal) {
	defer r.wg.Done()
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			r.trigger("signal")
		case <-r.stopChan:
			return
		}
	}
}

func (r *Release) watchFile() {
	defer r.wg.Done()
	defer r.watcher.Close()

	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != r.triggerFile {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			// Create and Write arrive for one touch; only the first finds the file.
			if err := os.Remove(r.triggerFile); err == nil {
				r.trigger("file")
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("Release trigger watcher: %v", err)
		case <-r.stopChan:
			return
		}
	}
}

func (r *Release) trigger(reason string) {
	n := r.release()
	logger.Warnf("Released all input, %d keys were held (reason: %s)", n, reason)

	r.mu.Lock()
	r.count++
	r.mu.Unlock()
}
