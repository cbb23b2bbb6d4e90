package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// watcher is the implementation of the Watcher interface.
type watcher struct {
	fs       *fsnotify.Watcher
	path     string
	onChange func(Config)
	done     chan struct{}
	wg       *sync.WaitGroup
	once     *sync.Once
}

// Watcher reloads a configuration file whenever it changes.
type Watcher interface {
	// Close stops watching and waits for a reload in progress to finish.
	//
	// Returns:
	//   - error: error if the underlying watcher fails to close
	Close() error
}

var _ Watcher = &watcher{}

// Watch calls onChange with the reloaded configuration every time the file at path is written,
// created or replaced. The parent directory is watched so editors that save through a rename
// are followed. Reloads that fail to parse or validate are logged and skipped, leaving the last
// good configuration in effect. onChange runs on the watcher goroutine.
//
// Parameters:
//   - path: the configuration file
//   - onChange: the callback receiving each reloaded configuration
//
// Returns:
//   - Watcher: the running watcher
//   - error: error if the directory cannot be watched
func Watch(path string, onChange func(Config)) (Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w := &watcher{
		fs:       fs,
		path:     abs,
		onChange: onChange,
		done:     make(chan struct{}),
		wg:       &sync.WaitGroup{},
		once:     &sync.Once{},
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				log.Printf("[Config] reload skipped: %v", err)
				continue
			}
			log.Printf("[Config] reloaded %s", w.path)
			w.onChange(cfg)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("[Config] watch error: %v", err)
		}
	}
}

func (w *watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}
