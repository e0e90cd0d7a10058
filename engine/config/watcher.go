package config

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/anima-framegraph/engine/core"
)

// Watcher reloads a configuration file whenever it changes on disk.
type Watcher struct {
	path     string
	fsnotify *fsnotify.Watcher
	onChange func(*Config)

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// Watch starts watching path. onChange receives every configuration that
// loads and validates after a change; the log level is reapplied first.
// Files that fail to load are logged and ignored.
func Watch(path string, onChange func(*Config)) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fsWatch.Close()
		return nil, err
	}
	// editors usually replace the file, which drops a watch on the file itself
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, err
	}
	w := &Watcher{
		path:     abs,
		fsnotify: fsWatch,
		onChange: onChange,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.start()
	return w, nil
}

func (w *Watcher) start() {
	defer close(w.stopped)
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.reload()
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("config watcher: %s", err.Error())

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		core.LogError("config reload failed: %s", err.Error())
		return
	}
	cfg.Apply()
	core.LogInfo("config %s reloaded", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := errors.New("config watcher already closed")
	w.closeOnce.Do(func() {
		close(w.done)
		<-w.stopped
		err = w.fsnotify.Close()
	})
	return err
}
