package xframe

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const configDebounce = 100 * time.Millisecond

// ConfigWatcher reloads a YAML config file whenever it changes on disk.
// Valid configs arrive on Configs, load failures on Errors. Both channels are
// closed once the watcher stops.
type ConfigWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	Configs chan Config
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// WatchConfig starts watching path. The parent directory is watched so editors
// that replace the file on save are still picked up.
func WatchConfig(path string) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, err
	}

	cw := &ConfigWatcher{
		watcher: w,
		path:    abs,
		Configs: make(chan Config, 4),
		Errors:  make(chan error, 4),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go cw.run()
	return cw, nil
}

// Close stops the watcher. It is safe to call more than once.
func (cw *ConfigWatcher) Close() error {
	var err error
	cw.once.Do(func() {
		close(cw.closeCh)
		err = cw.watcher.Close()
		<-cw.done
	})
	return err
}

func (cw *ConfigWatcher) run() {
	defer func() {
		close(cw.Configs)
		close(cw.Errors)
		close(cw.done)
	}()

	// Reload once the file has been quiet for configDebounce, so a save that
	// truncates before writing is never read half done.
	timer := time.NewTimer(configDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(configDebounce)
		case <-timer.C:
			cfg, err := LoadConfig(cw.path)
			if err != nil {
				cw.sendErr(err)
				continue
			}
			select {
			case cw.Configs <- cfg:
			case <-cw.closeCh:
				return
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.sendErr(err)
		case <-cw.closeCh:
			return
		}
	}
}

// sendErr never blocks; errors nobody reads are dropped.
func (cw *ConfigWatcher) sendErr(err error) {
	select {
	case cw.Errors <- err:
	default:
	}
}

// Follow applies every config cw delivers to w until ctx is done or the
// watcher closes. Rejected configs and load errors are logged.
func (w *World) Follow(ctx context.Context, cw *ConfigWatcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-cw.Configs:
			if !ok {
				return
			}
			if err := w.ApplyConfig(cfg); err != nil {
				w.logger.Warn().Err(err).Msg("xframe config rejected")
			}
		case err, ok := <-cw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("xframe config reload failed")
		}
	}
}
