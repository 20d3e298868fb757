package resources

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDelay = 500 * time.Millisecond

func watchDir(
	ctx context.Context,
	directory string,
	logger *zap.Logger,
	callback func(),
) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	err = watcher.Add(directory)
	if err != nil {
		watcher.Close()
		return err
	}

	reload := make(chan struct{}, 1)
	go scheduleReload(ctx, reload, callback)
	go handleWatcher(ctx, watcher, reload, logger)
	return nil
}

func handleWatcher(
	ctx context.Context,
	watcher *fsnotify.Watcher,
	reload chan<- struct{},
	logger *zap.Logger,
) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) ||
				event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				select {
				case reload <- struct{}{}:
				default:
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("resource watcher error", zap.Error(err))
		}
	}
}

// scheduleReload debounces bursts of events into one callback.
func scheduleReload(
	ctx context.Context,
	reload <-chan struct{},
	callback func(),
) {
	var timer *time.Timer = nil
	var c <-chan time.Time = nil
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case <-reload:
			if timer != nil {
				timer.Reset(reloadDelay)
			} else {
				timer = time.NewTimer(reloadDelay)
				c = timer.C
			}

		case <-c:
			c = nil
			timer = nil
			callback()
		}
	}
}
