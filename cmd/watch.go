package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceTime = 100 * time.Millisecond

// logWatcher reports debounced writes to a set of files
type logWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	timer   *time.Timer

	update chan struct{}
	Errors <-chan error
}

// watchFiles watches the directories holding files, so that logs which are
// rotated or recreated keep being followed.
func watchFiles(files []string, debounce time.Duration) (*logWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &logWatcher{
		watcher: watcher,
		files:   make(map[string]bool, len(files)),
		update:  make(chan struct{}, 1),
		Errors:  watcher.Errors,
	}
	dirs := map[string]bool{}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	go w.process(debounce)
	return w, nil
}

func (w *logWatcher) process(debounce time.Duration) {
	for ev := range w.watcher.Events {
		if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
			continue
		}
		abs, err := filepath.Abs(ev.Name)
		if err != nil || !w.files[abs] {
			continue
		}
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timer = time.AfterFunc(debounce, func() {
			select {
			case w.update <- struct{}{}:
			default:
			}
		})
	}
}

func (w *logWatcher) Close() error {
	return w.watcher.Close()
}

// watchLogs calls onUpdate after every burst of writes to files until ctx
// is cancelled or the process is interrupted. Status lines go to out.
func watchLogs(ctx context.Context, out io.Writer, files []string, onUpdate func()) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watchFiles(files, debounceTime)
	if err != nil {
		return fmt.Errorf("failed to watch exchange logs: %w", err)
	}
	defer w.Close()

	fmt.Fprintf(out, "Watching %d exchange log(s), press Ctrl+C to stop\n", len(files))
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		case <-w.update:
			onUpdate()
		}
	}
}
