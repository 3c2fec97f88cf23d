package watch

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
	"git.home.luguber.info/inful/packager/internal/logfields"
)

// waker turns filesystem events in watched directories into early wake-ups
// of the poll loop. It never decides whether to rebuild.
type waker struct {
	fsw     *fsnotify.Watcher
	watched map[string]bool
	wake    chan struct{}
	done    chan struct{}
	logger  *slog.Logger
}

func newWaker(logger *slog.Logger) (*waker, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.RuntimeError("failed to create file watcher").WithCause(err).Build()
	}
	w := &waker{
		fsw:     fsw,
		watched: make(map[string]bool),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go w.loop()
	return w, nil
}

func (w *waker) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("Filesystem event", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			select {
			case w.wake <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", logfields.Error(err))
		}
	}
}

// sync makes the watched set equal to dirs.
func (w *waker) sync(dirs []string) {
	want := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		want[filepath.Clean(d)] = true
	}
	for d := range w.watched {
		if !want[d] {
			_ = w.fsw.Remove(d)
			delete(w.watched, d)
		}
	}
	for d := range want {
		if w.watched[d] {
			continue
		}
		if err := w.fsw.Add(d); err != nil {
			w.logger.Debug("Cannot watch directory", logfields.Path(d), logfields.Error(err))
			continue
		}
		w.watched[d] = true
	}
}

func (w *waker) close() {
	_ = w.fsw.Close()
	<-w.done
}
