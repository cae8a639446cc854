// Package recorder appends checkpoint events to an open session as the
// content file changes on disk.
//
// It exists for producers without a live editing surface: the recorder
// watches the exported content path, coalesces bursts of filesystem events,
// and chains a checkpoint per settled change. Every checkpoint is journaled
// so a crash resumes the same chain.
package recorder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"

	"twff/internal/event"
	"twff/internal/session"
	"twff/internal/store"
)

// Recorder watches one content file for an open session.
type Recorder struct {
	path     string
	sess     *session.Session
	journal  *store.Store
	debounce time.Duration
	logger   *slog.Logger

	fsWatcher *fsnotify.Watcher

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithJournal persists every appended checkpoint to the session store.
func WithJournal(s *store.Store) Option {
	return func(r *Recorder) { r.journal = s }
}

// WithDebounce sets how long changes must settle before a checkpoint is
// taken. Default is two seconds.
func WithDebounce(d time.Duration) Option {
	return func(r *Recorder) { r.debounce = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

// New creates a recorder for the given content path and open session.
func New(path string, sess *session.Session, opts ...Option) (*Recorder, error) {
	if sess.Closed() {
		return nil, session.ErrChainClosed
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("recorder: invalid path: %w", err)
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("recorder: create watcher: %w", err)
	}

	r := &Recorder{
		path:      absPath,
		sess:      sess,
		debounce:  2 * time.Second,
		logger:    slog.Default(),
		fsWatcher: fsWatcher,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Start begins watching. Editors replace files rather than writing in
// place, so the parent directory is watched and events are filtered by
// path.
func (r *Recorder) Start() error {
	if err := r.fsWatcher.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("recorder: watch %s: %w", filepath.Dir(r.path), err)
	}
	r.wg.Add(1)
	go r.loop()
	return nil
}

// Stop ends watching and waits for the loop to drain.
func (r *Recorder) Stop() error {
	close(r.done)
	r.wg.Wait()
	return r.fsWatcher.Close()
}

func (r *Recorder) loop() {
	defer r.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-r.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-r.fsWatcher.Events:
			if !ok {
				return
			}
			if ev.Name != r.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.debounce)
				timerC = timer.C
			} else {
				timer.Reset(r.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			if err := r.Checkpoint(); err != nil {
				r.logger.Error("checkpoint failed", "path", r.path, "error", err)
			}

		case err, ok := <-r.fsWatcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("watcher error", "error", err)
		}
	}
}

// Checkpoint reads the content file and chains a checkpoint event carrying
// its current character count.
func (r *Recorder) Checkpoint() error {
	content, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("recorder: read content: %w", err)
	}

	ev, err := event.New(event.Checkpoint,
		time.Now().UTC().Format(time.RFC3339),
		map[string]any{
			"char_count_total": utf8.RuneCount(content),
		})
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.sess.Append(ev); err != nil {
		return err
	}
	seq := len(r.sess.Events) - 1
	r.logger.Debug("checkpoint chained",
		"session", r.sess.SessionID, "seq", seq, "chars", ev.Meta["char_count_total"])

	if r.journal != nil {
		if err := r.journal.AppendEvent(r.sess.SessionID, seq, ev); err != nil {
			return err
		}
	}
	return nil
}
