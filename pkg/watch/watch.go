// Package watch reloads a dataset when its source changes.
//
// Local files are watched with fsnotify. The parent directory is watched
// rather than the file itself, so editors and exporters that replace the
// file by rename are seen too. Remote sources are polled. In both cases
// a reload only fires when the payload hash changes, and a snapshot that
// fails to load is logged and skipped, leaving the previous one live.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/macroviewer/pkg/httputil"
	"github.com/matzehuels/macroviewer/pkg/io"
)

// Defaults for [Watcher].
const (
	DefaultDebounce = 250 * time.Millisecond
	DefaultInterval = 5 * time.Minute
)

// ReloadFunc receives every changed snapshot.
type ReloadFunc func(ctx context.Context, l *io.Loaded) error

// Option configures a [Watcher].
type Option func(*Watcher)

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l *log.Logger) Option { return func(w *Watcher) { w.logger = l } }

// WithDebounce sets how long file events are collected before a reload.
func WithDebounce(d time.Duration) Option { return func(w *Watcher) { w.debounce = d } }

// WithInterval sets the poll interval for remote sources.
func WithInterval(d time.Duration) Option { return func(w *Watcher) { w.interval = d } }

// WithClient sets the HTTP client for remote sources. Polls always
// bypass fresh cache hits.
func WithClient(c *httputil.Client) Option { return func(w *Watcher) { w.client = c } }

// WithHash seeds the hash of the snapshot already live, so an unchanged
// first event does not reload.
func WithHash(h string) Option { return func(w *Watcher) { w.last = h } }

// Watcher reloads one dataset source.
type Watcher struct {
	src      string
	reload   ReloadFunc
	logger   *log.Logger
	debounce time.Duration
	interval time.Duration
	client   *httputil.Client

	mu   sync.Mutex
	last string
}

// New returns a watcher for src that calls reload with every changed
// snapshot.
func New(src string, reload ReloadFunc, opts ...Option) *Watcher {
	w := &Watcher{
		src:      src,
		reload:   reload,
		logger:   log.Default(),
		debounce: DefaultDebounce,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if io.IsRemote(w.src) {
		return w.poll(ctx)
	}
	return w.watchFile(ctx)
}

func (w *Watcher) watchFile(ctx context.Context) error {
	abs, err := filepath.Abs(w.src)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", w.src, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	w.logger.Info("watching dataset", "path", abs)

	debounce := time.NewTimer(0)
	<-debounce.C
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			debounce.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)
		case <-debounce.C:
			w.Check(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) error {
	client := w.client
	if client == nil {
		client = httputil.NewClient(nil)
	}
	refreshing := *client
	refreshing.Refresh = true
	w.client = &refreshing

	w.logger.Info("polling dataset", "url", w.src, "every", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check loads the source once and calls the reload function if the
// payload changed. It reports whether a reload happened.
func (w *Watcher) Check(ctx context.Context) bool {
	l, err := io.Load(ctx, w.src, w.client)
	if err != nil {
		w.logger.Warn("dataset reload skipped", "src", w.src, "err", err)
		return false
	}
	if l.Stale != nil {
		w.logger.Debug("dataset source unreachable, keeping current", "src", w.src, "err", l.Stale)
		return false
	}

	w.mu.Lock()
	same := l.Hash == w.last
	w.mu.Unlock()
	if same {
		return false
	}

	if err := w.reload(ctx, l); err != nil {
		w.logger.Error("dataset reload failed", "src", w.src, "err", err)
		return false
	}
	w.mu.Lock()
	w.last = l.Hash
	w.mu.Unlock()
	w.logger.Info("dataset reloaded", "src", w.src, "nodes", len(l.Dataset.Nodes), "hash", l.Hash[:12])
	return true
}
