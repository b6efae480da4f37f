// Package observer watches a stage directory and runs every new or changed
// package through the pipeline.
package observer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gnemet/SlideGraph/internal/asset"
	"github.com/gnemet/SlideGraph/internal/pptx"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Handler processes one package. *pipeline.Pipeline satisfies it.
type Handler interface {
	Eligible(path string) bool
	Handle(ctx context.Context, path string) (*asset.PackageResult, error)
}

type Options struct {
	// Debounce is the quiet period a file must go without events before it
	// is processed. Default: 500ms.
	Debounce time.Duration
	// Archive, when set, receives every successfully processed package.
	Archive string
	Logger  *zap.Logger
}

func (o *Options) defaults() {
	if o.Debounce <= 0 {
		o.Debounce = 500 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

type Observer struct {
	fs      afero.Fs
	dir     string
	handler Handler
	opts    Options
	log     *zap.Logger

	// seen maps content checksums to the path they were processed from.
	seen      map[string]string
	pending   map[string]time.Time
	reprocess chan struct{}

	mu          sync.Mutex
	activeTasks int
}

// NewObserver creates an observer over dir. Watching always happens on the
// OS filesystem; fsys is used for checksums, scans and archiving.
func NewObserver(fsys afero.Fs, dir string, h Handler, opts Options) *Observer {
	opts.defaults()
	return &Observer{
		fs:        fsys,
		dir:       dir,
		handler:   h,
		opts:      opts,
		log:       opts.Logger.With(zap.String("stage", dir)),
		seen:      make(map[string]string),
		pending:   make(map[string]time.Time),
		reprocess: make(chan struct{}, 1),
	}
}

func (o *Observer) incrementTask() {
	o.mu.Lock()
	o.activeTasks++
	o.mu.Unlock()
}

func (o *Observer) decrementTask() {
	o.mu.Lock()
	o.activeTasks--
	o.mu.Unlock()
}

// IsProcessing reports whether a package is being processed right now.
func (o *Observer) IsProcessing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeTasks > 0
}

// Start scans the stage directory once, then processes create and write
// events until ctx is done. All processing happens on the calling goroutine.
func (o *Observer) Start(ctx context.Context) error {
	if o.dir == "" {
		return fmt.Errorf("stage directory not configured")
	}
	if err := o.fs.MkdirAll(o.dir, 0755); err != nil {
		return fmt.Errorf("create stage directory: %w", err)
	}
	if o.opts.Archive != "" {
		if err := o.fs.MkdirAll(o.opts.Archive, 0755); err != nil {
			return fmt.Errorf("create archive directory: %w", err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := o.watchTree(watcher, o.dir); err != nil {
		return err
	}
	o.log.Info("observer started", zap.Duration("debounce", o.opts.Debounce))

	o.scanDirectory(ctx)

	tick := time.NewTicker(o.opts.Debounce / 2)
	defer tick.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && o.isDir(event.Name) {
				o.watchNewDir(watcher, event.Name)
				continue
			}
			if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && o.handler.Eligible(event.Name) {
				o.log.Debug("change detected", zap.String("file", event.Name))
				o.pending[event.Name] = time.Now().Add(o.opts.Debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.log.Warn("watcher error", zap.Error(err))

		case now := <-tick.C:
			for _, path := range o.due(now) {
				o.processFile(ctx, path)
			}

		case <-o.reprocess:
			o.reprocessAll(ctx)

		case <-ctx.Done():
			o.log.Info("observer stopped")
			return nil
		}
	}
}

// due removes and returns the pending files whose quiet period has passed.
func (o *Observer) due(now time.Time) []string {
	var ready []string
	for path, at := range o.pending {
		if !now.Before(at) {
			ready = append(ready, path)
			delete(o.pending, path)
		}
	}
	sort.Strings(ready)
	return ready
}

// scanDirectory processes every eligible package below the stage directory,
// in lexical path order. The archive directory is skipped when it lives
// inside the stage.
func (o *Observer) scanDirectory(ctx context.Context) {
	for _, path := range o.eligibleFiles(o.dir) {
		if ctx.Err() != nil {
			return
		}
		o.processFile(ctx, path)
	}
}

func (o *Observer) eligibleFiles(root string) []string {
	var files []string
	err := afero.Walk(o.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if o.isArchive(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if o.handler.Eligible(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		o.log.Error("failed to scan directory", zap.String("dir", root), zap.Error(err))
	}
	return files
}

// watchTree adds root and every directory below it, except the archive, to
// the watcher.
func (o *Observer) watchTree(watcher *fsnotify.Watcher, root string) error {
	return afero.Walk(o.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if o.isArchive(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// watchNewDir starts watching a directory created after Start and queues
// the packages that were copied in before the watch was added.
func (o *Observer) watchNewDir(watcher *fsnotify.Watcher, dir string) {
	if o.isArchive(dir) {
		return
	}
	if err := o.watchTree(watcher, dir); err != nil {
		o.log.Warn("failed to watch directory", zap.String("dir", dir), zap.Error(err))
	}
	at := time.Now().Add(o.opts.Debounce)
	for _, path := range o.eligibleFiles(dir) {
		o.pending[path] = at
	}
}

func (o *Observer) isDir(path string) bool {
	info, err := o.fs.Stat(path)
	return err == nil && info.IsDir()
}

func (o *Observer) isArchive(path string) bool {
	return o.opts.Archive != "" && filepath.Clean(path) == filepath.Clean(o.opts.Archive)
}

func (o *Observer) processFile(ctx context.Context, path string) {
	o.incrementTask()
	defer o.decrementTask()

	log := o.log.With(zap.String("package", filepath.Base(path)))

	sum, err := pptx.FileChecksum(o.fs, path)
	if err != nil {
		// Removed or renamed before the quiet period ended.
		log.Debug("skipping unreadable file", zap.Error(err))
		return
	}
	if prev, ok := o.seen[sum]; ok {
		log.Info("content already processed, skipping", zap.String("checksum", sum), zap.String("first_seen", prev))
		o.finalizeFile(path)
		return
	}

	if _, err := o.handler.Handle(ctx, path); err != nil {
		// The pipeline has logged the details.
		return
	}
	o.seen[sum] = path
	o.finalizeFile(path)
}

func (o *Observer) finalizeFile(path string) {
	if o.opts.Archive == "" {
		return
	}
	newPath := filepath.Join(o.opts.Archive, filepath.Base(path))
	if path == newPath {
		return
	}
	if err := o.fs.Rename(path, newPath); err != nil {
		o.log.Error("failed to archive package", zap.String("package", filepath.Base(path)), zap.Error(err))
		return
	}
	o.log.Info("archived package", zap.String("from", path), zap.String("to", newPath))
}

// Reprocess asks a running observer to forget every checksum, move archived
// packages back to the stage directory and scan it again.
func (o *Observer) Reprocess() {
	select {
	case o.reprocess <- struct{}{}:
	default:
		// one request is already queued
	}
}

func (o *Observer) reprocessAll(ctx context.Context) {
	o.log.Info("full reprocess requested")
	o.seen = make(map[string]string)

	if o.opts.Archive != "" {
		entries, err := afero.ReadDir(o.fs, o.opts.Archive)
		if err != nil {
			o.log.Error("failed to read archive", zap.Error(err))
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			from := filepath.Join(o.opts.Archive, e.Name())
			to := filepath.Join(o.dir, e.Name())
			if err := o.fs.Rename(from, to); err != nil {
				o.log.Error("failed to move package back to stage", zap.String("package", e.Name()), zap.Error(err))
			}
		}
	}
	o.scanDirectory(ctx)
}
