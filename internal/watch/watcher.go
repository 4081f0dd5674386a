// Package watch imports spreadsheet and CSV files dropped into a folder.
// Each file is imported into the table its name carries and then moved to
// processed/ or, with an .error.txt note beside it, to failed/.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mesh-intelligence/insighthub/internal/hub"
	"github.com/mesh-intelligence/insighthub/internal/logging"
	"github.com/mesh-intelligence/insighthub/internal/tabular"
	"github.com/mesh-intelligence/insighthub/pkg/dataset"
)

// Subdirectories of the drop folder.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

const defaultDebounce = 500 * time.Millisecond

// Importer loads a parsed file into the warehouse. *hub.Service satisfies it.
type Importer interface {
	Import(ctx context.Context, table string, data *dataset.Table, mode hub.ImportMode) (hub.ImportResult, error)
}

// Result reports one handled file.
type Result struct {
	Path    string
	Target  Target
	Rows    int
	MovedTo string
	Err     error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a file must stay quiet before it is imported.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithFilter replaces DefaultFilter.
func WithFilter(f Filter) Option {
	return func(w *Watcher) { w.filter = f }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// OnResult registers a callback for every handled file.
func OnResult(fn func(Result)) Option {
	return func(w *Watcher) { w.onResult = fn }
}

// Watcher imports files dropped into one directory. It does not descend into
// subdirectories.
type Watcher struct {
	dir      string
	importer Importer
	debounce time.Duration
	filter   Filter
	log      *logging.Logger
	onResult func(Result)
	now      func() time.Time
}

// New creates a watcher for dir, creating dir and its processed/ and failed/
// subdirectories if needed.
func New(dir string, importer Importer, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		dir:      dir,
		importer: importer,
		debounce: defaultDebounce,
		filter:   DefaultFilter(),
		log:      logging.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With("component", "watch", "dir", dir)
	for _, sub := range []string{"", ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", filepath.Join(dir, sub), err)
		}
	}
	return w, nil
}

// Scan handles every matching file already in the folder, oldest name first.
func (w *Watcher) Scan(ctx context.Context) ([]Result, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", w.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && w.filter.Matches(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	results := make([]Result, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, w.Handle(ctx, filepath.Join(w.dir, name)))
	}
	return results, nil
}

// Run imports files already present and then every file dropped until ctx
// is cancelled. Files are handled one at a time on the calling goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	// Debounce callbacks outlive Run when it returns on a watcher error.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ready := make(chan string, 16)
	debouncer := NewDebouncer(w.debounce, forward(ctx, ready))
	defer debouncer.Stop()

	if _, err := w.Scan(ctx); err != nil {
		return err
	}
	w.log.Info("watching for dropped files")

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-ready:
			w.Handle(ctx, path)
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if filepath.Dir(event.Name) != filepath.Clean(w.dir) || !w.filter.Matches(event.Name) {
				continue
			}
			debouncer.Trigger(event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// forward returns a callback that hands paths to ready until ctx is done.
func forward(ctx context.Context, ready chan<- string) func(string) {
	return func(path string) {
		select {
		case ready <- path:
		case <-ctx.Done():
		}
	}
}

// Handle imports one file and moves it out of the drop folder. A file that
// disappeared before it could be read is skipped without a move.
func (w *Watcher) Handle(ctx context.Context, path string) Result {
	res := Result{Path: path}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		res.Err = fmt.Errorf("%s: %w", path, os.ErrNotExist)
		return res
	}

	res.Target, res.Err = ParseName(path)
	if res.Err == nil {
		res.Rows, res.Err = w.load(ctx, path, res.Target)
	}

	dest := ProcessedDir
	if res.Err != nil {
		dest = FailedDir
	}
	moved, err := w.move(path, dest)
	if err != nil {
		res.Err = errors.Join(res.Err, err)
	}
	res.MovedTo = moved

	if res.Err != nil {
		w.log.Warn("dropped file rejected", "file", filepath.Base(path), "error", res.Err)
		if moved != "" {
			_ = os.WriteFile(moved+".error.txt", []byte(res.Err.Error()+"\n"), 0o644)
		}
	} else {
		w.log.Info("dropped file imported", "file", filepath.Base(path), "table", res.Target.Table,
			"mode", res.Target.Mode, "rows", res.Rows)
	}
	if w.onResult != nil {
		w.onResult(res)
	}
	return res
}

func (w *Watcher) load(ctx context.Context, path string, t Target) (int, error) {
	data, err := tabular.ReadFile(path)
	if err != nil {
		return 0, err
	}
	out, err := w.importer.Import(ctx, t.Table, data, t.Mode)
	if err != nil {
		return 0, err
	}
	return out.Rows, nil
}

// move renames path into the sub directory, prefixing a timestamp when a
// file of that name is already there.
func (w *Watcher) move(path, sub string) (string, error) {
	dest := filepath.Join(w.dir, sub, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		dest = filepath.Join(w.dir, sub, w.now().Format("20060102T150405.000")+"-"+filepath.Base(path))
	}
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("move %s to %s: %w", filepath.Base(path), sub, err)
	}
	return dest, nil
}
