package listener

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"manifest/internal/pipeline"
)

// DefaultSettle is how long a file must stay quiet before it is ingested, so
// that copies still in progress are not read half-written.
const DefaultSettle = 750 * time.Millisecond

// FileIngestor is the part of pipeline.Ingestor the watcher needs.
type FileIngestor interface {
	IngestFile(ctx context.Context, path string) (pipeline.ProcessResult, error)
	ExportDocument(documentID, outputPath string) (int, error)
}

// DirWatcher ingests manifest files dropped into a directory.
type DirWatcher struct {
	dir        string
	outputDir  string
	autoExport bool
	settle     time.Duration
	ingestor   FileIngestor
	logger     *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
	done    chan struct{}

	// Backfill and the event loop may both ingest; one file at a time.
	ingestMu sync.Mutex
}

func NewDirWatcher(dir, outputDir string, autoExport bool, ingestor FileIngestor, logger *zap.Logger) *DirWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirWatcher{
		dir:        dir,
		outputDir:  outputDir,
		autoExport: autoExport,
		settle:     DefaultSettle,
		ingestor:   ingestor,
		logger:     logger,
		pending:    map[string]*time.Timer{},
		ready:      make(chan string, 64),
		done:       make(chan struct{}),
	}
}

// Start begins watching and returns once the directory is registered. Files
// are ingested one at a time until ctx ends; Done is closed after that.
func (w *DirWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		return err
	}
	w.logger.Info("watching for manifests", zap.String("dir", w.dir))

	go func() {
		defer close(w.done)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				w.stopTimers()
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 && IsManifestFile(evt.Name) {
					w.schedule(evt.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watch error", zap.Error(err))
			case path := <-w.ready:
				w.handle(ctx, path)
			}
		}
	}()
	return nil
}

func (w *DirWatcher) Done() <-chan struct{} { return w.done }

// Backfill ingests files already in the directory.
func (w *DirWatcher) Backfill(ctx context.Context) error {
	entries, err := filepath.Glob(filepath.Join(w.dir, "*"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if IsManifestFile(e) {
			w.handle(ctx, e)
		}
	}
	return nil
}

// schedule restarts the file's quiet-period timer.
func (w *DirWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func (w *DirWatcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *DirWatcher) handle(ctx context.Context, path string) {
	w.ingestMu.Lock()
	defer w.ingestMu.Unlock()
	res, err := w.ingestor.IngestFile(ctx, path)
	if err != nil {
		w.logger.Warn("ingest failed", zap.String("path", path), zap.Error(err))
		return
	}
	if res.Skipped || !w.autoExport {
		return
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(w.outputDir, "inbox", name+"_shipments.xlsx")
	if _, err := w.ingestor.ExportDocument(res.DocumentID, out); err != nil {
		w.logger.Warn("export failed", zap.String("path", path), zap.Error(err))
	}
}

// IsManifestFile reports whether the extension is one the pipeline reads.
// Editor lock files and hidden files are ignored.
func IsManifestFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".xlsx", ".xlsm", ".csv", ".tsv", ".txt", ".html", ".htm", ".pdf", ".png", ".jpg", ".jpeg", ".webp", ".eml":
		return true
	default:
		return false
	}
}
