package listener

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"manifest/internal/pipeline"
)

type fakeIngestor struct {
	mu       sync.Mutex
	ingested []string
	exported []string
	seen     chan string
}

func (f *fakeIngestor) IngestFile(_ context.Context, path string) (pipeline.ProcessResult, error) {
	f.mu.Lock()
	f.ingested = append(f.ingested, filepath.Base(path))
	f.mu.Unlock()
	if f.seen != nil {
		f.seen <- filepath.Base(path)
	}
	return pipeline.ProcessResult{DocumentID: "doc-" + filepath.Base(path), Shipments: 1}, nil
}

func (f *fakeIngestor) ExportDocument(documentID, outputPath string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exported = append(f.exported, filepath.Base(outputPath))
	return 1, nil
}

func TestIsManifestFile(t *testing.T) {
	cases := map[string]bool{
		"load.xlsx":      true,
		"LOAD.CSV":       true,
		"scan.jpeg":      true,
		"mail.eml":       true,
		"~$load.xlsx":    false,
		".hidden.csv":    false,
		"notes.docx":     false,
		"archive.tar.gz": false,
	}
	for name, want := range cases {
		if got := IsManifestFile(name); got != want {
			t.Fatalf("%s: got %v want %v", name, got, want)
		}
	}
}

func TestBackfillIngestsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.csv", "b.txt", "skip.docx"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	ing := &fakeIngestor{}
	w := NewDirWatcher(dir, t.TempDir(), true, ing, nil)
	if err := w.Backfill(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(ing.ingested) != 2 {
		t.Fatalf("ingested=%v", ing.ingested)
	}
	if len(ing.exported) != 2 || ing.exported[0] != "a_shipments.xlsx" {
		t.Fatalf("exported=%v", ing.exported)
	}
}

func TestWatcherPicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	ing := &fakeIngestor{seen: make(chan string, 4)}
	w := NewDirWatcher(dir, t.TempDir(), false, ing, nil)
	w.settle = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		<-w.Done()
	}()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "manifest.csv"), []byte("Load No,Order No\nL1,O1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case name := <-ing.seen:
		if name != "manifest.csv" {
			t.Fatalf("name=%s", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("file was not ingested")
	}
	// Create and Write events for one file collapse into one ingest.
	select {
	case name := <-ing.seen:
		t.Fatalf("ingested twice: %s", name)
	case <-time.After(200 * time.Millisecond):
	}
}
