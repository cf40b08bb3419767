package pipeline

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"manifest/internal"
	"manifest/internal/storage"
)

func newTestIngestor(t *testing.T) (*Ingestor, *storage.DB) {
	ing, db, _ := newTestIngestorAt(t)
	return ing, db
}

func newTestIngestorAt(t *testing.T) (*Ingestor, *storage.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := storage.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewIngestor(db, newTestProcessor(nil), internal.DefaultParseOptions(), nil), db, path
}

// execSide runs statements on a second connection to the same database file.
func execSide(t *testing.T, path string, stmts ...string) {
	t.Helper()
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	for _, q := range stmts {
		if _, err := conn.Exec(q); err != nil {
			t.Fatal(err)
		}
	}
}

func TestIngestFileDedupesByContent(t *testing.T) {
	ing, db := newTestIngestor(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "loads.csv")
	if err := os.WriteFile(path, []byte(manifestCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := ing.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped || res.DocumentID == "" || res.Shipments != 1 {
		t.Fatalf("res=%+v", res)
	}
	doc, err := db.GetDocument(res.DocumentID)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Source != string(internal.SourceText) || doc.Status != StatusProcessed {
		t.Fatalf("doc=%+v", doc)
	}

	// Same bytes under another name are not processed twice.
	copyPath := filepath.Join(dir, "copy.csv")
	if err := os.WriteFile(copyPath, []byte(manifestCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	again, err := ing.IngestFile(context.Background(), copyPath)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Skipped || again.DocumentID != res.DocumentID {
		t.Fatalf("again=%+v", again)
	}

	out := filepath.Join(t.TempDir(), "loads.xlsx")
	n, err := ing.ExportDocument(res.DocumentID, out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("exported=%d", n)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatal(err)
	}
	runs, err := db.CountRuns()
	if err != nil {
		t.Fatal(err)
	}
	if runs != 1 {
		t.Fatalf("runs=%d", runs)
	}
}

func TestProcessEmailRowSkipsNonManifest(t *testing.T) {
	ing, db := newTestIngestor(t)
	raw := filepath.Join(t.TempDir(), "lunch.eml")
	body := "From: a@example.com\r\nSubject: Lunch\r\nContent-Type: text/plain\r\n\r\nSee you at noon.\r\n"
	if err := os.WriteFile(raw, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	email, err := db.UpsertEmail("imap", "<lunch@example.com>", "Lunch", "a@example.com", "", "h1", raw, StatusFetched)
	if err != nil {
		t.Fatal(err)
	}

	res, err := ing.ProcessEmail(context.Background(), email)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped {
		t.Fatalf("res=%+v", res)
	}
	pending, _ := db.ListEmailsByStatus(StatusSkipped, 10)
	if len(pending) != 1 {
		t.Fatalf("skipped=%d", len(pending))
	}
}

func TestProcessPendingStoresShipments(t *testing.T) {
	ing, db := newTestIngestor(t)
	raw := filepath.Join(t.TempDir(), "manifest.eml")
	if err := os.WriteFile(raw, []byte(manifestEmail), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := db.UpsertEmail("imap", "<m@example.com>", "Shipment manifest", "ops@example.com", "", "h2", raw, StatusFetched); err != nil {
		t.Fatal(err)
	}

	emails, shipments, err := ing.ProcessPending(context.Background(), 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if emails != 1 || shipments != 1 {
		t.Fatalf("emails=%d shipments=%d", emails, shipments)
	}
	// Reprocessing reuses the email's document.
	res, err := ing.ProcessByProviderMessageID(context.Background(), "imap", "<m@example.com>")
	if err != nil {
		t.Fatal(err)
	}
	docs, err := db.ListDocuments(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != res.DocumentID {
		t.Fatalf("docs=%+v", docs)
	}
	recs, err := db.ListShipments(res.DocumentID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].LoadNumber != "L5" {
		t.Fatalf("recs=%+v", recs)
	}
}

func TestIngestFileRetriesAfterFailedWrite(t *testing.T) {
	ing, db, dbPath := newTestIngestorAt(t)
	path := filepath.Join(t.TempDir(), "loads.csv")
	if err := os.WriteFile(path, []byte(manifestCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	execSide(t, dbPath, `CREATE TRIGGER reject_shipments BEFORE INSERT ON shipments BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	if _, err := ing.IngestFile(context.Background(), path); err == nil {
		t.Fatal("expected shipment write to fail")
	}
	docs, err := db.ListDocuments(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Status != StatusFailed {
		t.Fatalf("docs=%+v", docs)
	}
	failedID := docs[0].ID

	execSide(t, dbPath, `DROP TRIGGER reject_shipments`)
	res, err := ing.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped || res.DocumentID != failedID || res.Shipments != 1 {
		t.Fatalf("res=%+v failed=%s", res, failedID)
	}
	doc, err := db.GetDocument(failedID)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Status != StatusProcessed {
		t.Fatalf("status=%s", doc.Status)
	}
	recs, err := db.ListShipments(failedID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("recs=%d", len(recs))
	}
}

func TestIngestFileRetriesInterruptedDocument(t *testing.T) {
	ing, db := newTestIngestor(t)
	path := filepath.Join(t.TempDir(), "loads.csv")
	if err := os.WriteFile(path, []byte(manifestCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256([]byte(manifestCSV))
	stale, err := db.UpsertDocument(internal.DocumentRow{
		Name:   "loads.csv",
		Source: string(internal.SourceText),
		Hash:   hex.EncodeToString(sum[:]),
		Status: StatusProcessing,
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := ing.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped || res.DocumentID != stale.ID || res.Shipments != 1 {
		t.Fatalf("res=%+v stale=%s", res, stale.ID)
	}
	again, err := ing.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Skipped {
		t.Fatalf("again=%+v", again)
	}
}

func TestProcessPendingContinuesPastBrokenEmail(t *testing.T) {
	ing, db := newTestIngestor(t)
	dir := t.TempDir()
	broken, err := db.UpsertEmail("imap", "<gone@example.com>", "Shipment manifest", "ops@example.com", "", "h3", filepath.Join(dir, "missing.eml"), StatusFetched)
	if err != nil {
		t.Fatal(err)
	}
	raw := filepath.Join(dir, "manifest.eml")
	if err := os.WriteFile(raw, []byte(manifestEmail), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := db.UpsertEmail("imap", "<ok@example.com>", "Shipment manifest", "ops@example.com", "", "h4", raw, StatusFetched); err != nil {
		t.Fatal(err)
	}

	emails, shipments, err := ing.ProcessPending(context.Background(), 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if emails != 1 || shipments != 1 {
		t.Fatalf("emails=%d shipments=%d", emails, shipments)
	}
	failed, err := db.ListEmailsByStatus(StatusFailed, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0].ID != broken.ID {
		t.Fatalf("failed=%+v", failed)
	}
	pending, _ := db.ListEmailsByStatus(StatusFetched, 10)
	if len(pending) != 0 {
		t.Fatalf("still pending=%d", len(pending))
	}
}
