package storage

import (
	"path/filepath"
	"testing"
	"time"

	"manifest/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDocumentAndShipmentsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	doc, err := db.UpsertDocument(internal.DocumentRow{Name: "manifest.xlsx", Source: "xlsx", Hash: "abc", Status: "processing"})
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID == "" {
		t.Fatal("document id not assigned")
	}

	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	w := 12.5
	recs := []internal.ShipmentRecord{
		{
			LoadNumber:       "L1",
			OrderNumber:      "O1",
			PromisedShipDate: &date,
			Items:            []internal.ShipmentItem{{ItemNumber: "SKU1", Quantity: 2, Weight: &w}},
			TotalWeight:      12.5,
			Confidence:       0.9,
		},
		{LoadNumber: "L2", NeedsReview: true, Confidence: 0.4},
	}
	if err := db.ReplaceShipments(doc.ID, recs); err != nil {
		t.Fatal(err)
	}
	// Replacing again must not duplicate.
	if err := db.ReplaceShipments(doc.ID, recs); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListShipments(doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].LoadNumber != "L1" || got[1].LoadNumber != "L2" {
		t.Fatalf("order=%s,%s", got[0].LoadNumber, got[1].LoadNumber)
	}
	if got[0].PromisedShipDate == nil || !got[0].PromisedShipDate.Equal(date) {
		t.Fatalf("date=%v", got[0].PromisedShipDate)
	}
	if len(got[0].Items) != 1 || got[0].Items[0].Weight == nil || *got[0].Items[0].Weight != 12.5 {
		t.Fatalf("items=%+v", got[0].Items)
	}

	n, err := db.CountShipmentsForReview()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("review=%d", n)
	}

	byHash, err := db.GetDocumentByHash("abc")
	if err != nil {
		t.Fatal(err)
	}
	if byHash == nil || byHash.ID != doc.ID {
		t.Fatalf("byHash=%+v", byHash)
	}
	if err := db.UpdateDocumentStatus(doc.ID, "processed"); err != nil {
		t.Fatal(err)
	}
	again, _ := db.GetDocument(doc.ID)
	if again.Status != "processed" {
		t.Fatalf("status=%s", again.Status)
	}
}

func TestEmailsAndRuns(t *testing.T) {
	db := openTestDB(t)

	email, err := db.UpsertEmail("imap", "<m1@example.com>", "Manifest", "ops@example.com", "2024-03-01T00:00:00Z", "h", "/tmp/m1.eml", "fetched")
	if err != nil {
		t.Fatal(err)
	}
	pending, err := db.ListEmailsByStatus("fetched", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != email.ID {
		t.Fatalf("pending=%+v", pending)
	}

	doc, err := db.UpsertDocument(internal.DocumentRow{EmailID: &email.ID, Name: "Manifest", Source: "email", Hash: "h", Status: "processed"})
	if err != nil {
		t.Fatal(err)
	}
	latest, err := db.LatestDocumentForEmail(email.ID)
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.ID != doc.ID || latest.EmailID == nil || *latest.EmailID != email.ID {
		t.Fatalf("latest=%+v", latest)
	}

	if err := db.InsertRun("trace", &email.ID, doc.ID, map[string]float64{"totalMs": 3}, map[string]int{"shipments": 1}); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertRun("trace2", nil, "", nil, nil); err != nil {
		t.Fatal(err)
	}
	runs, err := db.CountRuns()
	if err != nil {
		t.Fatal(err)
	}
	if runs != 2 {
		t.Fatalf("runs=%d", runs)
	}

	if err := db.UpdateEmailStatus(email.ID, "processed"); err != nil {
		t.Fatal(err)
	}
	pending, _ = db.ListEmailsByStatus("fetched", 10)
	if len(pending) != 0 {
		t.Fatalf("pending after update=%d", len(pending))
	}
}

func TestMetadata(t *testing.T) {
	db := openTestDB(t)
	v, err := db.GetMetadata("missing")
	if err != nil || v != nil {
		t.Fatalf("v=%v err=%v", v, err)
	}
	if err := db.SetMetadata("imap_last_uid", "42"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMetadata("imap_last_uid", "43"); err != nil {
		t.Fatal(err)
	}
	v, _ = db.GetMetadata("imap_last_uid")
	if v == nil || *v != "43" {
		t.Fatalf("v=%v", v)
	}
}
