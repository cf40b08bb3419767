package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"manifest/internal"
)

func TestExportOneRowPerItem(t *testing.T) {
	w := 2.5
	records := []internal.ShipmentRecord{
		{
			LoadNumber: "L1",
			Items: []internal.ShipmentItem{
				{ItemNumber: "A", Quantity: 1, Weight: &w},
				{ItemNumber: "B", Quantity: 2},
			},
			MiscellaneousFields: map[string]string{"zone": "2", "bay": "7"},
		},
		{LoadNumber: "L2"},
	}
	out := filepath.Join(t.TempDir(), "nested", "shipments.xlsx")
	if err := ExportShipmentsToXLSX(records, out); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows=%d", len(rows))
	}
	if rows[0][0] != "Load Number" || len(rows[0]) != len(exportHeaders) {
		t.Fatalf("header=%v", rows[0])
	}
	if rows[1][0] != "L1" || rows[1][18] != "A" || rows[2][18] != "B" {
		t.Fatalf("item rows=%v / %v", rows[1], rows[2])
	}
	if rows[1][29] != "bay=7; zone=2" {
		t.Fatalf("misc=%q", rows[1][29])
	}
	if rows[3][0] != "L2" {
		t.Fatalf("last=%v", rows[3])
	}
}

func TestSummarize(t *testing.T) {
	empty := Summarize(nil)
	if !empty.NeedsReview || empty.Message != "No shipments extracted" {
		t.Fatalf("empty=%+v", empty)
	}

	one := Summarize([]internal.ShipmentRecord{{LoadNumber: "L1", Confidence: 0.9, Message: "Shipment extracted"}})
	if one.Data == nil || one.Data.LoadNumber != "L1" || one.Message != "Shipment extracted" || one.NeedsReview {
		t.Fatalf("one=%+v", one)
	}

	many := Summarize([]internal.ShipmentRecord{
		{Confidence: 0.9},
		{Confidence: 0.5, NeedsReview: true, AIMappedFields: []internal.AIMappedField{{Field: internal.FieldRemarks}}},
	})
	if many.Data != nil || !near(many.Confidence, 0.7) || !many.NeedsReview || !many.AIMapped {
		t.Fatalf("many=%+v", many)
	}
	if many.Message != "2 shipments extracted, 1 need review" {
		t.Fatalf("msg=%s", many.Message)
	}
}

func TestDetectManifest(t *testing.T) {
	hit := DetectManifest("Shipment manifest for Monday", "Load 12345 order 67890", []string{"loads.xlsx"})
	if !hit.IsManifest || hit.Reason != "rules_positive" {
		t.Fatalf("hit=%+v", hit)
	}
	miss := DetectManifest("Lunch on Friday", "See you at noon", nil)
	if miss.IsManifest || miss.Score != 0 {
		t.Fatalf("miss=%+v", miss)
	}
	html := DetectManifest("Fwd:", "<table><tr><td>DO No</td></tr></table> 10001 10002", nil)
	if !html.IsManifest {
		t.Fatalf("html=%+v", html)
	}
}
