package util

import (
	"testing"
	"time"

	"manifest/internal"
)

func TestExcelSerialToTime(t *testing.T) {
	got, ok := ExcelSerialToTime(45000)
	if !ok {
		t.Fatal("serial 45000 rejected")
	}
	if got.Year() != 2023 || got.Month() != time.March || got.Day() != 15 {
		t.Fatalf("got %v", got)
	}

	for _, serial := range []float64{999999, 0, -5, 60000, 100} {
		if _, ok := ExcelSerialToTime(serial); ok {
			t.Fatalf("serial %v should not convert", serial)
		}
	}
}

func TestExcelSerialWithTime(t *testing.T) {
	got, ok := ExcelSerialToTime(45000.5)
	if !ok {
		t.Fatal("rejected")
	}
	if got.Hour() != 12 {
		t.Fatalf("hour=%d", got.Hour())
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		name string
		cell internal.Cell
		want string
		ok   bool
	}{
		{name: "iso", cell: internal.StringCell("2024-02-01"), want: "2024-02-01", ok: true},
		{name: "iso with time", cell: internal.StringCell("2024-02-01 08:30"), want: "2024-02-01", ok: true},
		{name: "us four digit", cell: internal.StringCell("3/15/2023"), want: "2023-03-15", ok: true},
		{name: "us two digit", cell: internal.StringCell("3/15/23"), want: "2023-03-15", ok: true},
		{name: "month name", cell: internal.StringCell("15-Mar-2023"), want: "2023-03-15", ok: true},
		{name: "month name short year", cell: internal.StringCell("15-MAR-23"), want: "2023-03-15", ok: true},
		{name: "serial number", cell: internal.NumberCell(45000), want: "2023-03-15", ok: true},
		{name: "serial as text", cell: internal.StringCell("45000"), want: "2023-03-15", ok: true},
		{name: "date cell", cell: internal.DateCell(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)), want: "2024-05-06", ok: true},
		{name: "out of range year", cell: internal.StringCell("1800-01-01"), ok: false},
		{name: "garbage", cell: internal.StringCell("next tuesday"), ok: false},
		{name: "empty", cell: internal.Cell{}, ok: false},
		{name: "big serial", cell: internal.NumberCell(999999), ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseDate(tc.cell)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v (got %v)", ok, tc.ok, got)
			}
			if ok && got.Format("2006-01-02") != tc.want {
				t.Fatalf("got %s want %s", got.Format("2006-01-02"), tc.want)
			}
		})
	}
}

func TestExtractIntDefaultsToZero(t *testing.T) {
	if got := ExtractInt(internal.StringCell("abc")); got != 0 {
		t.Fatalf("got %d", got)
	}
	if got := ExtractInt(internal.StringCell("12 ctns")); got != 12 {
		t.Fatalf("got %d", got)
	}
	if got := ExtractInt(internal.NumberCell(3.6)); got != 4 {
		t.Fatalf("got %d", got)
	}
}

func TestExtractBool(t *testing.T) {
	if v, ok := ExtractBool(internal.StringCell("Yes")); !ok || !v {
		t.Fatalf("yes -> %v %v", v, ok)
	}
	if _, ok := ExtractBool(internal.StringCell("maybe")); ok {
		t.Fatal("maybe should not parse")
	}
}

func TestNormalizeHeader(t *testing.T) {
	if got := NormalizeHeader("  PO_No.  "); got != "po no" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeHeader("Ship-To  Customer"); got != "ship to customer" {
		t.Fatalf("got %q", got)
	}
}
