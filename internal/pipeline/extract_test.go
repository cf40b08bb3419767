package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"manifest/internal"
)

func TestDetectDelimiter(t *testing.T) {
	cases := map[string]rune{
		"a | b | c\n1 | 2 | 3": '|',
		"a,b,c\n1,2,3":         ',',
		"a\tb\tc":              '\t',
		"Load No    Order No":  0,
		"":                     0,
	}
	for text, want := range cases {
		if got := DetectDelimiter(text); got != want {
			t.Fatalf("%q: got %q want %q", text, got, want)
		}
	}
}

func TestParseDelimitedTextMarkdown(t *testing.T) {
	text := "| Load No | Order No | Qty |\n|---|---|---|\n| L1 | O1 | 5 |\nThank you\n"
	sheet := ParseDelimitedText("ocr", text, 0)
	if len(sheet.Rows) != 2 {
		t.Fatalf("rows=%d", len(sheet.Rows))
	}
	if got := sheet.Rows[0].Cells[0].String(); got != "Load No" {
		t.Fatalf("first cell=%q", got)
	}
	qty := sheet.Rows[1].Cells[2]
	if qty.Kind != internal.CellNumber || qty.Num != 5 {
		t.Fatalf("qty=%+v", qty)
	}
}

func TestParseDelimitedTextAligned(t *testing.T) {
	text := "Load No    Order No    Customer\nL1    O1    ACME SDN BHD\n"
	sheet := ParseDelimitedText("body", text, 0)
	if len(sheet.Rows) != 2 || len(sheet.Rows[1].Cells) != 3 {
		t.Fatalf("rows=%+v", sheet.Rows)
	}
	if sheet.Rows[1].Cells[2].String() != "ACME SDN BHD" {
		t.Fatalf("customer=%q", sheet.Rows[1].Cells[2].String())
	}
}

func TestRawCellKeepsLeadingZeros(t *testing.T) {
	sheet := ParseDelimitedText("t", "Contact,Qty\n0123456789,7\n", ',')
	if c := sheet.Rows[1].Cells[0]; c.Kind != internal.CellString || c.Str != "0123456789" {
		t.Fatalf("contact=%+v", c)
	}
}

func TestParseHTMLTablesSkipsSingleRow(t *testing.T) {
	html := `<table><tr><td>only</td></tr></table>
<table><tr><th>Load No</th></tr><tr><td> L1 </td></tr></table>`
	sheets := ParseHTMLTables(html)
	if len(sheets) != 1 || sheets[0].Name != "table_2" {
		t.Fatalf("sheets=%+v", sheets)
	}
	if sheets[0].Rows[1].Cells[0].String() != "L1" {
		t.Fatalf("cell=%q", sheets[0].Rows[1].Cells[0].String())
	}
}

func TestReadWorkbookRejectsGarbage(t *testing.T) {
	if _, err := ReadWorkbook([]byte("not a zip"), nil); err == nil {
		t.Fatal("expected error")
	}
}

type flakySheets struct {
	rows map[string][][]string
	bad  string
}

func (f flakySheets) GetSheetList() []string { return []string{"Cover", "Broken", "Loads"} }

func (f flakySheets) GetRows(sheet string, _ ...excelize.Options) ([][]string, error) {
	if sheet == f.bad {
		return nil, errors.New("corrupt sheet xml")
	}
	return f.rows[sheet], nil
}

func TestReadSheetsSkipsUnreadableSheet(t *testing.T) {
	src := flakySheets{
		bad: "Broken",
		rows: map[string][][]string{
			"Cover": {{"Weekly loads"}},
			"Loads": {{"Load No", "Qty"}, {}, {"L1", "2"}},
		},
	}
	var failed []string
	sheets, err := readSheets(src, func(sheet string, err error) { failed = append(failed, sheet) })
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0] != "Broken" {
		t.Fatalf("failed=%v", failed)
	}
	if len(sheets) != 3 || sheets[1].Name != "Broken" || len(sheets[1].Rows) != 0 {
		t.Fatalf("sheets=%+v", sheets)
	}
	loads := sheets[2]
	if len(loads.Rows) != 2 || loads.Rows[1].Index != 2 || loads.Rows[1].Cells[0].String() != "L1" {
		t.Fatalf("loads=%+v", loads.Rows)
	}
}

func TestReadEmailAttachments(t *testing.T) {
	content, err := ReadEmail([]byte(manifestEmail))
	if err != nil {
		t.Fatal(err)
	}
	if content.Subject != "Shipment manifest" {
		t.Fatalf("subject=%q", content.Subject)
	}
	names := content.AttachmentNames()
	if len(names) != 1 || names[0] != "load.csv" {
		t.Fatalf("names=%v", names)
	}
}

func TestProcessContentUnsupported(t *testing.T) {
	_, err := newTestProcessor(nil).ProcessContent(context.Background(), "notes.docx", []byte("x"), internal.DefaultParseOptions())
	if !errors.Is(err, ErrUnsupportedInput) {
		t.Fatalf("err=%v", err)
	}
}
