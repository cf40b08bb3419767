package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"manifest/internal"
)

var (
	ErrNoSheets             = errors.New("workbook has no sheets")
	ErrSheetIndexOutOfRange = errors.New("sheet index out of range")
	ErrUnsupportedInput     = errors.New("unsupported input")
)

var ignorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[-=_|+\s]{3,}$`),
	regexp.MustCompile(`(?i)^thank`),
	regexp.MustCompile(`(?i)^terima kasih`),
	regexp.MustCompile(`(?i)^(best )?regards`),
	regexp.MustCompile(`(?i)^page \d+( of \d+)?$`),
	regexp.MustCompile(`(?i)^e-?mail[:\s]`),
	regexp.MustCompile(`(?i)^http`),
}

var (
	reMultiSpace = regexp.MustCompile(`\s{2,}`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// ReadWorkbook decodes every sheet of an xlsx/xlsm workbook. Empty rows are
// dropped; RawRow.Index keeps the 0-based position in the sheet. A sheet that
// cannot be read is reported to onSheetError and comes back empty, so sheet
// positions still match the workbook.
func ReadWorkbook(content []byte, onSheetError func(sheet string, err error)) ([]internal.Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readSheets(f, onSheetError)
}

// sheetSource is the part of *excelize.File that readSheets needs.
type sheetSource interface {
	GetSheetList() []string
	GetRows(sheet string, opts ...excelize.Options) ([][]string, error)
}

func readSheets(src sheetSource, onSheetError func(string, error)) ([]internal.Sheet, error) {
	names := src.GetSheetList()
	if len(names) == 0 {
		return nil, ErrNoSheets
	}

	sheets := make([]internal.Sheet, 0, len(names))
	for _, name := range names {
		sheet := internal.Sheet{Name: name}
		rows, err := src.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			if onSheetError != nil {
				onSheetError(name, err)
			}
			sheets = append(sheets, sheet)
			continue
		}
		for i, row := range rows {
			cells := make([]internal.Cell, len(row))
			for c, v := range row {
				cells[c] = internal.RawCell(v)
			}
			raw := internal.RawRow{Index: i, Source: name, Cells: cells}
			if raw.NonEmptyCount() == 0 {
				continue
			}
			sheet.Rows = append(sheet.Rows, raw)
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

// DetectDelimiter inspects the first non-empty line and prefers '|', then
// ',', then tab. It returns 0 when the text is column-aligned with spaces.
func DetectDelimiter(text string) rune {
	for _, line := range splitLines(text) {
		switch {
		case strings.Contains(line, "|"):
			return '|'
		case strings.Contains(line, ","):
			return ','
		case strings.Contains(line, "\t"):
			return '\t'
		default:
			return 0
		}
	}
	return 0
}

// ParseDelimitedText turns OCR output or a text export into a sheet. A zero
// delimiter is detected from the text.
func ParseDelimitedText(name, text string, delimiter rune) internal.Sheet {
	if delimiter == 0 {
		delimiter = DetectDelimiter(text)
	}
	sheet := internal.Sheet{Name: name}
	var records [][]string
	switch delimiter {
	case ',', '\t':
		records = readCSV(text, delimiter)
	case '|':
		for _, line := range splitLines(text) {
			records = append(records, splitPipeLine(line))
		}
	default:
		for _, line := range splitLines(text) {
			records = append(records, reMultiSpace.Split(strings.TrimSpace(line), -1))
		}
	}

	for i, rec := range records {
		if len(rec) == 1 && isLikelyNoise(rec[0]) {
			continue
		}
		if isMarkdownRule(rec) {
			continue
		}
		row := internal.RawRow{Index: i, Source: name, Cells: textCells(rec)}
		if row.NonEmptyCount() == 0 {
			continue
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

func readCSV(text string, delimiter rune) [][]string {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var out [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed line: keep going with what the reader recovered.
			if rec == nil {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

func splitPipeLine(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = normalizeSpaces(parts[i])
	}
	return parts
}

func isMarkdownRule(rec []string) bool {
	if len(rec) < 2 {
		return false
	}
	for _, c := range rec {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if strings.Trim(c, "-:=") != "" {
			return false
		}
	}
	return true
}

func textCells(rec []string) []internal.Cell {
	cells := make([]internal.Cell, len(rec))
	for i, v := range rec {
		cells[i] = internal.RawCell(normalizeSpaces(v))
	}
	return cells
}

// ParseHTMLTables returns one sheet per <table> with at least two rows.
func ParseHTMLTables(html string) []internal.Sheet {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []internal.Sheet
	doc.Find("table").Each(func(t int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}
		sheet := internal.Sheet{Name: fmt.Sprintf("table_%d", t+1)}
		rows.Each(func(i int, row *goquery.Selection) {
			var rec []string
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				rec = append(rec, normalizeSpaces(cell.Text()))
			})
			raw := internal.RawRow{Index: i, Source: sheet.Name, Cells: textCells(rec)}
			if raw.NonEmptyCount() > 0 {
				sheet.Rows = append(sheet.Rows, raw)
			}
		})
		if len(sheet.Rows) >= 2 {
			out = append(out, sheet)
		}
	})
	return out
}

// ExtractPDFText reads the text layer of every page.
func ExtractPDFText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

type EmailAttachment struct {
	FileName    string
	ContentType string
	Content     []byte
}

type EmailContent struct {
	Subject     string
	From        string
	Text        string
	HTML        string
	Attachments []EmailAttachment
}

func (e EmailContent) AttachmentNames() []string {
	names := make([]string, 0, len(e.Attachments))
	for _, a := range e.Attachments {
		names = append(names, a.FileName)
	}
	return names
}

// ReadEmail parses a raw RFC 822 message into body parts and attachments.
func ReadEmail(raw []byte) (EmailContent, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return EmailContent{}, err
	}
	out := EmailContent{
		Subject: env.GetHeader("Subject"),
		From:    env.GetHeader("From"),
		Text:    env.Text,
		HTML:    env.HTML,
	}
	parts := append(append([]*enmime.Part{}, env.Attachments...), env.Inlines...)
	for i, att := range parts {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = fmt.Sprintf("attachment_%d", i+1)
		}
		out.Attachments = append(out.Attachments, EmailAttachment{
			FileName:    filename,
			ContentType: att.ContentType,
			Content:     att.Content,
		})
	}
	return out, nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func isLikelyNoise(line string) bool {
	for _, re := range ignorePatterns {
		if re.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}
