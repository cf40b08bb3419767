package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"manifest/internal"
	"manifest/internal/config"
	"manifest/internal/location"
	"manifest/internal/mapping"
)

const (
	LoadNumberUnknown = "UNKNOWN"
	LoadNumberError   = "ERROR"

	ocrSourceGemini = "gemini"
)

// Vision transcribes an image of a document.
type Vision interface {
	ExtractTextFromImage(ctx context.Context, image []byte, mimeType string, includeSchema bool) (internal.OCRResult, error)
}

type Processor struct {
	mapper          *mapping.Mapper
	detector        *HeaderDetector
	resolver        *location.Resolver
	vision          Vision
	logger          *zap.Logger
	reviewThreshold float64
}

// ProcessorOptions wires a Processor. Nil fields get working defaults: static
// tables only, the built-in gazetteer and no vision collaborator.
type ProcessorOptions struct {
	Mapper          *mapping.Mapper
	Resolver        *location.Resolver
	Vision          Vision
	Logger          *zap.Logger
	HeaderScanRows  int
	ReviewThreshold float64
}

func NewProcessor(o ProcessorOptions) *Processor {
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mapper := o.Mapper
	if mapper == nil {
		mapper = mapping.NewMapper(config.MappingFile{}, nil, nil, logger)
	}
	resolver := o.Resolver
	if resolver == nil {
		resolver = location.NewResolver()
	}
	threshold := o.ReviewThreshold
	if threshold <= 0 {
		threshold = DefaultReviewThreshold
	}
	return &Processor{
		mapper:          mapper,
		detector:        NewHeaderDetector(mapper, resolver, o.HeaderScanRows, logger),
		resolver:        resolver,
		vision:          o.Vision,
		logger:          logger,
		reviewThreshold: threshold,
	}
}

// ProcessFile reads path and dispatches on its extension.
func (p *Processor) ProcessFile(ctx context.Context, path string, opts internal.ParseOptions) ([]internal.ShipmentRecord, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return p.ProcessContent(ctx, filepath.Base(path), content, opts)
}

// ProcessContent handles an in-memory document; name supplies the extension.
func (p *Processor) ProcessContent(ctx context.Context, name string, content []byte, opts internal.ParseOptions) ([]internal.ShipmentRecord, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx", ".xlsm":
		return p.ProcessWorkbook(ctx, content, opts)
	case ".csv":
		return p.processText(ctx, name, string(content), ',', internal.SourceText, opts), nil
	case ".tsv":
		return p.processText(ctx, name, string(content), '\t', internal.SourceText, opts), nil
	case ".txt":
		return p.processText(ctx, name, string(content), 0, internal.SourceText, opts), nil
	case ".html", ".htm":
		return p.processHTML(ctx, name, string(content), opts), nil
	case ".pdf":
		text, err := ExtractPDFText(content)
		if err != nil {
			return nil, err
		}
		return p.processText(ctx, name, text, 0, internal.SourcePDF, opts), nil
	case ".png", ".jpg", ".jpeg", ".webp":
		return p.ProcessImage(ctx, content, imageMIME(ext), opts), nil
	case ".eml":
		return p.ProcessEmail(ctx, content, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, name)
	}
}

// ProcessWorkbook parses every sheet, or only opts.SheetIndex when set.
// Sheets that fail are logged and contribute nothing.
func (p *Processor) ProcessWorkbook(ctx context.Context, content []byte, opts internal.ParseOptions) ([]internal.ShipmentRecord, error) {
	sheets, err := ReadWorkbook(content, func(sheet string, err error) {
		p.logger.Warn("sheet unreadable", zap.String("sheet", sheet), zap.Error(err))
	})
	if err != nil {
		return nil, err
	}
	if opts.SheetIndex != nil {
		i := *opts.SheetIndex
		if i < 0 || i >= len(sheets) {
			return nil, fmt.Errorf("%w: %d of %d", ErrSheetIndexOutOfRange, i, len(sheets))
		}
		sheets = sheets[i : i+1]
	}
	return p.processSheets(ctx, sheets, internal.SourceXLSX, opts), nil
}

func (p *Processor) processSheets(ctx context.Context, sheets []internal.Sheet, source internal.DocumentSource, opts internal.ParseOptions) []internal.ShipmentRecord {
	var out []internal.ShipmentRecord
	for _, sheet := range sheets {
		recs, err := p.ProcessSheet(ctx, sheet, source, opts)
		if err != nil {
			p.logger.Warn("sheet skipped", zap.String("sheet", sheet.Name), zap.Error(err))
			continue
		}
		out = append(out, recs...)
	}
	return out
}

// ProcessText parses delimited text (OCR output, text exports). A zero
// delimiter is detected. The result is never empty: text that yields no
// shipment comes back as an UNKNOWN record carrying the text.
func (p *Processor) ProcessText(ctx context.Context, name, text string, delimiter rune, opts internal.ParseOptions) []internal.ShipmentRecord {
	source := internal.SourceText
	if opts.IsOCRData {
		source = internal.SourceOCR
	}
	return p.processText(ctx, name, text, delimiter, source, opts)
}

func (p *Processor) processText(ctx context.Context, name, text string, delimiter rune, source internal.DocumentSource, opts internal.ParseOptions) []internal.ShipmentRecord {
	label := fmt.Sprintf("%s:%s", source, name)
	if strings.TrimSpace(text) == "" {
		return []internal.ShipmentRecord{sentinelRecord(LoadNumberUnknown, label, "No text could be extracted", misc(opts, "", ""))}
	}
	sheet := ParseDelimitedText(name, text, delimiter)
	recs := p.processSheets(ctx, []internal.Sheet{sheet}, source, opts)
	if len(recs) == 0 {
		p.logger.Warn("text yielded no shipments", zap.String("source", label))
		return []internal.ShipmentRecord{sentinelRecord(LoadNumberUnknown, label, "Text did not contain a recognisable manifest table", misc(opts, text, ""))}
	}
	return recs
}

func (p *Processor) processHTML(ctx context.Context, name, html string, opts internal.ParseOptions) []internal.ShipmentRecord {
	label := fmt.Sprintf("%s:%s", internal.SourceHTMLTable, name)
	recs := p.processSheets(ctx, ParseHTMLTables(html), internal.SourceHTMLTable, opts)
	if len(recs) == 0 {
		return []internal.ShipmentRecord{sentinelRecord(LoadNumberUnknown, label, "No manifest table found in HTML", misc(opts, "", ""))}
	}
	return recs
}

// ProcessImage transcribes an image with the vision collaborator and parses
// the result. Structured fields returned alongside the text are preferred.
func (p *Processor) ProcessImage(ctx context.Context, image []byte, mimeType string, opts internal.ParseOptions) []internal.ShipmentRecord {
	opts.IsOCRData = true
	if opts.OCRSource == "" {
		opts.OCRSource = ocrSourceGemini
	}
	label := fmt.Sprintf("%s:%s", internal.SourceOCR, opts.OCRSource)
	if p.vision == nil {
		return []internal.ShipmentRecord{sentinelRecord(LoadNumberError, label, "OCR is not configured", misc(opts, "", "vision collaborator not configured"))}
	}

	res, err := p.vision.ExtractTextFromImage(ctx, image, mimeType, true)
	if err != nil {
		p.logger.Warn("ocr failed", zap.Error(err))
		return []internal.ShipmentRecord{sentinelRecord(LoadNumberError, label, "OCR failed", misc(opts, "", err.Error()))}
	}
	if res.Error != "" {
		p.logger.Warn("ocr reported error", zap.String("error", res.Error))
		return []internal.ShipmentRecord{sentinelRecord(LoadNumberError, label, "OCR failed", misc(opts, res.Text, res.Error))}
	}
	if opts.OCRConfidence == nil {
		conf := res.Confidence
		opts.OCRConfidence = &conf
	}

	if len(res.ShipmentData) > 0 {
		sheet, overrides := sheetFromShipmentData(res.ShipmentData)
		structured := opts
		structured.HasHeaderRow = true
		structured.FieldMapping = mergeOverrides(opts.FieldMapping, overrides)
		if recs := p.processSheets(ctx, []internal.Sheet{sheet}, internal.SourceOCR, structured); len(recs) > 0 {
			return recs
		}
	}
	return p.processText(ctx, opts.OCRSource, res.Text, 0, internal.SourceOCR, opts)
}

// ProcessEmail parses attachments, HTML tables in the body, and finally the
// text body. Attachments that cannot be read are logged and skipped.
func (p *Processor) ProcessEmail(ctx context.Context, raw []byte, opts internal.ParseOptions) ([]internal.ShipmentRecord, error) {
	email, err := ReadEmail(raw)
	if err != nil {
		return nil, fmt.Errorf("read email: %w", err)
	}

	var out []internal.ShipmentRecord
	for _, att := range email.Attachments {
		if !supportedAttachment(att.FileName) {
			continue
		}
		recs, err := p.ProcessContent(ctx, att.FileName, att.Content, opts)
		if err != nil {
			p.logger.Warn("attachment skipped", zap.String("file", att.FileName), zap.Error(err))
			continue
		}
		out = append(out, withoutSentinels(recs)...)
	}
	if len(out) == 0 && email.HTML != "" {
		out = append(out, p.processSheets(ctx, ParseHTMLTables(email.HTML), internal.SourceEmail, opts)...)
	}
	if len(out) == 0 && strings.TrimSpace(email.Text) != "" {
		sheet := ParseDelimitedText("body", email.Text, 0)
		out = append(out, p.processSheets(ctx, []internal.Sheet{sheet}, internal.SourceEmail, opts)...)
	}
	if len(out) == 0 {
		label := fmt.Sprintf("%s:%s", internal.SourceEmail, email.Subject)
		out = append(out, sentinelRecord(LoadNumberUnknown, label, "No manifest found in email", misc(opts, email.Text, "")))
	}
	return out, nil
}

func supportedAttachment(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".csv", ".tsv", ".txt", ".html", ".htm", ".pdf", ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}

func imageMIME(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// IsSentinel reports whether rec stands in for a document that produced no
// shipments.
func IsSentinel(rec internal.ShipmentRecord) bool {
	return (rec.LoadNumber == LoadNumberUnknown || rec.LoadNumber == LoadNumberError) && len(rec.Items) == 0 && rec.OrderNumber == ""
}

func withoutSentinels(recs []internal.ShipmentRecord) []internal.ShipmentRecord {
	out := recs[:0:0]
	for _, r := range recs {
		if !IsSentinel(r) {
			out = append(out, r)
		}
	}
	return out
}

func sentinelRecord(load, source, message string, fields map[string]string) internal.ShipmentRecord {
	return internal.ShipmentRecord{
		LoadNumber:          load,
		Items:               []internal.ShipmentItem{},
		AIMappedFields:      []internal.AIMappedField{},
		MiscellaneousFields: fields,
		Source:              source,
		Confidence:          minConfidence,
		NeedsReview:         true,
		Message:             message,
	}
}

func misc(opts internal.ParseOptions, text, errMsg string) map[string]string {
	out := map[string]string{}
	if strings.TrimSpace(text) != "" {
		out["rawText"] = text
	}
	if errMsg != "" {
		out["error"] = errMsg
	}
	if opts.OCRSource != "" {
		out["ocrSource"] = opts.OCRSource
	}
	return out
}

// sheetFromShipmentData lays the vision collaborator's structured output out
// as a header row plus one row per item. Keys that name canonical fields are
// returned as overrides so they map exactly.
func sheetFromShipmentData(data map[string]any) (internal.Sheet, map[string]internal.Field) {
	var items []map[string]any
	scalars := map[string]any{}
	for k, v := range data {
		if list, ok := v.([]any); ok && strings.EqualFold(k, "items") {
			for _, it := range list {
				if m, ok := it.(map[string]any); ok {
					items = append(items, m)
				}
			}
			continue
		}
		scalars[k] = v
	}

	keySet := map[string]bool{}
	for k := range scalars {
		keySet[k] = true
	}
	for _, it := range items {
		for k := range it {
			keySet[k] = true
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	overrides := map[string]internal.Field{}
	header := make([]internal.Cell, len(keys))
	for i, k := range keys {
		header[i] = internal.StringCell(k)
		if internal.IsCanonical(internal.Field(k)) {
			overrides[k] = internal.Field(k)
		}
	}

	sheet := internal.Sheet{Name: "ocr", Rows: []internal.RawRow{{Index: 0, Source: "ocr", Cells: header}}}
	if len(items) == 0 {
		items = []map[string]any{{}}
	}
	for n, it := range items {
		cells := make([]internal.Cell, len(keys))
		for i, k := range keys {
			v, ok := it[k]
			if !ok && n == 0 {
				v = scalars[k]
			}
			cells[i] = cellFromAny(v)
		}
		sheet.Rows = append(sheet.Rows, internal.RawRow{Index: n + 1, Source: "ocr", Cells: cells})
	}
	return sheet, overrides
}

func cellFromAny(v any) internal.Cell {
	switch t := v.(type) {
	case nil:
		return internal.Cell{}
	case string:
		return internal.StringCell(t)
	case float64:
		return internal.NumberCell(t)
	case bool:
		return internal.BoolCell(t)
	default:
		return internal.StringCell(fmt.Sprint(t))
	}
}

func mergeOverrides(base, extra map[string]internal.Field) map[string]internal.Field {
	out := make(map[string]internal.Field, len(base)+len(extra))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range base {
		out[k] = v
	}
	return out
}
