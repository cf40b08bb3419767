package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"manifest/internal"
	"manifest/internal/mapping"
	"manifest/internal/util"
)

const (
	DefaultMaxRowsToCheck = 20
	// Only this many leading rows are searched for a ship-from line.
	originScanRows = 5
	// Origin lines are short; a row with this many cells is a table row.
	originMaxCells = 5
	// A row that looks like data still counts as a header if it carries at
	// least this many text labels.
	minLabeledCells = 3
	// Rows with fewer statically recognised cells are scored without AI.
	minStaticForAI  = 1
	maxConcurrentAI = 8
)

var reOriginLabel = regexp.MustCompile(`(?i)^\s*(ship(ped)?\s*from|origin|pick\s*-?up(\s*(point|location|address))?|from|warehouse|dispatch(ed)?\s*from)\s*[:\-]\s*`)

// LocationHinter recognises address-like text.
type LocationHinter interface {
	LooksLikeLocation(text string) bool
}

// HeaderResult describes where a sheet's table starts. Indexes refer to the
// filtered (non-empty) row slice handed to Detect.
type HeaderResult struct {
	Headers             []string
	FilteredHeaderIndex int
	DataStartIndex      int
	PotentialOrigin     string
	Mapping             internal.HeaderMappingResult
}

type HeaderDetector struct {
	mapper  *mapping.Mapper
	hinter  LocationHinter
	maxRows int
	logger  *zap.Logger
}

func NewHeaderDetector(mapper *mapping.Mapper, hinter LocationHinter, maxRows int, logger *zap.Logger) *HeaderDetector {
	if maxRows <= 0 {
		maxRows = DefaultMaxRowsToCheck
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeaderDetector{mapper: mapper, hinter: hinter, maxRows: maxRows, logger: logger}
}

// Detect scans the leading rows for the header row. ok is false when no row
// qualifies; the caller decides the fallback.
func (d *HeaderDetector) Detect(ctx context.Context, rows []internal.RawRow, opts mapping.Options) (HeaderResult, bool) {
	limit := len(rows)
	if limit > d.maxRows {
		limit = d.maxRows
	}

	bestIdx, bestCount := -1, 0
	for i := 0; i < limit; i++ {
		recognized := d.recognizedFields(ctx, rows[i], opts)
		nextNumeric := i+1 < len(rows) && containsNumberLikelyData(rows[i+1])

		// A header is usually followed by a row with numbers; without that
		// signal a row must beat the current best by two recognised fields.
		better := (recognized > bestCount && nextNumeric) ||
			(recognized > 2 && recognized > bestCount+1)
		if !better {
			continue
		}
		if looksLikeDataRow(rows[i]) && labeledCells(rows[i]) < minLabeledCells {
			continue
		}
		bestIdx, bestCount = i, recognized
	}

	origin := d.findOrigin(rows, bestIdx)
	if bestIdx < 0 {
		return HeaderResult{PotentialOrigin: origin}, false
	}

	headers := cellStrings(rows[bestIdx])
	return HeaderResult{
		Headers:             headers,
		FilteredHeaderIndex: bestIdx,
		DataStartIndex:      bestIdx + 1,
		PotentialOrigin:     origin,
		Mapping:             d.MapHeaders(ctx, headers, opts),
	}, true
}

// recognizedFields maps every cell concurrently and counts canonical hits.
// The AI tier is consulted only for rows the static tables already partly
// recognise, so data rows never reach the collaborator.
func (d *HeaderDetector) recognizedFields(ctx context.Context, row internal.RawRow, opts mapping.Options) int {
	labels := cellStrings(row)
	static := 0
	for _, l := range labels {
		if fm, ok := d.mapper.MapStatic(l, opts); ok && !fm.Field.IsMisc() {
			static++
		}
	}
	if !opts.UseAI || static < minStaticForAI {
		return static
	}

	results := d.mapAll(ctx, labels, opts)

	count := 0
	for _, fm := range results {
		if fm.Field != "" && !fm.Field.IsMisc() {
			count++
		}
	}
	return count
}

// MapHeaders resolves a header row into the per-sheet mapping. A canonical
// field is claimed by its first column only; later duplicates and unmapped
// headers get misc_<slug> names, suffixed when they repeat.
func (d *HeaderDetector) MapHeaders(ctx context.Context, headers []string, opts mapping.Options) internal.HeaderMappingResult {
	mapped := d.mapAll(ctx, headers, opts)

	result := internal.HeaderMappingResult{ByField: map[internal.Field]string{}}
	used := map[internal.Field]int{}
	for i, h := range headers {
		fm := mapped[i]
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("column_%d", i+1)
			fm = internal.FieldMapping{Field: internal.MiscField(h)}
		}
		if !fm.Field.IsMisc() && used[fm.Field] > 0 {
			d.logger.Debug("duplicate column for field",
				zap.String("field", string(fm.Field)), zap.String("header", h))
			fm = internal.FieldMapping{Field: internal.MiscField(h)}
		}
		used[fm.Field]++
		if fm.Field.IsMisc() && used[fm.Field] > 1 {
			fm.Field = internal.Field(fmt.Sprintf("%s_%d", fm.Field, used[fm.Field]))
		}
		result.Detailed = append(result.Detailed, internal.HeaderMapping{
			Column:         i,
			OriginalHeader: h,
			MappedField:    fm.Field,
			Confidence:     fm.Confidence,
			AIMapped:       fm.AIMapped,
		})
		if !fm.Field.IsMisc() {
			result.ByField[fm.Field] = h
		}
	}
	return result
}

// mapAll maps labels with at most maxConcurrentAI lookups in flight. Map never
// fails; blank labels are left as the zero mapping.
func (d *HeaderDetector) mapAll(ctx context.Context, labels []string, opts mapping.Options) []internal.FieldMapping {
	out := make([]internal.FieldMapping, len(labels))
	sem := make(chan struct{}, maxConcurrentAI)
	var wg sync.WaitGroup
	for i, l := range labels {
		if strings.TrimSpace(l) == "" {
			continue
		}
		wg.Go(func() {
			sem <- struct{}{}
			defer func() { <-sem }()
			out[i] = d.mapper.Map(ctx, l, opts)
		})
	}
	wg.Wait()
	return out
}

// SyntheticHeaders names columns when a sheet has no header row.
func SyntheticHeaders(rows []internal.RawRow) []string {
	width := 0
	for _, r := range rows {
		if len(r.Cells) > width {
			width = len(r.Cells)
		}
	}
	headers := make([]string, width)
	for i := range headers {
		headers[i] = fmt.Sprintf("column_%d", i+1)
	}
	return headers
}

// findOrigin looks for a short address-like line above the table, such as
// "Ship From: Shah Alam DC".
func (d *HeaderDetector) findOrigin(rows []internal.RawRow, headerIdx int) string {
	if d.hinter == nil {
		return ""
	}
	for i := 0; i < len(rows) && i < originScanRows; i++ {
		if i == headerIdx {
			continue
		}
		if headerIdx >= 0 && i > headerIdx {
			break
		}
		n := rows[i].NonEmptyCount()
		if n == 0 || n >= originMaxCells {
			continue
		}
		text := strings.Join(nonEmptyStrings(rows[i]), " ")
		if !d.hinter.LooksLikeLocation(text) {
			continue
		}
		origin := strings.TrimSpace(reOriginLabel.ReplaceAllString(text, ""))
		if origin != "" {
			return origin
		}
	}
	return ""
}

func containsNumberLikelyData(row internal.RawRow) bool {
	for _, c := range row.Cells {
		switch c.Kind {
		case internal.CellNumber, internal.CellDate:
			return true
		case internal.CellString:
			if util.LooksNumeric(c.Str) {
				return true
			}
		}
	}
	return false
}

// looksLikeDataRow is true when most non-empty cells are numeric.
func looksLikeDataRow(row internal.RawRow) bool {
	numeric, total := 0, 0
	for _, c := range row.Cells {
		if c.IsEmpty() {
			continue
		}
		total++
		if c.Kind == internal.CellNumber || c.Kind == internal.CellDate || util.LooksNumeric(c.String()) {
			numeric++
		}
	}
	return total > 0 && numeric*2 > total
}

func labeledCells(row internal.RawRow) int {
	n := 0
	for _, c := range row.Cells {
		if c.Kind == internal.CellString && util.HasLetter(c.Str) && !util.LooksNumeric(c.Str) {
			n++
		}
	}
	return n
}

func cellStrings(row internal.RawRow) []string {
	out := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		out[i] = c.String()
	}
	return out
}

func nonEmptyStrings(row internal.RawRow) []string {
	var out []string
	for _, c := range row.Cells {
		if s := c.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
