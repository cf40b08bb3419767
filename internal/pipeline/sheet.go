package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"manifest/internal"
	"manifest/internal/location"
	"manifest/internal/mapping"
)

// ProcessSheet turns one decoded sheet into shipment records. Any panic
// while walking the sheet is returned as an error so that one malformed
// sheet cannot abort the rest of the document.
func (p *Processor) ProcessSheet(ctx context.Context, sheet internal.Sheet, source internal.DocumentSource, opts internal.ParseOptions) (recs []internal.ShipmentRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			recs = nil
			err = fmt.Errorf("sheet %q: %v", sheet.Name, r)
		}
	}()
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	hr := p.locateHeader(ctx, sheet, opts)
	threshold := opts.AIMappingConfidenceThreshold
	if threshold <= 0 {
		threshold = internal.DefaultParseOptions().AIMappingConfidenceThreshold
	}

	rows := make([]MappedRow, 0, len(sheet.Rows)-hr.DataStartIndex)
	for _, raw := range sheet.Rows[hr.DataStartIndex:] {
		row := MapRow(raw, hr.Mapping, threshold)
		if len(row.Values) == 0 && len(row.Misc) == 0 {
			continue
		}
		if c := CorrectSwappedFields(&row, hr.Mapping); c.Swapped {
			p.logger.Info("swapped contact/po corrected",
				zap.String("sheet", sheet.Name), zap.Int("row", raw.Index+1))
		}
		RefineComposites(&row, hr.Mapping)
		rows = append(rows, row)
	}

	recs = Segment(rows)
	label := fmt.Sprintf("%s:%s", source, sheet.Name)
	for i := range recs {
		p.finishRecord(ctx, &recs[i], hr.PotentialOrigin, label, opts)
	}
	p.logger.Debug("sheet processed",
		zap.String("sheet", sheet.Name),
		zap.Int("header_row", hr.FilteredHeaderIndex),
		zap.Int("rows", len(rows)),
		zap.Int("shipments", len(recs)))
	return recs, nil
}

func (p *Processor) locateHeader(ctx context.Context, sheet internal.Sheet, opts internal.ParseOptions) HeaderResult {
	mopts := mappingOptions(opts)
	if !opts.HasHeaderRow {
		headers := SyntheticHeaders(sheet.Rows)
		// Synthetic names carry no meaning for the AI tier; only explicit
		// overrides can map them.
		mopts.UseAI = false
		return HeaderResult{
			Headers:             headers,
			FilteredHeaderIndex: -1,
			Mapping:             p.detector.MapHeaders(ctx, headers, mopts),
		}
	}

	hr, ok := p.detector.Detect(ctx, sheet.Rows, mopts)
	if ok {
		return hr
	}
	p.logger.Warn("no header row detected, using first row", zap.String("sheet", sheet.Name))
	headers := cellStrings(sheet.Rows[0])
	return HeaderResult{
		Headers:         headers,
		DataStartIndex:  1,
		PotentialOrigin: hr.PotentialOrigin,
		Mapping:         p.detector.MapHeaders(ctx, headers, mopts),
	}
}

// finishRecord fills sheet-level context, resolves locations and scores.
func (p *Processor) finishRecord(ctx context.Context, rec *internal.ShipmentRecord, origin, source string, opts internal.ParseOptions) {
	rec.Source = source
	if rec.ShipFrom == "" && origin != "" {
		rec.ShipFrom = origin
	}

	if rec.ShipTo != nil {
		loc := p.resolver.ResolveFields(ctx, location.Fields{
			Street:     rec.ShipToAddress,
			City:       rec.ShipTo.City,
			State:      rec.ShipTo.State,
			PostalCode: rec.ShipTo.PostalCode,
		})
		rec.ShipTo = &loc
	} else if rec.ShipToAddress != "" {
		loc := p.resolver.Resolve(ctx, rec.ShipToAddress, rec.ShipToCustomer)
		rec.ShipTo = &loc
	}
	if rec.ShipFrom != "" {
		loc := p.resolver.Resolve(ctx, rec.ShipFrom, origin)
		rec.Pickup = &loc
	}

	ApplyConfidence(rec, p.reviewThreshold, opts.OCRConfidence)
}

func mappingOptions(opts internal.ParseOptions) mapping.Options {
	docType := opts.DocumentType
	if docType == "" {
		docType = internal.DocShipmentManifest
	}
	return mapping.Options{
		DocumentType: docType,
		Overrides:    opts.FieldMapping,
		UseAI:        opts.UseAIMapping,
	}
}
