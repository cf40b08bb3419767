package pipeline

import (
	"fmt"
	"strings"

	"manifest/internal"
	"manifest/internal/composite"
	"manifest/internal/util"
)

// MappedRow is one data row keyed by canonical field. Values without a
// canonical home live in Misc under their original header.
type MappedRow struct {
	Index       int
	Values      map[internal.Field]internal.Cell
	Misc        map[string]string
	AIFields    []internal.AIMappedField
	Notes       []string
	NeedsReview bool
}

func (r MappedRow) Str(f internal.Field) string {
	c, ok := r.Values[f]
	if !ok {
		return ""
	}
	return c.String()
}

func (r MappedRow) Has(f internal.Field) bool {
	return r.Str(f) != ""
}

func (r *MappedRow) SetStr(f internal.Field, v string) {
	if strings.TrimSpace(v) == "" {
		delete(r.Values, f)
		return
	}
	r.Values[f] = internal.StringCell(v)
}

// MapRow applies a sheet's header mapping to one row. AI-mapped values below
// threshold are also copied into Misc so a reviewer can see the raw column.
func MapRow(row internal.RawRow, hm internal.HeaderMappingResult, threshold float64) MappedRow {
	out := MappedRow{
		Index:  row.Index,
		Values: map[internal.Field]internal.Cell{},
		Misc:   map[string]string{},
	}
	for _, m := range hm.Detailed {
		if m.Column >= len(row.Cells) {
			continue
		}
		cell := row.Cells[m.Column]
		if cell.IsEmpty() {
			continue
		}
		if m.MappedField.IsMisc() {
			putMisc(out.Misc, m.OriginalHeader, cell.String())
			continue
		}
		out.Values[m.MappedField] = cell
		if m.AIMapped {
			out.AIFields = append(out.AIFields, internal.AIMappedField{
				Field:          m.MappedField,
				OriginalHeader: m.OriginalHeader,
				Confidence:     m.Confidence,
			})
			if m.Confidence < threshold {
				putMisc(out.Misc, m.OriginalHeader, cell.String())
			}
		}
	}
	return out
}

func putMisc(misc map[string]string, header, value string) {
	key := strings.TrimSpace(header)
	if key == "" {
		key = "column"
	}
	if existing, ok := misc[key]; ok && existing != value {
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s_%d", key, n)
			if _, taken := misc[candidate]; !taken {
				key = candidate
				break
			}
		}
	}
	misc[key] = value
}

// RefineComposites splits contact and driver cells into their parts. It runs
// after swap correction, which needs the raw contact text.
func RefineComposites(row *MappedRow, hm internal.HeaderMappingResult) {
	refineContact(row)
	refineDriver(row, hm)
}

func refineContact(row *MappedRow) {
	if raw := row.Str(internal.FieldContactNumber); raw != "" {
		parsed := composite.ParseContactString(raw)
		if parsed.Phones != nil {
			row.SetStr(internal.FieldContactNumber, *parsed.Phones)
			if parsed.Names != nil && !row.Has(internal.FieldContactName) {
				row.SetStr(internal.FieldContactName, *parsed.Names)
			}
		}
	}
	if raw := row.Str(internal.FieldContactName); raw != "" && strings.ContainsAny(raw, "0123456789") {
		parsed := composite.ParseContactString(raw)
		if parsed.Names != nil {
			row.SetStr(internal.FieldContactName, *parsed.Names)
		}
		if parsed.Phones != nil && !row.Has(internal.FieldContactNumber) {
			row.SetStr(internal.FieldContactNumber, *parsed.Phones)
		}
	}
}

func refineDriver(row *MappedRow, hm internal.HeaderMappingResult) {
	block := row.Str(internal.FieldDriverDetails)
	if block == "" {
		return
	}
	details := composite.ParseTruckDetails(block)
	if details.IsEmpty() {
		header := hm.ByField[internal.FieldDriverDetails]
		if header == "" {
			header = string(internal.FieldDriverDetails)
		}
		putMisc(row.Misc, header, block)
		return
	}
	setIfEmpty(row, internal.FieldDriverName, details.Name)
	setIfEmpty(row, internal.FieldDriverIC, details.IC)
	setIfEmpty(row, internal.FieldDriverPhone, details.Phone)
	setIfEmpty(row, internal.FieldTruckNumber, details.Truck)
}

func setIfEmpty(row *MappedRow, f internal.Field, v string) {
	if v != "" && !row.Has(f) {
		row.SetStr(f, v)
	}
}

// itemFromRow builds a line item; ok is false when the row carries no
// item number or description.
func itemFromRow(row MappedRow) (internal.ShipmentItem, bool) {
	item := internal.ShipmentItem{
		ItemNumber:      row.Str(internal.FieldItemNumber),
		Description:     row.Str(internal.FieldDescription),
		LotSerialNumber: row.Str(internal.FieldLotSerialNumber),
		UOM:             row.Str(internal.FieldUOM),
	}
	if item.ItemNumber == "" && item.Description == "" {
		return internal.ShipmentItem{}, false
	}
	if qty, ok := row.Values[internal.FieldQuantity]; ok {
		item.Quantity = util.ExtractInt(qty)
		if item.UOM == "" && qty.Kind == internal.CellString {
			if parsed := util.ParseQty(qty.Str); parsed.Unit != nil {
				item.UOM = *parsed.Unit
			}
		}
	}
	item.Weight = rowWeight(row)
	return item, true
}

func rowWeight(row MappedRow) *float64 {
	c, ok := row.Values[internal.FieldWeight]
	if !ok {
		return nil
	}
	switch c.Kind {
	case internal.CellNumber:
		return util.FloatPtr(c.Num)
	case internal.CellString:
		if w, ok := util.ParseWeightKG(c.Str); ok {
			return util.FloatPtr(w)
		}
	}
	return nil
}
