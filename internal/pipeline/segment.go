package pipeline

import (
	"time"

	"manifest/internal"
	"manifest/internal/util"
)

// backfillFields may be filled from a later row when the active shipment has
// no value yet (remarks or contacts written under the shipment's first row).
var backfillFields = []internal.Field{
	internal.FieldOrderNumber,
	internal.FieldPromisedShipDate,
	internal.FieldDeliveryDate,
	internal.FieldShipToCustomer,
	internal.FieldShipToAddress,
	internal.FieldShipToCity,
	internal.FieldShipToState,
	internal.FieldShipToPostalCode,
	internal.FieldShipFrom,
	internal.FieldContactName,
	internal.FieldContactNumber,
	internal.FieldPONumber,
	internal.FieldRemarks,
	internal.FieldDriverName,
	internal.FieldDriverIC,
	internal.FieldDriverPhone,
	internal.FieldTruckNumber,
}

// SegmentState is either idle (no active shipment) or accumulating one.
type SegmentState struct {
	current *internal.ShipmentRecord
}

func (s SegmentState) Active() bool { return s.current != nil }

// Current exposes the record being accumulated, nil when idle.
func (s SegmentState) Current() *internal.ShipmentRecord { return s.current }

// Transition consumes one row. It returns the next state and the record that
// the row closed, if any.
//
// The load number is the grouping key: a row repeating the active load adds
// to it and only a different load emits. The order number only starts a new
// shipment when the active one has no load number and the order differs.
func Transition(state SegmentState, row MappedRow) (SegmentState, *internal.ShipmentRecord) {
	load := row.Str(internal.FieldLoadNumber)
	order := row.Str(internal.FieldOrderNumber)
	cur := state.current

	switch {
	case load != "":
		if cur != nil && cur.LoadNumber == load {
			continueShipment(cur, row)
			return state, nil
		}
		return SegmentState{current: newShipment(row)}, cur

	case order != "":
		if cur == nil {
			return SegmentState{current: newShipment(row)}, nil
		}
		if cur.LoadNumber == "" && cur.OrderNumber != order {
			return SegmentState{current: newShipment(row)}, cur
		}
		continueShipment(cur, row)
		return state, nil

	default:
		if cur == nil {
			return state, nil
		}
		continueShipment(cur, row)
		return state, nil
	}
}

// Finish emits the active record at end of input.
func Finish(state SegmentState) *internal.ShipmentRecord {
	return state.current
}

// Segment runs the state machine over a sheet's rows.
func Segment(rows []MappedRow) []internal.ShipmentRecord {
	var out []internal.ShipmentRecord
	state := SegmentState{}
	for _, row := range rows {
		var emitted *internal.ShipmentRecord
		state, emitted = Transition(state, row)
		if emitted != nil {
			out = append(out, *emitted)
		}
	}
	if last := Finish(state); last != nil {
		out = append(out, *last)
	}
	return out
}

func newShipment(row MappedRow) *internal.ShipmentRecord {
	rec := &internal.ShipmentRecord{
		LoadNumber:          row.Str(internal.FieldLoadNumber),
		Items:               []internal.ShipmentItem{},
		AIMappedFields:      []internal.AIMappedField{},
		MiscellaneousFields: map[string]string{},
	}
	backfill(rec, row)
	addItemOrWeight(rec, row)
	return rec
}

func continueShipment(rec *internal.ShipmentRecord, row MappedRow) {
	addItemOrWeight(rec, row)
	backfill(rec, row)
}

// addItemOrWeight appends the row's item. A weight on a row without an item
// is a shipment-level weight and goes straight into the total.
func addItemOrWeight(rec *internal.ShipmentRecord, row MappedRow) {
	if item, ok := itemFromRow(row); ok {
		rec.Items = append(rec.Items, item)
		if item.Weight != nil {
			rec.TotalWeight += *item.Weight
		}
		return
	}
	if w := rowWeight(row); w != nil {
		rec.TotalWeight += *w
	}
}

func backfill(rec *internal.ShipmentRecord, row MappedRow) {
	for _, f := range backfillFields {
		if !row.Has(f) {
			continue
		}
		setRecordField(rec, f, row)
	}
	for k, v := range row.Misc {
		if _, ok := rec.MiscellaneousFields[k]; !ok {
			rec.MiscellaneousFields[k] = v
		}
	}
	for _, ai := range row.AIFields {
		if !hasAIField(rec, ai.Field) {
			rec.AIMappedFields = append(rec.AIMappedFields, ai)
		}
	}
	for _, n := range row.Notes {
		if !containsString(rec.ReviewNotes, n) {
			rec.ReviewNotes = append(rec.ReviewNotes, n)
		}
	}
	if row.NeedsReview {
		rec.NeedsReview = true
	}
}

// setRecordField copies f from row when the record's value is still empty.
func setRecordField(rec *internal.ShipmentRecord, f internal.Field, row MappedRow) {
	v := row.Str(f)
	switch f {
	case internal.FieldOrderNumber:
		fillString(&rec.OrderNumber, v)
	case internal.FieldPromisedShipDate:
		fillDate(&rec.PromisedShipDate, row.Values[f])
	case internal.FieldDeliveryDate:
		fillDate(&rec.DeliveryDate, row.Values[f])
	case internal.FieldShipToCustomer:
		fillString(&rec.ShipToCustomer, v)
	case internal.FieldShipToAddress:
		fillString(&rec.ShipToAddress, v)
	case internal.FieldShipToCity:
		fillString(&shipTo(rec).City, v)
	case internal.FieldShipToState:
		fillString(&shipTo(rec).State, v)
	case internal.FieldShipToPostalCode:
		fillString(&shipTo(rec).PostalCode, v)
	case internal.FieldShipFrom:
		fillString(&rec.ShipFrom, v)
	case internal.FieldContactName:
		fillString(&rec.ContactName, v)
	case internal.FieldContactNumber:
		fillString(&rec.ContactNumber, v)
	case internal.FieldPONumber:
		fillString(&rec.PONumber, v)
	case internal.FieldRemarks:
		fillString(&rec.Remarks, v)
	case internal.FieldDriverName:
		fillString(&rec.DriverName, v)
	case internal.FieldDriverIC:
		fillString(&rec.DriverIC, v)
	case internal.FieldDriverPhone:
		fillString(&rec.DriverPhone, v)
	case internal.FieldTruckNumber:
		fillString(&rec.TruckNumber, v)
	}
}

// shipTo holds explicit city/state/postcode columns until location
// resolution fills in the rest.
func shipTo(rec *internal.ShipmentRecord) *internal.LocationDetail {
	if rec.ShipTo == nil {
		rec.ShipTo = &internal.LocationDetail{ResolutionMethod: internal.ResolutionNone}
	}
	return rec.ShipTo
}

func fillString(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func fillDate(dst **time.Time, c internal.Cell) {
	if *dst != nil {
		return
	}
	if t, ok := util.ParseDate(c); ok {
		*dst = &t
	}
}

func hasAIField(rec *internal.ShipmentRecord, f internal.Field) bool {
	for _, ai := range rec.AIMappedFields {
		if ai.Field == f {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
