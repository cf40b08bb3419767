package pipeline

import (
	"fmt"
	"strings"

	"manifest/internal"
)

// Weights were tuned against real manifests; changing them shifts which
// records land in the review queue.
const (
	// Missing critical data: confidence = 1 - missing/len(CriticalFields).
	minConfidence = 0.1
	// A weak critical AI mapping dominates the mean.
	aiCriticalWeight = 0.7
	aiMeanWeight     = 0.3
	// Completeness is blended in last.
	priorWeight        = 0.8
	completenessWeight = 0.2
	// Critical AI mappings below this always need review.
	aiCriticalReview = 0.7

	DefaultReviewThreshold = 0.7
)

const lowConfidenceMessage = "Low confidence in extracted data; please review"

// ConfidenceResult is the scorer's verdict for one record.
type ConfidenceResult struct {
	Confidence  float64
	NeedsReview bool
	Message     string
}

// CalculateConfidence scores a record. Three independent routes flag review:
// missing critical fields, a weak AI mapping of a critical field, and a low
// blended confidence.
func CalculateConfidence(rec internal.ShipmentRecord, reviewThreshold float64) ConfidenceResult {
	if reviewThreshold <= 0 {
		reviewThreshold = DefaultReviewThreshold
	}

	missing := missingCritical(rec)
	if len(missing) > 0 {
		conf := 1 - float64(len(missing))/float64(len(internal.CriticalFields))
		if conf < minConfidence {
			conf = minConfidence
		}
		return ConfidenceResult{
			Confidence:  conf,
			NeedsReview: true,
			Message:     "Missing critical fields: " + joinFields(missing),
		}
	}

	var res ConfidenceResult
	conf := 1.0
	if len(rec.AIMappedFields) > 0 {
		sum := 0.0
		minCritical := 1.0
		var weak []string
		for _, ai := range rec.AIMappedFields {
			sum += ai.Confidence
			if !internal.IsCritical(ai.Field) {
				continue
			}
			if ai.Confidence < minCritical {
				minCritical = ai.Confidence
			}
			if ai.Confidence < aiCriticalReview {
				weak = append(weak, fmt.Sprintf("%s (from %q)", ai.Field, ai.OriginalHeader))
			}
		}
		mean := sum / float64(len(rec.AIMappedFields))
		conf = aiCriticalWeight*minCritical + aiMeanWeight*mean
		if len(weak) > 0 {
			res.NeedsReview = true
			res.Message = "AI-mapped critical fields need review: " + strings.Join(weak, ", ")
		}
	}

	conf = priorWeight*conf + completenessWeight*completeness(rec)
	if conf < minConfidence {
		conf = minConfidence
	}
	if conf > 1 {
		conf = 1
	}
	res.Confidence = conf

	if conf < reviewThreshold && !res.NeedsReview {
		res.NeedsReview = true
		res.Message = lowConfidenceMessage
	}
	return res
}

// ApplyConfidence stores the verdict on the record. Review flags raised
// earlier (swap correction, PO splits) are kept, and an OCR source caps the
// score at the OCR engine's own confidence.
func ApplyConfidence(rec *internal.ShipmentRecord, reviewThreshold float64, ocrConfidence *float64) {
	res := CalculateConfidence(*rec, reviewThreshold)
	if ocrConfidence != nil && *ocrConfidence < res.Confidence {
		res.Confidence = *ocrConfidence
		if res.Confidence < reviewThreshold && !res.NeedsReview {
			res.NeedsReview = true
			res.Message = lowConfidenceMessage
		}
	}
	rec.Confidence = res.Confidence
	if res.NeedsReview {
		rec.NeedsReview = true
	}
	switch {
	case res.Message != "":
		rec.Message = res.Message
	case rec.NeedsReview && len(rec.ReviewNotes) > 0:
		rec.Message = strings.Join(rec.ReviewNotes, "; ")
	case rec.Message == "":
		rec.Message = "Shipment extracted"
	}
}

func missingCritical(rec internal.ShipmentRecord) []internal.Field {
	var missing []internal.Field
	for _, f := range internal.CriticalFields {
		if !recordHas(rec, f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// completenessFields are the record's populated-or-not attributes; the
// AI-mapped list and bookkeeping fields do not count.
var completenessFields = []internal.Field{
	internal.FieldLoadNumber,
	internal.FieldOrderNumber,
	internal.FieldPromisedShipDate,
	internal.FieldDeliveryDate,
	internal.FieldShipToCustomer,
	internal.FieldShipToAddress,
	internal.FieldShipFrom,
	internal.FieldContactName,
	internal.FieldContactNumber,
	internal.FieldPONumber,
	internal.FieldRemarks,
	internal.FieldItemNumber,
}

func completeness(rec internal.ShipmentRecord) float64 {
	n := 0
	for _, f := range completenessFields {
		if recordHas(rec, f) {
			n++
		}
	}
	return float64(n) / float64(len(completenessFields))
}

func recordHas(rec internal.ShipmentRecord, f internal.Field) bool {
	switch f {
	case internal.FieldLoadNumber:
		return rec.LoadNumber != ""
	case internal.FieldOrderNumber:
		return rec.OrderNumber != ""
	case internal.FieldPromisedShipDate:
		return rec.PromisedShipDate != nil
	case internal.FieldDeliveryDate:
		return rec.DeliveryDate != nil
	case internal.FieldShipToCustomer:
		return rec.ShipToCustomer != ""
	case internal.FieldShipToAddress:
		return rec.ShipToAddress != ""
	case internal.FieldShipFrom:
		return rec.ShipFrom != ""
	case internal.FieldContactName:
		return rec.ContactName != ""
	case internal.FieldContactNumber:
		return rec.ContactNumber != ""
	case internal.FieldPONumber:
		return rec.PONumber != ""
	case internal.FieldRemarks:
		return rec.Remarks != ""
	case internal.FieldItemNumber:
		// Stands in for the items list.
		return len(rec.Items) > 0
	}
	return false
}

func joinFields(fields []internal.Field) string {
	s := make([]string, len(fields))
	for i, f := range fields {
		s[i] = string(f)
	}
	return strings.Join(s, ", ")
}
