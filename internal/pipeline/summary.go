package pipeline

import (
	"fmt"

	"manifest/internal"
)

// DocumentSummary is the document-level view handed to callers. Data is set
// only when the document produced exactly one shipment.
type DocumentSummary struct {
	Data        *internal.ShipmentRecord  `json:"data,omitempty"`
	Records     []internal.ShipmentRecord `json:"records"`
	Confidence  float64                   `json:"confidence"`
	NeedsReview bool                      `json:"needsReview"`
	Message     string                    `json:"message"`
	AIMapped    bool                      `json:"aiMapped"`
}

func Summarize(records []internal.ShipmentRecord) DocumentSummary {
	out := DocumentSummary{Records: records}
	if len(records) == 0 {
		out.NeedsReview = true
		out.Message = "No shipments extracted"
		return out
	}

	sum, review := 0.0, 0
	for _, r := range records {
		sum += r.Confidence
		if r.NeedsReview {
			review++
		}
		if len(r.AIMappedFields) > 0 {
			out.AIMapped = true
		}
	}
	out.Confidence = sum / float64(len(records))
	out.NeedsReview = review > 0

	if len(records) == 1 {
		rec := records[0]
		out.Data = &rec
		out.Message = rec.Message
		return out
	}
	out.Message = fmt.Sprintf("%d shipments extracted", len(records))
	if review > 0 {
		out.Message += fmt.Sprintf(", %d need review", review)
	}
	return out
}
