package pipeline

import "strings"

type DetectResult struct {
	IsManifest bool
	Score      float64
	Reason     string
}

var detectKeywords = []string{
	"manifest", "shipment", "delivery order", "load plan", "loading list", "consignment",
	"lorry", "truck", "pickup", "penghantaran", "muatan", "do no", "load no",
}

// DetectManifest scores whether an email is worth running through the
// pipeline. text may be the plain or HTML body.
func DetectManifest(subject, text string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) {
			score += 0.1
		}
	}

	hits := countNumberRuns(text)
	if hits >= 4 {
		score += 0.3
	} else if hits >= 2 {
		score += 0.15
	}

	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if strings.HasSuffix(ln, ".xlsx") || strings.HasSuffix(ln, ".xlsm") || strings.HasSuffix(ln, ".csv") || strings.HasSuffix(ln, ".pdf") {
			score += 0.35
			break
		}
	}

	if strings.Contains(text, "<table") {
		score += 0.25
	}
	if score > 1 {
		score = 1
	}

	isManifest := score >= 0.45
	reason := "rules_negative"
	if isManifest {
		reason = "rules_positive"
	}

	return DetectResult{IsManifest: isManifest, Score: score, Reason: reason}
}

// countNumberRuns counts runs of digits with at least three characters,
// which is what load, order and phone numbers look like.
func countNumberRuns(text string) int {
	count := 0
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			continue
		}
		start := i
		for i+1 < len(text) && text[i+1] >= '0' && text[i+1] <= '9' {
			i++
		}
		if i-start+1 >= 3 {
			count++
		}
	}
	return count
}
