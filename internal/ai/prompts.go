package ai

import (
	"fmt"
	"strings"
)

func mappingPrompt(header string, candidates []string) string {
	return fmt.Sprintf(`You map column headers from logistics shipment manifests to a fixed schema.

Header: %q
Candidate fields: %s

Pick the single candidate field that best describes the data under this header.
If none fit, answer "unknown". Headers may be abbreviated or in Malay.

Return ONLY a JSON object of this exact shape:
{"mappedField": "<candidate or unknown>", "confidence": <number between 0 and 1>, "reasoning": "<one short sentence>"}

Do not include any explanations, markdown formatting, or additional text outside the JSON object.`,
		header, strings.Join(candidates, ", "))
}

func visionPrompt(includeSchema bool, fields []string) string {
	var b strings.Builder
	b.WriteString(`Transcribe the shipment document in this image.
Reproduce tables row by row, one row per line, with cells separated by " | ".
Keep the header row if one is visible. Do not invent values.
`)
	b.WriteString(`
Return ONLY a JSON object with:
- "text": the transcription
- "confidence": your confidence in the transcription, between 0 and 1
`)
	if includeSchema {
		fmt.Fprintf(&b, `- "shipmentData": an object keyed by these field names with the values you can read (omit unknown fields): %s
`, strings.Join(fields, ", "))
	}
	b.WriteString("\nDo not include any explanations, markdown formatting, or additional text outside the JSON object.")
	return b.String()
}

// cleanJSONResponse removes markdown code block markers from a JSON string.
func cleanJSONResponse(jsonStr string) string {
	jsonStr = strings.TrimPrefix(strings.TrimSpace(jsonStr), "```json")
	jsonStr = strings.TrimPrefix(strings.TrimSpace(jsonStr), "```")
	jsonStr = strings.TrimSuffix(strings.TrimSpace(jsonStr), "```")
	return strings.TrimSpace(jsonStr)
}
