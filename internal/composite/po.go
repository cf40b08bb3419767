package composite

import (
	"regexp"
	"strings"
)

var rePOSplit = regexp.MustCompile(`[/,;\n]+`)

// ParseMultiplePoNumbers splits a cell holding several purchase orders
// ("HWSH001/HWSH002 (urgent)") into trimmed, de-duplicated values in order
// of first appearance. Parenthesised notes are dropped.
func ParseMultiplePoNumbers(raw string) []string {
	s := reParens.ReplaceAllString(raw, " ")
	var out []string
	seen := map[string]struct{}{}
	for _, part := range rePOSplit.Split(s, -1) {
		part = strings.Trim(strings.TrimSpace(part), "|-.:")
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

// JoinValues is the separator used wherever several values share one field.
func JoinValues(values []string) string {
	return strings.Join(values, joinSep)
}
