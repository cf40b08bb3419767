// Package composite splits multi-value manifest cells (contact strings, PO
// lists, driver blocks) into their parts.
package composite

import (
	"regexp"
	"sort"
	"strings"

	"manifest/internal/util"
)

const joinSep = " | "

// maxPhoneDigits is the longest valid form: 60 + 1x + 8 digits.
const maxPhoneDigits = 12

var (
	// Seven or more digits, allowing the separators people type into phone cells.
	rePhoneCandidate = regexp.MustCompile(`\+?\d[\d\s\-()]{5,}\d`)
	reNonDigit       = regexp.MustCompile(`\D`)

	// Malaysian numbers: 01x mobiles carry 8–9 digits after the prefix,
	// 03–09 landlines 7–8.
	reMYTrunk   = regexp.MustCompile(`^0(?:1\d{8,9}|[3-9]\d{7,8})$`)
	reMYCountry = regexp.MustCompile(`^60(?:1\d{8,9}|[3-9]\d{7,8})$`)

	reParens      = regexp.MustCompile(`\([^)]*\)`)
	reTitle       = regexp.MustCompile(`(?i)(^|[\s/;,|])(?:MRS|MR|MS|SD|PIC)\b[.:]?\s*`)
	reNameSplit   = regexp.MustCompile(`[/\n;]+`)
	reNumericOnly = regexp.MustCompile(`^[\d\s\-+().]*$`)

	// Field labels typed in front of a number ("Tel:", "HP").
	reLabel = regexp.MustCompile(`(?i)(^|[\s/;,|])(?:TELEPHONE|TEL|H/P|HP|PHONE|MOBILE|MOB|CONTACT(?:\s+NO)?)\b[.:]?\s*`)
)

// ParsedContact holds "|"-joined names and phones; nil when none were found.
type ParsedContact struct {
	Names  *string
	Phones *string
}

// ParseContactString separates names from phone numbers in a free-text contact
// cell such as "MR TAN 012-3456789 / MS LEE 0198765432".
func ParseContactString(raw string) ParsedContact {
	if strings.TrimSpace(raw) == "" {
		return ParsedContact{}
	}

	matches := rePhoneCandidate.FindAllString(raw, -1)
	var phones []string
	seen := map[string]struct{}{}
	for _, m := range matches {
		for _, candidate := range splitRunOn(m) {
			phone, ok := NormalizePhone(candidate)
			if !ok {
				continue
			}
			if _, dup := seen[phone]; dup {
				continue
			}
			seen[phone] = struct{}{}
			phones = append(phones, phone)
		}
	}

	remainder := raw
	sorted := append([]string(nil), matches...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	for _, m := range sorted {
		remainder = strings.ReplaceAll(remainder, m, " ")
	}

	out := ParsedContact{}
	if len(phones) > 0 {
		out.Phones = util.StringPtr(strings.Join(phones, joinSep))
	}
	if names := extractNames(remainder); names != "" {
		out.Names = util.StringPtr(names)
	}
	return out
}

// NormalizePhone reduces a candidate to digits and validates it as a Malaysian
// number in 0XXXXXXXXX or 60XXXXXXXXX form.
func NormalizePhone(candidate string) (string, bool) {
	trimmed := strings.TrimSpace(candidate)
	digits := reNonDigit.ReplaceAllString(trimmed, "")
	if len(digits) < 7 {
		return "", false
	}
	// Numbers typed without the trunk zero ("12-3456789").
	if !strings.HasPrefix(digits, "0") && !strings.HasPrefix(digits, "60") && len(digits) >= 9 && len(digits) <= 11 {
		digits = "0" + digits
	}
	if reMYTrunk.MatchString(digits) || reMYCountry.MatchString(digits) {
		return digits, true
	}
	return "", false
}

// splitRunOn breaks a candidate that swallowed two space-separated numbers.
// Space-grouped numbers ("012 345 6789 019 876 5432") are rebuilt by joining
// adjacent groups, keeping the longest run that validates.
func splitRunOn(candidate string) []string {
	digits := reNonDigit.ReplaceAllString(candidate, "")
	if len(digits) <= 12 {
		return []string{candidate}
	}
	groups := strings.Fields(candidate)
	var out []string
	for i := 0; i < len(groups); {
		end := -1
		n := 0
		for j := i; j < len(groups); j++ {
			n += len(reNonDigit.ReplaceAllString(groups[j], ""))
			if n > maxPhoneDigits {
				break
			}
			if _, ok := NormalizePhone(strings.Join(groups[i:j+1], " ")); ok {
				end = j
			}
		}
		if end < 0 {
			i++
			continue
		}
		out = append(out, strings.Join(groups[i:end+1], " "))
		i = end + 1
	}
	if len(out) == 0 {
		return []string{candidate}
	}
	return out
}

func extractNames(remainder string) string {
	s := reParens.ReplaceAllString(remainder, " ")
	s = stripTitles(s)

	if strings.Contains(s, "|") {
		return strings.Trim(util.CollapseSpaces(s), " -,:|()")
	}

	var names []string
	for _, seg := range reNameSplit.Split(s, -1) {
		seg = strings.Trim(util.CollapseSpaces(seg), " -,:.()")
		if seg == "" || reNumericOnly.MatchString(seg) {
			continue
		}
		names = append(names, seg)
	}
	return strings.Join(names, joinSep)
}

// stripTitles repeats until stable since a title can follow another ("MR. SD ALI").
// Field labels go the same way.
func stripTitles(s string) string {
	for {
		next := reLabel.ReplaceAllString(reTitle.ReplaceAllString(s, "$1"), "$1")
		if next == s {
			return s
		}
		s = next
	}
}
