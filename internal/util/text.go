package util

import (
	"regexp"
	"strings"
)

var (
	reQuotes      = regexp.MustCompile(`["'` + "`" + `«»]`)
	reNonAllowed  = regexp.MustCompile(`[^a-z0-9#/&\s]`)
	reSpaces      = regexp.MustCompile(`\s+`)
	reNumericLike = regexp.MustCompile(`^[\s\d.,\-/:+()]*\d[\s\d.,\-/:+()]*$`)
)

// CollapseSpaces trims and folds runs of whitespace into single spaces.
func CollapseSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// NormalizeHeader lowercases a header label and drops punctuation other than
// '#', '/' and '&', which carry meaning in manifest headers ("PO #", "D/O").
func NormalizeHeader(input string) string {
	s := strings.ToLower(input)
	s = strings.NewReplacer("_", " ", "-", " ", ".", " ", ":", " ", "\n", " ", "\r", " ", "\t", " ").Replace(s)
	s = reQuotes.ReplaceAllString(s, " ")
	s = reNonAllowed.ReplaceAllString(s, " ")
	return CollapseSpaces(s)
}

func Tokenize(input string) []string {
	norm := NormalizeHeader(input)
	parts := strings.Split(norm, " ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len([]rune(p)) >= 2 {
			out = append(out, p)
		}
	}
	return out
}

// LooksNumeric reports whether a cell text is made of digits and number
// punctuation only (amounts, dates, phone-like codes).
func LooksNumeric(input string) bool {
	s := strings.TrimSpace(input)
	if s == "" {
		return false
	}
	return reNumericLike.MatchString(s)
}

// HasLetter reports whether the input contains any letter.
func HasLetter(input string) bool {
	for _, r := range input {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || r > 0x7f {
			return true
		}
	}
	return false
}

func DiceCoefficient(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	pairs := func(s string) []string {
		r := []rune(s)
		if len(r) < 2 {
			return nil
		}
		out := make([]string, 0, len(r)-1)
		for i := 0; i < len(r)-1; i++ {
			out = append(out, string(r[i:i+2]))
		}
		return out
	}

	aPairs := pairs(a)
	bPairs := pairs(b)
	if len(aPairs) == 0 || len(bPairs) == 0 {
		return 0
	}

	bCount := map[string]int{}
	for _, p := range bPairs {
		bCount[p]++
	}
	inter := 0
	for _, p := range aPairs {
		if bCount[p] > 0 {
			inter++
			bCount[p]--
		}
	}

	return float64(2*inter) / float64(len(aPairs)+len(bPairs))
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }
