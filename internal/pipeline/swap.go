package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"manifest/internal"
	"manifest/internal/composite"
)

// The swap heuristics are deliberately strict: a swap needs the contact to
// look like a PO and the PO to look like a phone number at the same time.
// Looser variants produced false positives on real manifests.
var (
	// A PO-style fragment: short code with at least one digit.
	rePOFragment = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{2,19}$`)
	reHasDigit   = regexp.MustCompile(`\d`)
	// Stricter PO form: two or more leading letters, then a digit somewhere.
	rePOStrict   = regexp.MustCompile(`^[A-Z]{2,}[A-Z0-9-]*\d[A-Z0-9-]*$`)
	rePhoneLike  = regexp.MustCompile(`^\+?\d[\d\s\-()]{5,}\d$`)
	reSwapSplit  = regexp.MustCompile(`[/,;\n]+`)
	poMarkerText = "HWSH"
)

type Correction struct {
	Swapped bool
	POSplit bool
	Notes   []string
}

func (c Correction) NeedsReview() bool {
	return c.Swapped || c.POSplit
}

// CorrectSwappedFields exchanges contactNumber and poNumber when their values
// were entered in each other's columns, then normalises poNumber into a
// " | "-joined list. Running it again on its own output changes nothing.
func CorrectSwappedFields(row *MappedRow, hm internal.HeaderMappingResult) Correction {
	var out Correction

	contact := row.Str(internal.FieldContactNumber)
	po := row.Str(internal.FieldPONumber)
	if contact != "" && po != "" && contactLooksLikePO(contact) && poLooksLikeContact(po) {
		row.SetStr(internal.FieldContactNumber, po)
		row.SetStr(internal.FieldPONumber, contact)
		out.Swapped = true
		out.Notes = append(out.Notes, fmt.Sprintf("%s and %s looked swapped (%q / %q) and were exchanged",
			headerFor(hm, internal.FieldContactNumber), headerFor(hm, internal.FieldPONumber), contact, po))
	}

	if raw := row.Str(internal.FieldPONumber); raw != "" {
		parts := composite.ParseMultiplePoNumbers(raw)
		switch {
		case len(parts) >= 2:
			row.SetStr(internal.FieldPONumber, composite.JoinValues(parts))
			out.POSplit = true
			out.Notes = append(out.Notes, fmt.Sprintf("%s holds %d PO numbers", headerFor(hm, internal.FieldPONumber), len(parts)))
		case len(parts) == 1:
			row.SetStr(internal.FieldPONumber, parts[0])
		}
	}

	if out.NeedsReview() {
		row.NeedsReview = true
		row.Notes = append(row.Notes, out.Notes...)
	}
	return out
}

func contactLooksLikePO(v string) bool {
	upper := strings.ToUpper(v)
	if strings.Contains(upper, poMarkerText) {
		return true
	}
	for _, part := range reSwapSplit.Split(upper, -1) {
		part = strings.TrimSpace(part)
		if rePOFragment.MatchString(part) && reHasDigit.MatchString(part) && !rePhoneLike.MatchString(part) {
			return true
		}
	}
	return false
}

func poLooksLikeContact(v string) bool {
	s := strings.TrimSpace(v)
	return rePhoneLike.MatchString(s) && !rePOStrict.MatchString(strings.ToUpper(s))
}

func headerFor(hm internal.HeaderMappingResult, f internal.Field) string {
	if h := hm.ByField[f]; h != "" {
		return h
	}
	return string(f)
}
