package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	unitPattern   = regexp.MustCompile(`(?i)\b(kgs?|kilograms?|tons?|tonnes?|mt|lbs?|g|pcs|pc|ctns?|cartons?|plts?|pallets?|units?|sets?|rolls?|bags?|boxe?s?)\b`)
	numberPattern = regexp.MustCompile(`(?i)(?:^|[^0-9.,])(\d{1,3}(?:,\d{3})+\.\d+|\d{1,3}(?:[\s.,]\d{3})+|\d+(?:[.,]\d+)?)`)
	withUnit      = regexp.MustCompile(`(?i)(?:^|[^0-9.,])(\d{1,3}(?:,\d{3})+\.\d+|\d{1,3}(?:[\s.,]\d{3})+|\d+(?:[.,]\d+)?)\s*(kgs?|kilograms?|tons?|tonnes?|mt|lbs?|g|pcs|pc|ctns?|cartons?|plts?|pallets?|units?|sets?|rolls?|bags?|boxe?s?)\b`)
	reDotThousand = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	reComThousand = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
	reComDecimal  = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+\.\d+$`)
)

type ParsedQty struct {
	Qty    *float64
	Unit   *string
	QtyRaw *string
}

// ParseQty pulls the last number (preferring one followed by a unit) out of a
// free-text quantity or weight cell such as "1,200 KG" or "12 ctns".
func ParseQty(input string) ParsedQty {
	line := strings.ReplaceAll(input, "\u00A0", " ")

	qtyRaw := ""
	qtyToken := ""

	wm := withUnit.FindAllStringSubmatch(line, -1)
	if len(wm) > 0 {
		last := wm[len(wm)-1]
		qtyRaw = strings.TrimSpace(last[1] + " " + last[2])
		qtyToken = strings.TrimSpace(last[1])
	} else {
		nm := numberPattern.FindAllStringSubmatch(line, -1)
		if len(nm) > 0 {
			last := nm[len(nm)-1]
			qtyRaw = strings.TrimSpace(last[1])
			qtyToken = strings.TrimSpace(last[1])
		}
	}

	var qtyPtr *float64
	if qtyToken != "" {
		norm := normalizeNumericToken(qtyToken)
		if parsed, err := strconv.ParseFloat(norm, 64); err == nil {
			qtyPtr = FloatPtr(parsed)
		}
	}

	var unitPtr *string
	if um := unitPattern.FindStringSubmatch(line); len(um) > 1 {
		u := NormalizeUnit(um[1])
		unitPtr = &u
	}

	var qtyRawPtr *string
	if qtyRaw != "" {
		qtyRawPtr = &qtyRaw
	}

	return ParsedQty{Qty: qtyPtr, Unit: unitPtr, QtyRaw: qtyRawPtr}
}

// ParseWeightKG reads a weight cell and converts tonnes and pounds to kilograms.
func ParseWeightKG(input string) (float64, bool) {
	parsed := ParseQty(input)
	if parsed.Qty == nil {
		return 0, false
	}
	w := *parsed.Qty
	if parsed.Unit != nil {
		switch *parsed.Unit {
		case "t":
			w *= 1000
		case "lb":
			w *= 0.45359237
		case "g":
			w /= 1000
		}
	}
	return w, true
}

func NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch u {
	case "kg", "kgs", "kilogram", "kilograms":
		return "kg"
	case "ton", "tons", "tonne", "tonnes", "mt":
		return "t"
	case "lb", "lbs":
		return "lb"
	case "pc", "pcs":
		return "pcs"
	case "ctn", "ctns", "carton", "cartons":
		return "ctn"
	case "plt", "plts", "pallet", "pallets":
		return "plt"
	case "unit", "units":
		return "unit"
	case "box", "boxes", "boxs":
		return "box"
	default:
		return strings.TrimSuffix(u, "s")
	}
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if reDotThousand.MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if reComThousand.MatchString(compact) || reComDecimal.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}
