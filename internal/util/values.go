package util

import (
	"math"
	"strconv"
	"strings"
	"time"

	"manifest/internal"
)

const (
	// Spreadsheet serials outside (0, maxExcelSerial) are not dates.
	maxExcelSerial = 60000
	minSaneYear    = 1950
	maxSaneYear    = 2100
)

var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// dateLayouts are tried in order; the first strict parse wins.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"1/2/06 15:04",
	"1/2/06",
	"2-Jan-2006 15:04",
	"2-Jan-2006",
	"2-Jan-06",
	"2 Jan 2006",
	"02.01.2006",
}

// ExtractString returns the trimmed text form of a cell.
func ExtractString(c internal.Cell) string {
	return c.String()
}

// ExtractNumber reads numeric cells and number-looking text.
func ExtractNumber(c internal.Cell) (float64, bool) {
	switch c.Kind {
	case internal.CellNumber:
		return c.Num, true
	case internal.CellString:
		parsed := ParseQty(c.Str)
		if parsed.Qty == nil {
			return 0, false
		}
		return *parsed.Qty, true
	case internal.CellBool:
		if c.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// ExtractInt rounds a numeric cell; anything unparseable is 0.
func ExtractInt(c internal.Cell) int {
	n, ok := ExtractNumber(c)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return int(math.Round(n))
}

// ExtractBool understands the usual yes/no spellings.
func ExtractBool(c internal.Cell) (bool, bool) {
	switch c.Kind {
	case internal.CellBool:
		return c.Bool, true
	case internal.CellNumber:
		return c.Num != 0, true
	case internal.CellString:
		switch strings.ToLower(strings.TrimSpace(c.Str)) {
		case "1", "true", "yes", "y", "ya", "on", "x":
			return true, true
		case "0", "false", "no", "n", "tidak", "off":
			return false, true
		}
	}
	return false, false
}

// ExcelSerialToTime converts a spreadsheet day serial. Serials before 1900-03-01
// get one day added back for the phantom 1900-02-29.
func ExcelSerialToTime(serial float64) (time.Time, bool) {
	if !(serial > 0 && serial < maxExcelSerial) {
		return time.Time{}, false
	}
	days := math.Floor(serial)
	if days < 61 {
		days++
	}
	frac := serial - math.Floor(serial)
	t := excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(math.Round(frac*86400)) * time.Second)
	if !saneYear(t) {
		return time.Time{}, false
	}
	return t, true
}

// ParseDate accepts date cells, spreadsheet serials and the known text layouts.
// It never guesses: anything outside 1950–2100 is reported as no date.
func ParseDate(c internal.Cell) (time.Time, bool) {
	switch c.Kind {
	case internal.CellDate:
		if c.Time.IsZero() || !saneYear(c.Time) {
			return time.Time{}, false
		}
		return c.Time, true
	case internal.CellNumber:
		return ExcelSerialToTime(c.Num)
	case internal.CellString:
		return ParseDateString(c.Str)
	default:
		return time.Time{}, false
	}
}

func ParseDateString(input string) (time.Time, bool) {
	s := CollapseSpaces(input)
	if s == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return ExcelSerialToTime(n)
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if !saneYear(t) {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

func saneYear(t time.Time) bool {
	return t.Year() >= minSaneYear && t.Year() <= maxSaneYear
}
