package composite

import (
	"regexp"
	"strings"
)

// DriverDetails is what a truck/driver block yields. Fields absent from the
// block stay empty.
type DriverDetails struct {
	Name  string
	IC    string
	Phone string
	Truck string
}

var (
	reDriverName  = regexp.MustCompile(`(?i)^\s*(?:driver\s*)?name\s*[:=-]\s*(.+)$`)
	reDriverIC    = regexp.MustCompile(`(?i)^\s*(?:driver\s*)?(?:ic|nric|i/c)(?:\s*no\.?)?\s*[:=-]\s*(.+)$`)
	reDriverPhone = regexp.MustCompile(`(?i)^\s*(?:driver\s*)?(?:phone|tel|hp|contact)(?:\s*no\.?)?\s*[:=-]\s*(.+)$`)
	reTruck       = regexp.MustCompile(`(?i)^\s*(?:truck|lorry|vehicle)(?:\s*no\.?)?\s*[:=-]\s*(.+)$`)
)

// ParseTruckDetails reads a multi-line block such as
//
//	NAME: AHMAD BIN ALI
//	IC: 800101-01-1234
//	PHONE: 012-3456789
//	TRUCK: WXY 1234
//
// Each line is matched on its own; labels may appear in any order and
// unlabelled lines are ignored. A later line for the same label wins.
func ParseTruckDetails(block string) DriverDetails {
	var d DriverDetails
	lines := strings.FieldsFunc(block, func(r rune) bool { return r == '\n' || r == '\r' })
	for _, line := range lines {
		switch {
		case reDriverName.MatchString(line):
			d.Name = cleanValue(reDriverName.FindStringSubmatch(line)[1])
		case reDriverIC.MatchString(line):
			d.IC = cleanValue(reDriverIC.FindStringSubmatch(line)[1])
		case reDriverPhone.MatchString(line):
			raw := cleanValue(reDriverPhone.FindStringSubmatch(line)[1])
			if phone, ok := NormalizePhone(raw); ok {
				d.Phone = phone
			} else {
				d.Phone = raw
			}
		case reTruck.MatchString(line):
			d.Truck = strings.ToUpper(cleanValue(reTruck.FindStringSubmatch(line)[1]))
		}
	}
	return d
}

// IsEmpty reports whether nothing was captured.
func (d DriverDetails) IsEmpty() bool {
	return d.Name == "" && d.IC == "" && d.Phone == "" && d.Truck == ""
}

func cleanValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
