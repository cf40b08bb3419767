package internal

import (
	"strconv"
	"strings"
	"time"
)

type DocumentType string

const (
	DocShipmentManifest DocumentType = "shipment_manifest"
	DocDeliveryOrder    DocumentType = "delivery_order"
	DocLoadPlan         DocumentType = "load_plan"
)

type DocumentSource string

const (
	SourceXLSX      DocumentSource = "xlsx"
	SourceText      DocumentSource = "text"
	SourceHTMLTable DocumentSource = "html_table"
	SourcePDF       DocumentSource = "pdf"
	SourceOCR       DocumentSource = "ocr"
	SourceEmail     DocumentSource = "email"
)

// Field is a canonical schema field name.
type Field string

const (
	FieldLoadNumber       Field = "loadNumber"
	FieldOrderNumber      Field = "orderNumber"
	FieldPromisedShipDate Field = "promisedShipDate"
	FieldDeliveryDate     Field = "deliveryDate"
	FieldShipToCustomer   Field = "shipToCustomer"
	FieldShipToAddress    Field = "shipToAddress"
	FieldShipToCity       Field = "shipToCity"
	FieldShipToState      Field = "shipToState"
	FieldShipToPostalCode Field = "shipToPostalCode"
	FieldShipFrom         Field = "shipFrom"
	FieldContactName      Field = "contactName"
	FieldContactNumber    Field = "contactNumber"
	FieldPONumber         Field = "poNumber"
	FieldRemarks          Field = "remarks"
	FieldDriverDetails    Field = "driverDetails"
	FieldDriverName       Field = "driverName"
	FieldDriverIC         Field = "driverIC"
	FieldDriverPhone      Field = "driverPhone"
	FieldTruckNumber      Field = "truckNumber"

	FieldItemNumber      Field = "itemNumber"
	FieldDescription     Field = "description"
	FieldLotSerialNumber Field = "lotSerialNumber"
	FieldQuantity        Field = "quantity"
	FieldUOM             Field = "uom"
	FieldWeight          Field = "weight"

	// FieldUnknown is what an AI suggestion outside the schema collapses to.
	FieldUnknown Field = "unknown"
)

const miscPrefix = "misc_"

// CanonicalFields lists every schema field in a stable order.
var CanonicalFields = []Field{
	FieldLoadNumber, FieldOrderNumber, FieldPromisedShipDate, FieldDeliveryDate,
	FieldShipToCustomer, FieldShipToAddress, FieldShipToCity, FieldShipToState, FieldShipToPostalCode,
	FieldShipFrom, FieldContactName, FieldContactNumber, FieldPONumber, FieldRemarks,
	FieldDriverDetails, FieldDriverName, FieldDriverIC, FieldDriverPhone, FieldTruckNumber,
	FieldItemNumber, FieldDescription, FieldLotSerialNumber, FieldQuantity, FieldUOM, FieldWeight,
}

// CriticalFields drive the missing-data branch of confidence scoring.
var CriticalFields = []Field{
	FieldLoadNumber, FieldOrderNumber, FieldPromisedShipDate, FieldShipToCustomer, FieldShipToAddress,
}

func IsCanonical(f Field) bool {
	for _, c := range CanonicalFields {
		if c == f {
			return true
		}
	}
	return false
}

func IsCritical(f Field) bool {
	for _, c := range CriticalFields {
		if c == f {
			return true
		}
	}
	return false
}

func (f Field) IsMisc() bool {
	return f == FieldUnknown || f == "" || strings.HasPrefix(string(f), miscPrefix)
}

// MiscField builds the synthetic field name used for an unmapped header.
func MiscField(header string) Field {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(header)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	slug := strings.TrimRight(b.String(), "_")
	if slug == "" {
		slug = "column"
	}
	return Field(miscPrefix + slug)
}

type CellKind int

const (
	CellEmpty CellKind = iota
	CellString
	CellNumber
	CellDate
	CellBool
)

// Cell is one typed spreadsheet value.
type Cell struct {
	Kind CellKind
	Str  string
	Num  float64
	Time time.Time
	Bool bool
}

func StringCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{}
	}
	return Cell{Kind: CellString, Str: s}
}

func NumberCell(n float64) Cell { return Cell{Kind: CellNumber, Num: n} }

func DateCell(t time.Time) Cell { return Cell{Kind: CellDate, Time: t} }

func BoolCell(b bool) Cell { return Cell{Kind: CellBool, Bool: b} }

// RawCell classifies an untyped value read from a workbook in raw mode.
func RawCell(raw string) Cell {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Cell{}
	}
	// Leading zeros mean a code or phone number stored as text.
	leadingZero := len(trimmed) > 1 && trimmed[0] == '0' && trimmed[1] != '.'
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil && !leadingZero && !strings.ContainsAny(trimmed, "xXeEnN+") {
		return NumberCell(n)
	}
	return StringCell(raw)
}

func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty || (c.Kind == CellString && strings.TrimSpace(c.Str) == "")
}

func (c Cell) String() string {
	switch c.Kind {
	case CellString:
		return strings.TrimSpace(c.Str)
	case CellNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case CellDate:
		return c.Time.Format("2006-01-02")
	case CellBool:
		return strconv.FormatBool(c.Bool)
	default:
		return ""
	}
}

// RawRow is one row of a sheet or text table.
type RawRow struct {
	Index  int
	Source string
	Cells  []Cell
}

func (r RawRow) NonEmptyCount() int {
	n := 0
	for _, c := range r.Cells {
		if !c.IsEmpty() {
			n++
		}
	}
	return n
}

// Sheet is a decoded tabular source: a workbook sheet, an HTML table or delimited text.
type Sheet struct {
	Name string
	Rows []RawRow
}

type HeaderMapping struct {
	Column         int     `json:"column"`
	OriginalHeader string  `json:"originalHeader"`
	MappedField    Field   `json:"mappedField"`
	Confidence     float64 `json:"confidence"`
	AIMapped       bool    `json:"aiMapped"`
}

type HeaderMappingResult struct {
	Detailed []HeaderMapping  `json:"detailed"`
	ByField  map[Field]string `json:"byField"`
}

// FieldMapping is the result of resolving one header.
type FieldMapping struct {
	Field      Field
	Confidence float64
	AIMapped   bool
}

type FieldSuggestion struct {
	MappedField string  `json:"mappedField"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

type OCRResult struct {
	Text         string         `json:"text"`
	Confidence   float64        `json:"confidence"`
	ShipmentData map[string]any `json:"shipmentData,omitempty"`
	Error        string         `json:"error,omitempty"`
}

type ResolutionMethod string

const (
	ResolutionDirectFields            ResolutionMethod = "direct-fields"
	ResolutionMockKeyword             ResolutionMethod = "mock-keyword"
	ResolutionEstimatedPattern        ResolutionMethod = "estimated-pattern"
	ResolutionEstimatedPatternContext ResolutionMethod = "estimated-pattern-context"
	ResolutionNone                    ResolutionMethod = "none"
)

type LocationDetail struct {
	Street               string           `json:"street,omitempty"`
	City                 string           `json:"city,omitempty"`
	State                string           `json:"state,omitempty"`
	PostalCode           string           `json:"postalCode,omitempty"`
	Country              string           `json:"country,omitempty"`
	Latitude             *float64         `json:"latitude"`
	Longitude            *float64         `json:"longitude"`
	RawInput             string           `json:"rawInput"`
	ResolutionMethod     ResolutionMethod `json:"resolutionMethod"`
	ResolutionConfidence float64          `json:"resolutionConfidence"`
}

type ShipmentItem struct {
	ItemNumber      string   `json:"itemNumber"`
	Description     string   `json:"description"`
	LotSerialNumber string   `json:"lotSerialNumber"`
	Quantity        int      `json:"quantity"`
	UOM             string   `json:"uom"`
	Weight          *float64 `json:"weight,omitempty"`
}

type AIMappedField struct {
	Field          Field   `json:"field"`
	OriginalHeader string  `json:"originalHeader"`
	Confidence     float64 `json:"confidence"`
}

type ShipmentRecord struct {
	LoadNumber       string     `json:"loadNumber"`
	OrderNumber      string     `json:"orderNumber"`
	PromisedShipDate *time.Time `json:"promisedShipDate"`
	DeliveryDate     *time.Time `json:"deliveryDate"`
	ShipToCustomer   string     `json:"shipToCustomer"`
	ShipToAddress    string     `json:"shipToAddress"`
	ShipFrom         string     `json:"shipFrom"`
	ContactName      string     `json:"contactName"`
	ContactNumber    string     `json:"contactNumber"`
	PONumber         string     `json:"poNumber"`
	Remarks          string     `json:"remarks"`
	DriverName       string     `json:"driverName,omitempty"`
	DriverIC         string     `json:"driverIC,omitempty"`
	DriverPhone      string     `json:"driverPhone,omitempty"`
	TruckNumber      string     `json:"truckNumber,omitempty"`

	Items       []ShipmentItem `json:"items"`
	TotalWeight float64        `json:"totalWeight"`

	ShipTo *LocationDetail `json:"shipTo,omitempty"`
	Pickup *LocationDetail `json:"pickup,omitempty"`

	AIMappedFields      []AIMappedField   `json:"aiMappedFields"`
	MiscellaneousFields map[string]string `json:"miscellaneousFields"`

	Source      string   `json:"source"`
	ReviewNotes []string `json:"reviewNotes,omitempty"`
	Confidence  float64  `json:"confidence"`
	NeedsReview bool     `json:"needsReview"`
	Message     string   `json:"message"`
}

// ParseOptions control one document run.
type ParseOptions struct {
	HasHeaderRow                 bool
	UseAIMapping                 bool
	AIMappingConfidenceThreshold float64
	DocumentType                 DocumentType
	FieldMapping                 map[string]Field
	SheetIndex                   *int
	IsOCRData                    bool
	OCRSource                    string
	OCRConfidence                *float64
}

func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		HasHeaderRow:                 true,
		UseAIMapping:                 true,
		AIMappingConfidenceThreshold: 0.7,
		DocumentType:                 DocShipmentManifest,
	}
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type DocumentRow struct {
	ID        string
	EmailID   *int
	Name      string
	Source    string
	Hash      string
	Status    string
	CreatedAt string
}
