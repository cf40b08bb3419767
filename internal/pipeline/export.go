package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"manifest/internal"
)

var exportHeaders = []string{
	"Load Number", "Order Number", "Promised Ship Date", "Delivery Date",
	"Ship To Customer", "Ship To Address", "Ship To City", "Ship To State", "Ship To Postcode",
	"Ship From", "Contact Name", "Contact Number", "PO Number", "Remarks",
	"Driver Name", "Driver IC", "Driver Phone", "Truck Number",
	"Item Number", "Description", "Lot/Serial Number", "Quantity", "UOM", "Item Weight",
	"Total Weight", "Confidence", "Needs Review", "Message", "Source", "Misc",
}

// ExportShipmentsToXLSX writes one row per line item, repeating the shipment
// columns. Shipments without items get a single row.
func ExportShipmentsToXLSX(records []internal.ShipmentRecord, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	r := 2
	for _, rec := range records {
		items := rec.Items
		if len(items) == 0 {
			items = []internal.ShipmentItem{{}}
		}
		for _, item := range items {
			set := func(col int, value any) {
				cell, _ := excelize.CoordinatesToCellName(col, r)
				_ = f.SetCellValue(sheet, cell, value)
			}

			set(1, rec.LoadNumber)
			set(2, rec.OrderNumber)
			set(3, formatDate(rec.PromisedShipDate))
			set(4, formatDate(rec.DeliveryDate))
			set(5, rec.ShipToCustomer)
			set(6, rec.ShipToAddress)
			if rec.ShipTo != nil {
				set(7, rec.ShipTo.City)
				set(8, rec.ShipTo.State)
				set(9, rec.ShipTo.PostalCode)
			}
			set(10, rec.ShipFrom)
			set(11, rec.ContactName)
			set(12, rec.ContactNumber)
			set(13, rec.PONumber)
			set(14, rec.Remarks)
			set(15, rec.DriverName)
			set(16, rec.DriverIC)
			set(17, rec.DriverPhone)
			set(18, rec.TruckNumber)
			set(19, item.ItemNumber)
			set(20, item.Description)
			set(21, item.LotSerialNumber)
			if item.ItemNumber != "" || item.Description != "" {
				set(22, item.Quantity)
			}
			set(23, item.UOM)
			set(24, derefFloat(item.Weight))
			set(25, rec.TotalWeight)
			set(26, rec.Confidence)
			set(27, rec.NeedsReview)
			set(28, rec.Message)
			set(29, rec.Source)
			set(30, formatMisc(rec.MiscellaneousFields))
			r++
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func formatMisc(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k]
	}
	return strings.Join(parts, "; ")
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
