package mapping

import "manifest/internal"

// commonExact applies to every document type; per-type tables add to it.
var commonExact = map[string]internal.Field{
	"Load Number":        internal.FieldLoadNumber,
	"Load No":            internal.FieldLoadNumber,
	"Load No.":           internal.FieldLoadNumber,
	"Load #":             internal.FieldLoadNumber,
	"Order Number":       internal.FieldOrderNumber,
	"Order No":           internal.FieldOrderNumber,
	"Order No.":          internal.FieldOrderNumber,
	"Promised Ship Date": internal.FieldPromisedShipDate,
	"Ship Date":          internal.FieldPromisedShipDate,
	"Delivery Date":      internal.FieldDeliveryDate,
	"Ship To Customer":   internal.FieldShipToCustomer,
	"Ship To Name":       internal.FieldShipToCustomer,
	"Customer":           internal.FieldShipToCustomer,
	"Customer Name":      internal.FieldShipToCustomer,
	"Ship To Address":    internal.FieldShipToAddress,
	"Delivery Address":   internal.FieldShipToAddress,
	"Address":            internal.FieldShipToAddress,
	"City":               internal.FieldShipToCity,
	"State":              internal.FieldShipToState,
	"Postcode":           internal.FieldShipToPostalCode,
	"Postal Code":        internal.FieldShipToPostalCode,
	"Ship From":          internal.FieldShipFrom,
	"Origin":             internal.FieldShipFrom,
	"Contact Name":       internal.FieldContactName,
	"Contact Person":     internal.FieldContactName,
	"Contact Number":     internal.FieldContactNumber,
	"Contact No":         internal.FieldContactNumber,
	"Phone":              internal.FieldContactNumber,
	"PO Number":          internal.FieldPONumber,
	"PO No":              internal.FieldPONumber,
	"PO No.":             internal.FieldPONumber,
	"Customer PO":        internal.FieldPONumber,
	"Remarks":            internal.FieldRemarks,
	"Remark":             internal.FieldRemarks,
	"Item Number":        internal.FieldItemNumber,
	"Item No":            internal.FieldItemNumber,
	"Item Code":          internal.FieldItemNumber,
	"Description":        internal.FieldDescription,
	"Item Description":   internal.FieldDescription,
	"Lot/Serial Number":  internal.FieldLotSerialNumber,
	"Lot Number":         internal.FieldLotSerialNumber,
	"Serial Number":      internal.FieldLotSerialNumber,
	"Quantity":           internal.FieldQuantity,
	"Qty":                internal.FieldQuantity,
	"UOM":                internal.FieldUOM,
	"Weight":             internal.FieldWeight,
	"Weight (KG)":        internal.FieldWeight,
	"Gross Weight":       internal.FieldWeight,
	"Driver Details":     internal.FieldDriverDetails,
	"Driver Name":        internal.FieldDriverName,
	"Driver IC":          internal.FieldDriverIC,
	"Driver Phone":       internal.FieldDriverPhone,
	"Truck No":           internal.FieldTruckNumber,
	"Truck Number":       internal.FieldTruckNumber,
}

var docTypeExact = map[internal.DocumentType]map[string]internal.Field{
	internal.DocShipmentManifest: {
		"Shipment No":  internal.FieldLoadNumber,
		"Sales Order":  internal.FieldOrderNumber,
		"Consignee":    internal.FieldShipToCustomer,
		"Contact Info": internal.FieldContactNumber,
	},
	internal.DocDeliveryOrder: {
		"DO Number":     internal.FieldOrderNumber,
		"DO No":         internal.FieldOrderNumber,
		"D/O No":        internal.FieldOrderNumber,
		"Deliver To":    internal.FieldShipToCustomer,
		"Delivery Time": internal.FieldDeliveryDate,
	},
	internal.DocLoadPlan: {
		"Trip No":      internal.FieldLoadNumber,
		"Trip Number":  internal.FieldLoadNumber,
		"Vehicle No":   internal.FieldTruckNumber,
		"Lorry No":     internal.FieldTruckNumber,
		"Loading Date": internal.FieldPromisedShipDate,
	},
}

// synonyms are keyed by util.NormalizeHeader output. They cover common
// abbreviations and the Malay labels seen on local manifests.
var synonyms = map[string]internal.Field{
	"load":             internal.FieldLoadNumber,
	"load #":           internal.FieldLoadNumber,
	"load id":          internal.FieldLoadNumber,
	"load ref":         internal.FieldLoadNumber,
	"shipment #":       internal.FieldLoadNumber,
	"shipment id":      internal.FieldLoadNumber,
	"trip":             internal.FieldLoadNumber,
	"order":            internal.FieldOrderNumber,
	"order #":          internal.FieldOrderNumber,
	"so #":             internal.FieldOrderNumber,
	"so no":            internal.FieldOrderNumber,
	"do #":             internal.FieldOrderNumber,
	"do no":            internal.FieldOrderNumber,
	"d/o no":           internal.FieldOrderNumber,
	"no do":            internal.FieldOrderNumber,
	"ship dt":          internal.FieldPromisedShipDate,
	"shipping date":    internal.FieldPromisedShipDate,
	"pickup date":      internal.FieldPromisedShipDate,
	"tarikh muat":      internal.FieldPromisedShipDate,
	"eta":              internal.FieldDeliveryDate,
	"delivery dt":      internal.FieldDeliveryDate,
	"tarikh hantar":    internal.FieldDeliveryDate,
	"ship to":          internal.FieldShipToCustomer,
	"consignee":        internal.FieldShipToCustomer,
	"customer":         internal.FieldShipToCustomer,
	"pelanggan":        internal.FieldShipToCustomer,
	"nama pelanggan":   internal.FieldShipToCustomer,
	"deliver to":       internal.FieldShipToCustomer,
	"ship to addr":     internal.FieldShipToAddress,
	"delivery address": internal.FieldShipToAddress,
	"address":          internal.FieldShipToAddress,
	"alamat":           internal.FieldShipToAddress,
	"city":             internal.FieldShipToCity,
	"bandar":           internal.FieldShipToCity,
	"state":            internal.FieldShipToState,
	"negeri":           internal.FieldShipToState,
	"postcode":         internal.FieldShipToPostalCode,
	"poskod":           internal.FieldShipToPostalCode,
	"zip":              internal.FieldShipToPostalCode,
	"from":             internal.FieldShipFrom,
	"pickup":           internal.FieldShipFrom,
	"warehouse":        internal.FieldShipFrom,
	"origin":           internal.FieldShipFrom,
	"contact":          internal.FieldContactName,
	"pic":              internal.FieldContactName,
	"attn":             internal.FieldContactName,
	"contact person":   internal.FieldContactName,
	"tel":              internal.FieldContactNumber,
	"tel no":           internal.FieldContactNumber,
	"hp":               internal.FieldContactNumber,
	"hp no":            internal.FieldContactNumber,
	"no tel":           internal.FieldContactNumber,
	"phone no":         internal.FieldContactNumber,
	"mobile":           internal.FieldContactNumber,
	"po":               internal.FieldPONumber,
	"po #":             internal.FieldPONumber,
	"po no":            internal.FieldPONumber,
	"p/o":              internal.FieldPONumber,
	"purchase order":   internal.FieldPONumber,
	"cust po":          internal.FieldPONumber,
	"remark":           internal.FieldRemarks,
	"notes":            internal.FieldRemarks,
	"note":             internal.FieldRemarks,
	"catatan":          internal.FieldRemarks,
	"comments":         internal.FieldRemarks,
	"driver":           internal.FieldDriverDetails,
	"driver info":      internal.FieldDriverDetails,
	"pemandu":          internal.FieldDriverName,
	"ic no":            internal.FieldDriverIC,
	"truck":            internal.FieldTruckNumber,
	"lorry":            internal.FieldTruckNumber,
	"no lori":          internal.FieldTruckNumber,
	"vehicle":          internal.FieldTruckNumber,
	"item":             internal.FieldItemNumber,
	"item #":           internal.FieldItemNumber,
	"sku":              internal.FieldItemNumber,
	"part no":          internal.FieldItemNumber,
	"material":         internal.FieldItemNumber,
	"kod item":         internal.FieldItemNumber,
	"desc":             internal.FieldDescription,
	"product":          internal.FieldDescription,
	"product name":     internal.FieldDescription,
	"keterangan":       internal.FieldDescription,
	"lot":              internal.FieldLotSerialNumber,
	"lot no":           internal.FieldLotSerialNumber,
	"batch":            internal.FieldLotSerialNumber,
	"batch no":         internal.FieldLotSerialNumber,
	"serial":           internal.FieldLotSerialNumber,
	"s/n":              internal.FieldLotSerialNumber,
	"qty":              internal.FieldQuantity,
	"quantity":         internal.FieldQuantity,
	"kuantiti":         internal.FieldQuantity,
	"pcs":              internal.FieldQuantity,
	"ctns":             internal.FieldQuantity,
	"unit":             internal.FieldUOM,
	"uom":              internal.FieldUOM,
	"weight":           internal.FieldWeight,
	"wt":               internal.FieldWeight,
	"kg":               internal.FieldWeight,
	"gross wt":         internal.FieldWeight,
	"net weight":       internal.FieldWeight,
	"berat":            internal.FieldWeight,
}
