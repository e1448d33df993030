package invoice

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Custom document properties written into every invoice.
const (
	PropInvoiceNumber = "InvoiceNumber"
	PropVehicleNumber = "VehicleNumber"
	PropDeliveryDate  = "DeliveryDate"
	PropTotal         = "Total"
	PropAmountInWords = "AmountInWords"
)

// Properties returns the custom properties describing inv.
func Properties(inv *Invoice) map[string]string {
	return map[string]string{
		PropInvoiceNumber: strconv.FormatInt(inv.Number, 10),
		PropVehicleNumber: inv.VehicleNumber,
		PropDeliveryDate:  inv.DeliveryDate,
		PropTotal:         FormatCurrency(inv.Total),
		PropAmountInWords: inv.AmountInWords,
	}
}

// pdfcpuConfig keeps a classic xref table so the output stays readable by
// simple parsers.
func pdfcpuConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// Stamp adds the invoice's custom properties to a rendered PDF.
func Stamp(rendered []byte, inv *Invoice) ([]byte, error) {
	var out bytes.Buffer
	if err := api.AddProperties(bytes.NewReader(rendered), &out, Properties(inv), pdfcpuConfig()); err != nil {
		return nil, fmt.Errorf("failed to stamp invoice %d: %w", inv.Number, err)
	}
	return out.Bytes(), nil
}
