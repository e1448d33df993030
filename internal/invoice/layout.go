package invoice

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"
)

// Page geometry, in points.
const (
	inch = 72.0

	marginTop    = 0.5 * inch
	marginBottom = 1 * inch
	marginSide   = 1 * inch

	// ReservedHeaderLines blank lines of ReservedLineHeight points are left
	// at the top of the page for pre-printed letterhead.
	ReservedHeaderLines = 14
	ReservedLineHeight  = 14.0

	tableWidth = 7 * inch
)

var (
	detailColumns = []float64{2.5 * inch, 2.5 * inch, 1.5 * inch}
	itemColumns   = []float64{2.2 * inch, 1.3 * inch, 1.1 * inch, 1.2 * inch, 1.2 * inch}
	itemHeaders   = []string{"Description", "Delivery Date", "Qty (M/TON)", "Unit Price", "Total Price"}
)

// Render lays out inv as a single A4 page and writes the PDF to w.
func Render(w io.Writer, inv *Invoice) error {
	if inv == nil {
		return fmt.Errorf("invoice cannot be nil")
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(marginSide, marginTop, marginSide)
	pdf.SetAutoPageBreak(true, marginBottom)
	pdf.SetTitle(fmt.Sprintf("Invoice %d", inv.Number), true)
	pdf.SetSubject("Invoice", true)
	pdf.SetAuthor(inv.Parties.PayableTo, true)
	pdf.SetCreator("invoicegen", true)
	pdf.SetCreationDate(inv.SubmittedOn)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageWidth, _ := pdf.GetPageSize()
	tableX := (pageWidth - tableWidth) / 2

	pdf.AddPage()
	pdf.Ln(ReservedHeaderLines * ReservedLineHeight)

	// Title and submission date.
	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 30, "Invoice", "", 1, "C", false, 0, "")
	pdf.Ln(20)
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 16, "Submitted on: "+FormatSubmitted(inv.SubmittedOn), "", 1, "C", false, 0, "")
	pdf.Ln(35)

	// Parties and number.
	details := [][2]string{
		{"Invoice for", inv.Parties.BillTo},
		{"Payable to", inv.Parties.PayableTo},
		{"Invoice #", strconv.FormatInt(inv.Number, 10)},
	}
	top := pdf.GetY()
	x := tableX
	for i, d := range details {
		pdf.SetXY(x, top)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(detailColumns[i], 14, tr(d[0]), "", 2, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(detailColumns[i], 14, tr(d[1]), "", "L", false)
		x += detailColumns[i]
	}
	pdf.SetXY(marginSide, top+2*14+15)
	pdf.Ln(25)

	// Item table.
	const rowHeight = 34.0
	pdf.SetLineWidth(1)
	pdf.SetFillColor(211, 211, 211)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetX(tableX)
	for i, h := range itemHeaders {
		pdf.CellFormat(itemColumns[i], rowHeight, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(rowHeight)
	headerBottom := pdf.GetY()
	pdf.SetLineWidth(2)
	pdf.Line(tableX, headerBottom, tableX+sum(itemColumns), headerBottom)
	pdf.SetLineWidth(1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetX(tableX)
	row := []string{
		tr(fmt.Sprintf("%s (%s)", inv.Parties.Item, inv.VehicleNumber)),
		tr(FormatDate(inv.DeliveryDate)),
		FormatQuantity(inv.Quantity),
		FormatCurrency(inv.UnitPrice),
		FormatCurrency(inv.Total),
	}
	for i, cell := range row {
		pdf.CellFormat(itemColumns[i], rowHeight, cell, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(rowHeight)
	pdf.Ln(30)

	// Total and amount in words, right aligned to the table edge.
	pdf.SetX(tableX)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(tableWidth, 18, FormatCurrency(inv.Total), "", 1, "R", false, 0, "")
	pdf.Ln(15)
	pdf.SetX(tableX)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(tableWidth, 14, inv.AmountInWords, "", "R", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render invoice %d: %w", inv.Number, err)
	}
	return nil
}

func sum(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}
