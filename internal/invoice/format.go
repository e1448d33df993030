package invoice

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// CurrencyPrefix precedes every printed amount.
	CurrencyPrefix = "Rs"

	inputDateLayout     = "2006-01-02"
	deliveryDateLayout  = "02-01-2006"
	submittedDateLayout = "02/01/2006"
)

var printer = message.NewPrinter(language.English)

// FormatCurrency prints an amount with thousands separators and two
// decimals, e.g. Rs1,593,035.00.
func FormatCurrency(amount float64) string {
	return CurrencyPrefix + printer.Sprintf("%.2f", amount)
}

// FormatDate turns a YYYY-MM-DD date into DD-MM-YYYY. Anything else is
// returned unchanged.
func FormatDate(s string) string {
	t, err := time.Parse(inputDateLayout, s)
	if err != nil {
		return s
	}
	return t.Format(deliveryDateLayout)
}

// FormatQuantity prints a quantity with three decimals.
func FormatQuantity(q float64) string {
	return fmt.Sprintf("%.3f", q)
}

// FormatSubmitted prints the submission date as DD/MM/YYYY.
func FormatSubmitted(t time.Time) string {
	return t.Format(submittedDateLayout)
}

// FileName is the name an invoice with the given number is stored under.
func FileName(number int64) string {
	return fmt.Sprintf("Invoice_%d.pdf", number)
}
