package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingField is returned when a required request field is empty.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidNumber is returned when quantity or unit price is not a
	// non-negative decimal.
	ErrInvalidNumber = errors.New("invalid number")
	// ErrSequenceConflict is returned when the sequence advanced past the
	// number an invoice was rendered with.
	ErrSequenceConflict = errors.New("invoice number taken by another writer")
	// ErrNotFound is returned for invoice files that do not exist.
	ErrNotFound = errors.New("invoice not found")
)

// Parties holds the fixed names printed on every invoice.
type Parties struct {
	BillTo    string `json:"bill_to"`
	PayableTo string `json:"payable_to"`
	Item      string `json:"item"`
}

// DefaultParties returns the names used when none are configured.
func DefaultParties() Parties {
	return Parties{
		BillTo:    "Mr Adnan - A.L.U INTERNATIONAL",
		PayableTo: "A.T COMMODITIES",
		Item:      "Coal",
	}
}

// Amount is the raw text of a quantity or price. It decodes from a JSON
// number or a JSON string of any content, so empty strings reach
// validation instead of failing the decode.
type Amount string

// String returns the raw text.
func (a Amount) String() string {
	return string(a)
}

// UnmarshalJSON implements json.Unmarshaler. null decodes as empty.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a number or a string: %w", err)
	}
	*a = Amount(n)
	return nil
}

// Request carries the four user-supplied fields. Quantity and UnitPrice
// accept JSON numbers as well as numeric strings.
type Request struct {
	DeliveryDate  string `json:"delivery_date" validate:"required"`
	VehicleNumber string `json:"vehicle_number" validate:"required"`
	Quantity      Amount `json:"quantity" validate:"required"`
	UnitPrice     Amount `json:"unit_price" validate:"required"`
}

// Invoice is a validated request with its number and derived amounts.
type Invoice struct {
	Number        int64
	SubmittedOn   time.Time
	DeliveryDate  string
	VehicleNumber string
	Quantity      float64
	UnitPrice     float64
	Total         float64
	AmountInWords string
	Parties       Parties
}

// Result describes a generated invoice file.
type Result struct {
	Filename      string  `json:"filename"`
	Path          string  `json:"path"`
	InvoiceNumber int64   `json:"invoice_number"`
	Total         float64 `json:"total"`
	TotalText     string  `json:"total_text"`
	AmountInWords string  `json:"amount_in_words"`
	Size          int64   `json:"size"`
}

// FileInfo represents an invoice file in the output directory.
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Inspection is what can be read back from an invoice file.
type Inspection struct {
	Path          string            `json:"path"`
	Size          int64             `json:"size"`
	Pages         int               `json:"pages"`
	Valid         bool              `json:"valid"`
	Message       string            `json:"message,omitempty"`
	Title         string            `json:"title,omitempty"`
	Producer      string            `json:"producer,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Content       string            `json:"content"`
	InvoiceNumber string            `json:"invoice_number,omitempty"`
	AmountInWords string            `json:"amount_in_words,omitempty"`
}
