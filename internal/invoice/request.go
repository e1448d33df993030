package invoice

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/a3tai/invoicegen/internal/words"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims surrounding whitespace from every field.
func (r Request) Normalize() Request {
	r.DeliveryDate = strings.TrimSpace(r.DeliveryDate)
	r.VehicleNumber = strings.TrimSpace(r.VehicleNumber)
	r.Quantity = Amount(strings.TrimSpace(r.Quantity.String()))
	r.UnitPrice = Amount(strings.TrimSpace(r.UnitPrice.String()))
	return r
}

// Validate reports ErrMissingField for empty fields and ErrInvalidNumber
// for quantities or prices that are not non-negative decimals.
func (r Request) Validate() error {
	r = r.Normalize()

	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("cannot validate request: %w", err)
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(fields, ", "))
	}

	if _, err := parseAmount("quantity", r.Quantity.String()); err != nil {
		return err
	}
	if _, err := parseAmount("unit_price", r.UnitPrice.String()); err != nil {
		return err
	}
	return nil
}

// NewInvoice validates req and derives the invoice printed under number.
func NewInvoice(req Request, number int64, submittedOn time.Time, parties Parties) (*Invoice, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.Normalize()

	quantity, err := parseAmount("quantity", req.Quantity.String())
	if err != nil {
		return nil, err
	}
	unitPrice, err := parseAmount("unit_price", req.UnitPrice.String())
	if err != nil {
		return nil, err
	}

	total := quantity * unitPrice
	amountInWords, err := words.ConvertTotal(total)
	if err != nil {
		return nil, fmt.Errorf("%w: total %v: %w", ErrInvalidNumber, total, err)
	}

	return &Invoice{
		Number:        number,
		SubmittedOn:   submittedOn,
		DeliveryDate:  req.DeliveryDate,
		VehicleNumber: req.VehicleNumber,
		Quantity:      quantity,
		UnitPrice:     unitPrice,
		Total:         total,
		AmountInWords: amountInWords,
		Parties:       parties,
	}, nil
}

// parseAmount parses a non-negative finite decimal.
func parseAmount(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidNumber, field, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative number, got %q", ErrInvalidNumber, field, s)
	}
	return v, nil
}
