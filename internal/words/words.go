// Package words renders rupee amounts as English words on the Indian
// numbering scale (thousand, lakh, crore).
package words

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// Suffix terminates every non-zero rendering.
	Suffix = " Rupees Only"

	// Zero is returned for a zero amount, without Suffix.
	Zero = "Zero"

	thousand = 1_000
	lakh     = 100_000
	crore    = 10_000_000
)

// ErrInvalidInput is returned for amounts that cannot be rendered.
var ErrInvalidInput = errors.New("invalid amount")

var (
	ones = [...]string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine"}

	teens = [...]string{
		"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen",
		"Fifteen", "Sixteen", "Seventeen", "Eighteen", "Nineteen",
	}

	tens = [...]string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
)

// Convert renders a whole-rupee amount, e.g. 1234 becomes
// "One Thousand, Two Hundred Thirty Four Rupees Only".
//
// Zero renders as "Zero" with no suffix. Negative amounts fail with
// ErrInvalidInput.
func Convert(amount int64) (string, error) {
	if amount < 0 {
		return "", fmt.Errorf("%w: negative amount %d", ErrInvalidInput, amount)
	}
	if amount == 0 {
		return Zero, nil
	}
	return groups(amount) + Suffix, nil
}

// ConvertTotal truncates a currency total to whole rupees and converts it.
// Paise are discarded, never rounded.
func ConvertTotal(total float64) (string, error) {
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, total)
	}
	whole := math.Trunc(total)
	if whole < 0 {
		return "", fmt.Errorf("%w: negative total %v", ErrInvalidInput, total)
	}
	if whole >= math.MaxInt64 {
		return "", fmt.Errorf("%w: %v out of range", ErrInvalidInput, total)
	}
	return Convert(int64(whole))
}

// groups renders n > 0 as comma-separated magnitude groups, without Suffix.
func groups(n int64) string {
	parts := make([]string, 0, 4)
	if n >= crore {
		parts = append(parts, croreGroup(n/crore)+" Crore")
		n %= crore
	}
	if n >= lakh {
		parts = append(parts, hundreds(n/lakh)+" Lakh")
		n %= lakh
	}
	if n >= thousand {
		parts = append(parts, hundreds(n/thousand)+" Thousand")
		n %= thousand
	}
	if n > 0 {
		parts = append(parts, hundreds(n))
	}
	return strings.Join(parts, ", ")
}

// croreGroup renders the count of crores. Counts above 999 are themselves
// expressed in thousands, lakhs and crores.
func croreGroup(n int64) string {
	if n < thousand {
		return hundreds(n)
	}
	return groups(n)
}

// hundreds renders 0 <= n <= 999. A teen ends the rendering immediately.
func hundreds(n int64) string {
	out := make([]string, 0, 3)
	if n >= 100 {
		out = append(out, ones[n/100], "Hundred")
		n %= 100
	}
	switch {
	case n >= 20:
		out = append(out, tens[n/10])
		n %= 10
	case n >= 10:
		return strings.Join(append(out, teens[n-10]), " ")
	}
	if n > 0 {
		out = append(out, ones[n])
	}
	return strings.Join(out, " ")
}
