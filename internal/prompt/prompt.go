// Package prompt implements the interactive command line invoice flow.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/a3tai/invoicegen/internal/invoice"
)

// Generator is the part of invoice.Service the prompt needs.
type Generator interface {
	Generate(ctx context.Context, req invoice.Request) (*invoice.Result, error)
}

// Prompt asks for the four invoice fields and reports the result.
type Prompt struct {
	gen     Generator
	scanner *bufio.Scanner
	out     io.Writer
}

// New returns a Prompt reading answers from in and writing to out.
func New(gen Generator, in io.Reader, out io.Writer) *Prompt {
	return &Prompt{
		gen:     gen,
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// Run collects one invoice and generates it. Numbers are asked again until
// they parse; input ending early is an error.
func (p *Prompt) Run(ctx context.Context) (*invoice.Result, error) {
	fmt.Fprintln(p.out, "=== Invoice Generator ===")
	fmt.Fprintf(p.out, "Note: PDF will have %d blank lines at the top\n", invoice.ReservedHeaderLines)
	fmt.Fprintln(p.out, "\nEnter invoice details:")

	deliveryDate, err := p.ask("Delivery Date (YYYY-MM-DD): ")
	if err != nil {
		return nil, err
	}
	vehicleNumber, err := p.ask("Vehicle Number: ")
	if err != nil {
		return nil, err
	}
	quantity, err := p.askNumber("Quantity (M/TON): ")
	if err != nil {
		return nil, err
	}
	unitPrice, err := p.askNumber("Unit Price (Rs): ")
	if err != nil {
		return nil, err
	}

	result, err := p.gen.Generate(ctx, invoice.Request{
		DeliveryDate:  deliveryDate,
		VehicleNumber: vehicleNumber,
		Quantity:      invoice.Amount(quantity),
		UnitPrice:     invoice.Amount(unitPrice),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice: %w", err)
	}

	fmt.Fprintf(p.out, "\nInvoice generated successfully: %s\n", result.Filename)
	fmt.Fprintf(p.out, "Invoice Number: %d\n", result.InvoiceNumber)
	fmt.Fprintf(p.out, "Total Amount: %s\n", result.TotalText)

	return result, nil
}

func (p *Prompt) ask(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

var errNotNumber = errors.New("please enter a non-negative number")

// askNumber repeats the question until the answer is a non-negative number.
func (p *Prompt) askNumber(label string) (string, error) {
	for {
		answer, err := p.ask(label)
		if err != nil {
			return "", err
		}
		if v, perr := strconv.ParseFloat(answer, 64); perr == nil && v >= 0 && !math.IsInf(v, 1) {
			return answer, nil
		}
		fmt.Fprintln(p.out, errNotNumber.Error())
	}
}
