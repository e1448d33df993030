package invoice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/invoicegen/internal/sequence"
)

const (
	invoiceFilePerm = 0o640
	tempFilePattern = ".invoice-*.tmp"
)

// Generator turns requests into numbered invoice files in one directory.
type Generator struct {
	mu      sync.Mutex
	dir     string
	seq     sequence.Sequence
	parties Parties
	now     func() time.Time
	logger  *zap.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithParties overrides the names printed on invoices.
func WithParties(p Parties) GeneratorOption {
	return func(g *Generator) {
		g.parties = p
	}
}

// WithClock overrides the submission time source.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// WithLogger sets the logger used for generation events.
func WithLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = l
	}
}

// NewGenerator creates a Generator writing into dir and numbering from seq.
func NewGenerator(dir string, seq sequence.Sequence, opts ...GeneratorOption) (*Generator, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}
	if seq == nil {
		return nil, fmt.Errorf("sequence cannot be nil")
	}

	g := &Generator{
		dir:     dir,
		seq:     seq,
		parties: DefaultParties(),
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Directory returns the output directory.
func (g *Generator) Directory() string {
	return g.dir
}

// Parties returns the names printed on invoices.
func (g *Generator) Parties() Parties {
	return g.parties
}

// NextNumber reports the number the next successful Generate will use.
func (g *Generator) NextNumber(ctx context.Context) (int64, error) {
	return g.seq.Peek(ctx)
}

// Generate renders req under the next invoice number and stores it as
// Invoice_<n>.pdf. The PDF is written to a temporary file first and only
// linked into place after the number is committed; an existing invoice is
// never replaced.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	number, err := g.seq.Peek(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot read invoice number: %w", err)
	}

	inv, err := NewInvoice(req, number, g.now(), g.parties)
	if err != nil {
		return nil, err
	}

	var rendered bytes.Buffer
	if err := Render(&rendered, inv); err != nil {
		return nil, err
	}
	data, err := Stamp(rendered.Bytes(), inv)
	if err != nil {
		return nil, err
	}

	name := FileName(number)
	path := filepath.Join(g.dir, name)
	tmp, err := g.writeTemp(data)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			g.logger.Warn("cannot remove temporary invoice", zap.String("path", tmp), zap.Error(rmErr))
		}
	}()

	committed, err := g.seq.Next(ctx)
	if err == nil && committed != number {
		err = fmt.Errorf("%w: rendered %d, sequence issued %d", ErrSequenceConflict, number, committed)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot commit invoice number %d: %w", number, err)
	}

	// Link fails when the name exists, so a committed invoice is never replaced.
	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s already exists", ErrSequenceConflict, name)
		}
		return nil, fmt.Errorf("cannot write invoice %s: %w", path, err)
	}

	g.logger.Info("invoice generated",
		zap.Int64("invoice_number", number),
		zap.String("file", name),
		zap.Float64("total", inv.Total),
		zap.Int("size", len(data)),
	)

	return &Result{
		Filename:      name,
		Path:          path,
		InvoiceNumber: number,
		Total:         inv.Total,
		TotalText:     FormatCurrency(inv.Total),
		AmountInWords: inv.AmountInWords,
		Size:          int64(len(data)),
	}, nil
}

// writeTemp stores data under a hidden temporary name in the output
// directory and returns its path.
func (g *Generator) writeTemp(data []byte) (string, error) {
	f, err := os.CreateTemp(g.dir, tempFilePattern)
	if err != nil {
		return "", fmt.Errorf("cannot create temporary invoice in %s: %w", g.dir, err)
	}
	tmp := f.Name()

	_, err = f.Write(data)
	if err == nil {
		err = f.Chmod(invoiceFilePerm)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("cannot write temporary invoice %s: %w", tmp, err)
	}
	return tmp, nil
}
