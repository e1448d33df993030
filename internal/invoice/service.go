package invoice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/a3tai/invoicegen/internal/security"
	"github.com/a3tai/invoicegen/internal/words"
)

var invoiceFilePattern = regexp.MustCompile(`^Invoice_(\d+)\.pdf$`)

// Service is the entry point shared by the web, MCP and prompt front ends.
type Service struct {
	generator     *Generator
	inspector     *Inspector
	pathValidator *security.PathValidator
}

// NewService wires a generator to the inspector and path checks for its
// output directory.
func NewService(generator *Generator, maxFileSize int64) (*Service, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator cannot be nil")
	}
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("maxFileSize must be greater than 0")
	}

	pathValidator, err := security.NewPathValidator(generator.Directory())
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	return &Service{
		generator:     generator,
		inspector:     NewInspector(maxFileSize),
		pathValidator: pathValidator,
	}, nil
}

// Generate creates a new invoice.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	return s.generator.Generate(ctx, req)
}

// AmountInWords renders a whole-rupee amount.
func (s *Service) AmountInWords(amount int64) (string, error) {
	return words.Convert(amount)
}

// NextNumber reports the number the next invoice will get.
func (s *Service) NextNumber(ctx context.Context) (int64, error) {
	return s.generator.NextNumber(ctx)
}

// Parties returns the names printed on every invoice.
func (s *Service) Parties() Parties {
	return s.generator.Parties()
}

// Directory returns the absolute output directory.
func (s *Service) Directory() string {
	return s.pathValidator.ConfiguredDirectory()
}

// Locate resolves an invoice file name to its path, failing with
// ErrNotFound when the file is absent or is not named Invoice_<n>.pdf.
func (s *Service) Locate(name string) (string, error) {
	if !invoiceFilePattern.MatchString(name) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	path, err := s.pathValidator.ResolveName(name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return path, nil
}

// Inspect reads back an invoice, given either a bare file name from the
// output directory or a path inside it.
func (s *Service) Inspect(nameOrPath string) (*Inspection, error) {
	path := nameOrPath
	if filepath.Base(nameOrPath) == nameOrPath {
		resolved, err := s.Locate(nameOrPath)
		if err != nil {
			return nil, err
		}
		path = resolved
	} else if err := s.pathValidator.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.inspector.Inspect(path)
}

// List returns the invoice files in the output directory, newest number
// first.
func (s *Service) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.Directory())
	if err != nil {
		return nil, fmt.Errorf("cannot read invoice directory: %w", err)
	}

	type numbered struct {
		n    int64
		info FileInfo
	}
	var found []numbered
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := invoiceFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, numbered{n: n, info: FileInfo{
			Path:         filepath.Join(s.Directory(), entry.Name()),
			Name:         entry.Name(),
			Size:         fi.Size(),
			ModifiedTime: fi.ModTime().Format("2006-01-02 15:04:05"),
		}})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].n > found[j].n })

	files := make([]FileInfo, 0, len(found))
	for _, f := range found {
		files = append(files, f.info)
	}
	return files, nil
}
