package invoice

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// standardInfoKeys are document info entries that are not custom properties.
var standardInfoKeys = map[string]bool{
	"Title":        true,
	"Author":       true,
	"Subject":      true,
	"Keywords":     true,
	"Creator":      true,
	"Producer":     true,
	"CreationDate": true,
	"ModDate":      true,
	"Trapped":      true,
}

// Inspector reads generated invoices back.
type Inspector struct {
	maxFileSize int64
	maxTextSize int
}

// NewInspector creates an Inspector refusing files above maxFileSize bytes.
func NewInspector(maxFileSize int64) *Inspector {
	return &Inspector{
		maxFileSize: maxFileSize,
		maxTextSize: 1024 * 1024,
	}
}

// Inspect validates the file at path and extracts its page count,
// properties and text. A file that fails validation is reported with
// Valid=false and a message rather than an error.
func (in *Inspector) Inspect(path string) (*Inspection, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return nil, fmt.Errorf("file is not a PDF: %s", path)
	}
	if fileInfo.Size() > in.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d bytes)", fileInfo.Size(), in.maxFileSize)
	}

	result := &Inspection{
		Path: path,
		Size: fileInfo.Size(),
	}

	if err := in.validate(path); err != nil {
		result.Message = err.Error()
		return result, nil
	}
	result.Valid = true

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	result.Pages = r.NumPage()
	result.Content = in.extractText(r)
	in.extractInfo(r, result)

	return result, nil
}

// validate runs pdfcpu's relaxed validation over the file.
func (in *Inspector) validate(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open file: %w", err)
	}
	defer f.Close()

	if err := api.Validate(f, pdfcpuConfig()); err != nil {
		return fmt.Errorf("invalid PDF file: %w", err)
	}
	return nil
}

func (in *Inspector) extractText(r *pdf.Reader) string {
	var builder strings.Builder
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if builder.Len()+len(content) > in.maxTextSize {
			builder.WriteString(truncateUTF8(content, in.maxTextSize-builder.Len()))
			break
		}
		builder.WriteString(content)
		if pageNum < r.NumPage() {
			builder.WriteString("\n")
		}
	}
	return builder.String()
}

// extractInfo copies the document info dictionary into result.
func (in *Inspector) extractInfo(r *pdf.Reader, result *Inspection) {
	defer func() {
		// Malformed info dictionaries panic inside the parser; the text
		// and page count are still useful without them.
		_ = recover()
	}()

	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return
	}

	result.Title = strings.TrimSpace(info.Key("Title").Text())
	result.Producer = strings.TrimSpace(info.Key("Producer").Text())

	for _, key := range info.Keys() {
		if standardInfoKeys[key] {
			continue
		}
		if result.Properties == nil {
			result.Properties = make(map[string]string)
		}
		result.Properties[key] = info.Key(key).Text()
	}

	result.InvoiceNumber = result.Properties[PropInvoiceNumber]
	result.AmountInWords = result.Properties[PropAmountInWords]
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
