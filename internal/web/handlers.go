package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/a3tai/invoicegen/internal/invoice"
)

const maxBodyBytes = 1 << 20

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// InvoiceService is the part of invoice.Service the HTTP handlers use.
type InvoiceService interface {
	Generate(ctx context.Context, req invoice.Request) (*invoice.Result, error)
	AmountInWords(amount int64) (string, error)
	Locate(name string) (string, error)
	NextNumber(ctx context.Context) (int64, error)
	Parties() invoice.Parties
}

type handlers struct {
	service InvoiceService
	now     func() time.Time
}

type indexData struct {
	Today         string
	NextNumber    int64
	BillTo        string
	PayableTo     string
	ReservedLines int
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) error {
	next, err := h.service.NextNumber(r.Context())
	if err != nil {
		return InternalServerError("cannot read invoice sequence").WithInternalError(err)
	}

	parties := h.service.Parties()
	data := indexData{
		Today:         h.now().Format("2006-01-02"),
		NextNumber:    next,
		BillTo:        parties.BillTo,
		PayableTo:     parties.PayableTo,
		ReservedLines: invoice.ReservedHeaderLines,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		requestLogger(r).Error("failed to render form", zap.Error(err))
	}
	return nil
}

// generateForm handles the HTML form and answers with the PDF itself.
func (h *handlers) generateForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid form submission").WithInternalError(err)
	}

	req := invoice.Request{
		DeliveryDate:  r.PostFormValue("delivery_date"),
		VehicleNumber: r.PostFormValue("vehicle_number"),
		Quantity:      invoice.Amount(r.PostFormValue("quantity")),
		UnitPrice:     invoice.Amount(r.PostFormValue("unit_price")),
	}

	result, err := h.generate(r.Context(), req, "All fields are required")
	if err != nil {
		return err
	}

	return sendAttachment(w, r, result.Path, result.Filename)
}

type generateResponse struct {
	Success       bool   `json:"success"`
	Filename      string `json:"filename"`
	DownloadURL   string `json:"download_url"`
	InvoiceNumber int64  `json:"invoice_number"`
}

func (h *handlers) apiGenerate(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req invoice.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return BadRequestError("Invalid JSON body").WithInternalError(err)
	}

	result, err := h.generate(r.Context(), req, "Missing required fields")
	if err != nil {
		return err
	}

	return sendJSON(w, http.StatusOK, generateResponse{
		Success:       true,
		Filename:      result.Filename,
		DownloadURL:   "/download/" + result.Filename,
		InvoiceNumber: result.InvoiceNumber,
	})
}

// generate maps invoice errors to HTTP errors. missingMsg is the client
// message for absent fields, which differs between the form and the API.
func (h *handlers) generate(ctx context.Context, req invoice.Request, missingMsg string) (*invoice.Result, error) {
	result, err := h.service.Generate(ctx, req)
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, invoice.ErrMissingField):
		return nil, BadRequestError("%s", missingMsg).WithInternalError(err)
	case errors.Is(err, invoice.ErrInvalidNumber):
		return nil, BadRequestError("%s", err.Error()).WithInternalError(err)
	default:
		return nil, err
	}
}

func (h *handlers) download(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "filename")

	path, err := h.service.Locate(name)
	if err != nil {
		if errors.Is(err, invoice.ErrNotFound) {
			return NotFoundError("File not found").WithInternalError(err)
		}
		return err
	}

	return sendAttachment(w, r, path, name)
}

type wordsResponse struct {
	Amount int64  `json:"amount"`
	Words  string `json:"words"`
}

func (h *handlers) amountInWords(w http.ResponseWriter, r *http.Request) error {
	amount, err := strconv.ParseInt(chi.URLParam(r, "amount"), 10, 64)
	if err != nil {
		return BadRequestError("Amount must be a whole number").WithInternalError(err)
	}

	text, err := h.service.AmountInWords(amount)
	if err != nil {
		return BadRequestError("%s", err.Error()).WithInternalError(err)
	}

	return sendJSON(w, http.StatusOK, wordsResponse{Amount: amount, Words: text})
}

func healthz(w http.ResponseWriter, _ *http.Request) error {
	return sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
