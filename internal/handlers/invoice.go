package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/diewo77/facturacion/httpx"
	"github.com/diewo77/facturacion/internal/services"
	"github.com/diewo77/facturacion/pdf"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type InvoiceHandler struct {
	billing *services.BillingService
	reports *services.ReportService
}

func NewInvoiceHandler(billing *services.BillingService, reports *services.ReportService) *InvoiceHandler {
	return &InvoiceHandler{billing: billing, reports: reports}
}

type draftRequest struct {
	CustomerID   uint                   `json:"customer_id"`
	Lines        []services.LineRequest `json:"lines"`
	Observations string                 `json:"observations"`
}

type draftResponse struct {
	Lines []services.LineItem `json:"lines"`
	services.Totals
}

// Preview prices the requested lines against current stock without writing.
func (h *InvoiceHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if !decode(w, r, &req) {
		return
	}
	d, err := h.billing.BuildDraft(r.Context(), req.Lines)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, draftResponse{Lines: d.Lines(), Totals: d.Totals()})
}

// Create drafts the requested lines, creates the invoice and writes its receipt.
// Any failure after commit still answers 201 with the id and pdf_error set.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if !decode(w, r, &req) {
		return
	}
	d, err := h.billing.BuildDraft(r.Context(), req.Lines)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	out, err := h.billing.Issue(r.Context(), services.InvoiceRequest{
		CustomerID:   req.CustomerID,
		Lines:        d.Lines(),
		Observations: req.Observations,
	})
	if err != nil {
		if out != nil {
			code := "internal_error"
			var se *services.Error
			if errors.As(err, &se) {
				code = se.Code
			}
			resp := map[string]any{"id": out.ID, "pdf_error": code}
			if !out.Total.IsZero() {
				resp["subtotal"] = out.Subtotal
				resp["tax"] = out.Tax
				resp["total"] = out.Total
			}
			httpx.JSON(w, http.StatusCreated, resp)
			return
		}
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, out)
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.billing.ListInvoices(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

func (h *InvoiceHandler) NextNumber(w http.ResponseWriter, r *http.Request) {
	n, err := h.billing.NextInvoiceNumber(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]uint{"next_number": n})
}

func (h *InvoiceHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.billing.GetInvoiceDetails(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// PDF re-renders the receipt of an existing invoice.
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b, err := h.billing.RenderReceipt(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.Attachment(w, "application/pdf", pdf.FileName(strconv.FormatUint(uint64(id), 10)), b)
}

func (h *InvoiceHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.reports.ExportInvoices(r.Context(), &buf); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.Attachment(w, xlsxContentType, "facturas.xlsx", buf.Bytes())
}
