// Package pdf renders invoice receipts on a Letter page at fixed coordinates.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
)

// Page geometry in points. Baselines are given from the bottom of the page
// and converted with top().
const (
	pageHeight   = 792.0
	bottomLimit  = pageHeight - 60
	contTop      = 72.0
	rowStep      = 20.0
	obsLineStep  = 15.0
	obsWrapWidth = 80
)

var columns = [5]float64{50, 150, 200, 350, 450}

// description column ends where the unit price column starts
const descWidth = 145.0

func top(y float64) float64 { return pageHeight - y }

// Party is the billed customer as printed on the receipt.
type Party struct {
	Name    string
	TaxID   string
	Address string
}

// Item is one table row.
type Item struct {
	Code        string
	Quantity    int
	Description string
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// InvoiceData is everything printed on a receipt.
type InvoiceData struct {
	Number       string
	Date         time.Time
	Customer     Party
	Items        []Item
	Observations string
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
}

// FileName is the receipt file name for an invoice number.
func FileName(number string) string {
	return "factura_" + number + ".pdf"
}

// InvoicePDF renders the receipt and returns the PDF bytes.
func InvoicePDF(data InvoiceData) ([]byte, error) {
	doc, err := render(data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders the receipt into dir, creating dir when missing, and
// returns the written path.
func WriteFile(dir string, data InvoiceData) (string, error) {
	b, err := InvoicePDF(data)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create invoices dir: %w", err)
	}
	path := filepath.Join(dir, FileName(data.Number))
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

type renderer struct {
	doc  *gofpdf.Fpdf
	tr   func(string) string
	data InvoiceData
	y    float64
}

func render(data InvoiceData) (*gofpdf.Fpdf, error) {
	if data.Number == "" {
		return nil, errors.New("invoice number required")
	}
	doc := gofpdf.New("P", "pt", "Letter", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetTitle("Factura "+data.Number, true)
	doc.SetCreator("facturacion", true)

	r := &renderer{doc: doc, tr: doc.UnicodeTranslatorFromDescriptor(""), data: data}
	r.firstPage()
	for _, it := range data.Items {
		r.row(it)
	}
	r.summary()

	if doc.Err() {
		return nil, fmt.Errorf("render invoice %s: %w", data.Number, doc.Error())
	}
	return doc, nil
}

func (r *renderer) text(x, y float64, s string) {
	r.doc.Text(x, y, r.tr(s))
}

func (r *renderer) firstPage() {
	d := r.data
	r.doc.AddPage()
	r.doc.SetFont("Helvetica", "B", 16)
	r.text(50, top(750), "FACTURA")
	r.text(450, top(750), "Folio: "+d.Number)

	date := d.Date
	if date.IsZero() {
		date = time.Now()
	}
	r.doc.SetFont("Helvetica", "", 12)
	r.text(50, top(730), "Fecha: "+date.Format("2006-01-02"))

	r.text(50, top(700), "Cliente: "+d.Customer.Name)
	r.text(50, top(680), "RUT: "+d.Customer.TaxID)
	r.text(50, top(660), "Dirección: "+d.Customer.Address)

	r.tableHeader(top(600))
}

// continuation starts a new page headed with the folio.
func (r *renderer) continuation(withTable bool) {
	r.doc.AddPage()
	r.doc.SetFont("Helvetica", "B", 12)
	r.text(50, contTop-30, fmt.Sprintf("FACTURA Folio %s (continuación)", r.data.Number))
	if withTable {
		r.tableHeader(contTop)
		return
	}
	r.y = contTop
}

func (r *renderer) tableHeader(y float64) {
	r.doc.SetFont("Helvetica", "B", 10)
	for i, label := range []string{"Código", "Cant.", "Descripción", "P.Unit", "Total"} {
		r.text(columns[i], y, label)
	}
	r.doc.SetLineWidth(0.5)
	r.doc.Line(columns[0], y+5, 560, y+5)
	r.y = y + rowStep
}

func (r *renderer) row(it Item) {
	if r.y > bottomLimit {
		r.continuation(true)
	}
	r.doc.SetFont("Helvetica", "", 10)
	r.text(columns[0], r.y, it.Code)
	r.text(columns[1], r.y, fmt.Sprintf("%d", it.Quantity))
	r.text(columns[2], r.y, r.fit(it.Description, descWidth))
	r.text(columns[3], r.y, Money(it.UnitPrice))
	r.text(columns[4], r.y, Money(it.Total))
	r.y += rowStep
}

// fit truncates s with "..." so that it renders within width points.
func (r *renderer) fit(s string, width float64) string {
	if r.doc.GetStringWidth(r.tr(s)) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		cand := string(runes) + "..."
		if r.doc.GetStringWidth(r.tr(cand)) <= width {
			return cand
		}
	}
	return ""
}

func (r *renderer) summary() {
	obs := WrapText(r.data.Observations, obsWrapWidth)

	// Short invoices keep the summary at its fixed place near the bottom.
	fixed := top(200)
	height := 2 * rowStep
	if len(obs) > 0 {
		fixed = top(240)
		height += 2*rowStep + float64(len(obs))*obsLineStep
	}
	start := r.y + 10
	if start < fixed {
		start = fixed
	}
	if start+height > bottomLimit {
		r.continuation(false)
		start = r.y
	}

	if len(obs) > 0 {
		r.doc.SetFont("Helvetica", "B", 10)
		r.text(50, start, "Observaciones:")
		r.doc.SetFont("Helvetica", "", 10)
		y := start + rowStep
		for _, line := range obs {
			if y > bottomLimit {
				r.continuation(false)
				r.doc.SetFont("Helvetica", "", 10)
				y = r.y
			}
			r.text(50, y, line)
			y += obsLineStep
		}
		start = y + rowStep
	}
	if start+2*rowStep > bottomLimit {
		r.continuation(false)
		start = r.y
	}

	r.doc.SetFont("Helvetica", "", 12)
	r.text(350, start, "Subtotal: "+Money(r.data.Subtotal))
	r.text(350, start+rowStep, "IVA (19%): "+Money(r.data.Tax))
	r.doc.SetFont("Helvetica", "B", 12)
	r.text(350, start+2*rowStep, "Total: "+Money(r.data.Total))
}
