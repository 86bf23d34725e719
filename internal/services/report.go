package services

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/xuri/excelize/v2"
)

// InvoicesSheet is the sheet name of the invoice export.
const InvoicesSheet = "Facturas"

// ReportService builds spreadsheet exports.
type ReportService struct {
	billing *BillingService
}

func NewReportService(billing *BillingService) *ReportService {
	return &ReportService{billing: billing}
}

// ExportInvoices writes every invoice, newest first, as an XLSX workbook.
func (s *ReportService) ExportInvoices(ctx context.Context, w io.Writer) error {
	invoices, err := s.billing.ListInvoices(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Printf("xlsx close: %v", cerr)
		}
	}()
	if err := f.SetSheetName("Sheet1", InvoicesSheet); err != nil {
		return internal("xlsx sheet", err)
	}

	header := []any{"Folio", "Fecha", "Cliente", "Subtotal", "IVA", "Total"}
	if err := f.SetSheetRow(InvoicesSheet, "A1", &header); err != nil {
		return internal("xlsx header", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return internal("xlsx style", err)
	}
	if err := f.SetCellStyle(InvoicesSheet, "A1", "F1", bold); err != nil {
		return internal("xlsx style", err)
	}

	for i, inv := range invoices {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return internal("xlsx cell", err)
		}
		row := []any{
			inv.ID,
			inv.Date.Format("2006-01-02"),
			inv.CustomerName,
			inv.Subtotal.InexactFloat64(),
			inv.Tax.InexactFloat64(),
			inv.Total.InexactFloat64(),
		}
		if err := f.SetSheetRow(InvoicesSheet, cell, &row); err != nil {
			return internal("xlsx row", err)
		}
	}
	if err := f.SetColWidth(InvoicesSheet, "C", "C", 32); err != nil {
		return internal("xlsx width", err)
	}

	if err := f.Write(w); err != nil {
		return ErrExportWrite.with(fmt.Errorf("write xlsx: %w", err), nil)
	}
	return nil
}
