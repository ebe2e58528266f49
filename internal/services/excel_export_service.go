/*
Package services - Reporting Export

==============================================================================
FILE: internal/services/excel_export_service.go
==============================================================================

DESCRIPTION:
    Generates the issuer-facing accounting export: one workbook with a
    credit ledger movement sheet and an invoice history sheet, the
    reconciliation artifact issuers download to match this system's state
    against their own accounting software.

EXCEL TEMPLATE SPECIFICATIONS:

CreditLedger sheet (5 columns):
- Fecha: Entry timestamp (YYYY-MM-DD HH:MM)
- Delta: Balance change (+credit/-debit)
- Saldo: Balance after the entry
- Factura: Related invoice id, if any
- Motivo: Reason recorded at the time of the change

Facturas sheet (7 columns):
- Secuencial: Document sequence number
- ClaveAcceso: 49-digit access key
- Fecha: Issue date (YYYY-MM-DD)
- Cliente: Customer name
- Estado: Current settlement status
- Total: Invoice total
- Autorizacion: Authorization number, if authorized

==============================================================================
*/
package services

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"backend/internal/models"
	"backend/internal/repositories"
)

// ExcelExportService builds the issuer-facing credit/invoice reconciliation
// workbook.
type ExcelExportService struct {
	db       *gorm.DB
	invoices *repositories.InvoiceRepository
	ledgers  *repositories.CreditLedgerRepository
}

// NewExcelExportService creates a new Excel export service.
func NewExcelExportService(db *gorm.DB, invoices *repositories.InvoiceRepository, ledgers *repositories.CreditLedgerRepository) *ExcelExportService {
	return &ExcelExportService{db: db, invoices: invoices, ledgers: ledgers}
}

// GenerateIssuerReport builds the credit ledger + invoice history workbook
// for one issuer, returning the raw .xlsx bytes.
func (s *ExcelExportService) GenerateIssuerReport(issuerID uuid.UUID) ([]byte, error) {
	entries, err := s.ledgers.Entries(issuerID, 5000)
	if err != nil {
		return nil, fmt.Errorf("loading credit ledger entries: %w", err)
	}

	invoices, err := s.invoices.History(issuerID, "", 5000, 0)
	if err != nil {
		return nil, fmt.Errorf("loading invoice history: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeCreditLedgerSheet(f, entries); err != nil {
		return nil, err
	}
	if err := writeInvoiceHistorySheet(f, invoices); err != nil {
		return nil, err
	}

	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeCreditLedgerSheet(f *excelize.File, entries []models.CreditLedgerEntry) error {
	const sheet = "CreditLedger"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Fecha", "Delta", "Saldo", "Factura", "Motivo"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for i, entry := range entries {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), entry.CreatedAt.Format("2006-01-02 15:04"))
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), entry.Delta)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), entry.BalanceAfter)
		if entry.InvoiceID != nil {
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), entry.InvoiceID.String())
		}
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), entry.Reason)
	}

	return nil
}

func writeInvoiceHistorySheet(f *excelize.File, invoices []models.Invoice) error {
	const sheet = "Facturas"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Secuencial", "ClaveAcceso", "Fecha", "Cliente", "Estado", "Total", "Autorizacion"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for i, invoice := range invoices {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), invoice.Sequence)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), invoice.AccessKey)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), invoice.IssueDate.Format("2006-01-02"))
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), invoice.CustomerName)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), string(invoice.Status))
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), invoice.TotalAmount)
		if invoice.AuthorizationNumber != nil {
			f.SetCellValue(sheet, fmt.Sprintf("G%d", row), *invoice.AuthorizationNumber)
		}
	}

	return nil
}
