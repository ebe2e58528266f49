package services

import (
	"bytes"
	"strings"
	"testing"

	"backend/internal/models/enums"

	"github.com/stretchr/testify/require"
)

func sampleReceiptInvoice(status enums.InvoiceStatus) ReceiptInvoice {
	return ReceiptInvoice{
		IssuerLegalName:   "ACME SA",
		IssuerRUC:         "1790011674001",
		IssuerAddress:     "Av. Principal y Secundaria",
		EstablishmentCode: "001",
		EmissionPointCode: "001",
		Sequential:        42,
		AccessKey:         strings.Repeat("1", 49),
		IssueDate:         "15/03/2026",
		Status:            status,
		AuthorizationNo:   strings.Repeat("1", 49),
		AuthorizedAt:      "15/03/2026 10:00:00",
		CustomerName:      "Juan Perez",
		CustomerIDType:    "05",
		CustomerIDNumber:  "1713175071",
		Lines: []LineDetail{
			{ProductCode: "SKU-1", Description: "widget", Cantidad: 2, PrecioUnit: 10, LineTotal: 23},
		},
		Summary: TaxSummary{TotalSinImpuestos: 20, TotalIVA: 3, ImporteTotal: 23},
	}
}

func TestRenderRIDE_ProducesNonEmptyPDF(t *testing.T) {
	var buf bytes.Buffer
	err := RenderRIDE(&buf, sampleReceiptInvoice(enums.InvoiceStatusSigned))
	require.NoError(t, err)
	require.True(t, buf.Len() > 0)
	require.Equal(t, "%PDF", buf.String()[:4])
}

func TestRenderRIDE_AuthorizedInvoiceRenders(t *testing.T) {
	var buf bytes.Buffer
	err := RenderRIDE(&buf, sampleReceiptInvoice(enums.InvoiceStatusAuthorized))
	require.NoError(t, err)
	require.True(t, buf.Len() > 0)
}
