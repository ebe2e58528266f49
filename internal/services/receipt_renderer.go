package services

import (
	"bytes"
	"fmt"
	"image/png"
	"io"

	"backend/internal/errors"
	"backend/internal/models/enums"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

const sriConsultationURLBase = "https://srienlinea.sri.gob.ec/comprobantes-electronicos-internet/pages/consultas/facturaElectronica.jsf?claveAccesoConsultar="

// ReceiptInvoice carries the fields the RIDE needs, independent of the
// persistence model so the renderer can be unit tested without a database.
type ReceiptInvoice struct {
	IssuerLegalName   string
	IssuerRUC         string
	IssuerAddress     string
	EstablishmentCode string
	EmissionPointCode string
	Sequential        int64
	AccessKey         string
	IssueDate         string // already formatted dd/mm/yyyy
	Status            enums.InvoiceStatus
	AuthorizationNo   string
	AuthorizedAt      string
	CustomerName      string
	CustomerIDType    string
	CustomerIDNumber  string
	Lines             []LineDetail
	Summary           TaxSummary
}

const (
	rideHeaderR, rideHeaderG, rideHeaderB = 20, 60, 110
	ridePendingR, ridePendingG, ridePendingB = 200, 30, 30
)

// RenderRIDE streams an A4 PDF "representación impresa" of the invoice. The
// authorization block shows the pending banner in red until the invoice has
// reached InvoiceStatusAuthorized, after which it shows the authorization
// number and timestamp.
func RenderRIDE(w io.Writer, inv ReceiptInvoice) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFillColor(rideHeaderR, rideHeaderG, rideHeaderB)
	pdf.Rect(0, 0, 210, 28, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 16)
	pdf.SetXY(10, 6)
	pdf.Cell(140, 8, inv.IssuerLegalName)
	pdf.SetFont("Arial", "", 9)
	pdf.SetXY(10, 15)
	pdf.Cell(140, 5, inv.IssuerAddress)
	pdf.SetXY(10, 20)
	pdf.Cell(140, 5, fmt.Sprintf("RUC: %s", inv.IssuerRUC))
	pdf.SetTextColor(0, 0, 0)

	drawAuthorizationBlock(pdf, inv)
	drawCustomerBlock(pdf, inv)
	drawLineItemTable(pdf, inv)
	drawTotalsBlock(pdf, inv)

	if err := drawQRCode(pdf, inv.AccessKey); err != nil {
		return err
	}

	pdf.SetXY(10, 280)
	pdf.SetFont("Arial", "I", 7)
	pdf.SetTextColor(128, 128, 128)
	pdf.Cell(190, 4, fmt.Sprintf("Clave de acceso: %s", inv.AccessKey))

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, errors.ErrInternal)
	}
	return nil
}

func drawAuthorizationBlock(pdf *gofpdf.Fpdf, inv ReceiptInvoice) {
	pdf.SetXY(150, 6)
	pdf.SetFont("Arial", "B", 8)
	pdf.SetDrawColor(0, 0, 0)
	pdf.Rect(150, 30, 50, 26, "D")

	pdf.SetXY(151, 32)
	pdf.SetFont("Arial", "B", 8)
	pdf.Cell(48, 4, fmt.Sprintf("FACTURA %s-%s", inv.EstablishmentCode, inv.EmissionPointCode))
	pdf.SetXY(151, 37)
	pdf.SetFont("Arial", "", 7)
	pdf.Cell(48, 4, fmt.Sprintf("No. %03s-%03s-%09d", inv.EstablishmentCode, inv.EmissionPointCode, inv.Sequential))

	pdf.SetXY(151, 43)
	if inv.Status == enums.InvoiceStatusAuthorized {
		pdf.SetTextColor(0, 100, 0)
		pdf.SetFont("Arial", "B", 7)
		pdf.Cell(48, 4, "AUTORIZADO")
		pdf.SetXY(151, 48)
		pdf.SetFont("Arial", "", 6)
		pdf.Cell(48, 4, fmt.Sprintf("Núm: %s", inv.AuthorizationNo))
		pdf.SetXY(151, 52)
		pdf.Cell(48, 4, fmt.Sprintf("Fecha: %s", inv.AuthorizedAt))
	} else {
		pdf.SetTextColor(ridePendingR, ridePendingG, ridePendingB)
		pdf.SetFont("Arial", "B", 8)
		pdf.Cell(48, 4, "PENDIENTE DE AUTORIZACIÓN")
	}
	pdf.SetTextColor(0, 0, 0)
}

func drawCustomerBlock(pdf *gofpdf.Fpdf, inv ReceiptInvoice) {
	y := 62.0
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(240, 240, 240)
	pdf.SetXY(10, y)
	pdf.CellFormat(190, 6, "DATOS DEL CLIENTE", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 8)
	pdf.SetXY(10, pdf.GetY())
	pdf.CellFormat(95, 6, fmt.Sprintf("Razón Social: %s", inv.CustomerName), "1", 0, "L", false, 0, "")
	pdf.CellFormat(95, 6, fmt.Sprintf("Identificación: %s %s", inv.CustomerIDType, inv.CustomerIDNumber), "1", 1, "L", false, 0, "")
	pdf.CellFormat(95, 6, fmt.Sprintf("Fecha de Emisión: %s", inv.IssueDate), "1", 1, "L", false, 0, "")
}

func drawLineItemTable(pdf *gofpdf.Fpdf, inv ReceiptInvoice) {
	y := pdf.GetY() + 4
	pdf.SetXY(10, y)
	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(20, 7, "Cant.", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Código", "1", 0, "C", true, 0, "")
	pdf.CellFormat(75, 7, "Descripción", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "P. Unit.", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Desc.", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "P. Total", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 8)
	for _, line := range inv.Lines {
		pdf.SetXY(10, pdf.GetY())
		pdf.CellFormat(20, 6, formatQuantity(line.Cantidad), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, line.ProductCode, "1", 0, "C", false, 0, "")
		pdf.CellFormat(75, 6, line.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, formatMoney(line.PrecioUnit), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, formatMoney(line.Descuento), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, formatMoney(line.LineTotal), "1", 1, "R", false, 0, "")
	}
}

func drawTotalsBlock(pdf *gofpdf.Fpdf, inv ReceiptInvoice) {
	y := pdf.GetY() + 4
	pdf.SetXY(120, y)
	pdf.SetFont("Arial", "", 9)
	rows := []struct {
		label string
		value float64
	}{
		{"Subtotal sin impuestos", inv.Summary.TotalSinImpuestos},
		{"Descuento", inv.Summary.TotalDescuento},
		{"IVA", inv.Summary.TotalIVA},
	}
	for _, r := range rows {
		pdf.SetX(120)
		pdf.CellFormat(50, 6, r.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, formatMoney(r.value), "1", 1, "R", false, 0, "")
		pdf.SetX(120)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.SetX(120)
	pdf.SetFillColor(rideHeaderR, rideHeaderG, rideHeaderB)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(50, 7, "VALOR TOTAL", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, formatMoney(inv.Summary.ImporteTotal), "1", 1, "R", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

// drawQRCode encodes the SRI public consultation URL for this access key
// and embeds it in the lower-left corner of the page.
func drawQRCode(pdf *gofpdf.Fpdf, accessKey string) error {
	qr, err := qrcode.New(sriConsultationURLBase+accessKey, qrcode.Medium)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal)
	}
	img := qr.Image(256)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return errors.Wrap(err, errors.ErrInternal)
	}

	pdf.RegisterImageOptionsReader("qr-"+accessKey, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
	pdf.ImageOptions("qr-"+accessKey, 10, 250, 30, 30, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	return nil
}
