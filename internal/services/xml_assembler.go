package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"backend/internal/errors"
	"backend/internal/models/enums"

	"github.com/beevik/etree"
)

// FacturaComprobanteID is the fixed id the signature's enveloped-document
// Reference points back at via //*[@id='comprobante'].
const FacturaComprobanteID = "comprobante"

const facturaVersion = "1.1.0"

// IssuerInfo carries the tax-identity fields that populate infoTributaria.
type IssuerInfo struct {
	RUC                string
	LegalName          string
	TradeName          string
	MainAddress        string
	Environment        enums.Environment
	AccountingRequired bool
	SpecialTaxpayer    string // empty if not a special taxpayer
}

// EmissionInfo carries the establishment/emission-point/sequence triple
// baked into both infoTributaria and the access key.
type EmissionInfo struct {
	EstablishmentCode string // 3 digits
	EmissionPointCode string // 3 digits
	EstablishmentAddr string
	Sequence          int64
	AccessKey         string // 49 digits, already computed
	IssueDate         time.Time
}

// CustomerInfo carries the buyer-facing fields of infoFactura.
type CustomerInfo struct {
	Name     string
	IDType   string
	IDNumber string
	Email    string
}

// AssembleFacturaXML builds the unsigned factura document: root `factura`
// with the mandatory id="comprobante"/version="1.1.0" attributes, and the
// infoTributaria/infoFactura/detalles/infoAdicional subtrees. The returned
// bytes have not been canonicalized or signed.
func AssembleFacturaXML(issuer IssuerInfo, emission EmissionInfo, customer CustomerInfo, taxes *TaxCalculationResult) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	factura := doc.CreateElement("factura")
	factura.CreateAttr("id", FacturaComprobanteID)
	factura.CreateAttr("version", facturaVersion)

	buildInfoTributaria(factura, issuer, emission)
	buildInfoFactura(factura, issuer, emission, customer, taxes)
	buildDetalles(factura, taxes)
	buildInfoAdicional(factura, customer)

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal)
	}

	return patchComprobanteID(buf.Bytes())
}

func buildInfoTributaria(factura *etree.Element, issuer IssuerInfo, emission EmissionInfo) {
	info := factura.CreateElement("infoTributaria")
	info.CreateElement("ambiente").SetText(string(issuer.Environment))
	info.CreateElement("tipoEmision").SetText("1")
	info.CreateElement("razonSocial").SetText(issuer.LegalName)
	if issuer.TradeName != "" {
		info.CreateElement("nombreComercial").SetText(issuer.TradeName)
	}
	info.CreateElement("ruc").SetText(issuer.RUC)
	info.CreateElement("claveAcceso").SetText(emission.AccessKey)
	info.CreateElement("codDoc").SetText(string(enums.DocumentTypeFactura))
	info.CreateElement("estab").SetText(emission.EstablishmentCode)
	info.CreateElement("ptoEmi").SetText(emission.EmissionPointCode)
	info.CreateElement("secuencial").SetText(fmt.Sprintf("%09d", emission.Sequence))
	info.CreateElement("dirMatriz").SetText(issuer.MainAddress)
}

func buildInfoFactura(factura *etree.Element, issuer IssuerInfo, emission EmissionInfo, customer CustomerInfo, taxes *TaxCalculationResult) {
	info := factura.CreateElement("infoFactura")
	info.CreateElement("fechaEmision").SetText(emission.IssueDate.Format("02/01/2006"))
	info.CreateElement("dirEstablecimiento").SetText(emission.EstablishmentAddr)
	if issuer.SpecialTaxpayer != "" {
		info.CreateElement("contribuyenteEspecial").SetText(issuer.SpecialTaxpayer)
	}
	if issuer.AccountingRequired {
		info.CreateElement("obligadoContabilidad").SetText("SI")
	} else {
		info.CreateElement("obligadoContabilidad").SetText("NO")
	}
	info.CreateElement("tipoIdentificacionComprador").SetText(customer.IDType)
	info.CreateElement("razonSocialComprador").SetText(customer.Name)
	info.CreateElement("identificacionComprador").SetText(customer.IDNumber)
	info.CreateElement("totalSinImpuestos").SetText(formatMoney(taxes.Summary.TotalSinImpuestos))
	info.CreateElement("totalDescuento").SetText(formatMoney(taxes.Summary.TotalDescuento))

	totalConImpuestos := info.CreateElement("totalConImpuestos")
	for _, agg := range taxes.Aggregates {
		t := totalConImpuestos.CreateElement("totalImpuesto")
		t.CreateElement("codigo").SetText(agg.Codigo)
		t.CreateElement("codigoPorcentaje").SetText(string(agg.CodigoPorcentaje))
		t.CreateElement("baseImponible").SetText(formatMoney(agg.BaseImponible))
		t.CreateElement("valor").SetText(formatMoney(agg.Valor))
	}

	info.CreateElement("propina").SetText("0.00")
	info.CreateElement("importeTotal").SetText(formatMoney(taxes.Summary.ImporteTotal))
	info.CreateElement("moneda").SetText("DOLAR")
}

func buildDetalles(factura *etree.Element, taxes *TaxCalculationResult) {
	detalles := factura.CreateElement("detalles")
	for _, line := range taxes.Lines {
		d := detalles.CreateElement("detalle")
		d.CreateElement("codigoPrincipal").SetText(line.ProductCode)
		d.CreateElement("descripcion").SetText(line.Description)
		d.CreateElement("cantidad").SetText(formatQuantity(line.Cantidad))
		d.CreateElement("precioUnitario").SetText(formatMoney(line.PrecioUnit))
		d.CreateElement("descuento").SetText(formatMoney(line.Descuento))
		d.CreateElement("precioTotalSinImpuesto").SetText(formatMoney(line.Base))

		impuestos := d.CreateElement("impuestos")
		imp := impuestos.CreateElement("impuesto")
		imp.CreateElement("codigo").SetText("2")
		imp.CreateElement("codigoPorcentaje").SetText(string(line.TaxCode))
		imp.CreateElement("tarifa").SetText(formatQuantity(line.TarifaIVA))
		imp.CreateElement("baseImponible").SetText(formatMoney(line.Base))
		imp.CreateElement("valor").SetText(formatMoney(line.Valor))
	}
}

func buildInfoAdicional(factura *etree.Element, customer CustomerInfo) {
	if customer.Email == "" {
		return
	}
	infoAdicional := factura.CreateElement("infoAdicional")
	campo := infoAdicional.CreateElement("campoAdicional")
	campo.CreateAttr("nombre", "email")
	campo.SetText(customer.Email)
}

func formatMoney(v float64) string {
	return fmt.Sprintf("%.2f", round2(v))
}

func formatQuantity(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// patchComprobanteID is a defensive safeguard: if for any reason the
// serialized root element is missing id="comprobante" (a requirement the
// signature depends on via //*[@id='comprobante']), patch the opening tag
// in place rather than emit an unsignable document.
func patchComprobanteID(xmlBytes []byte) ([]byte, error) {
	out := string(xmlBytes)
	openTagStart := strings.Index(out, "<factura")
	if openTagStart == -1 {
		return nil, errors.ErrInternal.WithMessage("assembled document has no factura root element")
	}
	openTagEnd := strings.Index(out[openTagStart:], ">")
	if openTagEnd == -1 {
		return nil, errors.ErrInternal.WithMessage("assembled document has a malformed factura opening tag")
	}
	openTag := out[openTagStart : openTagStart+openTagEnd]

	if strings.Contains(openTag, `id="`+FacturaComprobanteID+`"`) {
		return xmlBytes, nil
	}

	patched := strings.Replace(openTag, "<factura", `<factura id="`+FacturaComprobanteID+`"`, 1)
	return []byte(out[:openTagStart] + patched + out[openTagStart+openTagEnd:]), nil
}
