package services

import (
	"strings"
	"testing"
	"time"

	"backend/internal/models/enums"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"
)

func TestAssembleFacturaXML_HasComprobanteID(t *testing.T) {
	taxes, err := ComputeTaxes([]LineInput{
		{ProductCode: "SKU-1", Description: "widget", Cantidad: 1, PrecioUnit: 100, TarifaIVA: 15},
	}, false)
	require.NoError(t, err)

	xmlBytes, err := AssembleFacturaXML(
		IssuerInfo{RUC: "1790011674001", LegalName: "ACME SA", Environment: enums.EnvironmentTest, MainAddress: "Av. Principal"},
		EmissionInfo{EstablishmentCode: "001", EmissionPointCode: "001", EstablishmentAddr: "Av. Principal", Sequence: 1, AccessKey: strings.Repeat("1", 49), IssueDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		CustomerInfo{Name: "Juan Perez", IDType: "05", IDNumber: "1713175071"},
		taxes,
	)
	require.NoError(t, err)
	require.Contains(t, string(xmlBytes), `id="comprobante"`)
	require.Contains(t, string(xmlBytes), `version="1.1.0"`)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(xmlBytes))
	root := doc.Root()
	require.Equal(t, "factura", root.Tag)
	require.Equal(t, "comprobante", root.SelectAttrValue("id", ""))
	require.NotNil(t, root.FindElement("infoTributaria/claveAcceso"))
	require.NotNil(t, root.FindElement("detalles/detalle"))
}

func TestPatchComprobanteID_AddsMissingAttribute(t *testing.T) {
	patched, err := patchComprobanteID([]byte(`<factura version="1.1.0"><infoTributaria/></factura>`))
	require.NoError(t, err)
	require.Contains(t, string(patched), `id="comprobante"`)
}
