package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"backend/internal/models"
	"backend/internal/models/enums"
	"backend/internal/repositories"
)

func setupWorkerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Issuer{},
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.CreditLedger{},
		&models.CreditLedgerEntry{},
		&models.CallerProfile{},
	))
	return db
}

func newTestWorker(db *gorm.DB) *SettlementWorker {
	log := logrus.New()
	log.SetOutput(nopWriter{})
	return NewSettlementWorker(
		db,
		repositories.NewInvoiceRepository(db),
		repositories.NewCreditLedgerRepository(db),
		repositories.NewIssuerRepository(db),
		repositories.NewStructureRepository(db),
		NewNotifier(db, log),
		nil,
		map[enums.Environment]string{enums.EnvironmentTest: "https://celcer.test/reception"},
		map[enums.Environment]string{enums.EnvironmentTest: "https://celcer.test/authorization"},
		"test-master-secret",
		log,
	)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func testInvoice(environment enums.Environment) *models.Invoice {
	return &models.Invoice{
		IssuerID:        uuid.New(),
		EstablishmentID: uuid.New(),
		EmissionPointID: uuid.New(),
		DocumentType:    enums.DocumentTypeFactura,
		Sequence:        1,
		AccessKey:       strings.Repeat("1", 49),
		Environment:     environment,
		Status:          enums.InvoiceStatusSigned,
		CustomerName:    "Juan Perez",
		CustomerIDType:  "05",
		CustomerIDNumber: "1713175071",
		TotalAmount:     115,
		IssueDate:       time.Now(),
		DebitPolicy:     enums.DebitPolicyOnAuthorization,
		LastActionAt:    time.Now(),
	}
}

func TestBuildReceptionEnvelope_EscapesAndWrapsSignedXML(t *testing.T) {
	envelope := buildReceptionEnvelope([]byte(`<factura>&<tag/></factura>`))

	s := string(envelope)
	require.Contains(t, s, "soapenv:Envelope")
	require.Contains(t, s, "validarComprobante")
	require.NotContains(t, s, "<factura>&<tag/></factura>")
	require.Contains(t, s, "&lt;factura&gt;")
}

func TestBuildAuthorizationEnvelope_CarriesAccessKey(t *testing.T) {
	envelope := buildAuthorizationEnvelope(strings.Repeat("9", 49))

	s := string(envelope)
	require.Contains(t, s, "autorizacionComprobante")
	require.Contains(t, s, strings.Repeat("9", 49))
}

func TestParseReceptionResponse_AcceptsRecibida(t *testing.T) {
	body := []byte(`<Body><RespuestaSolicitud><estado>RECIBIDA</estado></RespuestaSolicitud></Body>`)

	accepted, _, err := parseReceptionResponse(body)
	require.NoError(t, err)
	require.True(t, accepted)
}

func TestParseReceptionResponse_RejectsNonRecibida(t *testing.T) {
	body := []byte(`<Body><RespuestaSolicitud><estado>DEVUELTA</estado></RespuestaSolicitud></Body>`)

	accepted, _, err := parseReceptionResponse(body)
	require.NoError(t, err)
	require.False(t, accepted)
}

func TestParseAuthorizationResponse_ExtractsAuthorizedFields(t *testing.T) {
	body := []byte(`<Body><RespuestaAutorizacionComprobante><autorizaciones><autorizacion>` +
		`<estado>AUTORIZADO</estado><numeroAutorizacion>1234567890</numeroAutorizacion>` +
		`<fechaAutorizacion>2026-03-15T10:00:00Z</fechaAutorizacion>` +
		`<comprobante>&lt;factura&gt;stamped&lt;/factura&gt;</comprobante>` +
		`</autorizacion></autorizaciones></RespuestaAutorizacionComprobante></Body>`)

	authorized, number, at, authorizedXML, _, err := parseAuthorizationResponse(body)
	require.NoError(t, err)
	require.True(t, authorized)
	require.Equal(t, "1234567890", number)
	require.Equal(t, 2026, at.Year())
	require.Equal(t, "<factura>stamped</factura>", string(authorizedXML))
}

func TestParseAuthorizationResponse_NotAuthorized(t *testing.T) {
	body := []byte(`<Body><RespuestaAutorizacionComprobante><autorizaciones><autorizacion>` +
		`<estado>NO AUTORIZADO</estado></autorizacion></autorizaciones></RespuestaAutorizacionComprobante></Body>`)

	authorized, _, _, authorizedXML, _, err := parseAuthorizationResponse(body)
	require.NoError(t, err)
	require.False(t, authorized)
	require.Empty(t, authorizedXML)
}

func TestRetryOrFail_IncrementsRetryCountWithoutTrippingStatus(t *testing.T) {
	db := setupWorkerTestDB(t)
	w := newTestWorker(db)

	invoice := testInvoice(enums.EnvironmentTest)
	require.NoError(t, db.Create(invoice).Error)

	w.retryOrFail(db, invoice, "transient failure")

	require.Equal(t, 1, invoice.RetryCount)
	require.Equal(t, enums.InvoiceStatusSigned, invoice.Status)
}

func TestRetryOrFail_MovesToErrorAfterMaxRetries(t *testing.T) {
	db := setupWorkerTestDB(t)
	w := newTestWorker(db)

	invoice := testInvoice(enums.EnvironmentTest)
	invoice.RetryCount = maxRetries - 1
	require.NoError(t, db.Create(invoice).Error)

	w.retryOrFail(db, invoice, "final failure")

	require.Equal(t, maxRetries, invoice.RetryCount)
	require.Equal(t, enums.InvoiceStatusError, invoice.Status)
}

func TestMarkError_SetsErrorStatusAndMessage(t *testing.T) {
	db := setupWorkerTestDB(t)
	w := newTestWorker(db)

	invoice := testInvoice(enums.EnvironmentTest)
	require.NoError(t, db.Create(invoice).Error)

	w.markError(db, invoice, "no endpoint configured")

	require.Equal(t, enums.InvoiceStatusError, invoice.Status)
	require.Equal(t, "no endpoint configured", invoice.SRIMessages)

	var reloaded models.Invoice
	require.NoError(t, db.First(&reloaded, "id = ?", invoice.ID).Error)
	require.Equal(t, enums.InvoiceStatusError, reloaded.Status)
}

func TestAuthorizedXMLKey_NamespacesByRUCAndAccessKey(t *testing.T) {
	key := authorizedXMLKey("1793000000001", strings.Repeat("9", 49))
	require.Equal(t, "authorized/1793000000001/"+strings.Repeat("9", 49)+".xml", key)
}

func TestAuthorizeOne_MarksErrorWhenNoAuthorizationEndpointConfigured(t *testing.T) {
	db := setupWorkerTestDB(t)
	w := newTestWorker(db)

	invoice := testInvoice(enums.EnvironmentProd) // no URL configured for prod in this test worker
	invoice.Status = enums.InvoiceStatusReceived
	require.NoError(t, db.Create(invoice).Error)

	w.authorizeOne(db, invoice)

	require.Equal(t, enums.InvoiceStatusError, invoice.Status)
}

func TestSubmitOne_MarksErrorWhenNoReceptionEndpointConfigured(t *testing.T) {
	db := setupWorkerTestDB(t)
	w := newTestWorker(db)

	invoice := testInvoice(enums.EnvironmentProd) // no URL configured for prod in this test worker
	require.NoError(t, db.Create(invoice).Error)

	w.submitOne(db, invoice)

	require.Equal(t, enums.InvoiceStatusError, invoice.Status)
}
