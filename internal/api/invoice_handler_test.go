package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"backend/internal/models"
	"backend/internal/models/enums"
	"backend/internal/repositories"
	"backend/internal/services"
)

func setupInvoiceHandlerTest(t *testing.T) (*gorm.DB, *InvoiceHandler, uuid.UUID) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.CreditLedger{},
		&models.CreditLedgerEntry{},
	))

	invoices := repositories.NewInvoiceRepository(db)
	ledgers := repositories.NewCreditLedgerRepository(db)
	export := services.NewExcelExportService(db, invoices, ledgers)

	// Emit is not exercised here: IssuanceService needs a real signing
	// credential and artifact store, so the handler is built with a nil
	// issuance service and only History/Export are tested.
	handler := NewInvoiceHandler(nil, invoices, export)
	return db, handler, uuid.New()
}

func TestHistory_ReturnsOnlyCallerIssuerInvoicesNewestFirst(t *testing.T) {
	db, handler, issuerID := setupInvoiceHandlerTest(t)

	older := testInvoiceForIssuer(issuerID, 1)
	older.AccessKey = strings.Repeat("1", 49)
	require.NoError(t, db.Create(older).Error)

	newer := testInvoiceForIssuer(issuerID, 2)
	newer.AccessKey = strings.Repeat("2", 49)
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	require.NoError(t, db.Create(newer).Error)

	other := testInvoiceForIssuer(uuid.New(), 1)
	other.AccessKey = strings.Repeat("3", 49)
	require.NoError(t, db.Create(other).Error)

	router := gin.New()
	router.Use(fakeAuthContext(uuid.New(), issuerID))
	handler.RegisterRoutes(router.Group(""))

	req, _ := http.NewRequest(http.MethodGet, "/invoices/history", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), newer.AccessKey)
	require.Contains(t, w.Body.String(), older.AccessKey)
	require.NotContains(t, w.Body.String(), other.AccessKey)
}

func TestHistory_FiltersByStatus(t *testing.T) {
	db, handler, issuerID := setupInvoiceHandlerTest(t)

	signed := testInvoiceForIssuer(issuerID, 1)
	signed.AccessKey = strings.Repeat("4", 49)
	signed.Status = enums.InvoiceStatusSigned
	require.NoError(t, db.Create(signed).Error)

	authorized := testInvoiceForIssuer(issuerID, 2)
	authorized.AccessKey = strings.Repeat("5", 49)
	authorized.Status = enums.InvoiceStatusAuthorized
	require.NoError(t, db.Create(authorized).Error)

	router := gin.New()
	router.Use(fakeAuthContext(uuid.New(), issuerID))
	handler.RegisterRoutes(router.Group(""))

	req, _ := http.NewRequest(http.MethodGet, "/invoices/history?status=authorized", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), authorized.AccessKey)
	require.NotContains(t, w.Body.String(), signed.AccessKey)
}

func TestExport_ReturnsWorkbookForIssuerWithLedger(t *testing.T) {
	db, handler, issuerID := setupInvoiceHandlerTest(t)

	ledger := &models.CreditLedger{IssuerID: issuerID, Balance: 100}
	require.NoError(t, db.Create(ledger).Error)

	invoice := testInvoiceForIssuer(issuerID, 1)
	invoice.AccessKey = strings.Repeat("6", 49)
	require.NoError(t, db.Create(invoice).Error)

	router := gin.New()
	router.Use(fakeAuthContext(uuid.New(), issuerID))
	handler.RegisterRoutes(router.Group(""))

	req, _ := http.NewRequest(http.MethodGet, "/invoices/export", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	require.NotEmpty(t, w.Body.Bytes())
}

func testInvoiceForIssuer(issuerID uuid.UUID, sequence int64) *models.Invoice {
	return &models.Invoice{
		IssuerID:         issuerID,
		EstablishmentID:  uuid.New(),
		EmissionPointID:  uuid.New(),
		DocumentType:     enums.DocumentTypeFactura,
		Sequence:         sequence,
		Environment:      enums.EnvironmentTest,
		Status:           enums.InvoiceStatusSigned,
		CustomerName:     "Juan Perez",
		CustomerIDType:   "05",
		CustomerIDNumber: "1713175071",
		TotalAmount:      115,
		IssueDate:        time.Now(),
		DebitPolicy:      enums.DebitPolicyOnAuthorization,
		LastActionAt:     time.Now(),
	}
}
