package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

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

func setupPublicHandlerTest(t *testing.T) (*gorm.DB, *PublicHandler) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Invoice{}, &models.InvoiceLine{}))

	invoices := repositories.NewInvoiceRepository(db)
	handler := NewPublicHandler(invoices, nil)
	return db, handler
}

func TestPublicPDF_RejectsMalformedAccessKey(t *testing.T) {
	_, handler := setupPublicHandlerTest(t)

	router := gin.New()
	handler.RegisterRoutes(router.Group(""))

	req, _ := http.NewRequest(http.MethodGet, "/public/pdf/not-a-valid-key", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicPDF_ReturnsNotFoundForUnknownAccessKey(t *testing.T) {
	_, handler := setupPublicHandlerTest(t)

	router := gin.New()
	handler.RegisterRoutes(router.Group(""))

	validKey := validTestAccessKey(t)
	req, _ := http.NewRequest(http.MethodGet, "/public/pdf/"+validKey, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublicXML_ReturnsNotFoundWhenArtifactPathNotYetSet(t *testing.T) {
	db, handler := setupPublicHandlerTest(t)

	validKey := validTestAccessKey(t)
	invoice := &models.Invoice{
		IssuerID:         uuid.New(),
		EstablishmentID:  uuid.New(),
		EmissionPointID:  uuid.New(),
		DocumentType:     enums.DocumentTypeFactura,
		Sequence:         1,
		AccessKey:        validKey,
		Environment:      enums.EnvironmentTest,
		Status:           enums.InvoiceStatusSigned,
		CustomerName:     "Juan Perez",
		CustomerIDType:   "05",
		CustomerIDNumber: "1713175071",
		// SignedXMLKey intentionally left empty: artifact not yet uploaded.
	}
	require.NoError(t, db.Create(invoice).Error)

	router := gin.New()
	handler.RegisterRoutes(router.Group(""))

	req, _ := http.NewRequest(http.MethodGet, "/public/xml/"+validKey, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "not yet available")
}

// validTestAccessKey returns a 49-digit access key whose final digit is a
// correct modulo-11 check digit, since the public handler rejects anything
// else before ever touching the database.
func validTestAccessKey(t *testing.T) string {
	t.Helper()
	base := strings.Repeat("1", 48)
	for check := 0; check <= 9; check++ {
		candidate := base + string(rune('0'+check))
		if services.VerifyAccessKey(candidate) {
			return candidate
		}
	}
	t.Fatal("failed to construct a valid test access key")
	return ""
}
