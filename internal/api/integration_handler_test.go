package api

import (
	"bytes"
	"encoding/json"
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
	"backend/internal/repositories"
)

func setupIntegrationHandlerTest(t *testing.T) (*gorm.DB, *IntegrationHandler) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Invoice{}, &models.InvoiceLine{}))

	invoices := repositories.NewInvoiceRepository(db)
	// Emit is not exercised here for the same reason as InvoiceHandler.Emit:
	// it needs a real signing credential and artifact store.
	handler := NewIntegrationHandler(nil, invoices)
	return db, handler
}

func TestIntegrationStatus_ReturnsCurrentSettlementState(t *testing.T) {
	db, handler := setupIntegrationHandlerTest(t)

	authNumber := "1234567890"
	invoice := testInvoiceForIssuer(uuid.New(), 1)
	invoice.AccessKey = strings.Repeat("7", 49)
	invoice.AuthorizationNumber = &authNumber
	require.NoError(t, db.Create(invoice).Error)

	router := gin.New()
	handler.RegisterRoutes(router.Group(""))

	req, _ := http.NewRequest(http.MethodGet, "/integrations/status/"+invoice.AccessKey, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), authNumber)
}

func TestIntegrationStatus_ReturnsNotFoundForUnknownKey(t *testing.T) {
	_, handler := setupIntegrationHandlerTest(t)

	router := gin.New()
	handler.RegisterRoutes(router.Group(""))

	req, _ := http.NewRequest(http.MethodGet, "/integrations/status/"+strings.Repeat("8", 49), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestIntegrationValidate_ReportsCheckDigitValidity(t *testing.T) {
	_, handler := setupIntegrationHandlerTest(t)

	router := gin.New()
	handler.RegisterRoutes(router.Group(""))

	validKey := validTestAccessKey(t)
	body, _ := json.Marshal(map[string]string{"clave_acceso": validKey})
	req, _ := http.NewRequest(http.MethodPost, "/integrations/validate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Valid bool `json:"valid"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Valid)
}

func TestIntegrationValidate_RejectsWrongLengthKey(t *testing.T) {
	_, handler := setupIntegrationHandlerTest(t)

	router := gin.New()
	handler.RegisterRoutes(router.Group(""))

	body, _ := json.Marshal(map[string]string{"clave_acceso": "123"})
	req, _ := http.NewRequest(http.MethodPost, "/integrations/validate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
