package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"backend/internal/models"
	"backend/internal/repositories"
)

func setupAdminHandlerTest(t *testing.T) (*gorm.DB, *AdminHandler) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Issuer{}, &models.CreditLedger{}, &models.CreditLedgerEntry{}))

	issuers := repositories.NewIssuerRepository(db)
	ledgers := repositories.NewCreditLedgerRepository(db)
	handler := NewAdminHandler(issuers, ledgers)
	return db, handler
}

func TestAdminTopup_RejectsUnknownRUC(t *testing.T) {
	_, handler := setupAdminHandlerTest(t)

	router := gin.New()
	handler.RegisterRoutes(router.Group(""))

	body, _ := json.Marshal(map[string]interface{}{
		"issuer_ruc": "1790011674001",
		"amount":     100,
		"reason":     "manual grant",
	})
	req, _ := http.NewRequest(http.MethodPost, "/admin/credits/topup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminTopup_RejectsMalformedRUC(t *testing.T) {
	_, handler := setupAdminHandlerTest(t)

	router := gin.New()
	handler.RegisterRoutes(router.Group(""))

	body, _ := json.Marshal(map[string]interface{}{
		"issuer_ruc": "123",
		"amount":     100,
		"reason":     "manual grant",
	})
	req, _ := http.NewRequest(http.MethodPost, "/admin/credits/topup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminTopup_RejectsZeroAmount(t *testing.T) {
	db, handler := setupAdminHandlerTest(t)

	issuer := &models.Issuer{RUC: "1790011674001", LegalName: "Comercial Demo S.A.", MainAddress: "Av. Amazonas"}
	require.NoError(t, db.Create(issuer).Error)

	router := gin.New()
	handler.RegisterRoutes(router.Group(""))

	body, _ := json.Marshal(map[string]interface{}{
		"issuer_ruc": issuer.RUC,
		"amount":     0,
		"reason":     "manual grant",
	})
	req, _ := http.NewRequest(http.MethodPost, "/admin/credits/topup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
