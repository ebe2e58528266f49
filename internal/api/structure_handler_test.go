package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"backend/internal/models"
	"backend/internal/repositories"
)

// fakeAuthContext stands in for AuthMiddleware.RequireAuth in handler tests
// that only need the issuer/user identity the middleware would have set,
// not its token-validation logic (covered separately in middleware tests).
func fakeAuthContext(userID, issuerID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userEmail", "dashboard@example.com")
		c.Set("issuerID", issuerID)
		c.Next()
	}
}

func setupStructureHandlerTest(t *testing.T) (*gorm.DB, *StructureHandler, uuid.UUID) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Establishment{}, &models.EmissionPoint{}))

	repo := repositories.NewStructureRepository(db)
	handler := NewStructureHandler(repo)
	return db, handler, uuid.New()
}

func TestCreateEstablishment_PersistsUnderCallerIssuer(t *testing.T) {
	db, handler, issuerID := setupStructureHandlerTest(t)

	router := gin.New()
	router.Use(fakeAuthContext(uuid.New(), issuerID))
	handler.RegisterRoutes(router.Group(""))

	body, _ := json.Marshal(map[string]string{"code": "001", "address": "Av. Amazonas N34-451"})
	req, _ := http.NewRequest(http.MethodPost, "/structure/establishments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var rows []models.Establishment
	require.NoError(t, db.Where("issuer_id = ?", issuerID).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, "001", rows[0].Code)
}

func TestCreateEmissionPoint_RejectsUnknownEstablishmentCode(t *testing.T) {
	_, handler, issuerID := setupStructureHandlerTest(t)

	router := gin.New()
	router.Use(fakeAuthContext(uuid.New(), issuerID))
	handler.RegisterRoutes(router.Group(""))

	body, _ := json.Marshal(map[string]string{"code": "001"})
	req, _ := http.NewRequest(http.MethodPost, "/structure/establishments/999/points", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTree_ReturnsEstablishmentsWithNestedEmissionPoints(t *testing.T) {
	db, handler, issuerID := setupStructureHandlerTest(t)

	establishment := &models.Establishment{IssuerID: issuerID, Code: "001", Address: "Av. Amazonas", IsActive: true}
	require.NoError(t, db.Create(establishment).Error)
	point := &models.EmissionPoint{EstablishmentID: establishment.ID, Code: "001", IsActive: true, NextInvoiceSeq: 5}
	require.NoError(t, db.Create(point).Error)

	router := gin.New()
	router.Use(fakeAuthContext(uuid.New(), issuerID))
	handler.RegisterRoutes(router.Group(""))

	req, _ := http.NewRequest(http.MethodGet, "/structure/tree", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Establishments []struct {
			Code           string `json:"code"`
			EmissionPoints []struct {
				Code           string `json:"code"`
				NextInvoiceSeq int64  `json:"next_invoice_sequence"`
			} `json:"emission_points"`
		} `json:"establishments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Establishments, 1)
	require.Equal(t, "001", resp.Establishments[0].Code)
	require.Len(t, resp.Establishments[0].EmissionPoints, 1)
	require.Equal(t, int64(5), resp.Establishments[0].EmissionPoints[0].NextInvoiceSeq)
}
