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
	"backend/internal/services"
)

func setupKeysHandlerTest(t *testing.T) (*gorm.DB, *KeysHandler, uuid.UUID) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ApiKey{}))

	svc := services.NewApiKeyService(db)
	handler := NewKeysHandler(svc)
	return db, handler, uuid.New()
}

func TestKeysCreate_ReturnsPlaintextOnceAndPersistsHashOnly(t *testing.T) {
	db, handler, issuerID := setupKeysHandlerTest(t)

	router := gin.New()
	router.Use(fakeAuthContext(uuid.New(), issuerID))
	handler.RegisterRoutes(router.Group(""))

	body, _ := json.Marshal(map[string]string{"name": "n8n flow"})
	req, _ := http.NewRequest(http.MethodPost, "/keys", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "kp_live_")

	var rows []models.ApiKey
	require.NoError(t, db.Where("issuer_id = ?", issuerID).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.NotContains(t, w.Body.String(), rows[0].HashedKey)
}

func TestKeysList_OnlyReturnsCallerIssuerKeys(t *testing.T) {
	db, handler, issuerID := setupKeysHandlerTest(t)

	require.NoError(t, db.Create(&models.ApiKey{IssuerID: issuerID, Name: "mine", Prefix: "kp_live_aaaa", HashedKey: "hash-a"}).Error)
	require.NoError(t, db.Create(&models.ApiKey{IssuerID: uuid.New(), Name: "theirs", Prefix: "kp_live_bbbb", HashedKey: "hash-b"}).Error)

	router := gin.New()
	router.Use(fakeAuthContext(uuid.New(), issuerID))
	handler.RegisterRoutes(router.Group(""))

	req, _ := http.NewRequest(http.MethodGet, "/keys", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "mine")
	require.NotContains(t, w.Body.String(), "theirs")
}

func TestKeysRevoke_RejectsKeyBelongingToAnotherIssuer(t *testing.T) {
	db, handler, issuerID := setupKeysHandlerTest(t)

	foreign := &models.ApiKey{IssuerID: uuid.New(), Name: "theirs", Prefix: "kp_live_cccc", HashedKey: "hash-c"}
	require.NoError(t, db.Create(foreign).Error)

	router := gin.New()
	router.Use(fakeAuthContext(uuid.New(), issuerID))
	handler.RegisterRoutes(router.Group(""))

	req, _ := http.NewRequest(http.MethodDelete, "/keys/"+foreign.ID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)

	var reloaded models.ApiKey
	require.NoError(t, db.First(&reloaded, "id = ?", foreign.ID).Error)
	require.Nil(t, reloaded.RevokedAt)
}

func TestKeysRevoke_RevokesOwnKey(t *testing.T) {
	db, handler, issuerID := setupKeysHandlerTest(t)

	mine := &models.ApiKey{IssuerID: issuerID, Name: "mine", Prefix: "kp_live_dddd", HashedKey: "hash-d"}
	require.NoError(t, db.Create(mine).Error)

	router := gin.New()
	router.Use(fakeAuthContext(uuid.New(), issuerID))
	handler.RegisterRoutes(router.Group(""))

	req, _ := http.NewRequest(http.MethodDelete, "/keys/"+mine.ID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.ApiKey
	require.NoError(t, db.First(&reloaded, "id = ?", mine.ID).Error)
	require.NotNil(t, reloaded.RevokedAt)
}
