package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"backend/internal/models"
	"backend/internal/repositories"
	"backend/internal/services"
)

func setupEmitterHandlerTest(t *testing.T) (*gorm.DB, *EmitterHandler, uuid.UUID) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Issuer{}, &models.SigningCredential{}))

	issuers := repositories.NewIssuerRepository(db)
	emitter := services.NewEmitterService(db, "master-key")
	handler := NewEmitterHandler(emitter, issuers)
	return db, handler, uuid.New()
}

func TestEmitterStatus_ReturnsNotFoundWhenNoCredentialUploaded(t *testing.T) {
	_, handler, issuerID := setupEmitterHandlerTest(t)

	router := gin.New()
	router.Use(fakeAuthContext(uuid.New(), issuerID))
	handler.RegisterRoutes(router.Group(""))

	req, _ := http.NewRequest(http.MethodGet, "/emitter/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEmitterStatus_ReturnsActiveCredential(t *testing.T) {
	db, handler, issuerID := setupEmitterHandlerTest(t)

	active := &models.SigningCredential{
		IssuerID:          issuerID,
		EncryptedP12:      []byte("ciphertext"),
		EncryptionIV:      []byte("0123456789012345"),
		EncryptedPassword: "iv:ct",
		SubjectCN:         "Comercial Demo S.A.",
		SubjectRUC:        "1792146739001",
		NotBefore:         time.Now().Add(-time.Hour),
		NotAfter:          time.Now().Add(365 * 24 * time.Hour),
		IsActive:          true,
	}
	require.NoError(t, db.Create(active).Error)

	router := gin.New()
	router.Use(fakeAuthContext(uuid.New(), issuerID))
	handler.RegisterRoutes(router.Group(""))

	req, _ := http.NewRequest(http.MethodGet, "/emitter/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Comercial Demo S.A.")
}

func TestEmitterUploadP12_RejectsMissingCertificateFile(t *testing.T) {
	db, handler, issuerID := setupEmitterHandlerTest(t)

	issuer := &models.Issuer{ID: issuerID, RUC: "1790011674001", LegalName: "Comercial Demo S.A.", MainAddress: "Av. Amazonas"}
	require.NoError(t, db.Create(issuer).Error)

	router := gin.New()
	router.Use(fakeAuthContext(uuid.New(), issuerID))
	handler.RegisterRoutes(router.Group(""))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("password", "s3cr3t"))
	require.NoError(t, writer.Close())

	req, _ := http.NewRequest(http.MethodPost, "/emitter/upload-p12", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmitterUploadP12_RejectsUnknownIssuer(t *testing.T) {
	_, handler, issuerID := setupEmitterHandlerTest(t)

	router := gin.New()
	router.Use(fakeAuthContext(uuid.New(), issuerID))
	handler.RegisterRoutes(router.Group(""))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("password", "s3cr3t"))
	part, err := writer.CreateFormFile("certificate", "cert.p12")
	require.NoError(t, err)
	_, err = part.Write([]byte("not a real pkcs12 container"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, _ := http.NewRequest(http.MethodPost, "/emitter/upload-p12", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}
