/*
Package api - Emitter Configuration HTTP Handlers

==============================================================================
FILE: internal/api/emitter_handler.go
==============================================================================

DESCRIPTION:
    Dashboard-facing signing credential management: uploading a .p12 and
    reporting the currently active certificate's identity/expiry. Bearer
    (session cookie) auth only, scoped to the caller's own issuer.

ENDPOINTS:
    POST /emitter/upload-p12 - upload and activate a new signing credential
    GET  /emitter/status     - report the active signing credential

==============================================================================
*/
package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/dtos"
	apperr "backend/internal/errors"
	"backend/internal/middleware"
	"backend/internal/repositories"
	"backend/internal/services"
)

// EmitterHandler handles issuer signing-credential configuration.
type EmitterHandler struct {
	emitter *services.EmitterService
	issuers *repositories.IssuerRepository
}

// NewEmitterHandler creates a new emitter handler.
func NewEmitterHandler(emitter *services.EmitterService, issuers *repositories.IssuerRepository) *EmitterHandler {
	return &EmitterHandler{emitter: emitter, issuers: issuers}
}

// RegisterRoutes registers emitter configuration routes.
func (h *EmitterHandler) RegisterRoutes(router *gin.RouterGroup) {
	emitter := router.Group("/emitter")
	{
		emitter.POST("/upload-p12", h.UploadP12)
		emitter.GET("/status", h.Status)
	}
}

// UploadP12 accepts a multipart .p12 upload, validates it against the
// caller's issuer RUC, and activates it as the signing credential.
func (h *EmitterHandler) UploadP12(c *gin.Context) {
	var req dtos.UploadCredentialRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": err.Error()})
		return
	}

	_, _, issuerID, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	fileHeader, err := c.FormFile("certificate")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": "certificate file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": "could not open certificate file"})
		return
	}
	defer file.Close()

	p12Bytes, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": "could not read certificate file"})
		return
	}

	issuer, err := h.issuers.FindByID(issuerID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found", "message": "issuer not found"})
		return
	}

	result, err := h.emitter.UploadCredential(issuerID, issuer.RUC, p12Bytes, req.Password)
	if err != nil {
		status := apperr.GetHTTPStatus(err)
		c.JSON(status, gin.H{"error": "Upload Failed", "message": apperr.GetErrorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, dtos.CredentialStatusResponse{
		SubjectCN:  result.SubjectCN,
		SubjectRUC: result.SubjectRUC,
		NotBefore:  result.NotBefore,
		NotAfter:   result.NotAfter,
	})
}

// Status reports the caller's issuer's active signing credential.
func (h *EmitterHandler) Status(c *gin.Context) {
	_, _, issuerID, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.emitter.ActiveCredentialStatus(issuerID)
	if err != nil {
		status := apperr.GetHTTPStatus(err)
		c.JSON(status, gin.H{"error": "Not Found", "message": apperr.GetErrorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, dtos.CredentialStatusResponse{
		SubjectCN:  result.SubjectCN,
		SubjectRUC: result.SubjectRUC,
		NotBefore:  result.NotBefore,
		NotAfter:   result.NotAfter,
	})
}
