/*
Package api - Public Document Retrieval HTTP Handlers

==============================================================================
FILE: internal/api/public_handler.go
==============================================================================

DESCRIPTION:
    Unauthenticated document retrieval by access key, mirroring the
    authority's own public "consulta de comprobantes" pattern: anyone
    holding the 49-digit clave de acceso printed on a receipt can fetch its
    RIDE PDF or signed XML, without needing an account.

ENDPOINTS:
    GET /public/pdf/:claveAcceso - stream the RIDE PDF
    GET /public/xml/:claveAcceso - stream the signed XML

==============================================================================
*/
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperr "backend/internal/errors"
	"backend/internal/repositories"
	"backend/internal/services"
)

// PublicHandler serves signed artifacts by access key with no auth
// required, matching the authority's own public document lookup.
type PublicHandler struct {
	invoices  *repositories.InvoiceRepository
	artifacts *services.ArtifactStore
}

// NewPublicHandler creates a new public document handler.
func NewPublicHandler(invoices *repositories.InvoiceRepository, artifacts *services.ArtifactStore) *PublicHandler {
	return &PublicHandler{invoices: invoices, artifacts: artifacts}
}

// RegisterRoutes registers unauthenticated document retrieval routes.
func (h *PublicHandler) RegisterRoutes(router *gin.RouterGroup) {
	public := router.Group("/public")
	{
		public.GET("/pdf/:claveAcceso", h.PDF)
		public.GET("/xml/:claveAcceso", h.XML)
	}
}

// PDF streams an invoice's RIDE PDF.
func (h *PublicHandler) PDF(c *gin.Context) {
	h.stream(c, "application/pdf", func(invoice *repositories.InvoiceRepository, accessKey string) (string, error) {
		inv, err := invoice.FindByAccessKey(accessKey)
		if err != nil {
			return "", err
		}
		return inv.RideKey, nil
	})
}

// XML streams an invoice's signed XML.
func (h *PublicHandler) XML(c *gin.Context) {
	h.stream(c, "application/xml", func(invoice *repositories.InvoiceRepository, accessKey string) (string, error) {
		inv, err := invoice.FindByAccessKey(accessKey)
		if err != nil {
			return "", err
		}
		return inv.SignedXMLKey, nil
	})
}

func (h *PublicHandler) stream(c *gin.Context, contentType string, resolve func(*repositories.InvoiceRepository, string) (string, error)) {
	accessKey := c.Param("claveAcceso")
	if !services.VerifyAccessKey(accessKey) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Access Key"})
		return
	}

	path, err := resolve(h.invoices, accessKey)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found", "message": "invoice not found"})
		return
	}

	bucket, key, ok := strings.Cut(path, "/")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found", "message": "artifact not yet available"})
		return
	}

	obj, err := h.artifacts.Get(c.Request.Context(), bucket, key)
	if err != nil {
		status := apperr.GetHTTPStatus(apperr.ErrArtifactNotFound)
		c.JSON(status, gin.H{"error": "Not Found", "message": "artifact not found"})
		return
	}
	defer obj.Close()

	c.DataFromReader(http.StatusOK, -1, contentType, obj, nil)
}
