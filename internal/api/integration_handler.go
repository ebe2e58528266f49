/*
Package api - Server-to-Server Integration HTTP Handlers

==============================================================================
FILE: internal/api/integration_handler.go
==============================================================================

DESCRIPTION:
    The X-API-Key-authenticated surface external systems (ERPs, POS
    integrations, n8n flows) call directly, instead of through the session-
    cookie dashboard. Emission shares request binding and response shaping
    with InvoiceHandler.Emit, but calls IssuanceService.IssueInvoice instead
    of EnqueueInvoice: a server-to-server caller expects FIRMADO (signed)
    back synchronously, debited eagerly, not a PENDIENTE row that a
    background worker picks up later.

ENDPOINTS:
    POST /integrations/invoice            - emit a new factura
    GET  /integrations/status/:claveAcceso - poll an invoice's current status
    POST /integrations/validate           - verify an access key's check digit

==============================================================================
*/
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"backend/internal/dtos"
	"backend/internal/repositories"
	"backend/internal/services"
)

// IntegrationHandler handles API-key-authenticated invoice operations.
type IntegrationHandler struct {
	issuance *services.IssuanceService
	invoices *repositories.InvoiceRepository
}

// NewIntegrationHandler creates a new integration handler.
func NewIntegrationHandler(issuance *services.IssuanceService, invoices *repositories.InvoiceRepository) *IntegrationHandler {
	return &IntegrationHandler{issuance: issuance, invoices: invoices}
}

// RegisterRoutes registers API-key-authenticated integration routes.
func (h *IntegrationHandler) RegisterRoutes(router *gin.RouterGroup) {
	integrations := router.Group("/integrations")
	{
		integrations.POST("/invoice", h.Emit)
		integrations.GET("/status/:claveAcceso", h.Status)
		integrations.POST("/validate", h.Validate)
	}
}

// Emit issues a new factura synchronously (signed, eager debit) on behalf
// of the API key's issuer.
func (h *IntegrationHandler) Emit(c *gin.Context) {
	issuerID, ok := c.Get("issuerID")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	req, bindErr := bindEmitRequest(c)
	if bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": bindErr.Error()})
		return
	}

	result, err := emitInvoice(c, h.issuance.IssueInvoice, issuerID.(uuid.UUID), req)
	if err != nil {
		respondEmitError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Status reports an invoice's current settlement status by access key.
func (h *IntegrationHandler) Status(c *gin.Context) {
	invoice, err := h.invoices.FindByAccessKey(c.Param("claveAcceso"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found", "message": "invoice not found"})
		return
	}

	c.JSON(http.StatusOK, dtos.InvoiceStatusResponse{
		ClaveAcceso:         invoice.AccessKey,
		Status:              string(invoice.Status),
		AuthorizationNumber: invoice.AuthorizationNumber,
		SRIMessages:         invoice.SRIMessages,
	})
}

// Validate checks an access key's modulo-11 check digit without touching
// the database, useful for a caller validating a key before submission.
func (h *IntegrationHandler) Validate(c *gin.Context) {
	var req dtos.ValidateAccessKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dtos.ValidateAccessKeyResponse{
		ClaveAcceso: req.ClaveAcceso,
		Valid:       services.VerifyAccessKey(req.ClaveAcceso),
	})
}
