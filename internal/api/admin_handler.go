/*
Package api - Internal Automation HTTP Handlers

==============================================================================
FILE: internal/api/admin_handler.go
==============================================================================

DESCRIPTION:
    Endpoints gated behind the shared X-N8N-Key secret rather than issuer
    session auth: administrative credit grants driven by an internal
    billing/ops automation flow, not by issuers themselves.

ENDPOINTS:
    POST /admin/credits/topup - grant credits to an issuer by RUC

==============================================================================
*/
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/dtos"
	apperr "backend/internal/errors"
	"backend/internal/repositories"
)

// AdminHandler handles internal-automation-only administrative operations.
type AdminHandler struct {
	issuers *repositories.IssuerRepository
	ledgers *repositories.CreditLedgerRepository
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(issuers *repositories.IssuerRepository, ledgers *repositories.CreditLedgerRepository) *AdminHandler {
	return &AdminHandler{issuers: issuers, ledgers: ledgers}
}

// RegisterRoutes registers internal automation routes.
func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin")
	{
		admin.POST("/credits/topup", h.Topup)
	}
}

// Topup grants additional invoice-emission credits to the issuer
// identified by RUC.
func (h *AdminHandler) Topup(c *gin.Context) {
	var req dtos.TopupCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": err.Error()})
		return
	}

	issuer, err := h.issuers.FindByRUC(req.IssuerRUC)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found", "message": "issuer not found"})
		return
	}

	newBalance, err := h.ledgers.Topup(issuer.ID, req.Amount, req.Reason)
	if err != nil {
		status := apperr.GetHTTPStatus(apperr.ErrDatabaseOperation)
		c.JSON(status, gin.H{"error": "Topup Failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dtos.TopupCreditsResponse{
		IssuerRUC:  issuer.RUC,
		Delta:      req.Amount,
		NewBalance: newBalance,
	})
}
