/*
Package api - Invoice Emission HTTP Handlers

==============================================================================
FILE: internal/api/invoice_handler.go
==============================================================================

DESCRIPTION:
    Dashboard-facing invoice endpoints: emit a new factura and browse an
    issuer's emission history. The server-to-server equivalent lives in
    integration_handler.go, sharing the same IssuanceService and the same
    request-binding helper.

ENDPOINTS:
    POST /invoices/emit     - emit a new factura
    GET  /invoices/history  - paginated, optionally status-filtered history

==============================================================================
*/
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"backend/internal/dtos"
	apperr "backend/internal/errors"
	"backend/internal/middleware"
	"backend/internal/models/enums"
	"backend/internal/repositories"
	"backend/internal/services"
)

// InvoiceHandler handles dashboard invoice emission and history.
type InvoiceHandler struct {
	issuance *services.IssuanceService
	invoices *repositories.InvoiceRepository
	export   *services.ExcelExportService
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(issuance *services.IssuanceService, invoices *repositories.InvoiceRepository, export *services.ExcelExportService) *InvoiceHandler {
	return &InvoiceHandler{issuance: issuance, invoices: invoices, export: export}
}

// RegisterRoutes registers dashboard invoice routes.
func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/invoices")
	{
		invoices.POST("/emit", h.Emit)
		invoices.GET("/history", h.History)
		invoices.GET("/export", h.Export)
	}
}

// Emit queues a new factura for asynchronous signing and submission on
// behalf of the authenticated dashboard user's issuer. The row is created
// PENDIENTE (enums.InvoiceStatusQueued) and debited lazily on authorization;
// the Settlement Worker's sign pass (IssuanceService.SignAndCommitPending)
// does the actual XAdES-BES signing and RIDE rendering in the background.
// The server-to-server path (IntegrationHandler.Emit) signs synchronously
// instead — see that handler's doc comment for why the two diverge.
func (h *InvoiceHandler) Emit(c *gin.Context) {
	_, _, issuerID, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	req, bindErr := bindEmitRequest(c)
	if bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": bindErr.Error()})
		return
	}

	result, err := emitInvoice(c, h.issuance.EnqueueInvoice, issuerID, req)
	if err != nil {
		respondEmitError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, result)
}

// History returns the caller's invoices newest-first, optionally filtered
// by status, paginated with limit/offset query parameters.
func (h *InvoiceHandler) History(c *gin.Context) {
	_, _, issuerID, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := enums.InvoiceStatus(c.Query("status"))

	invoices, err := h.invoices.History(issuerID, status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lookup Failed", "message": err.Error()})
		return
	}

	resp := dtos.InvoiceHistoryResponse{Limit: limit, Offset: offset}
	for _, inv := range invoices {
		resp.Invoices = append(resp.Invoices, dtos.InvoiceSummary{
			ID:                  inv.ID.String(),
			AccessKey:           inv.AccessKey,
			Status:              string(inv.Status),
			CustomerName:        inv.CustomerName,
			TotalAmount:         inv.TotalAmount,
			IssueDate:           inv.IssueDate,
			AuthorizationNumber: inv.AuthorizationNumber,
			AuthorizedAt:        inv.AuthorizedAt,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// Export streams the caller's issuer's credit ledger + invoice history
// reconciliation workbook.
func (h *InvoiceHandler) Export(c *gin.Context) {
	_, _, issuerID, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	workbook, err := h.export.GenerateIssuerReport(issuerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Export Failed", "message": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=facturacion-report.xlsx")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}

// bindEmitRequest parses and validates the JSON body shared by the
// dashboard and integration emission endpoints.
func bindEmitRequest(c *gin.Context) (*dtos.EmitInvoiceRequest, error) {
	var req dtos.EmitInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// issueFunc is either IssuanceService.IssueInvoice (synchronous, eager
// debit) or IssuanceService.EnqueueInvoice (asynchronous, lazy debit) — the
// two entry points share everything except which of these they call.
type issueFunc func(ctx context.Context, in services.IssueInvoiceInput) (*services.IssueInvoiceResult, error)

// emitInvoice translates a validated EmitInvoiceRequest into an
// IssuanceService call and its HTTP-facing response shape. Which issuance
// pipeline runs is decided by the caller via issue.
func emitInvoice(c *gin.Context, issue issueFunc, issuerID uuid.UUID, req *dtos.EmitInvoiceRequest) (*dtos.EmitInvoiceResponse, error) {
	lines := make([]services.LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, services.LineInput{
			ProductCode: l.ProductCode,
			Description: l.Description,
			Cantidad:    l.Quantity,
			PrecioUnit:  l.UnitPrice,
			Descuento:   l.Discount,
			TarifaIVA:   l.TaxRate,
		})
	}

	result, err := issue(c.Request.Context(), services.IssueInvoiceInput{
		IssuerID:          issuerID,
		EstablishmentCode: req.EstablishmentCode,
		EmissionPointCode: req.EmissionPointCode,
		Customer: services.CustomerInfo{
			Name:     req.CustomerName,
			IDType:   req.CustomerIDType,
			IDNumber: req.CustomerIDNumber,
			Email:    req.CustomerEmail,
		},
		Lines:          lines,
		IdempotencyKey: req.IdempotencyKey,
		CallbackURL:    req.CallbackURL,
	})
	if err != nil {
		return nil, err
	}

	return &dtos.EmitInvoiceResponse{
		InvoiceID:        result.InvoiceID.String(),
		ClaveAcceso:      result.AccessKey,
		Status:           string(result.Status),
		PDFPath:          result.PDFPath,
		XMLPath:          result.XMLPath,
		CreditsRemaining: result.CreditsRemaining,
	}, nil
}

func respondEmitError(c *gin.Context, err error) {
	status := apperr.GetHTTPStatus(err)
	code := apperr.GetErrorCode(err)
	message := apperr.GetErrorMessage(err)
	c.JSON(status, gin.H{"error": "Invoice Emission Failed", "code": code, "message": message})
}
