/*
Package api - Establishment / Emission Point HTTP Handlers

==============================================================================
FILE: internal/api/structure_handler.go
==============================================================================

DESCRIPTION:
    Manages an issuer's establishment/emission-point tree: the structural
    data the access-key algorithm and the Settlement Worker both depend on.

ENDPOINTS:
    POST /structure/establishments                         - create an establishment
    POST /structure/establishments/:code/points             - create an emission point
    GET  /structure/tree                                    - full establishment/point tree

==============================================================================
*/
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/dtos"
	apperr "backend/internal/errors"
	"backend/internal/middleware"
	"backend/internal/models"
	"backend/internal/repositories"
)

// StructureHandler handles establishment/emission-point management.
type StructureHandler struct {
	repo *repositories.StructureRepository
}

// NewStructureHandler creates a new structure handler.
func NewStructureHandler(repo *repositories.StructureRepository) *StructureHandler {
	return &StructureHandler{repo: repo}
}

// RegisterRoutes registers structure management routes.
func (h *StructureHandler) RegisterRoutes(router *gin.RouterGroup) {
	structure := router.Group("/structure")
	{
		structure.POST("/establishments", h.CreateEstablishment)
		structure.POST("/establishments/:code/points", h.CreateEmissionPoint)
		structure.GET("/tree", h.GetTree)
	}
}

// CreateEstablishment creates a new establishment for the caller's issuer.
func (h *StructureHandler) CreateEstablishment(c *gin.Context) {
	var req dtos.CreateEstablishmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": err.Error()})
		return
	}

	_, _, issuerID, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	establishment := &models.Establishment{
		IssuerID: issuerID,
		Code:     req.Code,
		Address:  req.Address,
		IsActive: true,
	}
	if err := h.repo.CreateEstablishment(establishment); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Creation Failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":      establishment.ID,
		"code":    establishment.Code,
		"address": establishment.Address,
	})
}

// CreateEmissionPoint creates a new emission point under an establishment
// identified by its :code path parameter.
func (h *StructureHandler) CreateEmissionPoint(c *gin.Context) {
	var req dtos.CreateEmissionPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": err.Error()})
		return
	}

	_, _, issuerID, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	establishment, err := h.repo.FindEstablishmentByCode(issuerID, c.Param("code"))
	if err != nil {
		status := apperr.GetHTTPStatus(apperr.ErrNotFound)
		c.JSON(status, gin.H{"error": "Not Found", "message": "establishment not found"})
		return
	}

	point := &models.EmissionPoint{
		EstablishmentID: establishment.ID,
		Code:            req.Code,
		IsActive:        true,
		NextInvoiceSeq:  1,
	}
	if err := h.repo.CreateEmissionPoint(point); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Creation Failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":                    point.ID,
		"code":                  point.Code,
		"next_invoice_sequence": point.NextInvoiceSeq,
	})
}

// GetTree returns the caller's full establishment/emission-point tree.
func (h *StructureHandler) GetTree(c *gin.Context) {
	_, _, issuerID, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	establishments, err := h.repo.FindEstablishmentsByIssuer(issuerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lookup Failed", "message": err.Error()})
		return
	}

	resp := dtos.StructureTreeResponse{}
	for _, est := range establishments {
		node := dtos.EstablishmentNode{
			ID:       est.ID.String(),
			Code:     est.Code,
			Address:  est.Address,
			IsActive: est.IsActive,
		}
		for _, point := range est.EmissionPoints {
			node.EmissionPoints = append(node.EmissionPoints, dtos.EmissionPointNode{
				ID:             point.ID.String(),
				Code:           point.Code,
				IsActive:       point.IsActive,
				NextInvoiceSeq: point.NextInvoiceSeq,
			})
		}
		resp.Establishments = append(resp.Establishments, node)
	}

	c.JSON(http.StatusOK, resp)
}
