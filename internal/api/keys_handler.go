/*
Package api - API Key Management HTTP Handlers

==============================================================================
FILE: internal/api/keys_handler.go
==============================================================================

DESCRIPTION:
    Issues and manages the long-lived X-API-Key credentials an issuer's
    integrations authenticate with. Bearer (dashboard session) auth only;
    an API key can never be used to mint another API key.

ENDPOINTS:
    POST   /keys        - create a new key (plaintext shown once)
    GET    /keys         - list the issuer's keys
    DELETE /keys/:id      - revoke a key

==============================================================================
*/
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"backend/internal/dtos"
	apperr "backend/internal/errors"
	"backend/internal/middleware"
	"backend/internal/services"
)

// KeysHandler handles API key issuance and revocation.
type KeysHandler struct {
	keys *services.ApiKeyService
}

// NewKeysHandler creates a new keys handler.
func NewKeysHandler(keys *services.ApiKeyService) *KeysHandler {
	return &KeysHandler{keys: keys}
}

// RegisterRoutes registers API key management routes.
func (h *KeysHandler) RegisterRoutes(router *gin.RouterGroup) {
	keys := router.Group("/keys")
	{
		keys.POST("", h.Create)
		keys.GET("", h.List)
		keys.DELETE("/:id", h.Revoke)
	}
}

// Create issues a new API key for the caller's issuer.
func (h *KeysHandler) Create(c *gin.Context) {
	var req dtos.CreateApiKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": err.Error()})
		return
	}

	_, _, issuerID, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	plaintext, key, err := h.keys.Create(issuerID, req.Name, req.Scopes)
	if err != nil {
		status := apperr.GetHTTPStatus(err)
		c.JSON(status, gin.H{"error": "Key Creation Failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dtos.CreateApiKeyResponse{
		ID:     key.ID.String(),
		Key:    plaintext,
		Prefix: key.Prefix,
		Name:   key.Name,
		Scopes: key.Scopes,
	})
}

// List returns the caller's issuer's API keys, most recent first.
func (h *KeysHandler) List(c *gin.Context) {
	_, _, issuerID, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	keys, err := h.keys.List(issuerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lookup Failed", "message": err.Error()})
		return
	}

	summaries := make([]dtos.ApiKeySummary, 0, len(keys))
	for _, k := range keys {
		summaries = append(summaries, dtos.ApiKeySummary{
			ID:         k.ID.String(),
			Name:       k.Name,
			Prefix:     k.Prefix,
			Scopes:     k.Scopes,
			LastUsedAt: k.LastUsedAt,
			RevokedAt:  k.RevokedAt,
			CreatedAt:  k.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"keys": summaries})
}

// Revoke revokes one of the caller's issuer's API keys.
func (h *KeysHandler) Revoke(c *gin.Context) {
	_, _, issuerID, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": "invalid key id"})
		return
	}

	if err := h.keys.Revoke(issuerID, keyID); err != nil {
		status := apperr.GetHTTPStatus(err)
		c.JSON(status, gin.H{"error": "Revocation Failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "key revoked"})
}
