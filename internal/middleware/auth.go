/*
Package middleware - Authentication and authorization middleware for HTTP requests

==============================================================================
FILE: internal/middleware/auth.go
==============================================================================

DESCRIPTION:
    Provides three independent authentication strategies used by different
    parts of the API:
      - RequireAuth/RequireRole: JWT bearer/cookie auth for the issuer
        dashboard (staff Users).
      - ApiKeyMiddleware: long-lived API key auth for server-to-server
        invoice issuance (ApiKey model).
      - N8nKeyMiddleware: static shared-secret auth for internal automation
        endpoints (manual settlement retry trigger, etc).

MIDDLEWARE PATTERN:
    1. RequireAuth() validates JWT and stores user data in context
    2. RequireRole() checks if authenticated user has required permissions
    3. Route handlers use GetUserFromContext() to retrieve authenticated user info

==============================================================================
*/

package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"backend/internal/models"
	"backend/internal/services"
	"backend/internal/utils"
)

// AuthMiddleware authenticates requests using JWT tokens
type AuthMiddleware struct {
	authService *services.AuthService
}

// NewAuthMiddleware creates new authentication middleware
func NewAuthMiddleware(authService *services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// RoleMiddleware enforces role-based access control
type RoleMiddleware struct {
	allowedRoles []string
}

// NewRoleMiddleware creates new role middleware for specified roles
func NewRoleMiddleware(roles ...string) *RoleMiddleware {
	return &RoleMiddleware{allowedRoles: roles}
}

// RequireRole checks if the authenticated user has one of the allowed roles
func (m *RoleMiddleware) RequireRole() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleStr := GetUserRoleFromContext(c)
		if roleStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "User role not found",
			})
			c.Abort()
			return
		}

		hasRole := false
		for _, allowedRole := range m.allowedRoles {
			if roleStr == allowedRole {
				hasRole = true
				break
			}
		}

		if !hasRole {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "Insufficient permissions",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAuth requires authentication
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Extract token from header
		authHeader := c.GetHeader("Authorization")
		token, err := utils.ExtractTokenFromHeader(authHeader)
		if err != nil {
			token, err = c.Cookie("access_token")
		}
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": err.Error(),
			})
			c.Abort()
			return
		}

		// Verify token and get user
		user, err := m.authService.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		// Store user in context
		c.Set("userID", user.ID)
		c.Set("userEmail", user.Email)
		c.Set("userRole", user.Role)
		c.Set("issuerID", user.IssuerID)
		c.Set("user", user)

		c.Next()
	}
}

// RequireRole requires specific role
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get user role from context and convert to string
		roleStr := GetUserRoleFromContext(c)
		if roleStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "User role not found",
			})
			c.Abort()
			return
		}

		// Check if user has required role
		hasRole := false
		for _, requiredRole := range roles {
			if roleStr == requiredRole {
				hasRole = true
				break
			}
		}

		if !hasRole {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "Insufficient permissions",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetUserFromContext extracts user from context
// Returns: userID, userEmail, issuerID, error
func GetUserFromContext(c *gin.Context) (uuid.UUID, string, uuid.UUID, error) {
	userID, exists := c.Get("userID")
	if !exists {
		return uuid.Nil, "", uuid.Nil, http.ErrNoLocation
	}

	userEmail, _ := c.Get("userEmail")
	issuerID, _ := c.Get("issuerID")

	return userID.(uuid.UUID), userEmail.(string), issuerID.(uuid.UUID), nil
}

// GetUserRoleFromContext extracts user role from context
func GetUserRoleFromContext(c *gin.Context) string {
	userRole, exists := c.Get("userRole")
	if !exists {
		return ""
	}

	// Handle both enums.UserRole and string types for userRole
	switch r := userRole.(type) {
	case string:
		return r
	default:
		// For enums.UserRole or any other type with String() method
		return fmt.Sprintf("%v", r)
	}
}

// ApiKeyMiddleware authenticates server-to-server invoice issuance requests
// using a long-lived API key (header X-API-Key), instead of a JWT session.
type ApiKeyMiddleware struct {
	db *gorm.DB
}

// NewApiKeyMiddleware creates a new API key middleware.
func NewApiKeyMiddleware(db *gorm.DB) *ApiKeyMiddleware {
	return &ApiKeyMiddleware{db: db}
}

// RequireApiKey validates the X-API-Key header against stored key hashes and
// sets issuerID/apiKeyID in context on success.
func (m *ApiKeyMiddleware) RequireApiKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := c.GetHeader("X-API-Key")
		if rawKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "X-API-Key header is required",
			})
			c.Abort()
			return
		}

		sum := sha256.Sum256([]byte(rawKey))
		hashedKey := hex.EncodeToString(sum[:])

		var apiKey models.ApiKey
		if err := m.db.Where("hashed_key = ?", hashedKey).First(&apiKey).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Invalid API key",
			})
			c.Abort()
			return
		}

		if !apiKey.IsActive() {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "API key has been revoked",
			})
			c.Abort()
			return
		}

		now := gorm.Expr("CURRENT_TIMESTAMP")
		m.db.Model(&apiKey).Update("last_used_at", now)

		c.Set("issuerID", apiKey.IssuerID)
		c.Set("apiKeyID", apiKey.ID)
		c.Set("apiKeyScopes", apiKey.Scopes)

		c.Next()
	}
}

// N8nKeyMiddleware gates internal automation endpoints (manual settlement
// retries, batch re-dispatch) behind a single shared secret header, a
// coarser-grained check than full user auth suits internal tooling calling
// its own backend.
type N8nKeyMiddleware struct {
	sharedKey string
}

// NewN8nKeyMiddleware creates a new shared-key middleware.
func NewN8nKeyMiddleware(sharedKey string) *N8nKeyMiddleware {
	return &N8nKeyMiddleware{sharedKey: sharedKey}
}

// RequireN8nKey validates the X-N8N-Key header with constant-time comparison.
func (m *N8nKeyMiddleware) RequireN8nKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.sharedKey == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Service Unavailable",
				"message": "internal automation endpoint is not configured",
			})
			c.Abort()
			return
		}

		provided := c.GetHeader("X-N8N-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(m.sharedKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Invalid or missing X-N8N-Key header",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
