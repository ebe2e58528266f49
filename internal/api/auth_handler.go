/*
Package api - SRI invoicing backend HTTP API Handlers

==============================================================================
FILE: internal/api/auth_handler.go
==============================================================================

DESCRIPTION:
    Handles all authentication-related endpoints: login, issuer
    registration, password management, and user profile operations.

USER PERSPECTIVE:
    - Login/logout functionality
    - Initial issuer (taxpayer) and admin user registration
    - Password change and reset flows
    - User profile viewing and editing

SYNTAX EXPLANATION:
    - c.ShouldBindJSON(): Parses and validates JSON request body
    - c.JSON(): Returns JSON response with status code
    - middleware.GetUserFromContext(): Extracts user from JWT

ENDPOINTS:
    POST /auth/register - Register new issuer + admin user
    POST /auth/login - Authenticate and get tokens
    POST /auth/refresh - Refresh expired access token
    POST /auth/logout - Invalidate tokens (requires auth)
    POST /auth/change-password - Change password (requires auth)
    POST /auth/forgot-password - Request password reset
    POST /auth/reset-password - Reset password with token
    GET  /auth/profile - Get user profile (requires auth)
    PUT  /auth/profile - Update user profile (requires auth)

SECURITY:
    - Passwords hashed with bcrypt
    - JWT tokens with configurable expiration
    - Refresh tokens for session management

==============================================================================
*/
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/config"
	"backend/internal/dtos"
	apperr "backend/internal/errors"
	"backend/internal/middleware"
	"backend/internal/services"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
	appConfig   *config.AppConfig
}

// NewAuthHandler creates new authentication handler
func NewAuthHandler(authService *services.AuthService, appConfig *config.AppConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		appConfig:   appConfig,
	}
}

// RegisterRoutes registers authentication routes
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Create rate limiter for auth endpoints (10 requests/minute)
	authRateLimiter := middleware.AuthRateLimiter(h.appConfig)

	auth := router.Group("/auth")
	{
		// Rate-limited endpoints (unauthenticated, vulnerable to brute force)
		auth.POST("/register", authRateLimiter.Limit(), h.Register)
		auth.POST("/login", authRateLimiter.Limit(), h.Login)
		auth.POST("/refresh", authRateLimiter.Limit(), h.RefreshToken)
		auth.POST("/forgot-password", authRateLimiter.Limit(), h.ForgotPassword)
		auth.POST("/reset-password", authRateLimiter.Limit(), h.ResetPassword)

		// Authenticated endpoints (less vulnerable, normal rate limiting)
		auth.POST("/logout", middleware.NewAuthMiddleware(h.authService).RequireAuth(), h.Logout)
		auth.POST("/change-password", middleware.NewAuthMiddleware(h.authService).RequireAuth(), h.ChangePassword)
		auth.GET("/profile", middleware.NewAuthMiddleware(h.authService).RequireAuth(), h.GetProfile)
		auth.PUT("/profile", middleware.NewAuthMiddleware(h.authService).RequireAuth(), h.UpdateProfile)
	}
}

// Register handles issuer + admin user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req dtos.RegisterRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation Error",
			"message": err.Error(),
		})
		return
	}

	response, err := h.authService.Register(req)
	if err != nil {
		status := apperr.GetHTTPStatus(err)
		code := apperr.GetErrorCode(err)
		message := apperr.GetErrorMessage(err)

		c.JSON(status, gin.H{
			"error":   "Registration Failed",
			"code":    code,
			"message": message,
		})
		return
	}

	c.JSON(http.StatusCreated, response)
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dtos.LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation Error",
			"message": err.Error(),
		})
		return
	}

	response, err := h.authService.Login(req)
	if err != nil {
		status := apperr.GetHTTPStatus(err)
		code := apperr.GetErrorCode(err)
		message := apperr.GetErrorMessage(err)

		c.JSON(status, gin.H{
			"error":   "Login Failed",
			"code":    code,
			"message": message,
		})
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("access_token", response.AccessToken, 900, "/", "", h.appConfig.IsProduction(), true)
	c.SetCookie("refresh_token", response.RefreshToken, 604800, "/api/auth", "", h.appConfig.IsProduction(), true)
	c.JSON(http.StatusOK, response)
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dtos.RefreshTokenRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation Error",
			"message": err.Error(),
		})
		return
	}

	response, err := h.authService.RefreshToken(req.RefreshToken)
	if err != nil {
		status := apperr.GetHTTPStatus(err)
		code := apperr.GetErrorCode(err)
		message := apperr.GetErrorMessage(err)

		c.JSON(status, gin.H{
			"error":   "Token Refresh Failed",
			"code":    code,
			"message": message,
		})
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("access_token", response.AccessToken, 900, "/", "", h.appConfig.IsProduction(), true)
	c.SetCookie("refresh_token", response.RefreshToken, 604800, "/api/auth", "", h.appConfig.IsProduction(), true)
	c.JSON(http.StatusOK, response)
}

// Logout handles user logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, _, _, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	if err := h.authService.Logout(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Logout Failed",
			"message": err.Error(),
		})
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("access_token", "", -1, "/", "", h.appConfig.IsProduction(), true)
	c.SetCookie("refresh_token", "", -1, "/api/auth", "", h.appConfig.IsProduction(), true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully logged out",
	})
}

// ChangePassword handles password change
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req dtos.ChangePasswordRequest

	userID, _, _, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation Error",
			"message": err.Error(),
		})
		return
	}

	if err := h.authService.ChangePassword(userID, req); err != nil {
		status := apperr.GetHTTPStatus(err)
		code := apperr.GetErrorCode(err)
		message := apperr.GetErrorMessage(err)

		c.JSON(status, gin.H{
			"error":   "Password Change Failed",
			"code":    code,
			"message": message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password changed successfully",
	})
}

// ForgotPassword handles forgot password request
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dtos.ForgotPasswordRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation Error",
			"message": err.Error(),
		})
		return
	}

	resetToken, err := h.authService.ForgotPassword(req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Password Reset Failed",
			"message": err.Error(),
		})
		return
	}

	if gin.Mode() == gin.DebugMode {
		c.JSON(http.StatusOK, gin.H{
			"message":     "If an account exists with this email, a password reset link has been sent",
			"reset_token": resetToken, // Only in development
		})
	} else {
		c.JSON(http.StatusOK, gin.H{
			"message": "If an account exists with this email, a password reset link has been sent",
		})
	}
}

// ResetPassword handles password reset
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dtos.ResetPasswordRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation Error",
			"message": err.Error(),
		})
		return
	}

	if err := h.authService.ResetPassword(req); err != nil {
		status := apperr.GetHTTPStatus(err)
		code := apperr.GetErrorCode(err)
		message := apperr.GetErrorMessage(err)

		c.JSON(status, gin.H{
			"error":   "Password Reset Failed",
			"code":    code,
			"message": message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password reset successfully",
	})
}

// GetProfile gets user profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, _, _, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	profile, err := h.authService.GetUserProfile(userID)
	if err != nil {
		status := apperr.GetHTTPStatus(err)
		code := apperr.GetErrorCode(err)
		message := apperr.GetErrorMessage(err)

		c.JSON(status, gin.H{
			"error":   "Profile Retrieval Failed",
			"code":    code,
			"message": message,
		})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateProfile updates user profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		FullName string `json:"full_name" binding:"required,min=2"`
	}

	userID, _, _, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation Error",
			"message": err.Error(),
		})
		return
	}

	if err := h.authService.UpdateUserProfile(userID, req.FullName); err != nil {
		status := apperr.GetHTTPStatus(err)
		code := apperr.GetErrorCode(err)
		message := apperr.GetErrorMessage(err)

		c.JSON(status, gin.H{
			"error":   "Profile Update Failed",
			"code":    code,
			"message": message,
		})
		return
	}

	profile, err := h.authService.GetUserProfile(userID)
	if err != nil {
		status := apperr.GetHTTPStatus(err)
		code := apperr.GetErrorCode(err)
		message := apperr.GetErrorMessage(err)

		c.JSON(status, gin.H{
			"error":   "Profile Retrieval Failed",
			"code":    code,
			"message": message,
		})
		return
	}

	c.JSON(http.StatusOK, profile)
}

var _ = uuid.Nil
