/*
Package api - SRI Electronic Invoicing Backend HTTP API Handlers

==============================================================================
FILE: internal/api/router.go
==============================================================================

DESCRIPTION:
    Central routing configuration for the electronic invoicing backend.
    Sets up all endpoints, middleware chains, and service dependencies.

USER PERSPECTIVE:
    - This file defines all available API endpoints
    - Determines which routes require a dashboard session, an API key, or
      the internal automation shared secret
    - /public/* requires no authentication at all

DEVELOPER GUIDELINES:
    OK to modify: Add new route groups, new handlers
    CAUTION: Changing existing route paths (breaks integrators)
    DO NOT modify: Authentication middleware order

ROUTE STRUCTURE:
    /api/v1
    ├── /health (no auth)
    ├── /auth/* (mixed auth - login/register open, logout/me require session)
    ├── /public/* (no auth - RIDE/XML retrieval by access key)
    ├── /structure/*, /invoices/*, /keys/*, /emitter/* (dashboard session)
    ├── /integrations/* (X-API-Key)
    └── /admin/* (X-N8N-Key shared secret)

==============================================================================
*/
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"backend/internal/config"
	"backend/internal/middleware"
	"backend/internal/repositories"
	"backend/internal/services"
)

// Router sets up all API routes.
type Router struct {
	db        *gorm.DB
	appConfig *config.AppConfig
	log       *logrus.Logger

	authService     *services.AuthService
	issuanceService *services.IssuanceService
	emitterService  *services.EmitterService
	apiKeyService   *services.ApiKeyService
	exportService   *services.ExcelExportService

	issuers   *repositories.IssuerRepository
	structure *repositories.StructureRepository
	invoices  *repositories.InvoiceRepository
	ledgers   *repositories.CreditLedgerRepository
	artifacts *services.ArtifactStore
}

// NewRouter creates a new router, wiring every repository and service the
// handler layer depends on.
func NewRouter(
	db *gorm.DB,
	appConfig *config.AppConfig,
	log *logrus.Logger,
	artifacts *services.ArtifactStore,
) *Router {
	issuers := repositories.NewIssuerRepository(db)
	structure := repositories.NewStructureRepository(db)
	invoices := repositories.NewInvoiceRepository(db)
	ledgers := repositories.NewCreditLedgerRepository(db)

	authService := services.NewAuthService(db, appConfig)
	apiKeyService := services.NewApiKeyService(db)
	emitterService := services.NewEmitterService(db, appConfig.CredentialEncryptionKey)
	issuanceService := services.NewIssuanceService(
		db, issuers, structure, invoices, ledgers, artifacts, appConfig.CredentialEncryptionKey,
	)
	exportService := services.NewExcelExportService(db, invoices, ledgers)

	return &Router{
		db:              db,
		appConfig:       appConfig,
		log:             log,
		authService:     authService,
		issuanceService: issuanceService,
		emitterService:  emitterService,
		apiKeyService:   apiKeyService,
		exportService:   exportService,
		issuers:         issuers,
		structure:       structure,
		invoices:        invoices,
		ledgers:         ledgers,
		artifacts:       artifacts,
	}
}

// Setup configures all routes.
func (r *Router) Setup(routerGroup *gin.RouterGroup) {
	if r.appConfig.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Apply security headers to all routes
	securityMiddleware := middleware.NewSecurityMiddleware(r.appConfig)
	routerGroup.Use(securityMiddleware.Headers())

	// Apply CSRF protection to all routes (exempt: auth/login+register,
	// health, integrations, admin, public - see csrf.go isExemptPath)
	csrfMiddleware := middleware.NewCSRFMiddleware(r.appConfig)
	routerGroup.Use(csrfMiddleware.Protect())

	routerGroup.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "sri-facturacion-backend",
		})
	})

	api := routerGroup.Group("")
	{
		// Authentication routes (no auth required for login/register)
		authHandler := NewAuthHandler(r.authService, r.appConfig)
		authHandler.RegisterRoutes(api)

		// Public document retrieval (no auth at all - access-key gated)
		publicHandler := NewPublicHandler(r.invoices, r.artifacts)
		publicHandler.RegisterRoutes(api)

		// Internal automation routes (X-N8N-Key shared secret)
		n8nMiddleware := middleware.NewN8nKeyMiddleware(r.appConfig.N8nSharedKey)
		automation := api.Group("")
		automation.Use(n8nMiddleware.RequireN8nKey())
		{
			adminHandler := NewAdminHandler(r.issuers, r.ledgers)
			adminHandler.RegisterRoutes(automation)
		}

		// Server-to-server integration routes (X-API-Key)
		apiKeyMiddleware := middleware.NewApiKeyMiddleware(r.db)
		integrations := api.Group("")
		integrations.Use(apiKeyMiddleware.RequireApiKey())
		{
			integrationHandler := NewIntegrationHandler(r.issuanceService, r.invoices)
			integrationHandler.RegisterRoutes(integrations)
		}

		// Dashboard routes (bearer/cookie session auth)
		protected := api.Group("")
		protected.Use(middleware.NewAuthMiddleware(r.authService).RequireAuth())
		{
			structureHandler := NewStructureHandler(r.structure)
			structureHandler.RegisterRoutes(protected)

			invoiceHandler := NewInvoiceHandler(r.issuanceService, r.invoices, r.exportService)
			invoiceHandler.RegisterRoutes(protected)

			keysHandler := NewKeysHandler(r.apiKeyService)
			keysHandler.RegisterRoutes(protected)

			emitterHandler := NewEmitterHandler(r.emitterService, r.issuers)
			emitterHandler.RegisterRoutes(protected)
		}
	}
}
