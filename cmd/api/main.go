/*
Package main - SRI Electronic Invoicing Backend Entry Point

==============================================================================
FILE: cmd/api/main.go
==============================================================================

DESCRIPTION:
    Entry point for the electronic invoicing backend API server. Loads
    configuration, connects to the database, wires the object store and
    background settlement worker, and starts the HTTP server.

ARCHITECTURE:
    main() -> LoadConfig -> SetupLogger -> ConnectDB -> InitServices -> StartServer
                                                                             |
    ShutdownServer <- WaitForSignal <- ListenAndServe <- setupRouter() <----+
                   <- SettlementWorker.Stop()

==============================================================================
*/
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"backend/internal/api"
	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/logger"
	"backend/internal/models/enums"
	"backend/internal/repositories"
	"backend/internal/services"
)

func main() {
	cfg, err := config.LoadAppConfig("./configs")
	if err != nil {
		log.Fatalf("Failed to load application configuration: %v", err)
	}

	appLogger := logger.Setup(cfg.Env)

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.DBDriver)
	if err != nil {
		appLogger.Fatalf("Failed to connect to database: %v", err)
	}

	if cfg.Env == "development" {
		if err := database.Migrate(db); err != nil {
			appLogger.Warnf("Migration failed: %v", err)
		}
	}

	artifacts, err := services.NewArtifactStore(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
	if err != nil {
		appLogger.Fatalf("Failed to connect to artifact store: %v", err)
	}

	invoices := repositories.NewInvoiceRepository(db)
	ledgers := repositories.NewCreditLedgerRepository(db)
	issuers := repositories.NewIssuerRepository(db)
	structure := repositories.NewStructureRepository(db)
	notifier := services.NewNotifier(db, appLogger)

	worker := services.NewSettlementWorker(
		db,
		invoices,
		ledgers,
		issuers,
		structure,
		notifier,
		artifacts,
		map[enums.Environment]string{
			enums.EnvironmentTest: cfg.SRIReceptionURL,
			enums.EnvironmentProd: cfg.SRIReceptionURL,
		},
		map[enums.Environment]string{
			enums.EnvironmentTest: cfg.SRIAuthorizationURL,
			enums.EnvironmentProd: cfg.SRIAuthorizationURL,
		},
		cfg.CredentialEncryptionKey,
		appLogger,
	)
	worker.Start()
	appLogger.Info("Settlement worker started")

	router := setupRouter(cfg, db, appLogger, artifacts)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Infof("Starting server on port %s in %s mode", strconv.Itoa(cfg.ServerPort), cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	worker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatalf("Server forced to shutdown: %v", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.Close()
	}

	appLogger.Info("Server exited properly")
}

func setupRouter(
	cfg *config.AppConfig,
	db *gorm.DB,
	appLogger *logrus.Logger,
	artifacts *services.ArtifactStore,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// CORS configuration - must be applied BEFORE routes
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:3001", "http://localhost:8080", "http://localhost:8081", "http://localhost"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-API-Key", "X-N8N-Key"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(logger.GinLogger(appLogger))
	router.Use(gin.Recovery())

	healthHandler := api.NewHealthHandler(db)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadyCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	apiRouter := api.NewRouter(db, cfg, appLogger, artifacts)
	apiRouter.Setup(router.Group("/api/v1"))

	return router
}
