/*
Package database - SRI invoicing backend database migrations

==============================================================================
FILE: internal/database/migrations.go
==============================================================================

DESCRIPTION:
    Handles automatic database schema migrations using GORM AutoMigrate.
    Creates and updates tables for all application models. Called at
    application startup to ensure schema is current.

USER PERSPECTIVE:
    - Automatically creates database tables on first run
    - Updates schema when models change
    - No manual SQL migration scripts needed

DEVELOPER GUIDELINES:
    OK to modify: Add new models to AutoMigrate list
    CAUTION: Removing models (may cause data loss)
    DO NOT modify: Model order if foreign key dependencies exist
    Add new models after their referenced tables

SYNTAX EXPLANATION:
    - Migrate(): Entry point called from main.go
    - AutoMigrate(): GORM function that creates/updates tables
    - &models.XXX{}: Pointer to model struct for schema inference

MODEL LIST (in migration order):
    - Issuer: Tenant root, keyed by RUC
    - User: Dashboard authentication, scoped to an Issuer
    - Establishment: Physical/virtual business location of an Issuer
    - EmissionPoint: Sequence-numbered invoicing point within an Establishment
    - CreditLedger/CreditLedgerEntry: Per-issuer prepaid invoice credit balance
    - SigningCredential: Encrypted PKCS#12 signing certificate on file
    - Invoice/InvoiceLine: The invoicing documents themselves
    - ApiKey: Server-to-server issuance credential
    - TransactionLog/CallerProfile: Abuse/rate tracking for issuance callers

==============================================================================
*/
package database

import (
	"gorm.io/gorm"

	"backend/internal/models"
)

// Migrate performs database migrations.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Issuer{},
		&models.User{},
		&models.Establishment{},
		&models.EmissionPoint{},
		&models.CreditLedger{},
		&models.CreditLedgerEntry{},
		&models.SigningCredential{},
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.ApiKey{},
		&models.CallerProfile{},
		&models.TransactionLog{},
	)
}
