package main

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/models"
	"backend/internal/models/enums"
)

/*
Demo Issuer Seeder

Creates one demo issuer, an establishment, an emission point, a dashboard
admin user, and a starting credit balance, so the integration/E2E suite and
local development both have a ready-to-invoice tenant without needing the
full onboarding flow.

USAGE:
	go run cmd/seed-e2e-users/main.go

PASSWORD:
	The demo admin user has password: "Test123456!"
*/

const (
	demoRUC          = "1792146739001"
	demoAdminEmail   = "e2e.admin@test.com"
	demoAdminName    = "E2E Admin User"
	demoPassword     = "Test123456!"
	demoStartCredits = int64(1000)
)

func main() {
	fmt.Println("Seeding demo issuer...")

	cfg, err := config.LoadAppConfig("./configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.DBDriver)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	issuer := getOrCreateIssuer(db)
	establishment := getOrCreateEstablishment(db, issuer.ID)
	getOrCreateEmissionPoint(db, establishment.ID)
	getOrCreateCreditLedger(db, issuer.ID)
	getOrCreateAdminUser(db, issuer.ID)

	fmt.Println("\nSeed completed!")
	fmt.Printf("  Issuer RUC:       %s\n", issuer.RUC)
	fmt.Printf("  Establishment:    %s\n", establishment.Code)
	fmt.Printf("  Emission point:   001\n")
	fmt.Printf("  Admin login:      %s / %s\n", demoAdminEmail, demoPassword)
	fmt.Printf("  Starting credits: %d\n", demoStartCredits)
}

func getOrCreateIssuer(db *gorm.DB) *models.Issuer {
	var issuer models.Issuer
	result := db.Where("ruc = ?", demoRUC).First(&issuer)
	if result.Error == nil {
		fmt.Println("- Using existing demo issuer")
		return &issuer
	}
	if result.Error != gorm.ErrRecordNotFound {
		log.Fatalf("Failed to query issuer: %v", result.Error)
	}

	issuer = models.Issuer{
		BaseModel:   models.BaseModel{ID: uuid.New()},
		RUC:         demoRUC,
		LegalName:   "Comercial Demo S.A.",
		TradeName:   "Demo Store",
		MainAddress: "Av. Amazonas N34-451, Quito",
		Regime:      enums.RegimeGeneral,
		Environment: enums.EnvironmentTest,
		IsActive:    true,
	}
	if err := db.Create(&issuer).Error; err != nil {
		log.Fatalf("Failed to create demo issuer: %v", err)
	}
	fmt.Println("- Created demo issuer")
	return &issuer
}

func getOrCreateEstablishment(db *gorm.DB, issuerID uuid.UUID) *models.Establishment {
	var est models.Establishment
	result := db.Where("issuer_id = ? AND code = ?", issuerID, "001").First(&est)
	if result.Error == nil {
		return &est
	}
	if result.Error != gorm.ErrRecordNotFound {
		log.Fatalf("Failed to query establishment: %v", result.Error)
	}

	est = models.Establishment{
		BaseModel: models.BaseModel{ID: uuid.New()},
		IssuerID:  issuerID,
		Code:      "001",
		Address:   "Av. Amazonas N34-451, Quito",
		IsActive:  true,
	}
	if err := db.Create(&est).Error; err != nil {
		log.Fatalf("Failed to create establishment: %v", err)
	}
	fmt.Println("- Created establishment 001")
	return &est
}

func getOrCreateEmissionPoint(db *gorm.DB, establishmentID uuid.UUID) *models.EmissionPoint {
	var point models.EmissionPoint
	result := db.Where("establishment_id = ? AND code = ?", establishmentID, "001").First(&point)
	if result.Error == nil {
		return &point
	}
	if result.Error != gorm.ErrRecordNotFound {
		log.Fatalf("Failed to query emission point: %v", result.Error)
	}

	point = models.EmissionPoint{
		BaseModel:       models.BaseModel{ID: uuid.New()},
		EstablishmentID: establishmentID,
		Code:            "001",
		IsActive:        true,
		NextInvoiceSeq:  1,
	}
	if err := db.Create(&point).Error; err != nil {
		log.Fatalf("Failed to create emission point: %v", err)
	}
	fmt.Println("- Created emission point 001")
	return &point
}

func getOrCreateCreditLedger(db *gorm.DB, issuerID uuid.UUID) *models.CreditLedger {
	var ledger models.CreditLedger
	result := db.Where("issuer_id = ?", issuerID).First(&ledger)
	if result.Error == nil {
		return &ledger
	}
	if result.Error != gorm.ErrRecordNotFound {
		log.Fatalf("Failed to query credit ledger: %v", result.Error)
	}

	ledger = models.CreditLedger{
		BaseModel: models.BaseModel{ID: uuid.New()},
		IssuerID:  issuerID,
		Balance:   demoStartCredits,
	}
	if err := db.Create(&ledger).Error; err != nil {
		log.Fatalf("Failed to create credit ledger: %v", err)
	}
	fmt.Printf("- Credited %d invoice credits\n", demoStartCredits)
	return &ledger
}

func getOrCreateAdminUser(db *gorm.DB, issuerID uuid.UUID) *models.User {
	var user models.User
	result := db.Where("email = ?", demoAdminEmail).First(&user)
	if result.Error == nil {
		fmt.Println("- Using existing demo admin user")
		return &user
	}
	if result.Error != gorm.ErrRecordNotFound {
		log.Fatalf("Failed to query admin user: %v", result.Error)
	}

	user = models.User{
		BaseModel: models.BaseModel{ID: uuid.New()},
		Email:     demoAdminEmail,
		Role:      enums.RoleAdmin,
		FullName:  demoAdminName,
		IsActive:  true,
		IssuerID:  issuerID,
	}
	if err := user.SetPassword(demoPassword); err != nil {
		log.Fatalf("Failed to hash demo admin password: %v", err)
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("Failed to create demo admin user: %v", err)
	}
	fmt.Println("- Created demo admin user")
	return &user
}
