/*
Package repositories - Issuer (taxpayer) Data Access Layer

==============================================================================
FILE: internal/repositories/issuer_repository.go
==============================================================================

DESCRIPTION:
    Provides data access for the Issuer, the root of tenancy in this system:
    every Establishment, EmissionPoint, User, Invoice, and CreditLedger is
    scoped to one Issuer. Handles lookups by RUC (Ecuador's taxpayer ID) and
    by UUID.

==============================================================================
*/

package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"backend/internal/models"
)

type IssuerRepository struct {
	db *gorm.DB
}

func NewIssuerRepository(db *gorm.DB) *IssuerRepository {
	return &IssuerRepository{db: db}
}

func (r *IssuerRepository) Create(issuer *models.Issuer) error {
	return r.db.Create(issuer).Error
}

func (r *IssuerRepository) FindByRUC(ruc string) (*models.Issuer, error) {
	var issuer models.Issuer
	err := r.db.Where("ruc = ?", ruc).First(&issuer).Error
	return &issuer, err
}

func (r *IssuerRepository) FindByID(id uuid.UUID) (*models.Issuer, error) {
	var issuer models.Issuer
	err := r.db.First(&issuer, "id = ?", id).Error
	return &issuer, err
}

func (r *IssuerRepository) Update(issuer *models.Issuer) error {
	return r.db.Save(issuer).Error
}
