/*
Package repositories - Establishment / EmissionPoint Data Access Layer

==============================================================================
FILE: internal/repositories/structure_repository.go
==============================================================================

DESCRIPTION:
    Lookups over an issuer's establishment/emission-point tree. The
    sequencing logic itself lives on EmissionPoint.Advance, not here — this
    layer only finds the rows a caller or the issuance service needs before
    opening a transaction.

==============================================================================
*/
package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"backend/internal/models"
)

type StructureRepository struct {
	db *gorm.DB
}

func NewStructureRepository(db *gorm.DB) *StructureRepository {
	return &StructureRepository{db: db}
}

func (r *StructureRepository) CreateEstablishment(est *models.Establishment) error {
	return r.db.Create(est).Error
}

func (r *StructureRepository) CreateEmissionPoint(ep *models.EmissionPoint) error {
	return r.db.Create(ep).Error
}

func (r *StructureRepository) FindEstablishmentsByIssuer(issuerID uuid.UUID) ([]models.Establishment, error) {
	var rows []models.Establishment
	err := r.db.Preload("EmissionPoints").Where("issuer_id = ?", issuerID).Find(&rows).Error
	return rows, err
}

func (r *StructureRepository) FindEstablishmentByCode(issuerID uuid.UUID, code string) (*models.Establishment, error) {
	var row models.Establishment
	err := r.db.Where("issuer_id = ? AND code = ?", issuerID, code).First(&row).Error
	return &row, err
}

// FindEmissionPoint resolves the (establishment code, emission point code)
// pair an invoice-emission request carries into the owning EmissionPoint,
// scoped to issuerID so one issuer can never advance another's sequence.
func (r *StructureRepository) FindEmissionPoint(issuerID uuid.UUID, establishmentCode, pointCode string) (*models.EmissionPoint, *models.Establishment, error) {
	var establishment models.Establishment
	if err := r.db.Where("issuer_id = ? AND code = ?", issuerID, establishmentCode).First(&establishment).Error; err != nil {
		return nil, nil, err
	}

	var point models.EmissionPoint
	if err := r.db.Where("establishment_id = ? AND code = ?", establishment.ID, pointCode).First(&point).Error; err != nil {
		return nil, nil, err
	}

	return &point, &establishment, nil
}

func (r *StructureRepository) FindEmissionPointByID(id uuid.UUID) (*models.EmissionPoint, error) {
	var point models.EmissionPoint
	err := r.db.First(&point, "id = ?", id).Error
	return &point, err
}

// FindEstablishmentByID resolves an Establishment by its primary key, used by
// callers that only hold the invoice's EstablishmentID foreign key (the
// Settlement Worker's signing pass) and need the establishment/RUC context
// to reconstruct a RIDE or re-derive an access key component.
func (r *StructureRepository) FindEstablishmentByID(id uuid.UUID) (*models.Establishment, error) {
	var row models.Establishment
	err := r.db.First(&row, "id = ?", id).Error
	return &row, err
}
