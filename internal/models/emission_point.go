/*
Package models - Emission Point sequencing

==============================================================================
FILE: internal/models/emission_point.go
==============================================================================

DESCRIPTION:
    An EmissionPoint is the 3-digit "punto de emision" component of the
    access key. It owns the monotonic, per-document-type sequence counter
    that every issued invoice consumes exactly once. Advance() performs the
    counter bump as a row-locked read-modify-write so concurrent issuance
    requests against the same emission point never hand out the same
    sequence number twice.

==============================================================================
*/
package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmissionPoint represents a point of sale within an Establishment.
type EmissionPoint struct {
	BaseModel
	EstablishmentID  uuid.UUID `gorm:"type:text;not null;index" json:"establishment_id"`
	Code             string    `gorm:"type:varchar(3);not null" json:"code"`
	IsActive         bool      `gorm:"default:true" json:"is_active"`
	NextInvoiceSeq   int64     `gorm:"not null;default:1" json:"next_invoice_sequence"`
}

func (EmissionPoint) TableName() string { return "emission_points" }

// Advance locks the emission point row, hands back the current sequence
// value, and persists the incremented counter, all within the caller's
// transaction. Callers must invoke this inside a db.Transaction(...) block
// so the row lock is held for the duration of invoice creation.
func (ep *EmissionPoint) Advance(tx *gorm.DB) (int64, error) {
	var locked EmissionPoint
	if err := forUpdate(tx).First(&locked, "id = ?", ep.ID).Error; err != nil {
		return 0, err
	}
	if !locked.IsActive {
		return 0, gorm.ErrInvalidData
	}

	seq := locked.NextInvoiceSeq
	if err := tx.Model(&EmissionPoint{}).Where("id = ?", ep.ID).
		Update("next_invoice_seq", seq+1).Error; err != nil {
		return 0, err
	}

	ep.NextInvoiceSeq = seq + 1
	return seq, nil
}
