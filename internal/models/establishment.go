package models

import "github.com/google/uuid"

// Establishment represents one of an issuer's physical or virtual points of
// sale (the 3-digit "establecimiento" component of the access key). Each
// establishment owns one or more EmissionPoints.
type Establishment struct {
	BaseModel
	IssuerID uuid.UUID `gorm:"type:text;not null;index" json:"issuer_id"`
	Code     string    `gorm:"type:varchar(3);not null" json:"code"`
	Address  string    `gorm:"type:varchar(300);not null" json:"address"`
	IsActive bool      `gorm:"default:true" json:"is_active"`

	EmissionPoints []EmissionPoint `gorm:"foreignKey:EstablishmentID" json:"emission_points,omitempty"`
}

func (Establishment) TableName() string { return "establishments" }
