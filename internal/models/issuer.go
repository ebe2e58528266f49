/*
Package models - SRI invoicing backend data models

==============================================================================
FILE: internal/models/issuer.go
==============================================================================

DESCRIPTION:
    Defines the Issuer model: a taxpayer (contribuyente) account enrolled to
    emit electronic invoices through this service. An Issuer owns one or more
    Establishments, a single CreditLedger, a roster of staff Users, and the
    signing credential registered through the Credential Store.

DEVELOPER GUIDELINES:
    OK to modify: add new fiscal fields as SRI profiles require them.
    CAUTION: RUC uniqueness and the IssuerID foreign keys used for
    multi-tenant isolation across every other table in this package.
    DO NOT trust IssuerID from request bodies in handlers - it must come
    from the authenticated API key or JWT context.

==============================================================================
*/
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"backend/internal/models/enums"
)

// Issuer represents a taxpayer enrolled to issue electronic invoices.
// All establishments, emission points, invoices, credits, and API keys are
// scoped to exactly one issuer.
type Issuer struct {
	BaseModel
	RUC                   string                `gorm:"type:varchar(13);uniqueIndex;not null" json:"ruc"`
	LegalName             string                `gorm:"type:varchar(300);not null" json:"legal_name"`
	TradeName             string                `gorm:"type:varchar(300)" json:"trade_name,omitempty"`
	MainAddress           string                `gorm:"type:varchar(300);not null" json:"main_address"`
	Regime                enums.TaxpayerRegime  `gorm:"type:text;not null;default:general" json:"regime"`
	AccountingRequired    bool                  `gorm:"default:false" json:"accounting_required"`
	SpecialTaxpayerNumber *string               `gorm:"type:varchar(20)" json:"special_taxpayer_number,omitempty"`
	Environment           enums.Environment     `gorm:"type:text;not null;default:1" json:"environment"`
	ContactEmail          string                `gorm:"type:varchar(255)" json:"contact_email,omitempty"`
	IsActive              bool                  `gorm:"default:true" json:"is_active"`

	Users          []User          `gorm:"foreignKey:IssuerID" json:"users,omitempty"`
	Establishments []Establishment `gorm:"foreignKey:IssuerID" json:"establishments,omitempty"`
	CreditLedger   *CreditLedger   `gorm:"foreignKey:IssuerID" json:"credit_ledger,omitempty"`

	ActivatedAt   *time.Time `json:"activated_at,omitempty"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

func (Issuer) TableName() string { return "issuers" }

func (i *Issuer) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.IsActive && i.ActivatedAt == nil {
		now := time.Now().UTC()
		i.ActivatedAt = &now
	}
	return nil
}
