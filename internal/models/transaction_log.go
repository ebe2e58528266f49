package models

import "github.com/google/uuid"

// TransactionLog is an append-only audit trail of actions taken against an
// invoice (created, signed, sent, authorized, rejected, retried...), kept
// independently of the invoice's own mutable status column.
type TransactionLog struct {
	BaseModel
	IssuerID  uuid.UUID  `gorm:"type:text;not null;index" json:"issuer_id"`
	InvoiceID *uuid.UUID `gorm:"type:text;index" json:"invoice_id,omitempty"`
	Action    string     `gorm:"type:varchar(100);not null" json:"action"`
	Detail    string     `gorm:"type:text" json:"detail,omitempty"`
}

func (TransactionLog) TableName() string { return "transaction_logs" }

// CallerProfile registers an outbound webhook endpoint an issuer wants
// notified when an invoice reaches a terminal status.
type CallerProfile struct {
	BaseModel
	IssuerID      uuid.UUID `gorm:"type:text;uniqueIndex;not null" json:"issuer_id"`
	WebhookURL    string    `gorm:"type:varchar(500)" json:"webhook_url,omitempty"`
	WebhookSecret string    `gorm:"type:varchar(100)" json:"-"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
}

func (CallerProfile) TableName() string { return "caller_profiles" }
