package models

import (
	"time"

	"github.com/google/uuid"
)

// ApiKey is a long-lived integration credential scoped to one issuer.
// The plaintext value (kp_live_<hex>) is never stored; only its SHA-256
// hash and a display prefix are persisted.
type ApiKey struct {
	BaseModel
	IssuerID   uuid.UUID  `gorm:"type:text;not null;index" json:"issuer_id"`
	Name       string     `gorm:"type:varchar(100);not null" json:"name"`
	Prefix     string     `gorm:"type:varchar(12);not null" json:"prefix"`
	HashedKey  string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	Scopes     string     `gorm:"type:varchar(300);not null;default:invoices:write" json:"scopes"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

func (ApiKey) TableName() string { return "api_keys" }

// IsActive reports whether the key can still authenticate requests.
func (k *ApiKey) IsActive() bool {
	return k.RevokedAt == nil
}
