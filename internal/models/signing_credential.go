package models

import (
	"time"

	"github.com/google/uuid"
)

// SigningCredential stores an issuer's PKCS#12 signing certificate,
// encrypted at rest with AES-256-CBC under the service's master key. Only
// one credential per issuer is active at a time; prior ones are kept for
// audit/history with DeactivatedAt set.
type SigningCredential struct {
	BaseModel
	IssuerID uuid.UUID `gorm:"type:text;not null;index" json:"issuer_id"`

	EncryptedP12 []byte `gorm:"type:blob;not null" json:"-"`
	EncryptionIV []byte `gorm:"type:blob;not null" json:"-"`
	// EncryptedPassword is the PKCS#12 unlock password, encrypted
	// separately per the "iv_hex:ciphertext_hex" scheme so it can be
	// rotated independently of the container's own AES key.
	EncryptedPassword string `gorm:"type:varchar(500);not null" json:"-"`

	SubjectCN     string     `gorm:"type:varchar(300)" json:"subject_cn"`
	SubjectRUC    string     `gorm:"type:varchar(20)" json:"subject_ruc"`
	NotBefore     time.Time  `json:"not_before"`
	NotAfter      time.Time  `json:"not_after"`
	IsActive      bool       `gorm:"default:true" json:"is_active"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

func (SigningCredential) TableName() string { return "signing_credentials" }

// IsExpired reports whether the certificate's validity window has passed.
func (c *SigningCredential) IsExpired(at time.Time) bool {
	return at.After(c.NotAfter)
}

// ExpiresSoon reports whether the certificate will expire within the given
// lookahead window, mirroring the 30-day warning fiskalhrgo's cert manager
// surfaces for its own certificates.
func (c *SigningCredential) ExpiresSoon(at time.Time, within time.Duration) bool {
	return c.NotAfter.Sub(at) <= within
}
