/*
Package services - Emitter Configuration

==============================================================================
FILE: internal/services/emitter_service.go
==============================================================================

DESCRIPTION:
    EmitterService manages the issuer-facing configuration surface that sits
    in front of the Credential Store: uploading a new .p12 signing
    certificate, retiring whichever one was previously active, and reporting
    an issuer's current signing/credit configuration back to the dashboard.

==============================================================================
*/
package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperr "backend/internal/errors"
	"backend/internal/models"
)

// EmitterService wraps the Credential Store with the issuer-facing upload
// and status-reporting workflow.
type EmitterService struct {
	db           *gorm.DB
	masterSecret string
}

// NewEmitterService builds an EmitterService sharing the credential store's
// master secret.
func NewEmitterService(db *gorm.DB, masterSecret string) *EmitterService {
	return &EmitterService{db: db, masterSecret: masterSecret}
}

// UploadCredentialResult summarizes a newly activated signing credential.
type UploadCredentialResult struct {
	SubjectCN  string
	SubjectRUC string
	NotBefore  time.Time
	NotAfter   time.Time
}

// UploadCredential validates the supplied .p12 against issuer.RUC, retires
// any previously active credential, and persists the new one as active.
// The whole retire-then-activate sequence runs in one transaction so a
// caller never observes an issuer with zero active credentials.
func (s *EmitterService) UploadCredential(issuerID uuid.UUID, issuerRUC string, p12Bytes []byte, password string) (*UploadCredentialResult, error) {
	cred, err := LoadCredential(p12Bytes, password, issuerRUC)
	if err != nil {
		return nil, err
	}

	encryptedP12, iv, err := EncryptP12Blob(p12Bytes, s.masterSecret)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrInternal)
	}
	encryptedPassword, err := EncryptCredentialPassword(password, s.masterSecret)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrInternal)
	}

	record := &models.SigningCredential{
		IssuerID:          issuerID,
		EncryptedP12:      encryptedP12,
		EncryptionIV:      iv,
		EncryptedPassword: encryptedPassword,
		SubjectCN:         cred.SigningCert.Subject.CommonName,
		SubjectRUC:        cred.RUC,
		NotBefore:         cred.NotBefore,
		NotAfter:          cred.NotAfter,
		IsActive:          true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&models.SigningCredential{}).
			Where("issuer_id = ? AND is_active = ?", issuerID, true).
			Updates(map[string]interface{}{"is_active": false, "deactivated_at": now}).Error; err != nil {
			return err
		}
		return tx.Create(record).Error
	})
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrDatabaseOperation)
	}

	return &UploadCredentialResult{
		SubjectCN:  record.SubjectCN,
		SubjectRUC: record.SubjectRUC,
		NotBefore:  record.NotBefore,
		NotAfter:   record.NotAfter,
	}, nil
}

// ActiveCredentialStatus reports the active credential's identity and
// expiry for the issuer dashboard, without ever exposing key material.
func (s *EmitterService) ActiveCredentialStatus(issuerID uuid.UUID) (*UploadCredentialResult, error) {
	var record models.SigningCredential
	err := s.db.Where("issuer_id = ? AND is_active = ?", issuerID, true).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.ErrNoActiveSigningCredential
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrDatabaseOperation)
	}

	return &UploadCredentialResult{
		SubjectCN:  record.SubjectCN,
		SubjectRUC: record.SubjectRUC,
		NotBefore:  record.NotBefore,
		NotAfter:   record.NotAfter,
	}, nil
}
