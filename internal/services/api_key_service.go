package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperr "backend/internal/errors"
	"backend/internal/models"
)

const (
	apiKeyPrefix    = "kp_live_"
	apiKeySecretLen = 24 // bytes -> 48 hex chars
	apiKeyDisplayLen = 12
)

// ApiKeyService issues and manages the long-lived integration credentials
// (`x-api-key` header values) that authenticate `/integrations/*` calls.
type ApiKeyService struct {
	db *gorm.DB
}

// NewApiKeyService creates a new API key service.
func NewApiKeyService(db *gorm.DB) *ApiKeyService {
	return &ApiKeyService{db: db}
}

// Create generates a new key for issuerID, persists its hash, and returns
// the plaintext key exactly once — it is never recoverable afterward.
func (s *ApiKeyService) Create(issuerID uuid.UUID, name, scopes string) (plaintext string, key *models.ApiKey, err error) {
	raw := make([]byte, apiKeySecretLen)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, apperr.Wrap(err, apperr.ErrInternal)
	}
	secret := hex.EncodeToString(raw)
	plaintext = apiKeyPrefix + secret

	hash := sha256.Sum256([]byte(plaintext))

	if scopes == "" {
		scopes = "invoices:write"
	}

	record := &models.ApiKey{
		IssuerID:  issuerID,
		Name:      name,
		Prefix:    plaintext[:apiKeyDisplayLen],
		HashedKey: hex.EncodeToString(hash[:]),
		Scopes:    scopes,
	}

	if err := s.db.Create(record).Error; err != nil {
		return "", nil, apperr.Wrap(err, apperr.ErrInternal)
	}

	return plaintext, record, nil
}

// List returns every key belonging to issuerID, most recent first. Hashed
// values never leave this package; the model's json tag already excludes
// HashedKey from any serialized response.
func (s *ApiKeyService) List(issuerID uuid.UUID) ([]models.ApiKey, error) {
	var keys []models.ApiKey
	if err := s.db.Where("issuer_id = ?", issuerID).Order("created_at DESC").Find(&keys).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.ErrInternal)
	}
	return keys, nil
}

// Revoke marks a key inactive. Revoking an already-revoked or missing key
// is idempotent from the caller's perspective: both return the same not-
// found error only when the key never belonged to issuerID.
func (s *ApiKeyService) Revoke(issuerID, keyID uuid.UUID) error {
	now := time.Now()
	res := s.db.Model(&models.ApiKey{}).
		Where("id = ? AND issuer_id = ? AND revoked_at IS NULL", keyID, issuerID).
		Update("revoked_at", now)
	if res.Error != nil {
		return apperr.Wrap(res.Error, apperr.ErrInternal)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound.WithMessage(fmt.Sprintf("api key %s not found for issuer", keyID))
	}
	return nil
}
