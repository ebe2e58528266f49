package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apperr "backend/internal/errors"
	"backend/internal/models"
)

func setupEmitterTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SigningCredential{}))
	return db
}

func TestActiveCredentialStatus_ReturnsErrorWhenNoneActive(t *testing.T) {
	db := setupEmitterTestDB(t)
	svc := NewEmitterService(db, "master-key")

	_, err := svc.ActiveCredentialStatus(uuid.New())
	require.ErrorIs(t, err, apperr.ErrNoActiveSigningCredential)
}

func TestActiveCredentialStatus_ReturnsTheActiveCredential(t *testing.T) {
	db := setupEmitterTestDB(t)
	svc := NewEmitterService(db, "master-key")

	issuerID := uuid.New()
	active := &models.SigningCredential{
		IssuerID:          issuerID,
		EncryptedP12:      []byte("ciphertext"),
		EncryptionIV:      []byte("0123456789012345"),
		EncryptedPassword: "iv:ct",
		SubjectCN:         "Comercial Demo S.A.",
		SubjectRUC:        "1792146739001",
		NotBefore:         time.Now().Add(-time.Hour),
		NotAfter:          time.Now().Add(365 * 24 * time.Hour),
		IsActive:          true,
	}
	require.NoError(t, db.Create(active).Error)

	status, err := svc.ActiveCredentialStatus(issuerID)
	require.NoError(t, err)
	require.Equal(t, "Comercial Demo S.A.", status.SubjectCN)
	require.Equal(t, "1792146739001", status.SubjectRUC)
}

func TestActiveCredentialStatus_IgnoresRetiredCredentials(t *testing.T) {
	db := setupEmitterTestDB(t)
	svc := NewEmitterService(db, "master-key")

	issuerID := uuid.New()
	retiredAt := time.Now()
	retired := &models.SigningCredential{
		IssuerID:          issuerID,
		EncryptedP12:      []byte("ciphertext"),
		EncryptionIV:      []byte("0123456789012345"),
		EncryptedPassword: "iv:ct",
		SubjectCN:         "Old Cert",
		SubjectRUC:        "1792146739001",
		NotBefore:         time.Now().Add(-2 * time.Hour),
		NotAfter:          time.Now().Add(-time.Hour),
		IsActive:          false,
		DeactivatedAt:     &retiredAt,
	}
	require.NoError(t, db.Create(retired).Error)

	_, err := svc.ActiveCredentialStatus(issuerID)
	require.ErrorIs(t, err, apperr.ErrNoActiveSigningCredential)
}
