package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"backend/internal/models"
)

type CreditLedgerRepository struct {
	db *gorm.DB
}

func NewCreditLedgerRepository(db *gorm.DB) *CreditLedgerRepository {
	return &CreditLedgerRepository{db: db}
}

// Topup locks issuerID's ledger and grants it amount credits, recording
// reason on the resulting CreditLedgerEntry, all inside one transaction.
func (r *CreditLedgerRepository) Topup(issuerID uuid.UUID, amount int64, reason string) (int64, error) {
	var newBalance int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		ledger, err := r.FindByIssuerIDForUpdate(tx, issuerID)
		if err != nil {
			return err
		}
		if err := ledger.Credit(tx, amount, reason, nil); err != nil {
			return err
		}
		newBalance = ledger.Balance
		return nil
	})
	return newBalance, err
}

func (r *CreditLedgerRepository) Create(ledger *models.CreditLedger) error {
	return r.db.Create(ledger).Error
}

func (r *CreditLedgerRepository) FindByIssuerID(issuerID uuid.UUID) (*models.CreditLedger, error) {
	var ledger models.CreditLedger
	err := r.db.Where("issuer_id = ?", issuerID).First(&ledger).Error
	return &ledger, err
}

// FindByIssuerIDForUpdate fetches and row-locks the ledger, for callers
// that are about to invoke Debit/Credit inside the same transaction.
func (r *CreditLedgerRepository) FindByIssuerIDForUpdate(tx *gorm.DB, issuerID uuid.UUID) (*models.CreditLedger, error) {
	var ledger models.CreditLedger
	err := tx.Where("issuer_id = ?", issuerID).First(&ledger).Error
	return &ledger, err
}

func (r *CreditLedgerRepository) Entries(issuerID uuid.UUID, limit int) ([]models.CreditLedgerEntry, error) {
	var ledger models.CreditLedger
	if err := r.db.Where("issuer_id = ?", issuerID).First(&ledger).Error; err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 100
	}

	var entries []models.CreditLedgerEntry
	err := r.db.Where("credit_ledger_id = ?", ledger.ID).Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
