/*
Package repositories - Invoice Data Access Layer

==============================================================================
FILE: internal/repositories/invoice_repository.go
==============================================================================

DESCRIPTION:
    Create/lookup/history access for the Invoice aggregate, plus the
    Settlement Worker's batch-claiming queries. Transition persistence
    (status, SRI messages, retry bookkeeping) is done directly against the
    model by the issuance service and settlement worker since those already
    hold the row inside an open transaction; this layer only covers reads
    and the initial insert.

==============================================================================
*/
package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"backend/internal/models"
	"backend/internal/models/enums"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(tx *gorm.DB, invoice *models.Invoice) error {
	return tx.Create(invoice).Error
}

func (r *InvoiceRepository) FindByID(id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.Preload("Lines").First(&invoice, "id = ?", id).Error
	return &invoice, err
}

func (r *InvoiceRepository) FindByAccessKey(accessKey string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.Preload("Lines").Where("access_key = ?", accessKey).First(&invoice).Error
	return &invoice, err
}

func (r *InvoiceRepository) FindByIdempotencyKey(issuerID uuid.UUID, key string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.Where("issuer_id = ? AND idempotency_key = ?", issuerID, key).First(&invoice).Error
	return &invoice, err
}

// History returns an issuer's invoices newest-first, optionally filtered by
// status, for the dashboard/history endpoints.
func (r *InvoiceRepository) History(issuerID uuid.UUID, status enums.InvoiceStatus, limit, offset int) ([]models.Invoice, error) {
	q := r.db.Where("issuer_id = ?", issuerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit <= 0 {
		limit = 50
	}

	var invoices []models.Invoice
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&invoices).Error
	return invoices, err
}

// ClaimBatchForSubmission locks and returns up to limit invoices in
// InvoiceStatusSigned, skipping rows another worker tick already holds, for
// the Settlement Worker's reception-submission pass.
func (r *InvoiceRepository) ClaimBatchForSubmission(tx *gorm.DB, limit int) ([]models.Invoice, error) {
	return r.claimBatch(tx, enums.InvoiceStatusSigned, limit)
}

// ClaimBatchForAuthorization locks and returns up to limit invoices in
// InvoiceStatusReceived for the Settlement Worker's authorization-polling
// pass.
func (r *InvoiceRepository) ClaimBatchForAuthorization(tx *gorm.DB, limit int) ([]models.Invoice, error) {
	return r.claimBatch(tx, enums.InvoiceStatusReceived, limit)
}

// ClaimBatchForSigning locks and returns up to limit invoices in
// InvoiceStatusQueued — rows created by the asynchronous /invoices/emit path
// still awaiting XAdES-BES signing — for the Settlement Worker's signing
// pass.
func (r *InvoiceRepository) ClaimBatchForSigning(tx *gorm.DB, limit int) ([]models.Invoice, error) {
	return r.claimBatch(tx, enums.InvoiceStatusQueued, limit)
}

func (r *InvoiceRepository) claimBatch(tx *gorm.DB, status enums.InvoiceStatus, limit int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := forUpdateSkipLocked(tx).
		Preload("Lines").
		Where("status = ? AND last_action_at <= ?", status, time.Now()).
		Order("last_action_at ASC").
		Limit(limit).
		Find(&invoices).Error
	return invoices, err
}
