/*
Package models - Credit ledger

==============================================================================
FILE: internal/models/credit_ledger.go
==============================================================================

DESCRIPTION:
    Every issuer has exactly one CreditLedger tracking how many invoices it
    is still entitled to emit. Balance is only ever changed through Debit/
    Credit, both of which take a row lock so concurrent issuance requests
    cannot overdraw the balance. Every change is also recorded as an
    immutable CreditLedgerEntry for audit purposes.

==============================================================================
*/
package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreditLedger holds the current invoice-emission balance for an issuer.
type CreditLedger struct {
	BaseModel
	IssuerID uuid.UUID `gorm:"type:text;uniqueIndex;not null" json:"issuer_id"`
	Balance  int64     `gorm:"not null;default:0" json:"balance"`
}

func (CreditLedger) TableName() string { return "credit_ledgers" }

// CreditLedgerEntry is an append-only record of a balance change.
type CreditLedgerEntry struct {
	BaseModel
	CreditLedgerID uuid.UUID  `gorm:"type:text;not null;index" json:"credit_ledger_id"`
	InvoiceID      *uuid.UUID `gorm:"type:text;index" json:"invoice_id,omitempty"`
	Delta          int64      `gorm:"not null" json:"delta"`
	BalanceAfter   int64      `gorm:"not null" json:"balance_after"`
	Reason         string     `gorm:"type:varchar(200);not null" json:"reason"`
	CreatedBy      *uuid.UUID `gorm:"type:text" json:"created_by,omitempty"`
}

func (CreditLedgerEntry) TableName() string { return "credit_ledger_entries" }

// ErrInsufficientCredit is returned by Debit when the ledger balance would
// go negative. It is translated to apperr.ErrInsufficientCredit by the
// issuance service.
var ErrInsufficientCredit = gorm.ErrInvalidData

// Debit locks the ledger row and subtracts n credits, failing the
// transaction if the resulting balance would be negative. Must run inside
// the caller's transaction.
func (l *CreditLedger) Debit(tx *gorm.DB, n int64, invoiceID *uuid.UUID, reason string) error {
	return l.apply(tx, -n, invoiceID, reason, nil)
}

// Credit locks the ledger row and adds n credits (administrative topup).
func (l *CreditLedger) Credit(tx *gorm.DB, n int64, reason string, createdBy *uuid.UUID) error {
	return l.apply(tx, n, nil, reason, createdBy)
}

func (l *CreditLedger) apply(tx *gorm.DB, delta int64, invoiceID *uuid.UUID, reason string, createdBy *uuid.UUID) error {
	var locked CreditLedger
	if err := forUpdate(tx).First(&locked, "id = ?", l.ID).Error; err != nil {
		return err
	}

	newBalance := locked.Balance + delta
	if newBalance < 0 {
		return ErrInsufficientCredit
	}

	if err := tx.Model(&CreditLedger{}).Where("id = ?", l.ID).
		Update("balance", newBalance).Error; err != nil {
		return err
	}

	entry := &CreditLedgerEntry{
		CreditLedgerID: l.ID,
		InvoiceID:      invoiceID,
		Delta:          delta,
		BalanceAfter:   newBalance,
		Reason:         reason,
		CreatedBy:      createdBy,
	}
	if err := tx.Create(entry).Error; err != nil {
		return err
	}

	l.Balance = newBalance
	return nil
}
