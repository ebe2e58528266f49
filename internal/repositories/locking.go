package repositories

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdateSkipLocked applies a SKIP LOCKED row-lock clause to tx, skipped on
// sqlite because gorm.io/driver/sqlite does not accept the literal FOR UPDATE
// SKIP LOCKED syntax clause.Locking renders. Postgres gets the real clause so
// concurrent settlement-worker instances can claim disjoint batches; sqlite
// callers (tests, local dev) fall back to plain row selection.
func forUpdateSkipLocked(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
}
