package models

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate applies a row-lock clause to tx, skipped on sqlite because
// gorm.io/driver/sqlite does not accept the literal FOR UPDATE syntax
// clause.Locking renders. Postgres (and any other dialect) gets the real
// lock; sqlite callers (tests, local dev) fall back to sqlite's own
// file-level write serialization.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
