package models

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupConcurrencyTestDB opens a file-backed sqlite database (not :memory:,
// which sqlite gives each connection its own private database) so that
// concurrent goroutines checking out separate connections from the pool
// genuinely contend for the same rows, the way production postgres
// connections would. _busy_timeout lets sqlite's own writer lock queue
// callers instead of returning SQLITE_BUSY under load.
func setupConcurrencyTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "concurrency.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&EmissionPoint{}, &CreditLedger{}, &CreditLedgerEntry{}))
	return db
}

// TestEmissionPoint_Advance_ConcurrentCallersNeverRepeatASequence exercises
// 50 goroutines racing to advance the same emission point with a real
// sync.WaitGroup and real goroutines, not mocked locking, against a shared
// sqlite-backed EmissionPoint row. Every sequence number handed out must be
// unique and the final counter must equal the number of callers, confirming
// Advance's row-lock-then-mutate shape holds under actual concurrency, not
// just in a single-threaded unit test.
func TestEmissionPoint_Advance_ConcurrentCallersNeverRepeatASequence(t *testing.T) {
	db := setupConcurrencyTestDB(t)

	point := &EmissionPoint{EstablishmentID: uuid.New(), Code: "001", IsActive: true, NextInvoiceSeq: 1}
	require.NoError(t, db.Create(point).Error)

	const callers = 50
	var wg sync.WaitGroup
	seqs := make(chan int64, callers)
	errs := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				seq, err := point.Advance(tx)
				if err != nil {
					return err
				}
				seqs <- seq
				return nil
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(seqs)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	seen := make(map[int64]bool, callers)
	for seq := range seqs {
		require.False(t, seen[seq], "sequence %d handed out more than once", seq)
		seen[seq] = true
	}
	require.Len(t, seen, callers)

	var reloaded EmissionPoint
	require.NoError(t, db.First(&reloaded, "id = ?", point.ID).Error)
	require.Equal(t, int64(1+callers), reloaded.NextInvoiceSeq)
}

// TestCreditLedger_Debit_ConcurrentCallersNeverOverdraw races 30 goroutines
// debiting one credit each against a ledger seeded with fewer credits than
// callers, over real goroutines and a real sync.WaitGroup against a shared
// sqlite-backed row. The balance must never go negative and the count of
// callers that succeed must equal exactly the seeded balance.
func TestCreditLedger_Debit_ConcurrentCallersNeverOverdraw(t *testing.T) {
	db := setupConcurrencyTestDB(t)

	const callers = 30
	const seedBalance = 20

	ledger := &CreditLedger{IssuerID: uuid.New(), Balance: seedBalance}
	require.NoError(t, db.Create(ledger).Error)

	var wg sync.WaitGroup
	var succeeded, insufficient int32
	var mu sync.Mutex

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				return ledger.Debit(tx, 1, nil, "concurrency test debit")
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if err == ErrInsufficientCredit {
				insufficient++
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, seedBalance, succeeded)
	require.EqualValues(t, callers-seedBalance, insufficient)

	var reloaded CreditLedger
	require.NoError(t, db.First(&reloaded, "id = ?", ledger.ID).Error)
	require.Equal(t, int64(0), reloaded.Balance)
	require.GreaterOrEqual(t, reloaded.Balance, int64(0))
}
