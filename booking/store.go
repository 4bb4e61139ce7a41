package booking

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/bookable/bookable/errs"
)

// Namespace for reservation advisory locks in the 64-bit key space.
const reservationLockSpace int64 = 7201 << 32

// reservationLockKey maps an employee id to its advisory lock key. XOR with
// the namespace constant is a bijection, so ids that differ only above bit 31
// never share a lock.
func reservationLockKey(employeeID uint) int64 {
	return int64(employeeID) ^ reservationLockSpace
}

// Store owns the reservation transaction. The check-then-insert sequence is
// only safe while an exclusive per-employee lock is held, so TryReserve is the
// single entry point for it.
type Store struct {
	db *gorm.DB

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, locks: make(map[uint]*sync.Mutex)}
}

// TryReserve runs fn inside a transaction while holding an exclusive
// reservation lock for the employee. On Postgres this is a transaction-scoped
// advisory lock, released on commit or rollback, and shared across all
// processes. On SQLite (dev and tests, single process) an in-process keyed
// mutex provides the same mutual exclusion.
func (s *Store) TryReserve(ctx context.Context, employeeID uint, fn func(tx *gorm.DB) error) error {
	if s.db.Dialector.Name() == "postgres" {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(
				"SELECT pg_advisory_xact_lock(?)",
				reservationLockKey(employeeID),
			).Error; err != nil {
				return errs.FromDB(err, "acquire reservation lock")
			}
			return fn(tx)
		})
	}

	lock := s.employeeLock(employeeID)
	lock.Lock()
	defer lock.Unlock()
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) employeeLock(employeeID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[employeeID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[employeeID] = lock
	}
	return lock
}
