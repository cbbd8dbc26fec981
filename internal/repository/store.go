package repository

import (
	"database/sql"
	"log/slog"

	"pharmacy-ledger/internal/domain"
	"pharmacy-ledger/internal/errors"
)

// Store is the Postgres unit of work. A Store built from *sql.DB can begin
// transactions; the store passed into WithTransaction callbacks is scoped to
// one sql.Tx and cannot nest.
type Store struct {
	executor SQLExecutor
	logger   *slog.Logger
}

func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		executor: db,
		logger:   logger,
	}
}

func (s *Store) Accounts() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.logger)
}

func (s *Store) Entries() domain.EntryRepository {
	return NewEntryRepository(s.executor, s.logger)
}

// WithTransaction executes fn within a database transaction. fn receives a
// transaction-scoped store; any error (or panic) rolls the whole unit back.
func (s *Store) WithTransaction(fn func(domain.Store) error) error {
	db, ok := s.executor.(*sql.DB)
	if !ok {
		return errors.NewAppError(errors.InternalError, "cannot begin nested transaction")
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to begin transaction").WithDetails(err.Error())
	}

	txStore := &Store{
		executor: tx,
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewAppError(errors.InternalError, "failed to commit transaction").WithDetails(err.Error())
	}
	return nil
}

var _ domain.Store = (*Store)(nil)
