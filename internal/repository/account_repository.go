package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"pharmacy-ledger/internal/domain"
	"pharmacy-ledger/internal/errors"
)

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

const accountColumns = `id, owner_id, kind, name, category, currency, balance, active, linked_member_id, created_at, updated_at`

func (r *accountRepository) Create(account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, owner_id, kind, name, category, currency, balance, active, linked_member_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	now := time.Now().UTC()

	var linkedMemberID interface{}
	if account.LinkedMemberID != nil {
		linkedMemberID = *account.LinkedMemberID
	}

	_, err := r.db.Exec(
		query,
		account.ID,
		account.OwnerID,
		account.Kind,
		account.Name,
		account.Category,
		account.Currency,
		account.Balance.String(),
		account.Active,
		linkedMemberID,
		now,
		now,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				r.logger.Warn("Duplicate account creation attempt", "account_id", account.ID)
				return errors.ErrDuplicateAccount
			}
		}
		r.logger.Error("Failed to create account", "account_id", account.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create account").WithDetails(err.Error())
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	r.logger.Info("Account created", "account_id", account.ID, "kind", account.Kind)
	return nil
}

func (r *accountRepository) Get(id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(query, id)
}

func (r *accountRepository) GetForUpdate(id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return r.scanAccount(query, id)
}

func (r *accountRepository) scanAccount(query string, id uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRow(query, id)
	account, err := scanAccountRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("Account not found", "account_id", id)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "account_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get account").WithDetails(err.Error())
	}
	return account, nil
}

func (r *accountRepository) ListByOwner(ownerID uuid.UUID) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list accounts", "owner_id", ownerID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list accounts").WithDetails(err.Error())
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccountRow(rows.Scan)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan account").WithDetails(err.Error())
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to list accounts").WithDetails(err.Error())
	}
	return accounts, nil
}

func scanAccountRow(scan func(dest ...interface{}) error) (*domain.Account, error) {
	var account domain.Account
	var balanceStr string
	var linkedMemberID sql.NullString

	err := scan(
		&account.ID,
		&account.OwnerID,
		&account.Kind,
		&account.Name,
		&account.Category,
		&account.Currency,
		&balanceStr,
		&account.Active,
		&linkedMemberID,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, err
	}
	account.Balance = balance

	if linkedMemberID.Valid {
		id, err := uuid.Parse(linkedMemberID.String)
		if err != nil {
			return nil, err
		}
		account.LinkedMemberID = &id
	}

	return &account, nil
}

func (r *accountRepository) UpdateBalance(id uuid.UUID, newBalance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.Exec(query, newBalance.String(), time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update account balance", "account_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update account balance").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to update", "account_id", id)
		return errors.ErrAccountNotFound
	}

	return nil
}

func (r *accountRepository) UpdateProfile(id uuid.UUID, patch domain.AccountPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	// Whitelisted fields only; balance is never reachable from here.
	query := `
		UPDATE accounts
		SET name = COALESCE($1, name),
		    active = COALESCE($2, active),
		    linked_member_id = COALESCE($3, linked_member_id),
		    updated_at = $4
		WHERE id = $5
	`

	var name, linkedMemberID interface{}
	var active interface{}
	if patch.Name != nil {
		name = *patch.Name
	}
	if patch.Active != nil {
		active = *patch.Active
	}
	if patch.LinkedMemberID != nil {
		linkedMemberID = *patch.LinkedMemberID
	}

	result, err := r.db.Exec(query, name, active, linkedMemberID, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update account", "account_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update account").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		return errors.ErrAccountNotFound
	}

	r.logger.Info("Account updated", "account_id", id)
	return nil
}
