package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pharmacy-ledger/internal/domain"
	"pharmacy-ledger/internal/errors"
)

type entryRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewEntryRepository(db SQLExecutor, logger *slog.Logger) domain.EntryRepository {
	return &entryRepository{
		db:     db,
		logger: logger,
	}
}

const entryColumns = `id, account_id, direction, category, amount, balance_after, description, reference, metadata, created_at`

func (r *entryRepository) Create(entry *domain.Entry) error {
	query := `
		INSERT INTO entries (id, account_id, direction, category, amount, balance_after, description, reference, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var metadata interface{}
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return errors.NewAppError(errors.InternalError, "failed to encode entry metadata").WithDetails(err.Error())
		}
		metadata = raw
	}

	_, err := r.db.Exec(
		query,
		entry.ID,
		entry.AccountID,
		entry.Direction,
		entry.Category,
		entry.Amount.String(),
		entry.BalanceAfter.String(),
		entry.Description,
		entry.Reference,
		metadata,
		entry.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create ledger entry",
			"account_id", entry.AccountID,
			"direction", entry.Direction,
			"amount", entry.Amount,
			"error", err)
		return errors.NewAppError(errors.InternalError, "failed to create ledger entry").WithDetails(err.Error())
	}

	r.logger.Info("Ledger entry created",
		"entry_id", entry.ID,
		"account_id", entry.AccountID,
		"direction", entry.Direction,
		"balance_after", entry.BalanceAfter)
	return nil
}

func (r *entryRepository) List(accountID uuid.UUID, filter domain.EntryFilter) ([]domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE account_id = $1`
	args := []interface{}{accountID}

	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	query += " ORDER BY created_at DESC, id DESC"

	args = append(args, filter.Limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list entries", "account_id", accountID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list entries").WithDetails(err.Error())
	}
	defer rows.Close()

	return r.collectEntries(rows)
}

func (r *entryRepository) FindByReference(reference string) ([]domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE reference = $1 ORDER BY created_at, id`

	rows, err := r.db.Query(query, reference)
	if err != nil {
		r.logger.Error("Failed to find entries by reference", "reference", reference, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to find entries").WithDetails(err.Error())
	}
	defer rows.Close()

	return r.collectEntries(rows)
}

func (r *entryRepository) collectEntries(rows *sql.Rows) ([]domain.Entry, error) {
	var entries []domain.Entry
	for rows.Next() {
		var entry domain.Entry
		var amountStr, balanceAfterStr string
		var metadata []byte

		err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.Direction,
			&entry.Category,
			&amountStr,
			&balanceAfterStr,
			&entry.Description,
			&entry.Reference,
			&metadata,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan entry").WithDetails(err.Error())
		}

		if entry.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse entry amount").WithDetails(err.Error())
		}
		if entry.BalanceAfter, err = decimal.NewFromString(balanceAfterStr); err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse entry balance").WithDetails(err.Error())
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, errors.NewAppError(errors.InternalError, "failed to decode entry metadata").WithDetails(err.Error())
			}
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to read entries").WithDetails(err.Error())
	}
	return entries, nil
}

func (r *entryRepository) SumSigned(accountID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN direction = 'CREDIT' THEN amount ELSE -amount END), 0)
		FROM entries WHERE account_id = $1
	`

	var sumStr string
	if err := r.db.QueryRow(query, accountID).Scan(&sumStr); err != nil {
		r.logger.Error("Failed to fold entries", "account_id", accountID, "error", err)
		return decimal.Zero, errors.NewAppError(errors.InternalError, "failed to fold entries").WithDetails(err.Error())
	}

	sum, err := decimal.NewFromString(sumStr)
	if err != nil {
		return decimal.Zero, errors.NewAppError(errors.InternalError, "failed to parse folded balance").WithDetails(err.Error())
	}
	return sum, nil
}

func (r *entryRepository) Summarize(accountID uuid.UUID, from, to *time.Time) (*domain.EntrySummary, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE direction = 'CREDIT'), 0),
			COALESCE(SUM(amount) FILTER (WHERE direction = 'DEBIT'), 0),
			COUNT(*)
		FROM entries WHERE account_id = $1
	`
	args := []interface{}{accountID}

	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	var creditStr, debitStr string
	summary := &domain.EntrySummary{AccountID: accountID}
	if err := r.db.QueryRow(query, args...).Scan(&creditStr, &debitStr, &summary.EntryCount); err != nil {
		r.logger.Error("Failed to summarize entries", "account_id", accountID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to summarize entries").WithDetails(err.Error())
	}

	var err error
	if summary.CreditTotal, err = decimal.NewFromString(creditStr); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse credit total").WithDetails(err.Error())
	}
	if summary.DebitTotal, err = decimal.NewFromString(debitStr); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse debit total").WithDetails(err.Error())
	}
	return summary, nil
}

func (r *entryRepository) LastBalanceBefore(accountID uuid.UUID, t time.Time) (decimal.Decimal, error) {
	query := `
		SELECT balance_after FROM entries
		WHERE account_id = $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var balanceStr string
	err := r.db.QueryRow(query, accountID, t).Scan(&balanceStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, nil
		}
		r.logger.Error("Failed to get opening balance", "account_id", accountID, "error", err)
		return decimal.Zero, errors.NewAppError(errors.InternalError, "failed to get opening balance").WithDetails(err.Error())
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, errors.NewAppError(errors.InternalError, "failed to parse opening balance").WithDetails(err.Error())
	}
	return balance, nil
}
