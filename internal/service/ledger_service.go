package service

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pharmacy-ledger/internal/domain"
	"pharmacy-ledger/internal/errors"
	"pharmacy-ledger/internal/events"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// LedgerService applies single-account balance mutations and serves the
// read side of the ledger: balance, history, summary, reconciliation.
type LedgerService struct {
	store     domain.Store
	publisher events.Publisher
	logger    *slog.Logger
}

func NewLedgerService(store domain.Store, publisher events.Publisher, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

type ApplyTransactionRequest struct {
	AccountID   uuid.UUID
	Direction   domain.Direction
	Amount      decimal.Decimal
	Category    string
	Description string
	Reference   string
	Metadata    map[string]string
}

// ApplyTransaction mutates one account's balance and appends exactly one log
// entry, atomically. A DEBIT that would drive the balance negative fails with
// InsufficientBalance and mutates nothing.
func (s *LedgerService) ApplyTransaction(req ApplyTransactionRequest) (*domain.Entry, error) {
	s.logger.Info("Applying transaction",
		"account_id", req.AccountID,
		"direction", req.Direction,
		"amount", req.Amount,
		"category", req.Category)

	if !req.Direction.IsValid() {
		return nil, errors.NewAppError(errors.InvalidInput, "direction must be CREDIT or DEBIT")
	}
	if !req.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	category := req.Category
	if category == "" {
		category = domain.CategoryAdjustment
	}

	var entry *domain.Entry
	err := s.store.WithTransaction(func(tx domain.Store) error {
		account, err := tx.Accounts().GetForUpdate(req.AccountID)
		if err != nil {
			return err
		}

		newBalance := account.Balance.Add(req.Direction.Signed(req.Amount))
		if newBalance.IsNegative() {
			return errors.ErrInsufficientBalance
		}

		entry = &domain.Entry{
			ID:           uuid.New(),
			AccountID:    account.ID,
			Direction:    req.Direction,
			Category:     category,
			Amount:       req.Amount,
			BalanceAfter: newBalance,
			Description:  req.Description,
			Reference:    req.Reference,
			Metadata:     req.Metadata,
			CreatedAt:    time.Now().UTC(),
		}

		if err := tx.Accounts().UpdateBalance(account.ID, newBalance); err != nil {
			return err
		}
		return tx.Entries().Create(entry)
	})
	if err != nil {
		return nil, err
	}

	s.publish(events.TopicEntryRecorded, events.EntryRecorded{
		EntryID:      entry.ID,
		AccountID:    entry.AccountID,
		Direction:    string(entry.Direction),
		Category:     entry.Category,
		Amount:       entry.Amount,
		BalanceAfter: entry.BalanceAfter,
		OccurredAt:   entry.CreatedAt,
	})

	return entry, nil
}

func (s *LedgerService) GetBalance(accountID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.store.Accounts().Get(accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// Reconcile recomputes the balance by folding the full log from zero and
// reports it against the stored balance. Drift is returned as data; the
// store never corrects it.
func (s *LedgerService) Reconcile(accountID uuid.UUID) (*domain.Reconciliation, error) {
	account, err := s.store.Accounts().Get(accountID)
	if err != nil {
		return nil, err
	}

	calculated, err := s.store.Entries().SumSigned(accountID)
	if err != nil {
		return nil, err
	}

	rec := &domain.Reconciliation{
		AccountID:  accountID,
		Stored:     account.Balance,
		Calculated: calculated,
		Difference: account.Balance.Sub(calculated),
	}
	if !rec.Difference.IsZero() {
		s.logger.Warn("Reconciliation drift detected",
			"account_id", accountID,
			"stored", rec.Stored,
			"calculated", rec.Calculated,
			"difference", rec.Difference)
	}
	return rec, nil
}

// History returns a newest-first page of the account's log, optionally
// bounded by a closed time interval.
func (s *LedgerService) History(accountID uuid.UUID, filter domain.EntryFilter) ([]domain.Entry, error) {
	if _, err := s.store.Accounts().Get(accountID); err != nil {
		return nil, err
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultHistoryLimit
	}
	if filter.Limit > maxHistoryLimit {
		filter.Limit = maxHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return s.store.Entries().List(accountID, filter)
}

// Summary aggregates credits, debits and entry count over the window. The
// opening balance is the balance snapshot of the last entry strictly before
// the window start, zero when there is none or no window start.
func (s *LedgerService) Summary(accountID uuid.UUID, from, to *time.Time) (*domain.EntrySummary, error) {
	account, err := s.store.Accounts().Get(accountID)
	if err != nil {
		return nil, err
	}

	summary, err := s.store.Entries().Summarize(accountID, from, to)
	if err != nil {
		return nil, err
	}

	summary.OpeningBalance = decimal.Zero
	if from != nil {
		opening, err := s.store.Entries().LastBalanceBefore(accountID, *from)
		if err != nil {
			return nil, err
		}
		summary.OpeningBalance = opening
	}
	summary.ClosingBalance = account.Balance
	return summary, nil
}

func (s *LedgerService) publish(topic string, event any) {
	if err := s.publisher.Publish(topic, event); err != nil {
		s.logger.Warn("Failed to publish event", "topic", topic, "error", err)
	}
}
