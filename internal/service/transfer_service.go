package service

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pharmacy-ledger/internal/domain"
	"pharmacy-ledger/internal/errors"
	"pharmacy-ledger/internal/events"
)

// TransferService moves a positive amount between two ledger accounts as one
// atomic unit, producing a matched DEBIT/CREDIT entry pair.
type TransferService struct {
	store     domain.Store
	publisher events.Publisher
	logger    *slog.Logger
}

func NewTransferService(store domain.Store, publisher events.Publisher, logger *slog.Logger) *TransferService {
	return &TransferService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

type TransferRequest struct {
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        decimal.Decimal
	Description   string
	Reference     string
}

type TransferResult struct {
	SourceEntry      domain.Entry `json:"source_entry"`
	DestinationEntry domain.Entry `json:"destination_entry"`
	Replayed         bool         `json:"replayed,omitempty"`
}

// Transfer debits the source and credits the destination inside one unit of
// work. Both rows are locked before either new balance is computed, in
// account-id order so two opposite transfers between the same pair cannot
// deadlock. A transfer whose explicit reference was already committed with the
// same accounts and amount is replayed: the original entry pair is returned
// and no funds move. A reference already used by any other operation is
// rejected as a duplicate.
func (s *TransferService) Transfer(req TransferRequest) (*TransferResult, error) {
	s.logger.Info("Processing transfer",
		"from_account_id", req.FromAccountID,
		"to_account_id", req.ToAccountID,
		"amount", req.Amount,
		"reference", req.Reference)

	if req.FromAccountID == req.ToAccountID {
		return nil, errors.ErrSameAccountTransfer
	}
	if !req.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	explicitReference := req.Reference != ""
	reference := req.Reference
	if reference == "" {
		reference = fmt.Sprintf("TRF-%d", time.Now().UTC().UnixNano())
	}

	var result TransferResult
	err := s.store.WithTransaction(func(tx domain.Store) error {
		from, to, err := s.lockPair(tx, req.FromAccountID, req.ToAccountID)
		if err != nil {
			return err
		}

		if explicitReference {
			existing, err := tx.Entries().FindByReference(reference)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				pair, err := matchReplay(existing, req)
				if err != nil {
					return err
				}
				result = *pair
				result.Replayed = true
				return nil
			}
		}

		if !from.Active {
			return errors.ErrAccountInactive.WithDetails("source account " + from.ID.String())
		}
		if !to.Active {
			return errors.ErrAccountInactive.WithDetails("destination account " + to.ID.String())
		}
		if from.Balance.LessThan(req.Amount) {
			return errors.ErrInsufficientBalance
		}

		fromNewBalance := from.Balance.Sub(req.Amount)
		toNewBalance := to.Balance.Add(req.Amount)

		description := req.Description
		if description == "" {
			description = fmt.Sprintf("Transfer from %s to %s", from.Name, to.Name)
		}

		now := time.Now().UTC()
		result.SourceEntry = domain.Entry{
			ID:           uuid.New(),
			AccountID:    from.ID,
			Direction:    domain.Debit,
			Category:     domain.CategoryTransfer,
			Amount:       req.Amount,
			BalanceAfter: fromNewBalance,
			Description:  description,
			Reference:    reference,
			Metadata: map[string]string{
				"counterpart_account_id":   to.ID.String(),
				"counterpart_account_name": to.Name,
			},
			CreatedAt: now,
		}
		result.DestinationEntry = domain.Entry{
			ID:           uuid.New(),
			AccountID:    to.ID,
			Direction:    domain.Credit,
			Category:     domain.CategoryTransfer,
			Amount:       req.Amount,
			BalanceAfter: toNewBalance,
			Description:  description,
			Reference:    reference,
			Metadata: map[string]string{
				"counterpart_account_id":   from.ID.String(),
				"counterpart_account_name": from.Name,
			},
			CreatedAt: now,
		}

		if err := tx.Accounts().UpdateBalance(from.ID, fromNewBalance); err != nil {
			return err
		}
		if err := tx.Accounts().UpdateBalance(to.ID, toNewBalance); err != nil {
			return err
		}
		if err := tx.Entries().Create(&result.SourceEntry); err != nil {
			return err
		}
		return tx.Entries().Create(&result.DestinationEntry)
	})
	if err != nil {
		s.logger.Error("Transfer failed", "error", err)
		return nil, err
	}

	if !result.Replayed {
		if err := s.publisher.Publish(events.TopicTransferCompleted, events.TransferCompleted{
			Reference:     reference,
			FromAccountID: req.FromAccountID,
			ToAccountID:   req.ToAccountID,
			Amount:        req.Amount,
			OccurredAt:    result.SourceEntry.CreatedAt,
		}); err != nil {
			s.logger.Warn("Failed to publish transfer event", "reference", reference, "error", err)
		}
	}

	s.logger.Info("Transfer completed", "reference", reference, "replayed", result.Replayed)
	return &result, nil
}

// lockPair locks both account rows in id order and hands them back as
// (source, destination).
func (s *TransferService) lockPair(tx domain.Store, fromID, toID uuid.UUID) (*domain.Account, *domain.Account, error) {
	firstID, secondID := fromID, toID
	if strings.Compare(toID.String(), fromID.String()) < 0 {
		firstID, secondID = toID, fromID
	}

	first, err := tx.Accounts().GetForUpdate(firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := tx.Accounts().GetForUpdate(secondID)
	if err != nil {
		return nil, nil, err
	}

	if first.ID == fromID {
		return first, second, nil
	}
	return second, first, nil
}

// matchReplay resolves the entries already committed under a reference
// against the incoming request. Only an exact match, one transfer pair moving
// the same amount between the same accounts, is replayed; anything else is a
// reference collision, not an idempotent retry.
func matchReplay(entries []domain.Entry, req TransferRequest) (*TransferResult, error) {
	if len(entries) != 2 {
		return nil, errors.ErrDuplicateReference
	}

	var result TransferResult
	for _, e := range entries {
		if e.Category != domain.CategoryTransfer {
			return nil, errors.ErrDuplicateReference
		}
		switch e.Direction {
		case domain.Debit:
			result.SourceEntry = e
		case domain.Credit:
			result.DestinationEntry = e
		}
	}

	if result.SourceEntry.AccountID != req.FromAccountID ||
		result.DestinationEntry.AccountID != req.ToAccountID ||
		!result.SourceEntry.Amount.Equal(req.Amount) ||
		!result.DestinationEntry.Amount.Equal(req.Amount) {
		return nil, errors.ErrDuplicateReference
	}
	return &result, nil
}
