package service

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pharmacy-ledger/internal/domain"
	"pharmacy-ledger/internal/errors"
)

type AccountService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewAccountService(store domain.Store, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
	}
}

type CreateAccountRequest struct {
	OwnerID        uuid.UUID
	Kind           domain.AccountKind
	Name           string
	Category       string
	Currency       string
	LinkedMemberID *uuid.UUID
	InitialBalance decimal.Decimal
}

// maxInitialBalance guards against fat-finger account seeding.
var maxInitialBalance = decimal.NewFromInt(10_000_000_000)

// CreateAccount creates a ledger account. A non-zero initial balance is
// recorded as an opening CREDIT entry in the same unit of work, so the
// balance always equals the replay of the log, from the very first entry.
func (s *AccountService) CreateAccount(req CreateAccountRequest) (*domain.Account, error) {
	s.logger.Info("Creating account", "owner_id", req.OwnerID, "kind", req.Kind, "name", req.Name)

	if !req.Kind.IsValid() {
		return nil, errors.NewAppError(errors.InvalidInput, "kind must be vendor or client")
	}
	if req.Name == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "name is required")
	}
	if req.OwnerID == uuid.Nil {
		return nil, errors.NewAppError(errors.InvalidInput, "owner_id is required")
	}
	if req.InitialBalance.IsNegative() {
		return nil, errors.ErrInvalidAmount
	}
	if req.InitialBalance.GreaterThan(maxInitialBalance) {
		return nil, errors.NewAppError(errors.InvalidAmount, "initial balance exceeds maximum limit")
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	account := &domain.Account{
		ID:             uuid.New(),
		OwnerID:        req.OwnerID,
		Kind:           req.Kind,
		Name:           req.Name,
		Category:       req.Category,
		Currency:       currency,
		Balance:        req.InitialBalance,
		Active:         true,
		LinkedMemberID: req.LinkedMemberID,
	}

	err := s.store.WithTransaction(func(tx domain.Store) error {
		if err := tx.Accounts().Create(account); err != nil {
			return err
		}
		if req.InitialBalance.IsPositive() {
			entry := &domain.Entry{
				ID:           uuid.New(),
				AccountID:    account.ID,
				Direction:    domain.Credit,
				Category:     domain.CategoryOpeningBalance,
				Amount:       req.InitialBalance,
				BalanceAfter: req.InitialBalance,
				Description:  "Opening balance",
				CreatedAt:    time.Now().UTC(),
			}
			return tx.Entries().Create(entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account created successfully", "account_id", account.ID)
	return account, nil
}

func (s *AccountService) GetAccount(id uuid.UUID) (*domain.Account, error) {
	return s.store.Accounts().Get(id)
}

func (s *AccountService) ListAccounts(ownerID uuid.UUID) ([]domain.Account, error) {
	if ownerID == uuid.Nil {
		return nil, errors.NewAppError(errors.InvalidInput, "owner_id is required")
	}
	return s.store.Accounts().ListByOwner(ownerID)
}

// UpdateAccount applies the narrow profile patch and returns the updated
// account. Balance is not patchable through any path.
func (s *AccountService) UpdateAccount(id uuid.UUID, patch domain.AccountPatch) (*domain.Account, error) {
	if patch.Name != nil && *patch.Name == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "name cannot be empty")
	}

	if err := s.store.Accounts().UpdateProfile(id, patch); err != nil {
		return nil, err
	}
	return s.store.Accounts().Get(id)
}
