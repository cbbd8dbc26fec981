package memory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacy-ledger/internal/domain"
	apperrors "pharmacy-ledger/internal/errors"
)

func seedAccount(t *testing.T, store *Store, balance string) *domain.Account {
	t.Helper()
	account := &domain.Account{
		ID:       uuid.New(),
		OwnerID:  uuid.New(),
		Kind:     domain.KindVendor,
		Name:     "test",
		Currency: "USD",
		Balance:  decimal.RequireFromString(balance),
		Active:   true,
	}
	require.NoError(t, store.Accounts().Create(account))
	return account
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	store := NewStore()
	account := seedAccount(t, store, "100")

	err := store.WithTransaction(func(tx domain.Store) error {
		if err := tx.Accounts().UpdateBalance(account.ID, decimal.RequireFromString("40")); err != nil {
			return err
		}
		if err := tx.Entries().Create(&domain.Entry{
			ID:        uuid.New(),
			AccountID: account.ID,
			Direction: domain.Debit,
			Category:  domain.CategoryAdjustment,
			Amount:    decimal.RequireFromString("60"),
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		return apperrors.ErrInsufficientBalance
	})
	require.Error(t, err)

	// Neither the balance write nor the entry survived.
	got, getErr := store.Accounts().Get(account.ID)
	require.NoError(t, getErr)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("100")))

	sum, sumErr := store.Entries().SumSigned(account.ID)
	require.NoError(t, sumErr)
	assert.True(t, sum.IsZero())
}

func TestWithTransactionCommitsTogether(t *testing.T) {
	store := NewStore()
	account := seedAccount(t, store, "100")

	err := store.WithTransaction(func(tx domain.Store) error {
		if err := tx.Accounts().UpdateBalance(account.ID, decimal.RequireFromString("150")); err != nil {
			return err
		}
		return tx.Entries().Create(&domain.Entry{
			ID:           uuid.New(),
			AccountID:    account.ID,
			Direction:    domain.Credit,
			Category:     domain.CategorySale,
			Amount:       decimal.RequireFromString("50"),
			BalanceAfter: decimal.RequireFromString("150"),
			CreatedAt:    time.Now().UTC(),
		})
	})
	require.NoError(t, err)

	got, err := store.Accounts().Get(account.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("150")))

	sum, err := store.Entries().SumSigned(account.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("50")))
}

func TestNestedTransactionRejected(t *testing.T) {
	store := NewStore()

	err := store.WithTransaction(func(tx domain.Store) error {
		return tx.WithTransaction(func(domain.Store) error { return nil })
	})
	require.Error(t, err)
}

func TestDuplicateAccountRejected(t *testing.T) {
	store := NewStore()
	account := seedAccount(t, store, "0")

	err := store.Accounts().Create(account)
	require.Equal(t, apperrors.ErrDuplicateAccount, err)
}
