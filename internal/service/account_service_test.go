package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacy-ledger/internal/domain"
	apperrors "pharmacy-ledger/internal/errors"
)

func TestCreateAccountDefaults(t *testing.T) {
	env := newTestEnv()

	account, err := env.accounts.CreateAccount(CreateAccountRequest{
		OwnerID:        uuid.New(),
		Kind:           domain.KindVendor,
		Name:           "Main register",
		InitialBalance: decimal.Zero,
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", account.Currency)
	assert.True(t, account.Active)
	assert.True(t, account.Balance.IsZero())

	// Zero initial balance writes no opening entry.
	assert.Equal(t, int64(0), mustCount(t, env, account.ID))
}

func TestCreateAccountOpeningEntry(t *testing.T) {
	env := newTestEnv()
	account := env.mustCreateAccount(t, "Seeded", "250.00")

	entries, err := env.ledger.History(account.ID, domain.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.CategoryOpeningBalance, entries[0].Category)
	assert.Equal(t, domain.Credit, entries[0].Direction)
	requireDecimalEqual(t, "250.00", entries[0].BalanceAfter)
}

func TestCreateAccountValidation(t *testing.T) {
	env := newTestEnv()
	ownerID := uuid.New()

	cases := []struct {
		name string
		req  CreateAccountRequest
	}{
		{"bad kind", CreateAccountRequest{OwnerID: ownerID, Kind: "warehouse", Name: "x"}},
		{"missing name", CreateAccountRequest{OwnerID: ownerID, Kind: domain.KindVendor}},
		{"missing owner", CreateAccountRequest{Kind: domain.KindVendor, Name: "x"}},
		{"negative balance", CreateAccountRequest{
			OwnerID: ownerID, Kind: domain.KindVendor, Name: "x",
			InitialBalance: decimal.RequireFromString("-1"),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.accounts.CreateAccount(tc.req)
			require.Error(t, err)
		})
	}
}

func TestClientAccountLinkage(t *testing.T) {
	env := newTestEnv()
	memberID := uuid.New()

	account, err := env.accounts.CreateAccount(CreateAccountRequest{
		OwnerID:        uuid.New(),
		Kind:           domain.KindClient,
		Name:           "Walk-in client",
		LinkedMemberID: &memberID,
	})
	require.NoError(t, err)
	require.NotNil(t, account.LinkedMemberID)
	assert.Equal(t, memberID, *account.LinkedMemberID)
}

func TestUpdateAccountPatch(t *testing.T) {
	env := newTestEnv()
	account := env.mustCreateAccount(t, "Old name", "0")

	newName := "New name"
	inactive := false
	updated, err := env.accounts.UpdateAccount(account.ID, domain.AccountPatch{
		Name:   &newName,
		Active: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "New name", updated.Name)
	assert.False(t, updated.Active)

	// Patch never touches the balance.
	assert.True(t, updated.Balance.Equal(account.Balance))

	_, err = env.accounts.UpdateAccount(uuid.New(), domain.AccountPatch{Name: &newName})
	require.Equal(t, apperrors.ErrAccountNotFound, err)

	empty := ""
	_, err = env.accounts.UpdateAccount(account.ID, domain.AccountPatch{Name: &empty})
	require.Error(t, err)
}

func TestListAccountsByOwner(t *testing.T) {
	env := newTestEnv()
	ownerID := uuid.New()

	for _, name := range []string{"Till", "Bank"} {
		_, err := env.accounts.CreateAccount(CreateAccountRequest{
			OwnerID: ownerID,
			Kind:    domain.KindVendor,
			Name:    name,
		})
		require.NoError(t, err)
	}
	env.mustCreateAccount(t, "Someone else's", "0")

	accounts, err := env.accounts.ListAccounts(ownerID)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}
