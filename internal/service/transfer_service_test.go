package service

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacy-ledger/internal/domain"
	apperrors "pharmacy-ledger/internal/errors"
	"pharmacy-ledger/internal/events"
)

func TestTransferSuccess(t *testing.T) {
	env := newTestEnv()
	a := env.mustCreateAccount(t, "Vendor till", "1000.00")
	b := env.mustCreateAccount(t, "Vendor bank", "200.00")

	result, err := env.transfers.Transfer(TransferRequest{
		FromAccountID: a.ID,
		ToAccountID:   b.ID,
		Amount:        decimal.RequireFromString("300.00"),
	})
	require.NoError(t, err)

	requireDecimalEqual(t, "700.00", result.SourceEntry.BalanceAfter)
	requireDecimalEqual(t, "500.00", result.DestinationEntry.BalanceAfter)
	assert.Equal(t, domain.Debit, result.SourceEntry.Direction)
	assert.Equal(t, domain.Credit, result.DestinationEntry.Direction)
	assert.Equal(t, domain.CategoryTransfer, result.SourceEntry.Category)
	assert.Equal(t, domain.CategoryTransfer, result.DestinationEntry.Category)

	// Both sides share one reference and name each other in metadata.
	assert.NotEmpty(t, result.SourceEntry.Reference)
	assert.Equal(t, result.SourceEntry.Reference, result.DestinationEntry.Reference)
	assert.Equal(t, b.ID.String(), result.SourceEntry.Metadata["counterpart_account_id"])
	assert.Equal(t, a.ID.String(), result.DestinationEntry.Metadata["counterpart_account_id"])
	assert.Equal(t, b.Name, result.SourceEntry.Metadata["counterpart_account_name"])

	balanceA, err := env.ledger.GetBalance(a.ID)
	require.NoError(t, err)
	requireDecimalEqual(t, "700.00", balanceA)
	balanceB, err := env.ledger.GetBalance(b.ID)
	require.NoError(t, err)
	requireDecimalEqual(t, "500.00", balanceB)
}

func TestTransferDefaultDescription(t *testing.T) {
	env := newTestEnv()
	a := env.mustCreateAccount(t, "Till", "100.00")
	b := env.mustCreateAccount(t, "Bank", "0")

	result, err := env.transfers.Transfer(TransferRequest{
		FromAccountID: a.ID,
		ToAccountID:   b.ID,
		Amount:        decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Transfer from Till to Bank", result.SourceEntry.Description)
	assert.Equal(t, result.SourceEntry.Description, result.DestinationEntry.Description)
}

func TestTransferSameAccount(t *testing.T) {
	env := newTestEnv()
	a := env.mustCreateAccount(t, "Till", "100.00")

	_, err := env.transfers.Transfer(TransferRequest{
		FromAccountID: a.ID,
		ToAccountID:   a.ID,
		Amount:        decimal.RequireFromString("50.00"),
	})
	require.Equal(t, apperrors.ErrSameAccountTransfer, err)

	balance, err := env.ledger.GetBalance(a.ID)
	require.NoError(t, err)
	requireDecimalEqual(t, "100.00", balance)
}

func TestTransferValidation(t *testing.T) {
	env := newTestEnv()
	a := env.mustCreateAccount(t, "Till", "100.00")
	b := env.mustCreateAccount(t, "Bank", "0")

	_, err := env.transfers.Transfer(TransferRequest{
		FromAccountID: a.ID,
		ToAccountID:   b.ID,
		Amount:        decimal.Zero,
	})
	require.Equal(t, apperrors.ErrInvalidAmount, err)

	_, err = env.transfers.Transfer(TransferRequest{
		FromAccountID: a.ID,
		ToAccountID:   uuid.New(),
		Amount:        decimal.RequireFromString("10.00"),
	})
	require.Equal(t, apperrors.ErrAccountNotFound, err)
}

func TestTransferInactiveAccount(t *testing.T) {
	env := newTestEnv()
	a := env.mustCreateAccount(t, "Till", "100.00")
	b := env.mustCreateAccount(t, "Bank", "0")

	inactive := false
	_, err := env.accounts.UpdateAccount(b.ID, domain.AccountPatch{Active: &inactive})
	require.NoError(t, err)

	_, err = env.transfers.Transfer(TransferRequest{
		FromAccountID: a.ID,
		ToAccountID:   b.ID,
		Amount:        decimal.RequireFromString("10.00"),
	})
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.AccountInactive, appErr.Code)

	balance, err := env.ledger.GetBalance(a.ID)
	require.NoError(t, err)
	requireDecimalEqual(t, "100.00", balance)
}

func TestTransferInsufficientBalance(t *testing.T) {
	env := newTestEnv()
	a := env.mustCreateAccount(t, "Till", "100.00")
	b := env.mustCreateAccount(t, "Bank", "50.00")

	_, err := env.transfers.Transfer(TransferRequest{
		FromAccountID: a.ID,
		ToAccountID:   b.ID,
		Amount:        decimal.RequireFromString("100.01"),
	})
	require.Equal(t, apperrors.ErrInsufficientBalance, err)

	// Neither side moved, neither log grew.
	balanceA, err := env.ledger.GetBalance(a.ID)
	require.NoError(t, err)
	requireDecimalEqual(t, "100.00", balanceA)
	balanceB, err := env.ledger.GetBalance(b.ID)
	require.NoError(t, err)
	requireDecimalEqual(t, "50.00", balanceB)
	assert.Equal(t, int64(1), mustCount(t, env, a.ID))
	assert.Equal(t, int64(1), mustCount(t, env, b.ID))
}

func TestTransferInverseLaw(t *testing.T) {
	env := newTestEnv()
	a := env.mustCreateAccount(t, "Till", "1000.00")
	b := env.mustCreateAccount(t, "Bank", "200.00")

	amount := decimal.RequireFromString("300.00")
	_, err := env.transfers.Transfer(TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: amount})
	require.NoError(t, err)
	_, err = env.transfers.Transfer(TransferRequest{FromAccountID: b.ID, ToAccountID: a.ID, Amount: amount})
	require.NoError(t, err)

	balanceA, err := env.ledger.GetBalance(a.ID)
	require.NoError(t, err)
	requireDecimalEqual(t, "1000.00", balanceA)
	balanceB, err := env.ledger.GetBalance(b.ID)
	require.NoError(t, err)
	requireDecimalEqual(t, "200.00", balanceB)

	// Replays stay reconcilable on both sides.
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		rec, err := env.ledger.Reconcile(id)
		require.NoError(t, err)
		assert.True(t, rec.Difference.IsZero())
	}
}

func TestTransferIdempotentReplay(t *testing.T) {
	env := newTestEnv()
	a := env.mustCreateAccount(t, "Till", "100.00")
	b := env.mustCreateAccount(t, "Bank", "0")

	req := TransferRequest{
		FromAccountID: a.ID,
		ToAccountID:   b.ID,
		Amount:        decimal.RequireFromString("40.00"),
		Reference:     "INV-2024-0042",
	}

	first, err := env.transfers.Transfer(req)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := env.transfers.Transfer(req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.SourceEntry.ID, second.SourceEntry.ID)
	assert.Equal(t, first.DestinationEntry.ID, second.DestinationEntry.ID)

	// Funds moved once.
	balance, err := env.ledger.GetBalance(a.ID)
	require.NoError(t, err)
	requireDecimalEqual(t, "60.00", balance)

	// Only the first attempt published an event.
	transferEvents := 0
	for _, topic := range env.publisher.topics {
		if topic == events.TopicTransferCompleted {
			transferEvents++
		}
	}
	assert.Equal(t, 1, transferEvents)
}

func TestTransferReferenceCollisionWithPlainEntry(t *testing.T) {
	env := newTestEnv()
	a := env.mustCreateAccount(t, "Till", "100.00")
	b := env.mustCreateAccount(t, "Bank", "0")

	// A non-transfer entry already carries the reference.
	_, err := env.ledger.ApplyTransaction(ApplyTransactionRequest{
		AccountID: a.ID,
		Direction: domain.Credit,
		Amount:    decimal.RequireFromString("10.00"),
		Category:  domain.CategorySale,
		Reference: "INV-2024-0099",
	})
	require.NoError(t, err)

	_, err = env.transfers.Transfer(TransferRequest{
		FromAccountID: a.ID,
		ToAccountID:   b.ID,
		Amount:        decimal.RequireFromString("40.00"),
		Reference:     "INV-2024-0099",
	})
	require.Equal(t, apperrors.ErrDuplicateReference, err)

	// The collision moved nothing.
	balanceA, err := env.ledger.GetBalance(a.ID)
	require.NoError(t, err)
	requireDecimalEqual(t, "110.00", balanceA)
	balanceB, err := env.ledger.GetBalance(b.ID)
	require.NoError(t, err)
	assert.True(t, balanceB.IsZero())
}

func TestTransferReferenceCollisionWithDifferentTransfer(t *testing.T) {
	env := newTestEnv()
	a := env.mustCreateAccount(t, "Till", "100.00")
	b := env.mustCreateAccount(t, "Bank", "0")
	c := env.mustCreateAccount(t, "Other till", "100.00")
	d := env.mustCreateAccount(t, "Other bank", "0")

	first, err := env.transfers.Transfer(TransferRequest{
		FromAccountID: a.ID,
		ToAccountID:   b.ID,
		Amount:        decimal.RequireFromString("40.00"),
		Reference:     "INV-2024-0100",
	})
	require.NoError(t, err)
	require.False(t, first.Replayed)

	// Same reference, different accounts: not a retry of the first transfer.
	_, err = env.transfers.Transfer(TransferRequest{
		FromAccountID: c.ID,
		ToAccountID:   d.ID,
		Amount:        decimal.RequireFromString("99.00"),
		Reference:     "INV-2024-0100",
	})
	require.Equal(t, apperrors.ErrDuplicateReference, err)

	// Same accounts, different amount: also a collision.
	_, err = env.transfers.Transfer(TransferRequest{
		FromAccountID: a.ID,
		ToAccountID:   b.ID,
		Amount:        decimal.RequireFromString("41.00"),
		Reference:     "INV-2024-0100",
	})
	require.Equal(t, apperrors.ErrDuplicateReference, err)

	// Neither collision moved funds anywhere.
	for id, want := range map[uuid.UUID]string{
		a.ID: "60.00", b.ID: "40.00", c.ID: "100.00", d.ID: "0",
	} {
		balance, err := env.ledger.GetBalance(id)
		require.NoError(t, err)
		requireDecimalEqual(t, want, balance)
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	env := newTestEnv()
	account := env.mustCreateAccount(t, "Till", "100.00")

	const workers = 10
	debit := decimal.RequireFromString("25.00")

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.ledger.ApplyTransaction(ApplyTransactionRequest{
				AccountID: account.ID,
				Direction: domain.Debit,
				Amount:    debit,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.Equal(t, apperrors.ErrInsufficientBalance, err)
		}
	}

	// 100.00 / 25.00: exactly four debits can land.
	assert.Equal(t, 4, succeeded)

	balance, err := env.ledger.GetBalance(account.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
	assert.False(t, balance.IsNegative())

	rec, err := env.ledger.Reconcile(account.ID)
	require.NoError(t, err)
	assert.True(t, rec.Difference.IsZero())
}

func TestConcurrentOppositeTransfers(t *testing.T) {
	env := newTestEnv()
	a := env.mustCreateAccount(t, "Till", "500.00")
	b := env.mustCreateAccount(t, "Bank", "500.00")

	amount := decimal.RequireFromString("5.00")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		from, to := a.ID, b.ID
		if i%2 == 1 {
			from, to = b.ID, a.ID
		}
		go func() {
			defer wg.Done()
			_, err := env.transfers.Transfer(TransferRequest{FromAccountID: from, ToAccountID: to, Amount: amount})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Equal traffic both ways: balances end where they started.
	balanceA, err := env.ledger.GetBalance(a.ID)
	require.NoError(t, err)
	requireDecimalEqual(t, "500.00", balanceA)
	balanceB, err := env.ledger.GetBalance(b.ID)
	require.NoError(t, err)
	requireDecimalEqual(t, "500.00", balanceB)
}
