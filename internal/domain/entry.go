package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction of a ledger entry relative to the account balance.
type Direction string

const (
	Credit Direction = "CREDIT"
	Debit  Direction = "DEBIT"
)

func (d Direction) IsValid() bool {
	return d == Credit || d == Debit
}

// Signed returns amount with the sign this direction applies to a balance.
func (d Direction) Signed(amount decimal.Decimal) decimal.Decimal {
	if d == Debit {
		return amount.Neg()
	}
	return amount
}

// Entry categories are descriptive tags; they never affect arithmetic.
const (
	CategorySale           = "sale"
	CategoryPurchase       = "purchase"
	CategoryTransfer       = "transfer"
	CategoryRefund         = "refund"
	CategoryAdjustment     = "adjustment"
	CategoryOpeningBalance = "opening_balance"
)

// Entry is one immutable record of a balance change. Entries are created
// exactly once, at the moment the owning account's balance mutation commits,
// and are never updated or deleted.
type Entry struct {
	ID           uuid.UUID         `json:"id"`
	AccountID    uuid.UUID         `json:"account_id"`
	Direction    Direction         `json:"direction"`
	Category     string            `json:"category"`
	Amount       decimal.Decimal   `json:"amount"`
	BalanceAfter decimal.Decimal   `json:"balance_after"`
	Description  string            `json:"description,omitempty"`
	Reference    string            `json:"reference,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// EntryFilter bounds a history query. From/To form a closed interval on
// CreatedAt when set.
type EntryFilter struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// EntrySummary aggregates one account's entries over an optional window.
type EntrySummary struct {
	AccountID      uuid.UUID       `json:"account_id"`
	CreditTotal    decimal.Decimal `json:"credit_total"`
	DebitTotal     decimal.Decimal `json:"debit_total"`
	EntryCount     int64           `json:"entry_count"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// Reconciliation compares the stored balance to a replay of the full log.
// A non-zero difference signals an integrity fault; it is reported, never
// corrected here.
type Reconciliation struct {
	AccountID  uuid.UUID       `json:"account_id"`
	Stored     decimal.Decimal `json:"stored_balance"`
	Calculated decimal.Decimal `json:"calculated_balance"`
	Difference decimal.Decimal `json:"difference"`
}

type EntryRepository interface {
	Create(entry *Entry) error
	List(accountID uuid.UUID, filter EntryFilter) ([]Entry, error)
	// SumSigned folds all entries (CREDIT positive, DEBIT negative) from zero.
	SumSigned(accountID uuid.UUID) (decimal.Decimal, error)
	Summarize(accountID uuid.UUID, from, to *time.Time) (*EntrySummary, error)
	// LastBalanceBefore returns the balance_after of the newest entry strictly
	// before t, or zero when the account has no entry before t.
	LastBalanceBefore(accountID uuid.UUID, t time.Time) (decimal.Decimal, error)
	FindByReference(reference string) ([]Entry, error)
}
