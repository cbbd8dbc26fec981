package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TopicEntryRecorded     = "ledger.entry_recorded"
	TopicTransferCompleted = "ledger.transfer_completed"
)

// Publisher delivers ledger events to downstream consumers. The ledger core
// never depends on it; services publish after commit and tolerate failures.
type Publisher interface {
	Publish(topic string, event any) error
}

type EntryRecorded struct {
	EntryID      uuid.UUID       `json:"entry_id"`
	AccountID    uuid.UUID       `json:"account_id"`
	Direction    string          `json:"direction"`
	Category     string          `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

type TransferCompleted struct {
	Reference     string          `json:"reference"`
	FromAccountID uuid.UUID       `json:"from_account_id"`
	ToAccountID   uuid.UUID       `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(string, any) error { return nil }
