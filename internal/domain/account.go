package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountKind string

const (
	KindVendor AccountKind = "vendor"
	KindClient AccountKind = "client"
)

func (k AccountKind) IsValid() bool {
	return k == KindVendor || k == KindClient
}

// Account is a ledger account: a mutable balance plus identity and ownership
// metadata. Vendor accounts carry a typed category; client accounts may link
// back to a platform member instead.
type Account struct {
	ID             uuid.UUID       `json:"account_id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	Kind           AccountKind     `json:"kind"`
	Name           string          `json:"name"`
	Category       string          `json:"category,omitempty"`
	Currency       string          `json:"currency"`
	Balance        decimal.Decimal `json:"balance"`
	Active         bool            `json:"active"`
	LinkedMemberID *uuid.UUID      `json:"linked_member_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AccountPatch lists the only account fields external callers may change.
// Balance and log fields are mutated exclusively by ledger operations.
type AccountPatch struct {
	Name           *string
	Active         *bool
	LinkedMemberID *uuid.UUID
}

func (p AccountPatch) IsEmpty() bool {
	return p.Name == nil && p.Active == nil && p.LinkedMemberID == nil
}

type AccountRepository interface {
	Create(account *Account) error
	Get(id uuid.UUID) (*Account, error)
	// GetForUpdate locks the account row for the duration of the enclosing
	// transaction. Must only be called on a transaction-scoped store.
	GetForUpdate(id uuid.UUID) (*Account, error)
	ListByOwner(ownerID uuid.UUID) ([]Account, error)
	UpdateBalance(id uuid.UUID, newBalance decimal.Decimal) error
	UpdateProfile(id uuid.UUID, patch AccountPatch) error
}
