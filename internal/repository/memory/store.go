// Package memory is an in-memory implementation of the ledger store, used by
// unit tests. Mutating units of work are serialized by a store-wide mutex and
// applied to a copy of the state, so a failed unit rolls back completely.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pharmacy-ledger/internal/domain"
	"pharmacy-ledger/internal/errors"
)

type state struct {
	accounts map[uuid.UUID]domain.Account
	entries  []domain.Entry
}

func (st *state) clone() *state {
	accounts := make(map[uuid.UUID]domain.Account, len(st.accounts))
	for id, a := range st.accounts {
		if a.LinkedMemberID != nil {
			linked := *a.LinkedMemberID
			a.LinkedMemberID = &linked
		}
		accounts[id] = a
	}
	entries := make([]domain.Entry, len(st.entries))
	copy(entries, st.entries)
	return &state{accounts: accounts, entries: entries}
}

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{
		st: &state{accounts: make(map[uuid.UUID]domain.Account)},
	}
}

func (s *Store) Accounts() domain.AccountRepository {
	return &lockedAccounts{store: s}
}

func (s *Store) Entries() domain.EntryRepository {
	return &lockedEntries{store: s}
}

// WithTransaction holds the store lock for the whole unit of work and applies
// fn to a clone of the state; the clone becomes visible only on success.
func (s *Store) WithTransaction(fn func(domain.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.st.clone()
	if err := fn(&txStore{st: next}); err != nil {
		return err
	}
	s.st = next
	return nil
}

var _ domain.Store = (*Store)(nil)

// txStore operates directly on the transaction's state copy; the outer store
// lock is already held.
type txStore struct {
	st *state
}

func (t *txStore) Accounts() domain.AccountRepository { return &accountsView{st: t.st} }
func (t *txStore) Entries() domain.EntryRepository    { return &entriesView{st: t.st} }

func (t *txStore) WithTransaction(fn func(domain.Store) error) error {
	return errors.NewAppError(errors.InternalError, "cannot begin nested transaction")
}

// --- account repository ---

type accountsView struct {
	st *state
}

func (v *accountsView) Create(account *domain.Account) error {
	if _, exists := v.st.accounts[account.ID]; exists {
		return errors.ErrDuplicateAccount
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	v.st.accounts[account.ID] = *account
	return nil
}

func (v *accountsView) Get(id uuid.UUID) (*domain.Account, error) {
	account, ok := v.st.accounts[id]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	return &account, nil
}

// GetForUpdate is identical to Get: the store lock already serializes every
// mutating unit of work.
func (v *accountsView) GetForUpdate(id uuid.UUID) (*domain.Account, error) {
	return v.Get(id)
}

func (v *accountsView) ListByOwner(ownerID uuid.UUID) ([]domain.Account, error) {
	var accounts []domain.Account
	for _, a := range v.st.accounts {
		if a.OwnerID == ownerID {
			accounts = append(accounts, a)
		}
	}
	return accounts, nil
}

func (v *accountsView) UpdateBalance(id uuid.UUID, newBalance decimal.Decimal) error {
	account, ok := v.st.accounts[id]
	if !ok {
		return errors.ErrAccountNotFound
	}
	account.Balance = newBalance
	account.UpdatedAt = time.Now().UTC()
	v.st.accounts[id] = account
	return nil
}

func (v *accountsView) UpdateProfile(id uuid.UUID, patch domain.AccountPatch) error {
	account, ok := v.st.accounts[id]
	if !ok {
		return errors.ErrAccountNotFound
	}
	if patch.Name != nil {
		account.Name = *patch.Name
	}
	if patch.Active != nil {
		account.Active = *patch.Active
	}
	if patch.LinkedMemberID != nil {
		linked := *patch.LinkedMemberID
		account.LinkedMemberID = &linked
	}
	account.UpdatedAt = time.Now().UTC()
	v.st.accounts[id] = account
	return nil
}

// --- entry repository ---

type entriesView struct {
	st *state
}

func (v *entriesView) Create(entry *domain.Entry) error {
	v.st.entries = append(v.st.entries, *entry)
	return nil
}

func (v *entriesView) List(accountID uuid.UUID, filter domain.EntryFilter) ([]domain.Entry, error) {
	// Entries are appended in commit order; walk backward for newest first.
	var matched []domain.Entry
	for i := len(v.st.entries) - 1; i >= 0; i-- {
		e := v.st.entries[i]
		if e.AccountID != accountID {
			continue
		}
		if filter.From != nil && e.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, e)
	}

	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (v *entriesView) FindByReference(reference string) ([]domain.Entry, error) {
	var matched []domain.Entry
	for _, e := range v.st.entries {
		if e.Reference == reference {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

func (v *entriesView) SumSigned(accountID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range v.st.entries {
		if e.AccountID == accountID {
			sum = sum.Add(e.Direction.Signed(e.Amount))
		}
	}
	return sum, nil
}

func (v *entriesView) Summarize(accountID uuid.UUID, from, to *time.Time) (*domain.EntrySummary, error) {
	summary := &domain.EntrySummary{
		AccountID:   accountID,
		CreditTotal: decimal.Zero,
		DebitTotal:  decimal.Zero,
	}
	for _, e := range v.st.entries {
		if e.AccountID != accountID {
			continue
		}
		if from != nil && e.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && e.CreatedAt.After(*to) {
			continue
		}
		summary.EntryCount++
		if e.Direction == domain.Credit {
			summary.CreditTotal = summary.CreditTotal.Add(e.Amount)
		} else {
			summary.DebitTotal = summary.DebitTotal.Add(e.Amount)
		}
	}
	return summary, nil
}

func (v *entriesView) LastBalanceBefore(accountID uuid.UUID, t time.Time) (decimal.Decimal, error) {
	for i := len(v.st.entries) - 1; i >= 0; i-- {
		e := v.st.entries[i]
		if e.AccountID == accountID && e.CreatedAt.Before(t) {
			return e.BalanceAfter, nil
		}
	}
	return decimal.Zero, nil
}

// --- locking adapters for reads outside a unit of work ---

type lockedAccounts struct {
	store *Store
}

func (l *lockedAccounts) view() (*accountsView, func()) {
	l.store.mu.Lock()
	return &accountsView{st: l.store.st}, l.store.mu.Unlock
}

func (l *lockedAccounts) Create(account *domain.Account) error {
	v, unlock := l.view()
	defer unlock()
	return v.Create(account)
}

func (l *lockedAccounts) Get(id uuid.UUID) (*domain.Account, error) {
	v, unlock := l.view()
	defer unlock()
	return v.Get(id)
}

func (l *lockedAccounts) GetForUpdate(id uuid.UUID) (*domain.Account, error) {
	v, unlock := l.view()
	defer unlock()
	return v.GetForUpdate(id)
}

func (l *lockedAccounts) ListByOwner(ownerID uuid.UUID) ([]domain.Account, error) {
	v, unlock := l.view()
	defer unlock()
	return v.ListByOwner(ownerID)
}

func (l *lockedAccounts) UpdateBalance(id uuid.UUID, newBalance decimal.Decimal) error {
	v, unlock := l.view()
	defer unlock()
	return v.UpdateBalance(id, newBalance)
}

func (l *lockedAccounts) UpdateProfile(id uuid.UUID, patch domain.AccountPatch) error {
	v, unlock := l.view()
	defer unlock()
	return v.UpdateProfile(id, patch)
}

type lockedEntries struct {
	store *Store
}

func (l *lockedEntries) view() (*entriesView, func()) {
	l.store.mu.Lock()
	return &entriesView{st: l.store.st}, l.store.mu.Unlock
}

func (l *lockedEntries) Create(entry *domain.Entry) error {
	v, unlock := l.view()
	defer unlock()
	return v.Create(entry)
}

func (l *lockedEntries) List(accountID uuid.UUID, filter domain.EntryFilter) ([]domain.Entry, error) {
	v, unlock := l.view()
	defer unlock()
	return v.List(accountID, filter)
}

func (l *lockedEntries) FindByReference(reference string) ([]domain.Entry, error) {
	v, unlock := l.view()
	defer unlock()
	return v.FindByReference(reference)
}

func (l *lockedEntries) SumSigned(accountID uuid.UUID) (decimal.Decimal, error) {
	v, unlock := l.view()
	defer unlock()
	return v.SumSigned(accountID)
}

func (l *lockedEntries) Summarize(accountID uuid.UUID, from, to *time.Time) (*domain.EntrySummary, error) {
	v, unlock := l.view()
	defer unlock()
	return v.Summarize(accountID, from, to)
}

func (l *lockedEntries) LastBalanceBefore(accountID uuid.UUID, t time.Time) (decimal.Decimal, error) {
	v, unlock := l.view()
	defer unlock()
	return v.LastBalanceBefore(accountID, t)
}
