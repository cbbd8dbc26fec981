package domain

// Store is the unit of work over both ledger repositories. WithTransaction
// runs fn against a transaction-scoped store: all repository calls made
// through it commit together or roll back together.
type Store interface {
	Accounts() AccountRepository
	Entries() EntryRepository
	WithTransaction(fn func(Store) error) error
}
