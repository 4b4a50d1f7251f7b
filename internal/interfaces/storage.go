package interfaces

import (
	"context"
	"time"

	"github.com/sheikh-saqib/double-entry-ledger/internal/models"
)

// StorageBackend is the persistence contract the ledger depends on. All state
// lives behind it; the ledger holds no mutable ledger state of its own.
//
// Lookups return a nil pointer for a miss, leaving not-found error policy to
// the caller. Writes are expected to be atomic per call; the transactional
// hooks let the ledger span multiple writes when the backend supports it, and
// backends without native transactions can embed NoopTransactionHooks.
type StorageBackend interface {
	// SaveAccount persists a new account. It fails with DuplicateAccountError
	// when the id or code already exists.
	SaveAccount(ctx context.Context, account models.Account) error
	GetAccount(ctx context.Context, id models.AccountID) (*models.Account, error)
	GetAccountByCode(ctx context.Context, code string) (*models.Account, error)
	ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, error)
	// UpdateAccount replaces an existing account version. It fails with
	// AccountNotFoundError when the id is absent.
	UpdateAccount(ctx context.Context, account models.Account) error

	// SaveTransaction upserts by transaction id.
	SaveTransaction(ctx context.Context, transaction models.Transaction) error
	GetTransaction(ctx context.Context, id models.TransactionID) (*models.Transaction, error)
	// ListTransactions returns filtered, paginated transactions ordered by
	// effective date, newest first.
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)

	// GetAccountBalance aggregates all posted entries for the account with
	// effective date at or before asOf, split into debit and credit totals.
	// A zero asOf means now.
	GetAccountBalance(ctx context.Context, id models.AccountID, asOf time.Time) (models.AccountBalance, error)

	BeginTransaction(ctx context.Context) error
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error

	Close() error
}

// NoopTransactionHooks provides no-op transactional hooks for backends that
// serialize writes by other means.
type NoopTransactionHooks struct{}

func (NoopTransactionHooks) BeginTransaction(ctx context.Context) error    { return nil }
func (NoopTransactionHooks) CommitTransaction(ctx context.Context) error   { return nil }
func (NoopTransactionHooks) RollbackTransaction(ctx context.Context) error { return nil }
