package ledger

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/double-entry-ledger/internal/interfaces"
	"github.com/sheikh-saqib/double-entry-ledger/internal/models"
	"github.com/sheikh-saqib/double-entry-ledger/internal/models/events"
)

// DefaultCurrency is used when a ledger is constructed without one.
const DefaultCurrency = "USD"

// TopicTransactionPosted is the event topic for posted transactions.
const TopicTransactionPosted = "transaction_posted"

// defaultListLimit bounds ListTransactions when no limit is given.
const defaultListLimit = 100

// Ledger orchestrates accounts, transactions and balances over a storage
// backend. It validates referenced accounts, drives the transaction builder,
// posts and voids transactions, and applies the normal-balance sign convention
// to aggregated balances. It holds no ledger state itself.
type Ledger struct {
	storage         interfaces.StorageBackend
	publisher       interfaces.EventPublisher
	defaultCurrency string
}

// NewLedger creates a ledger over the given storage backend. An empty
// defaultCurrency falls back to DefaultCurrency.
func NewLedger(storage interfaces.StorageBackend, defaultCurrency string) *Ledger {
	if defaultCurrency == "" {
		defaultCurrency = DefaultCurrency
	}
	return &Ledger{
		storage:         storage,
		defaultCurrency: defaultCurrency,
	}
}

// SetEventPublisher attaches an optional publisher notified after a
// transaction is posted.
func (l *Ledger) SetEventPublisher(p interfaces.EventPublisher) { l.publisher = p }

// Storage exposes the backend the ledger runs on.
func (l *Ledger) Storage() interfaces.StorageBackend { return l.storage }

// DefaultCurrency is the currency applied when callers pass none.
func (l *Ledger) DefaultCurrency() string { return l.defaultCurrency }

// Close releases the storage backend.
func (l *Ledger) Close() error { return l.storage.Close() }

// CreateAccountParams are the inputs to CreateAccount. An empty CurrencyCode
// means the ledger default.
type CreateAccountParams struct {
	Code         string
	Name         string
	AccountType  models.AccountType
	CurrencyCode string
	Description  string
	ParentID     *models.AccountID
	Metadata     models.Metadata
}

// CreateAccount validates and persists a new account. It fails with
// DuplicateAccountError when the backend already holds the code or id.
func (l *Ledger) CreateAccount(ctx context.Context, p CreateAccountParams) (models.Account, error) {
	currency := p.CurrencyCode
	if currency == "" {
		currency = l.defaultCurrency
	}

	account, err := models.NewAccount(models.AccountParams{
		Code:         p.Code,
		Name:         p.Name,
		AccountType:  p.AccountType,
		CurrencyCode: currency,
		Description:  p.Description,
		ParentID:     p.ParentID,
		Metadata:     p.Metadata,
	})
	if err != nil {
		return models.Account{}, err
	}

	if err := l.storage.SaveAccount(ctx, account); err != nil {
		return models.Account{}, err
	}
	return account, nil
}

// GetAccount loads an account or fails with AccountNotFoundError.
func (l *Ledger) GetAccount(ctx context.Context, id models.AccountID) (models.Account, error) {
	account, err := l.storage.GetAccount(ctx, id)
	if err != nil {
		return models.Account{}, err
	}
	if account == nil {
		return models.Account{}, &models.AccountNotFoundError{AccountID: id}
	}
	return *account, nil
}

// GetAccountByCode loads an account by its code or fails with
// AccountNotFoundError.
func (l *Ledger) GetAccountByCode(ctx context.Context, code string) (models.Account, error) {
	account, err := l.storage.GetAccountByCode(ctx, code)
	if err != nil {
		return models.Account{}, err
	}
	if account == nil {
		return models.Account{}, &models.AccountNotFoundError{Code: code}
	}
	return *account, nil
}

// ListAccounts returns accounts matching the filter.
func (l *Ledger) ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	return l.storage.ListAccounts(ctx, filter)
}

// UpdateAccount applies the set fields to the stored account and persists the
// new version. Identity fields never change.
func (l *Ledger) UpdateAccount(ctx context.Context, id models.AccountID, u models.AccountUpdate) (models.Account, error) {
	account, err := l.GetAccount(ctx, id)
	if err != nil {
		return models.Account{}, err
	}
	updated, err := account.WithUpdates(u)
	if err != nil {
		return models.Account{}, err
	}
	if err := l.storage.UpdateAccount(ctx, updated); err != nil {
		return models.Account{}, err
	}
	return updated, nil
}

// Posting pairs an account with an amount on one side of a transaction.
type Posting struct {
	AccountID models.AccountID
	Amount    decimal.Decimal
}

// RecordTransactionParams are the inputs to RecordTransaction. An empty
// CurrencyCode means the ledger default; a zero EffectiveDate means now.
type RecordTransactionParams struct {
	Description   string
	Debits        []Posting
	Credits       []Posting
	CurrencyCode  string
	Reference     string
	EffectiveDate time.Time
	Metadata      models.Metadata
	// LeavePending keeps the transaction in pending status instead of
	// posting it immediately.
	LeavePending bool
}

// RecordTransaction validates that every referenced account exists, builds a
// balanced transaction from the debit and credit postings, posts it unless
// told otherwise, persists it and returns it. Account validation happens
// before any entry is built, so nothing is persisted on failure.
func (l *Ledger) RecordTransaction(ctx context.Context, p RecordTransactionParams) (models.Transaction, error) {
	currency := p.CurrencyCode
	if currency == "" {
		currency = l.defaultCurrency
	}

	for _, posting := range p.Debits {
		if _, err := l.GetAccount(ctx, posting.AccountID); err != nil {
			return models.Transaction{}, err
		}
	}
	for _, posting := range p.Credits {
		if _, err := l.GetAccount(ctx, posting.AccountID); err != nil {
			return models.Transaction{}, err
		}
	}

	builder := models.NewTransactionBuilder(p.Description, p.Reference)
	for _, d := range p.Debits {
		builder.Debit(d.AccountID, d.Amount, currency, "")
	}
	for _, c := range p.Credits {
		builder.Credit(c.AccountID, c.Amount, currency, "")
	}
	if !p.EffectiveDate.IsZero() {
		builder.WithEffectiveDate(p.EffectiveDate)
	}
	for key, value := range p.Metadata {
		builder.WithMetadata(key, value)
	}

	transaction, err := builder.Build()
	if err != nil {
		return models.Transaction{}, err
	}

	if !p.LeavePending {
		transaction, err = transaction.Post()
		if err != nil {
			return models.Transaction{}, err
		}
	}

	if err := l.storage.SaveTransaction(ctx, transaction); err != nil {
		return models.Transaction{}, err
	}

	l.publishPosted(ctx, transaction)
	return transaction, nil
}

// GetTransaction loads a transaction or fails with TransactionNotFoundError.
func (l *Ledger) GetTransaction(ctx context.Context, id models.TransactionID) (models.Transaction, error) {
	transaction, err := l.storage.GetTransaction(ctx, id)
	if err != nil {
		return models.Transaction{}, err
	}
	if transaction == nil {
		return models.Transaction{}, &models.TransactionNotFoundError{TransactionID: id}
	}
	return *transaction, nil
}

// ListTransactions returns filtered transactions, newest effective date first.
func (l *Ledger) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	return l.storage.ListTransactions(ctx, filter)
}

// VoidTransaction cancels a posted transaction by posting a balanced reversal
// and tagging the original's metadata. The original stays posted so the pair
// nets to zero in balance aggregation. Both writes run inside the backend's
// transactional hooks: with a transactional backend either both commit or
// neither does. Returns the reversal.
func (l *Ledger) VoidTransaction(ctx context.Context, id models.TransactionID, reason string) (models.Transaction, error) {
	original, err := l.GetTransaction(ctx, id)
	if err != nil {
		return models.Transaction{}, err
	}
	if !original.IsPosted() {
		return models.Transaction{}, &models.ImmutableTransactionError{TransactionID: id}
	}

	description := "Void: " + original.Description
	if reason != "" {
		description += " - " + reason
	}

	reversal, err := original.CreateReversal(description)
	if err != nil {
		return models.Transaction{}, err
	}
	reversal, err = reversal.Post()
	if err != nil {
		return models.Transaction{}, err
	}

	marked, err := original.WithMetadata(models.Metadata{
		models.MetaVoided:     true,
		models.MetaVoidedBy:   reversal.ID.String(),
		models.MetaVoidReason: reason,
	})
	if err != nil {
		return models.Transaction{}, err
	}

	if err := l.storage.BeginTransaction(ctx); err != nil {
		return models.Transaction{}, err
	}
	if err := l.storage.SaveTransaction(ctx, marked); err != nil {
		_ = l.storage.RollbackTransaction(ctx)
		return models.Transaction{}, err
	}
	if err := l.storage.SaveTransaction(ctx, reversal); err != nil {
		_ = l.storage.RollbackTransaction(ctx)
		return models.Transaction{}, err
	}
	if err := l.storage.CommitTransaction(ctx); err != nil {
		return models.Transaction{}, err
	}

	l.publishPosted(ctx, reversal)
	return reversal, nil
}

// GetBalance returns the account's balance as of the given time (zero means
// now), signed by the account's normal balance side: debit-minus-credit for
// asset and expense accounts, credit-minus-debit otherwise.
func (l *Ledger) GetBalance(ctx context.Context, id models.AccountID, asOf time.Time) (decimal.Decimal, error) {
	account, err := l.GetAccount(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := l.storage.GetAccountBalance(ctx, id, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	if account.NormalBalance() == models.BalanceDebit {
		return balance.DebitTotal.Sub(balance.CreditTotal), nil
	}
	return balance.CreditTotal.Sub(balance.DebitTotal), nil
}

// GetBalanceDetails exposes the raw debit/credit aggregate without the sign
// convention applied.
func (l *Ledger) GetBalanceDetails(ctx context.Context, id models.AccountID, asOf time.Time) (models.AccountBalance, error) {
	return l.storage.GetAccountBalance(ctx, id, asOf)
}

func (l *Ledger) publishPosted(ctx context.Context, t models.Transaction) {
	if l.publisher == nil || !t.IsPosted() {
		return
	}
	event := events.TransactionPosted{
		TransactionID: t.ID.String(),
		Description:   t.Description,
		Amount:        t.Amount(),
		CurrencyCode:  t.CurrencyCode(),
		EntryCount:    len(t.Entries),
		PostedAt:      *t.PostedAt,
	}
	if err := l.publisher.Publish(ctx, TopicTransactionPosted, event); err != nil {
		log.Printf("failed to publish %s event for transaction %s: %v", TopicTransactionPosted, t.ID, err)
	}
}
