package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sheikh-saqib/double-entry-ledger/internal/interfaces"
	"github.com/sheikh-saqib/double-entry-ledger/internal/models"
)

// MemoryStorage is the reference in-memory implementation of
// interfaces.StorageBackend. All access goes through a mutex, so writes are
// serialized within one process; the transactional hooks are no-ops.
type MemoryStorage struct {
	interfaces.NoopTransactionHooks

	mu             sync.RWMutex
	accounts       map[models.AccountID]models.Account
	accountsByCode map[string]models.AccountID
	transactions   map[models.TransactionID]models.Transaction
}

// NewMemoryStorage creates an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		accounts:       make(map[models.AccountID]models.Account),
		accountsByCode: make(map[string]models.AccountID),
		transactions:   make(map[models.TransactionID]models.Transaction),
	}
}

func (m *MemoryStorage) SaveAccount(ctx context.Context, account models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[account.ID]; exists {
		return &models.DuplicateAccountError{AccountID: account.ID}
	}
	if existingID, exists := m.accountsByCode[account.Code]; exists {
		return &models.DuplicateAccountError{AccountID: existingID, Code: account.Code}
	}

	m.accounts[account.ID] = account
	m.accountsByCode[account.Code] = account.ID
	return nil
}

func (m *MemoryStorage) GetAccount(ctx context.Context, id models.AccountID) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	// return a copy so callers cannot touch internal state
	out := account
	return &out, nil
}

func (m *MemoryStorage) GetAccountByCode(ctx context.Context, code string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.accountsByCode[code]
	if !ok {
		return nil, nil
	}
	account, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	out := account
	return &out, nil
}

func (m *MemoryStorage) ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	accounts := make([]models.Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		if filter.IsActive != nil && account.IsActive != *filter.IsActive {
			continue
		}
		if filter.CurrencyCode != "" && account.CurrencyCode != filter.CurrencyCode {
			continue
		}
		accounts = append(accounts, account)
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return accounts, nil
}

func (m *MemoryStorage) UpdateAccount(ctx context.Context, account models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, exists := m.accounts[account.ID]
	if !exists {
		return &models.AccountNotFoundError{AccountID: account.ID}
	}
	if old.Code != account.Code {
		delete(m.accountsByCode, old.Code)
		m.accountsByCode[account.Code] = account.ID
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *MemoryStorage) SaveTransaction(ctx context.Context, transaction models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transactions[transaction.ID] = transaction
	return nil
}

func (m *MemoryStorage) GetTransaction(ctx context.Context, id models.TransactionID) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	transaction, ok := m.transactions[id]
	if !ok {
		return nil, nil
	}
	out := transaction
	return &out, nil
}

func (m *MemoryStorage) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	transactions := make([]models.Transaction, 0, len(m.transactions))
	for _, transaction := range m.transactions {
		if filter.AccountID != nil && !touchesAccount(transaction, *filter.AccountID) {
			continue
		}
		if filter.StartDate != nil && transaction.EffectiveDate.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && transaction.EffectiveDate.After(*filter.EndDate) {
			continue
		}
		transactions = append(transactions, transaction)
	}

	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].EffectiveDate.After(transactions[j].EffectiveDate)
	})

	if filter.Offset >= len(transactions) {
		return []models.Transaction{}, nil
	}
	transactions = transactions[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(transactions) {
		transactions = transactions[:filter.Limit]
	}
	return transactions, nil
}

func touchesAccount(transaction models.Transaction, id models.AccountID) bool {
	for _, entry := range transaction.Entries {
		if entry.AccountID == id {
			return true
		}
	}
	return false
}

func (m *MemoryStorage) GetAccountBalance(ctx context.Context, id models.AccountID, asOf time.Time) (models.AccountBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[id]
	if !ok {
		return models.AccountBalance{}, &models.AccountNotFoundError{AccountID: id}
	}

	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	balance := models.AccountBalance{
		AccountID:    id,
		CurrencyCode: account.CurrencyCode,
		AsOf:         asOf,
	}
	for _, transaction := range m.transactions {
		if transaction.Status != models.StatusPosted || transaction.EffectiveDate.After(asOf) {
			continue
		}
		for _, entry := range transaction.Entries {
			if entry.AccountID != id {
				continue
			}
			if entry.IsDebit() {
				balance.DebitTotal = balance.DebitTotal.Add(entry.Amount)
			} else {
				balance.CreditTotal = balance.CreditTotal.Add(entry.Amount)
			}
		}
	}
	return balance, nil
}

func (m *MemoryStorage) Close() error { return nil }

// Clear drops all stored state. Intended for tests.
func (m *MemoryStorage) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = make(map[models.AccountID]models.Account)
	m.accountsByCode = make(map[string]models.AccountID)
	m.transactions = make(map[models.TransactionID]models.Transaction)
}

// Compile-time check: MemoryStorage implements the storage contract.
var _ interfaces.StorageBackend = (*MemoryStorage)(nil)
