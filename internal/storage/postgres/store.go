package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/double-entry-ledger/internal/interfaces"
	"github.com/sheikh-saqib/double-entry-ledger/internal/models"
)

// uniqueViolation is the postgres error code for unique constraint failures.
const uniqueViolation = pq.ErrorCode("23505")

// PostgresStorage is a durable implementation of interfaces.StorageBackend on
// top of lib/pq. The transactional hooks map onto a single sql.Tx, so the
// ledger's paired void writes commit or roll back together.
type PostgresStorage struct {
	db *sql.DB

	mu sync.Mutex
	tx *sql.Tx
}

// NewPostgresStorage wraps an existing database handle.
func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// Open connects to postgres with the given DSN and verifies the connection.
func Open(dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, models.NewStorageError("open postgres connection", err)
	}
	if err := db.Ping(); err != nil {
		return nil, models.NewStorageError("ping postgres", err)
	}
	return &PostgresStorage{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id UUID PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	account_type TEXT NOT NULL,
	currency_code TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	parent_id UUID,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	metadata JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY,
	description TEXT NOT NULL DEFAULT '',
	reference TEXT NOT NULL DEFAULT '',
	effective_date TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	posted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS entries (
	id UUID PRIMARY KEY,
	transaction_id UUID NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
	account_id UUID NOT NULL,
	entry_type TEXT NOT NULL,
	amount NUMERIC(38,18) NOT NULL,
	currency_code TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	position INT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_account ON entries (account_id);
CREATE INDEX IF NOT EXISTS idx_transactions_effective ON transactions (effective_date);
`

// Migrate creates the schema when it does not exist yet.
func (p *PostgresStorage) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return models.NewStorageError("create schema", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// querier returns the open hook transaction when there is one.
func (p *PostgresStorage) querier() querier {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tx != nil {
		return p.tx
	}
	return p.db
}

func (p *PostgresStorage) SaveAccount(ctx context.Context, account models.Account) error {
	metadata, err := json.Marshal(account.Metadata.Clone())
	if err != nil {
		return models.NewStorageError("encode account metadata", err)
	}
	var parent any
	if account.ParentID != nil {
		parent = account.ParentID.String()
	}

	const query = `INSERT INTO accounts
		(id, code, name, account_type, currency_code, description, parent_id, is_active, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = p.querier().ExecContext(ctx, query,
		account.ID.String(), account.Code, account.Name, string(account.AccountType),
		account.CurrencyCode, account.Description, parent, account.IsActive,
		metadata, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &models.DuplicateAccountError{AccountID: account.ID, Code: account.Code}
		}
		return models.NewStorageError("save account", err)
	}
	return nil
}

const accountColumns = `id, code, name, account_type, currency_code, description, parent_id, is_active, metadata, created_at, updated_at`

func (p *PostgresStorage) GetAccount(ctx context.Context, id models.AccountID) (*models.Account, error) {
	row := p.querier().QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id.String())
	return scanAccount(row)
}

func (p *PostgresStorage) GetAccountByCode(ctx context.Context, code string) (*models.Account, error) {
	row := p.querier().QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE code = $1`, code)
	return scanAccount(row)
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		account      models.Account
		id           string
		accountType  string
		parent       sql.NullString
		metadataJSON []byte
	)
	err := row.Scan(&id, &account.Code, &account.Name, &accountType,
		&account.CurrencyCode, &account.Description, &parent, &account.IsActive,
		&metadataJSON, &account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewStorageError("scan account", err)
	}

	account.ID, err = models.ParseAccountID(id)
	if err != nil {
		return nil, models.NewStorageError("parse account id", err)
	}
	account.AccountType = models.AccountType(accountType)
	if parent.Valid {
		parentID, err := models.ParseAccountID(parent.String)
		if err != nil {
			return nil, models.NewStorageError("parse parent account id", err)
		}
		account.ParentID = &parentID
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &account.Metadata); err != nil {
			return nil, models.NewStorageError("decode account metadata", err)
		}
	}
	if account.Metadata == nil {
		account.Metadata = models.Metadata{}
	}
	return &account, nil
}

func (p *PostgresStorage) ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	var (
		conditions []string
		args       []any
	)
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if filter.CurrencyCode != "" {
		args = append(args, filter.CurrencyCode)
		conditions = append(conditions, fmt.Sprintf("currency_code = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY code"

	rows, err := p.querier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.NewStorageError("list accounts", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewStorageError("list accounts", err)
	}
	return accounts, nil
}

func (p *PostgresStorage) UpdateAccount(ctx context.Context, account models.Account) error {
	metadata, err := json.Marshal(account.Metadata.Clone())
	if err != nil {
		return models.NewStorageError("encode account metadata", err)
	}

	const query = `UPDATE accounts
		SET name = $2, description = $3, is_active = $4, metadata = $5, updated_at = $6
		WHERE id = $1`

	result, err := p.querier().ExecContext(ctx, query,
		account.ID.String(), account.Name, account.Description, account.IsActive,
		metadata, account.UpdatedAt)
	if err != nil {
		return models.NewStorageError("update account", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.NewStorageError("update account", err)
	}
	if affected == 0 {
		return &models.AccountNotFoundError{AccountID: account.ID}
	}
	return nil
}

func (p *PostgresStorage) SaveTransaction(ctx context.Context, transaction models.Transaction) error {
	p.mu.Lock()
	tx := p.tx
	p.mu.Unlock()

	if tx != nil {
		return p.saveTransactionIn(ctx, tx, transaction)
	}

	// No hook transaction open: the row and its entries still need to land
	// together, so use a local one.
	local, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return models.NewStorageError("begin save transaction", err)
	}
	if err := p.saveTransactionIn(ctx, local, transaction); err != nil {
		_ = local.Rollback()
		return err
	}
	if err := local.Commit(); err != nil {
		return models.NewStorageError("commit save transaction", err)
	}
	return nil
}

func (p *PostgresStorage) saveTransactionIn(ctx context.Context, tx *sql.Tx, transaction models.Transaction) error {
	metadata, err := json.Marshal(transaction.Metadata.Clone())
	if err != nil {
		return models.NewStorageError("encode transaction metadata", err)
	}
	var postedAt any
	if transaction.PostedAt != nil {
		postedAt = *transaction.PostedAt
	}

	const upsert = `INSERT INTO transactions
		(id, description, reference, effective_date, status, metadata, created_at, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			reference = EXCLUDED.reference,
			effective_date = EXCLUDED.effective_date,
			status = EXCLUDED.status,
			metadata = EXCLUDED.metadata,
			posted_at = EXCLUDED.posted_at`

	_, err = tx.ExecContext(ctx, upsert,
		transaction.ID.String(), transaction.Description, transaction.Reference,
		transaction.EffectiveDate, string(transaction.Status), metadata,
		transaction.CreatedAt, postedAt)
	if err != nil {
		return models.NewStorageError("save transaction", err)
	}

	// Entries are immutable: on a re-save of an existing transaction they
	// are already present and the insert is a no-op.
	const insertEntry = `INSERT INTO entries
		(id, transaction_id, account_id, entry_type, amount, currency_code, description, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	for i, entry := range transaction.Entries {
		_, err = tx.ExecContext(ctx, insertEntry,
			entry.ID.String(), transaction.ID.String(), entry.AccountID.String(),
			string(entry.EntryType), entry.Amount, entry.CurrencyCode,
			entry.Description, i)
		if err != nil {
			return models.NewStorageError("save entry", err)
		}
	}
	return nil
}

func (p *PostgresStorage) GetTransaction(ctx context.Context, id models.TransactionID) (*models.Transaction, error) {
	q := p.querier()
	row := q.QueryRowContext(ctx,
		`SELECT id, description, reference, effective_date, status, metadata, created_at, posted_at
		FROM transactions WHERE id = $1`, id.String())

	transaction, err := scanTransaction(row)
	if err != nil || transaction == nil {
		return transaction, err
	}

	entries, err := p.loadEntries(ctx, q, id)
	if err != nil {
		return nil, err
	}
	transaction.Entries = entries
	return transaction, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		transaction  models.Transaction
		id           string
		status       string
		metadataJSON []byte
		postedAt     sql.NullTime
	)
	err := row.Scan(&id, &transaction.Description, &transaction.Reference,
		&transaction.EffectiveDate, &status, &metadataJSON,
		&transaction.CreatedAt, &postedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewStorageError("scan transaction", err)
	}

	transaction.ID, err = models.ParseTransactionID(id)
	if err != nil {
		return nil, models.NewStorageError("parse transaction id", err)
	}
	transaction.Status = models.TransactionStatus(status)
	if postedAt.Valid {
		t := postedAt.Time
		transaction.PostedAt = &t
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &transaction.Metadata); err != nil {
			return nil, models.NewStorageError("decode transaction metadata", err)
		}
	}
	if transaction.Metadata == nil {
		transaction.Metadata = models.Metadata{}
	}
	return &transaction, nil
}

func (p *PostgresStorage) loadEntries(ctx context.Context, q querier, id models.TransactionID) ([]models.Entry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, account_id, entry_type, amount, currency_code, description
		FROM entries WHERE transaction_id = $1 ORDER BY position`, id.String())
	if err != nil {
		return nil, models.NewStorageError("load entries", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		var (
			entry     models.Entry
			entryID   string
			accountID string
			entryType string
			amount    decimal.Decimal
		)
		if err := rows.Scan(&entryID, &accountID, &entryType, &amount,
			&entry.CurrencyCode, &entry.Description); err != nil {
			return nil, models.NewStorageError("scan entry", err)
		}
		entry.ID, err = models.ParseEntryID(entryID)
		if err != nil {
			return nil, models.NewStorageError("parse entry id", err)
		}
		entry.AccountID, err = models.ParseAccountID(accountID)
		if err != nil {
			return nil, models.NewStorageError("parse entry account id", err)
		}
		entry.EntryType = models.EntryType(entryType)
		entry.Amount = amount
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewStorageError("load entries", err)
	}
	return entries, nil
}

func (p *PostgresStorage) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	q := p.querier()

	query := `SELECT id, description, reference, effective_date, status, metadata, created_at, posted_at
		FROM transactions`
	var (
		conditions []string
		args       []any
	)
	if filter.AccountID != nil {
		args = append(args, filter.AccountID.String())
		conditions = append(conditions, fmt.Sprintf(
			"id IN (SELECT transaction_id FROM entries WHERE account_id = $%d)", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("effective_date >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("effective_date <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY effective_date DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.NewStorageError("list transactions", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewStorageError("list transactions", err)
	}

	for i := range transactions {
		entries, err := p.loadEntries(ctx, q, transactions[i].ID)
		if err != nil {
			return nil, err
		}
		transactions[i].Entries = entries
	}
	return transactions, nil
}

func (p *PostgresStorage) GetAccountBalance(ctx context.Context, id models.AccountID, asOf time.Time) (models.AccountBalance, error) {
	account, err := p.GetAccount(ctx, id)
	if err != nil {
		return models.AccountBalance{}, err
	}
	if account == nil {
		return models.AccountBalance{}, &models.AccountNotFoundError{AccountID: id}
	}

	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	const query = `SELECT
			COALESCE(SUM(CASE WHEN e.entry_type = 'debit' THEN e.amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN e.entry_type = 'credit' THEN e.amount ELSE 0 END), 0)
		FROM entries e
		JOIN transactions t ON t.id = e.transaction_id
		WHERE e.account_id = $1 AND t.status = $2 AND t.effective_date <= $3`

	var debitTotal, creditTotal decimal.Decimal
	err = p.querier().QueryRowContext(ctx, query,
		id.String(), string(models.StatusPosted), asOf).Scan(&debitTotal, &creditTotal)
	if err != nil {
		return models.AccountBalance{}, models.NewStorageError("aggregate balance", err)
	}

	return models.AccountBalance{
		AccountID:    id,
		DebitTotal:   debitTotal,
		CreditTotal:  creditTotal,
		CurrencyCode: account.CurrencyCode,
		AsOf:         asOf,
	}, nil
}

// BeginTransaction opens the hook transaction subsequent writes run in.
func (p *PostgresStorage) BeginTransaction(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tx != nil {
		return models.NewStorageError("storage transaction already in progress", nil)
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return models.NewStorageError("begin storage transaction", err)
	}
	p.tx = tx
	return nil
}

func (p *PostgresStorage) CommitTransaction(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tx == nil {
		return nil
	}
	err := p.tx.Commit()
	p.tx = nil
	if err != nil {
		return models.NewStorageError("commit storage transaction", err)
	}
	return nil
}

func (p *PostgresStorage) RollbackTransaction(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tx == nil {
		return nil
	}
	err := p.tx.Rollback()
	p.tx = nil
	if err != nil {
		return models.NewStorageError("rollback storage transaction", err)
	}
	return nil
}

func (p *PostgresStorage) Close() error {
	return p.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Compile-time check: PostgresStorage implements the storage contract.
var _ interfaces.StorageBackend = (*PostgresStorage)(nil)
