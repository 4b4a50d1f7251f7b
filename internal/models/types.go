package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AccountID identifies an account. The distinct type prevents an account id
// from being passed where a transaction or entry id is expected.
type AccountID uuid.UUID

// NewAccountID generates a random AccountID.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// ParseAccountID parses an AccountID from its string form.
func ParseAccountID(s string) (AccountID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(u), nil
}

func (id AccountID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether the id is unset.
func (id AccountID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

func (id AccountID) MarshalJSON() ([]byte, error) { return marshalID(uuid.UUID(id)) }

func (id *AccountID) UnmarshalJSON(data []byte) error {
	u, err := unmarshalID(data)
	if err != nil {
		return err
	}
	*id = AccountID(u)
	return nil
}

// TransactionID identifies a transaction.
type TransactionID uuid.UUID

// NewTransactionID generates a random TransactionID.
func NewTransactionID() TransactionID { return TransactionID(uuid.New()) }

// ParseTransactionID parses a TransactionID from its string form.
func ParseTransactionID(s string) (TransactionID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TransactionID{}, err
	}
	return TransactionID(u), nil
}

func (id TransactionID) String() string { return uuid.UUID(id).String() }

func (id TransactionID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

func (id TransactionID) MarshalJSON() ([]byte, error) { return marshalID(uuid.UUID(id)) }

func (id *TransactionID) UnmarshalJSON(data []byte) error {
	u, err := unmarshalID(data)
	if err != nil {
		return err
	}
	*id = TransactionID(u)
	return nil
}

// EntryID identifies a single entry within a transaction.
type EntryID uuid.UUID

// NewEntryID generates a random EntryID.
func NewEntryID() EntryID { return EntryID(uuid.New()) }

// ParseEntryID parses an EntryID from its string form.
func ParseEntryID(s string) (EntryID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EntryID{}, err
	}
	return EntryID(u), nil
}

func (id EntryID) String() string { return uuid.UUID(id).String() }

func (id EntryID) MarshalJSON() ([]byte, error) { return marshalID(uuid.UUID(id)) }

func (id *EntryID) UnmarshalJSON(data []byte) error {
	u, err := unmarshalID(data)
	if err != nil {
		return err
	}
	*id = EntryID(u)
	return nil
}

func marshalID(u uuid.UUID) ([]byte, error) {
	return []byte(`"` + u.String() + `"`), nil
}

func unmarshalID(data []byte) (uuid.UUID, error) {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return uuid.Nil, fmt.Errorf("id must be a JSON string")
	}
	return uuid.Parse(string(data[1 : len(data)-1]))
}

// AccountType classifies an account in the chart of accounts.
type AccountType string

const (
	// AccountTypeAsset accumulates value on the debit side.
	AccountTypeAsset AccountType = "asset"
	// AccountTypeLiability accumulates value on the credit side.
	AccountTypeLiability AccountType = "liability"
	// AccountTypeEquity captures the owner's residual interest.
	AccountTypeEquity AccountType = "equity"
	// AccountTypeRevenue represents inflows that increase equity.
	AccountTypeRevenue AccountType = "revenue"
	// AccountTypeExpense represents outflows that decrease equity.
	AccountTypeExpense AccountType = "expense"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// EntryType marks an entry as a debit or a credit.
type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

// Valid reports whether t is debit or credit.
func (t EntryType) Valid() bool {
	return t == EntryTypeDebit || t == EntryTypeCredit
}

// Opposite returns the flipped entry type, used when building reversals.
func (t EntryType) Opposite() EntryType {
	if t == EntryTypeDebit {
		return EntryTypeCredit
	}
	return EntryTypeDebit
}

// TransactionStatus is the lifecycle state of a transaction.
//
// Transactions start pending and move to posted exactly once. Voiding never
// changes the status of a posted transaction: it posts a reversal and tags the
// original's metadata, so both records stay posted and net to zero when
// balances are aggregated.
type TransactionStatus string

const (
	StatusPending TransactionStatus = "pending"
	StatusPosted  TransactionStatus = "posted"
	StatusVoided  TransactionStatus = "voided"
)

// BalanceType is the side on which an account naturally accumulates value.
type BalanceType string

const (
	BalanceDebit  BalanceType = "debit"
	BalanceCredit BalanceType = "credit"
)

// Metadata holds free-form string-keyed values on accounts and transactions.
// Values are restricted to strings, numbers, booleans and nil.
type Metadata map[string]any

// Validate checks that every value is a permitted kind.
func (m Metadata) Validate() error {
	for key, value := range m {
		switch value.(type) {
		case nil, string, bool, int, int32, int64, float32, float64:
		default:
			return NewValidationError("metadata value for %q must be a string, number, boolean or nil", key)
		}
	}
	return nil
}

// Clone returns a shallow copy, never nil.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AccountFilter narrows ListAccounts results. Set fields are AND-combined.
type AccountFilter struct {
	IsActive     *bool
	CurrencyCode string
}

// TransactionFilter narrows and paginates ListTransactions results.
type TransactionFilter struct {
	AccountID *AccountID
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}
