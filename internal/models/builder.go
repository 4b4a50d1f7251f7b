package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionBuilder is a mutable staging area for assembling a transaction's
// entries, metadata and effective date before producing the immutable value.
// Balance and currency consistency are deliberately not checked while adding:
// entries may arrive in any order and the first point of truth is always
// NewTransaction, called from Build. Entry-level failures (a non-positive
// amount, a bad currency code) are held and surfaced by Build.
type TransactionBuilder struct {
	description   string
	reference     string
	entries       []Entry
	metadata      Metadata
	effectiveDate time.Time
	err           error
}

// NewTransactionBuilder starts an empty builder.
func NewTransactionBuilder(description, reference string) *TransactionBuilder {
	return &TransactionBuilder{
		description: description,
		reference:   reference,
		metadata:    Metadata{},
	}
}

// Debit stages a debit entry against the account.
func (b *TransactionBuilder) Debit(accountID AccountID, amount decimal.Decimal, currencyCode, description string) *TransactionBuilder {
	return b.add(accountID, EntryTypeDebit, amount, currencyCode, description)
}

// Credit stages a credit entry against the account.
func (b *TransactionBuilder) Credit(accountID AccountID, amount decimal.Decimal, currencyCode, description string) *TransactionBuilder {
	return b.add(accountID, EntryTypeCredit, amount, currencyCode, description)
}

func (b *TransactionBuilder) add(accountID AccountID, entryType EntryType, amount decimal.Decimal, currencyCode, description string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	entry, err := NewEntry(accountID, entryType, amount, currencyCode, description)
	if err != nil {
		b.err = err
		return b
	}
	b.entries = append(b.entries, entry)
	return b
}

// WithMetadata stages one metadata key/value pair.
func (b *TransactionBuilder) WithMetadata(key string, value any) *TransactionBuilder {
	b.metadata[key] = value
	return b
}

// WithEffectiveDate overrides the business timestamp of the transaction.
func (b *TransactionBuilder) WithEffectiveDate(date time.Time) *TransactionBuilder {
	b.effectiveDate = date
	return b
}

// Build constructs and validates the transaction. Any staging error is
// returned first; everything else fails or succeeds in NewTransaction.
func (b *TransactionBuilder) Build() (Transaction, error) {
	if b.err != nil {
		return Transaction{}, b.err
	}
	if len(b.entries) < 2 {
		return Transaction{}, NewValidationError("transaction must have at least 2 entries")
	}
	return NewTransaction(TransactionParams{
		Entries:       b.entries,
		Description:   b.description,
		Reference:     b.reference,
		EffectiveDate: b.effectiveDate,
		Metadata:      b.metadata,
	})
}
