package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	maxTransactionDescriptionLen = 1000
	maxReferenceLen              = 100
)

// Metadata keys attached by voiding and reversal.
const (
	MetaVoided                = "voided"
	MetaVoidedBy              = "voided_by"
	MetaVoidReason            = "void_reason"
	MetaReversedTransactionID = "reversed_transaction_id"
)

// Transaction is an atomic, balanced group of at least two entries
// representing one accounting event. Construction via NewTransaction is the
// single place the balance and currency invariants are enforced; after that
// the value is immutable and every lifecycle change returns a new copy, so a
// posted transaction handed to a caller can never change underneath them.
type Transaction struct {
	ID            TransactionID     `json:"id"`
	Entries       []Entry           `json:"entries"`
	Description   string            `json:"description"`
	Reference     string            `json:"reference"`
	EffectiveDate time.Time         `json:"effective_date"`
	Status        TransactionStatus `json:"status"`
	Metadata      Metadata          `json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
	PostedAt      *time.Time        `json:"posted_at,omitempty"`
}

// TransactionParams are the inputs to NewTransaction. A zero EffectiveDate
// means now.
type TransactionParams struct {
	Entries       []Entry
	Description   string
	Reference     string
	EffectiveDate time.Time
	Metadata      Metadata
}

// NewTransaction validates the invariants and returns a pending transaction:
// at least two entries, exactly one currency code across them, and debit and
// credit totals equal under exact decimal comparison.
func NewTransaction(p TransactionParams) (Transaction, error) {
	if len(p.Entries) < 2 {
		return Transaction{}, NewValidationError("transaction must have at least 2 entries")
	}
	if len(p.Description) > maxTransactionDescriptionLen {
		return Transaction{}, NewValidationError("transaction description must be at most %d characters", maxTransactionDescriptionLen)
	}
	if len(p.Reference) > maxReferenceLen {
		return Transaction{}, NewValidationError("transaction reference must be at most %d characters", maxReferenceLen)
	}
	if err := p.Metadata.Validate(); err != nil {
		return Transaction{}, err
	}

	currency := p.Entries[0].CurrencyCode
	for _, e := range p.Entries[1:] {
		if e.CurrencyCode != currency {
			return Transaction{}, NewValidationError("mixed currencies not allowed: %s and %s", currency, e.CurrencyCode)
		}
	}

	debits, credits := sumEntries(p.Entries)
	if !debits.Equal(credits) {
		return Transaction{}, &BalanceError{
			Message:     fmt.Sprintf("unbalanced transaction: debits=%s, credits=%s", debits, credits),
			DebitTotal:  debits,
			CreditTotal: credits,
		}
	}

	now := time.Now().UTC()
	effective := p.EffectiveDate
	if effective.IsZero() {
		effective = now
	}

	entries := make([]Entry, len(p.Entries))
	copy(entries, p.Entries)

	return Transaction{
		ID:            NewTransactionID(),
		Entries:       entries,
		Description:   p.Description,
		Reference:     p.Reference,
		EffectiveDate: effective,
		Status:        StatusPending,
		Metadata:      p.Metadata.Clone(),
		CreatedAt:     now,
	}, nil
}

func sumEntries(entries []Entry) (debits, credits decimal.Decimal) {
	for _, e := range entries {
		if e.IsDebit() {
			debits = debits.Add(e.Amount)
		} else {
			credits = credits.Add(e.Amount)
		}
	}
	return debits, credits
}

// DebitTotal is the sum of all debit entry amounts.
func (t Transaction) DebitTotal() decimal.Decimal {
	debits, _ := sumEntries(t.Entries)
	return debits
}

// CreditTotal is the sum of all credit entry amounts.
func (t Transaction) CreditTotal() decimal.Decimal {
	_, credits := sumEntries(t.Entries)
	return credits
}

// Amount is the common debit total of the transaction.
func (t Transaction) Amount() decimal.Decimal { return t.DebitTotal() }

// CurrencyCode is the single currency shared by all entries.
func (t Transaction) CurrencyCode() string {
	if len(t.Entries) == 0 {
		return ""
	}
	return t.Entries[0].CurrencyCode
}

// IsPosted reports whether the transaction has been posted.
func (t Transaction) IsPosted() bool { return t.Status == StatusPosted }

// IsVoided reports whether the transaction carries the void marker set when a
// reversal was posted against it. Its status stays posted regardless.
func (t Transaction) IsVoided() bool {
	v, ok := t.Metadata[MetaVoided].(bool)
	return ok && v
}

// Post returns a posted copy with PostedAt set. It is the only path from
// pending to posted; posting anything but a pending transaction fails.
func (t Transaction) Post() (Transaction, error) {
	if t.Status != StatusPending {
		return Transaction{}, NewValidationError("cannot post transaction with status %s", t.Status)
	}
	now := time.Now().UTC()
	out := t
	out.Status = StatusPosted
	out.PostedAt = &now
	return out, nil
}

// CreateReversal returns a new pending transaction whose entries are the
// original's with debit and credit flipped, amounts and currency unchanged,
// linked back to the original through metadata. Only posted transactions can
// be reversed.
func (t Transaction) CreateReversal(description string) (Transaction, error) {
	if t.Status != StatusPosted {
		return Transaction{}, NewValidationError("can only reverse posted transactions")
	}

	entries := make([]Entry, 0, len(t.Entries))
	for _, e := range t.Entries {
		flipped, err := NewEntry(e.AccountID, e.EntryType.Opposite(), e.Amount, e.CurrencyCode, "")
		if err != nil {
			return Transaction{}, err
		}
		entries = append(entries, flipped)
	}

	if description == "" {
		description = "Reversal of: " + t.Description
	}
	reference := ""
	if t.Reference != "" {
		reference = "REV-" + t.Reference
	}

	return NewTransaction(TransactionParams{
		Entries:     entries,
		Description: description,
		Reference:   reference,
		Metadata:    Metadata{MetaReversedTransactionID: t.ID.String()},
	})
}

// WithMetadata returns a copy whose metadata additionally contains the given
// keys. Entries, amounts and status are untouched; this is the only mutation
// a posted transaction supports.
func (t Transaction) WithMetadata(extra Metadata) (Transaction, error) {
	if err := extra.Validate(); err != nil {
		return Transaction{}, err
	}
	merged := t.Metadata.Clone()
	for k, v := range extra {
		merged[k] = v
	}
	out := t
	out.Metadata = merged
	return out, nil
}
