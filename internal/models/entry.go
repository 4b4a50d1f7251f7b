package models

import "github.com/shopspring/decimal"

const maxEntryDescriptionLen = 500

// Entry is a single posting of an amount against one account. The amount is
// always strictly positive; direction is carried by EntryType, never by sign.
// Entries are immutable once constructed.
type Entry struct {
	ID           EntryID         `json:"id"`
	AccountID    AccountID       `json:"account_id"`
	EntryType    EntryType       `json:"entry_type"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
	Description  string          `json:"description"`
}

// NewEntry validates the inputs and returns an entry with a fresh id.
func NewEntry(accountID AccountID, entryType EntryType, amount decimal.Decimal, currencyCode, description string) (Entry, error) {
	if accountID.IsZero() {
		return Entry{}, NewValidationError("entry requires an account id")
	}
	if !entryType.Valid() {
		return Entry{}, NewValidationError("invalid entry type %q", entryType)
	}
	if amount.Cmp(decimal.Zero) <= 0 {
		return Entry{}, NewValidationError("entry amount must be positive, got %s", amount)
	}
	if err := validateCurrencyCode(currencyCode); err != nil {
		return Entry{}, err
	}
	if len(description) > maxEntryDescriptionLen {
		return Entry{}, NewValidationError("entry description must be at most %d characters", maxEntryDescriptionLen)
	}

	return Entry{
		ID:           NewEntryID(),
		AccountID:    accountID,
		EntryType:    entryType,
		Amount:       amount,
		CurrencyCode: currencyCode,
		Description:  description,
	}, nil
}

// IsDebit reports whether this entry is a debit.
func (e Entry) IsDebit() bool { return e.EntryType == EntryTypeDebit }

// IsCredit reports whether this entry is a credit.
func (e Entry) IsCredit() bool { return e.EntryType == EntryTypeCredit }

// SignedAmount is +amount for debits and -amount for credits.
func (e Entry) SignedAmount() decimal.Decimal {
	if e.IsDebit() {
		return e.Amount
	}
	return e.Amount.Neg()
}

func validateCurrencyCode(code string) error {
	if len(code) < 3 || len(code) > 4 {
		return NewValidationError("currency code must be 3-4 characters, got %q", code)
	}
	return nil
}
