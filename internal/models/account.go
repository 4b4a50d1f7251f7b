package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	maxAccountCodeLen        = 50
	maxAccountNameLen        = 200
	maxAccountDescriptionLen = 1000
)

// Account is a node in the chart of accounts. It is treated as an immutable
// value: updates go through WithUpdates, which returns a new version and never
// touches the identity fields.
type Account struct {
	ID           AccountID   `json:"id"`
	Code         string      `json:"code"`
	Name         string      `json:"name"`
	AccountType  AccountType `json:"account_type"`
	CurrencyCode string      `json:"currency_code"`
	Description  string      `json:"description"`
	ParentID     *AccountID  `json:"parent_id,omitempty"`
	IsActive     bool        `json:"is_active"`
	Metadata     Metadata    `json:"metadata"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// AccountParams are the inputs to NewAccount.
type AccountParams struct {
	Code         string
	Name         string
	AccountType  AccountType
	CurrencyCode string
	Description  string
	ParentID     *AccountID
	Metadata     Metadata
}

// NewAccount validates the params and returns an active account with a fresh
// id and timestamps.
func NewAccount(p AccountParams) (Account, error) {
	if len(p.Code) < 1 || len(p.Code) > maxAccountCodeLen {
		return Account{}, NewValidationError("account code must be 1-%d characters", maxAccountCodeLen)
	}
	if len(p.Name) < 1 || len(p.Name) > maxAccountNameLen {
		return Account{}, NewValidationError("account name must be 1-%d characters", maxAccountNameLen)
	}
	if !p.AccountType.Valid() {
		return Account{}, NewValidationError("invalid account type %q", p.AccountType)
	}
	if err := validateCurrencyCode(p.CurrencyCode); err != nil {
		return Account{}, err
	}
	if len(p.Description) > maxAccountDescriptionLen {
		return Account{}, NewValidationError("account description must be at most %d characters", maxAccountDescriptionLen)
	}
	if err := p.Metadata.Validate(); err != nil {
		return Account{}, err
	}

	now := time.Now().UTC()
	return Account{
		ID:           NewAccountID(),
		Code:         p.Code,
		Name:         p.Name,
		AccountType:  p.AccountType,
		CurrencyCode: p.CurrencyCode,
		Description:  p.Description,
		ParentID:     p.ParentID,
		IsActive:     true,
		Metadata:     p.Metadata.Clone(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalBalance is the side on which this account accumulates value:
// debit for asset and expense accounts, credit for the rest.
func (a Account) NormalBalance() BalanceType {
	if a.AccountType == AccountTypeAsset || a.AccountType == AccountTypeExpense {
		return BalanceDebit
	}
	return BalanceCredit
}

// AccountUpdate carries the optional fields UpdateAccount may change.
// Nil fields are left untouched.
type AccountUpdate struct {
	Name        *string
	Description *string
	IsActive    *bool
	Metadata    Metadata
}

// WithUpdates returns a new version of the account with the set fields applied
// and UpdatedAt refreshed. ID, Code, AccountType and CurrencyCode never change.
func (a Account) WithUpdates(u AccountUpdate) (Account, error) {
	out := a
	if u.Name != nil {
		if len(*u.Name) < 1 || len(*u.Name) > maxAccountNameLen {
			return Account{}, NewValidationError("account name must be 1-%d characters", maxAccountNameLen)
		}
		out.Name = *u.Name
	}
	if u.Description != nil {
		if len(*u.Description) > maxAccountDescriptionLen {
			return Account{}, NewValidationError("account description must be at most %d characters", maxAccountDescriptionLen)
		}
		out.Description = *u.Description
	}
	if u.IsActive != nil {
		out.IsActive = *u.IsActive
	}
	if u.Metadata != nil {
		if err := u.Metadata.Validate(); err != nil {
			return Account{}, err
		}
		out.Metadata = u.Metadata.Clone()
	}
	out.UpdatedAt = time.Now().UTC()
	return out, nil
}

// AccountBalance is the aggregate of all posted entries for one account as of
// a point in time, split into debit and credit totals.
type AccountBalance struct {
	AccountID    AccountID       `json:"account_id"`
	DebitTotal   decimal.Decimal `json:"debit_total"`
	CreditTotal  decimal.Decimal `json:"credit_total"`
	CurrencyCode string          `json:"currency_code"`
	AsOf         time.Time       `json:"as_of"`
}

// Balance is the raw debit-minus-credit total, before any normal-balance sign
// convention is applied.
func (b AccountBalance) Balance() decimal.Decimal {
	return b.DebitTotal.Sub(b.CreditTotal)
}
