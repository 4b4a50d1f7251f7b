package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError reports malformed input: too few entries, mixed currencies,
// out-of-range fields, or an invalid state transition.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// BalanceError reports a transaction whose debit and credit totals differ.
// It carries both computed totals.
type BalanceError struct {
	Message     string
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
}

func (e *BalanceError) Error() string { return e.Message }

// AccountNotFoundError reports a lookup miss. Either AccountID or Code is set
// depending on which key the lookup used.
type AccountNotFoundError struct {
	AccountID AccountID
	Code      string
}

func (e *AccountNotFoundError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("account not found: code %s", e.Code)
	}
	return fmt.Sprintf("account not found: %s", e.AccountID)
}

// TransactionNotFoundError reports a transaction lookup miss.
type TransactionNotFoundError struct {
	TransactionID TransactionID
}

func (e *TransactionNotFoundError) Error() string {
	return fmt.Sprintf("transaction not found: %s", e.TransactionID)
}

// DuplicateAccountError reports an id or code collision on account creation.
type DuplicateAccountError struct {
	AccountID AccountID
	Code      string
}

func (e *DuplicateAccountError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("account already exists: code %s", e.Code)
	}
	return fmt.Sprintf("account already exists: %s", e.AccountID)
}

// InsufficientFundsError is reserved for callers layering spending limits on
// top of the ledger. The engine itself never raises it.
type InsufficientFundsError struct {
	AccountID AccountID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: %s available, %s requested", e.Available, e.Requested)
}

// CurrencyMismatchError reports an expected/actual currency code mismatch.
type CurrencyMismatchError struct {
	Expected string
	Actual   string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// ImmutableTransactionError reports an attempt to void a transaction that is
// not posted.
type ImmutableTransactionError struct {
	TransactionID TransactionID
}

func (e *ImmutableTransactionError) Error() string {
	return fmt.Sprintf("cannot void transaction %s: not posted", e.TransactionID)
}

// StorageError wraps an underlying persistence failure, preserving the cause.
type StorageError struct {
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps cause with a message.
func NewStorageError(message string, cause error) *StorageError {
	return &StorageError{Message: message, Err: cause}
}
