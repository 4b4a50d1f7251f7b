package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionPosted is emitted after a transaction reaches posted status,
// including the reversal posted by a void.
type TransactionPosted struct {
	TransactionID string          `json:"transaction_id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	CurrencyCode  string          `json:"currency_code"`
	EntryCount    int             `json:"entry_count"`
	PostedAt      time.Time       `json:"posted_at"`
}
