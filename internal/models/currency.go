package models

import (
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Currency describes a currency code with its display precision. It is used
// for validation and formatting only; the ledger never converts between
// currencies.
type Currency struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	DecimalPlaces int32  `json:"decimal_places"`
}

// NewCurrency validates the code and precision range.
func NewCurrency(code, name, symbol string, decimalPlaces int32) (Currency, error) {
	if err := validateCurrencyCode(code); err != nil {
		return Currency{}, err
	}
	if decimalPlaces < 0 || decimalPlaces > 18 {
		return Currency{}, NewValidationError("decimal places must be 0-18, got %d", decimalPlaces)
	}
	return Currency{Code: code, Name: name, Symbol: symbol, DecimalPlaces: decimalPlaces}, nil
}

// RoundAmount rounds half up to the currency's precision.
func (c Currency) RoundAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.DecimalPlaces)
}

// FormatAmount renders the rounded amount with thousands separators and the
// currency symbol, when one is set.
func (c Currency) FormatAmount(amount decimal.Decimal) string {
	return c.Symbol + groupThousands(c.RoundAmount(amount).StringFixed(c.DecimalPlaces))
}

// SmallestUnit is the value of one unit at the currency's precision,
// e.g. 0.01 for USD and 1 for JPY.
func (c Currency) SmallestUnit() decimal.Decimal {
	if c.DecimalPlaces == 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.New(1, -c.DecimalPlaces)
}

func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(intPart[i])
	}
	out := b.String()
	if hasFrac {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// CurrencyRegistry is an explicit, thread-safe lookup of currency descriptors
// keyed by upper-cased code. A new registry comes seeded with common
// currencies; callers share one instance rather than a package-level global.
type CurrencyRegistry struct {
	mu         sync.RWMutex
	currencies map[string]Currency
}

// NewCurrencyRegistry returns a registry seeded with common currencies.
func NewCurrencyRegistry() *CurrencyRegistry {
	r := &CurrencyRegistry{currencies: make(map[string]Currency)}
	for _, c := range commonCurrencies {
		r.Register(c)
	}
	return r
}

// Get looks up a currency by code, case-insensitively.
func (r *CurrencyRegistry) Get(code string) (Currency, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.currencies[strings.ToUpper(code)]
	return c, ok
}

// Register adds or replaces a currency.
func (r *CurrencyRegistry) Register(c Currency) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currencies[strings.ToUpper(c.Code)] = c
}

// All returns every registered currency, sorted by code.
func (r *CurrencyRegistry) All() []Currency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Currency, 0, len(r.currencies))
	for _, c := range r.currencies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

var commonCurrencies = []Currency{
	{Code: "USD", Name: "US Dollar", Symbol: "$", DecimalPlaces: 2},
	{Code: "EUR", Name: "Euro", Symbol: "€", DecimalPlaces: 2},
	{Code: "GBP", Name: "British Pound", Symbol: "£", DecimalPlaces: 2},
	{Code: "JPY", Name: "Japanese Yen", Symbol: "¥", DecimalPlaces: 0},
	{Code: "CHF", Name: "Swiss Franc", Symbol: "CHF ", DecimalPlaces: 2},
	{Code: "CAD", Name: "Canadian Dollar", Symbol: "C$", DecimalPlaces: 2},
	{Code: "AUD", Name: "Australian Dollar", Symbol: "A$", DecimalPlaces: 2},
	{Code: "BTC", Name: "Bitcoin", Symbol: "₿", DecimalPlaces: 8},
	{Code: "ETH", Name: "Ethereum", Symbol: "Ξ", DecimalPlaces: 18},
	{Code: "USDC", Name: "USD Coin", Symbol: "USDC ", DecimalPlaces: 6},
	{Code: "USDT", Name: "Tether", Symbol: "USDT ", DecimalPlaces: 6},
}
