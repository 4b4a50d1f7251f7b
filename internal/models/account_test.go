package models

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccount(t *testing.T, accountType AccountType) Account {
	t.Helper()
	account, err := NewAccount(AccountParams{
		Code:         "1000",
		Name:         "Cash",
		AccountType:  accountType,
		CurrencyCode: "USD",
	})
	require.NoError(t, err)
	return account
}

func TestNormalBalance(t *testing.T) {
	cases := map[AccountType]BalanceType{
		AccountTypeAsset:     BalanceDebit,
		AccountTypeExpense:   BalanceDebit,
		AccountTypeLiability: BalanceCredit,
		AccountTypeEquity:    BalanceCredit,
		AccountTypeRevenue:   BalanceCredit,
	}
	for accountType, want := range cases {
		assert.Equal(t, want, testAccount(t, accountType).NormalBalance(), "type %s", accountType)
	}
}

func TestNewAccountDefaults(t *testing.T) {
	account := testAccount(t, AccountTypeAsset)

	assert.True(t, account.IsActive)
	assert.False(t, account.ID.IsZero())
	assert.NotNil(t, account.Metadata)
	assert.Equal(t, account.CreatedAt, account.UpdatedAt)
}

func TestNewAccountValidation(t *testing.T) {
	base := AccountParams{Code: "1000", Name: "Cash", AccountType: AccountTypeAsset, CurrencyCode: "USD"}

	cases := map[string]func(p AccountParams) AccountParams{
		"empty code":    func(p AccountParams) AccountParams { p.Code = ""; return p },
		"long code":     func(p AccountParams) AccountParams { p.Code = strings.Repeat("x", 51); return p },
		"empty name":    func(p AccountParams) AccountParams { p.Name = ""; return p },
		"long name":     func(p AccountParams) AccountParams { p.Name = strings.Repeat("x", 201); return p },
		"bad type":      func(p AccountParams) AccountParams { p.AccountType = "stock"; return p },
		"bad currency":  func(p AccountParams) AccountParams { p.CurrencyCode = "US"; return p },
		"long descr":    func(p AccountParams) AccountParams { p.Description = strings.Repeat("x", 1001); return p },
		"bad metadata":  func(p AccountParams) AccountParams { p.Metadata = Metadata{"k": []int{1}}; return p },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewAccount(mutate(base))
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestWithUpdatesAppliesOnlySetFields(t *testing.T) {
	account, err := NewAccount(AccountParams{
		Code:         "1000",
		Name:         "Cash",
		AccountType:  AccountTypeAsset,
		CurrencyCode: "USD",
		Description:  "primary cash account",
	})
	require.NoError(t, err)

	name := "Petty Cash"
	inactive := false
	updated, err := account.WithUpdates(AccountUpdate{Name: &name, IsActive: &inactive})
	require.NoError(t, err)

	assert.Equal(t, "Petty Cash", updated.Name)
	assert.False(t, updated.IsActive)
	// unset fields untouched
	assert.Equal(t, "primary cash account", updated.Description)
	// identity fields never change
	assert.Equal(t, account.ID, updated.ID)
	assert.Equal(t, account.Code, updated.Code)
	assert.Equal(t, account.AccountType, updated.AccountType)
	assert.Equal(t, account.CurrencyCode, updated.CurrencyCode)
	assert.False(t, updated.UpdatedAt.Before(account.UpdatedAt))

	// original untouched
	assert.Equal(t, "Cash", account.Name)
	assert.True(t, account.IsActive)
}

func TestWithUpdatesValidatesNewValues(t *testing.T) {
	account := testAccount(t, AccountTypeAsset)

	empty := ""
	_, err := account.WithUpdates(AccountUpdate{Name: &empty})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestAccountBalanceBalance(t *testing.T) {
	balance := AccountBalance{
		AccountID:   NewAccountID(),
		DebitTotal:  decimal.RequireFromString("150.00"),
		CreditTotal: decimal.RequireFromString("30.00"),
	}

	assert.True(t, balance.Balance().Equal(decimal.RequireFromString("120.00")))
}
