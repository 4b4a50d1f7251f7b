package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/double-entry-ledger/internal/models"
)

func testAccount(t *testing.T, code string, accountType models.AccountType) models.Account {
	t.Helper()
	account, err := models.NewAccount(models.AccountParams{
		Code:         code,
		Name:         code + " account",
		AccountType:  accountType,
		CurrencyCode: "USD",
	})
	require.NoError(t, err)
	return account
}

func postedTransaction(t *testing.T, debitAccount, creditAccount models.AccountID, amount int64, effective time.Time) models.Transaction {
	t.Helper()
	builder := models.NewTransactionBuilder("test transaction", "")
	builder.Debit(debitAccount, decimal.NewFromInt(amount), "USD", "")
	builder.Credit(creditAccount, decimal.NewFromInt(amount), "USD", "")
	if !effective.IsZero() {
		builder.WithEffectiveDate(effective)
	}
	transaction, err := builder.Build()
	require.NoError(t, err)
	transaction, err = transaction.Post()
	require.NoError(t, err)
	return transaction
}

func TestSaveAccountDuplicates(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	account := testAccount(t, "1000", models.AccountTypeAsset)
	require.NoError(t, store.SaveAccount(ctx, account))

	var dupErr *models.DuplicateAccountError
	require.ErrorAs(t, store.SaveAccount(ctx, account), &dupErr)

	sameCode := testAccount(t, "1000", models.AccountTypeExpense)
	require.ErrorAs(t, store.SaveAccount(ctx, sameCode), &dupErr)
	assert.Equal(t, "1000", dupErr.Code)
}

func TestGetAccountMissReturnsNil(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	account, err := store.GetAccount(ctx, models.NewAccountID())
	require.NoError(t, err)
	assert.Nil(t, account)

	account, err = store.GetAccountByCode(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestListAccountsSortedAndFiltered(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	b := testAccount(t, "2000", models.AccountTypeLiability)
	a := testAccount(t, "1000", models.AccountTypeAsset)
	require.NoError(t, store.SaveAccount(ctx, b))
	require.NoError(t, store.SaveAccount(ctx, a))

	eur, err := models.NewAccount(models.AccountParams{
		Code: "3000", Name: "EUR account", AccountType: models.AccountTypeEquity, CurrencyCode: "EUR",
	})
	require.NoError(t, err)
	require.NoError(t, store.SaveAccount(ctx, eur))

	all, err := store.ListAccounts(ctx, models.AccountFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "1000", all[0].Code)
	assert.Equal(t, "2000", all[1].Code)
	assert.Equal(t, "3000", all[2].Code)

	onlyEUR, err := store.ListAccounts(ctx, models.AccountFilter{CurrencyCode: "EUR"})
	require.NoError(t, err)
	require.Len(t, onlyEUR, 1)
	assert.Equal(t, "3000", onlyEUR[0].Code)
}

func TestUpdateAccountMissing(t *testing.T) {
	store := NewMemoryStorage()
	account := testAccount(t, "1000", models.AccountTypeAsset)

	var notFound *models.AccountNotFoundError
	require.ErrorAs(t, store.UpdateAccount(context.Background(), account), &notFound)
}

func TestSaveTransactionUpserts(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	cash := testAccount(t, "1000", models.AccountTypeAsset)
	revenue := testAccount(t, "4000", models.AccountTypeRevenue)
	require.NoError(t, store.SaveAccount(ctx, cash))
	require.NoError(t, store.SaveAccount(ctx, revenue))

	transaction := postedTransaction(t, cash.ID, revenue.ID, 100, time.Time{})
	require.NoError(t, store.SaveTransaction(ctx, transaction))

	tagged, err := transaction.WithMetadata(models.Metadata{"note": "updated"})
	require.NoError(t, err)
	require.NoError(t, store.SaveTransaction(ctx, tagged))

	stored, err := store.GetTransaction(ctx, transaction.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "updated", stored.Metadata["note"])
}

func TestGetAccountBalancePostedOnly(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	cash := testAccount(t, "1000", models.AccountTypeAsset)
	revenue := testAccount(t, "4000", models.AccountTypeRevenue)
	require.NoError(t, store.SaveAccount(ctx, cash))
	require.NoError(t, store.SaveAccount(ctx, revenue))

	require.NoError(t, store.SaveTransaction(ctx, postedTransaction(t, cash.ID, revenue.ID, 100, time.Time{})))

	// A pending transaction must not contribute.
	builder := models.NewTransactionBuilder("pending", "")
	builder.Debit(cash.ID, decimal.NewFromInt(40), "USD", "")
	builder.Credit(revenue.ID, decimal.NewFromInt(40), "USD", "")
	pending, err := builder.Build()
	require.NoError(t, err)
	require.NoError(t, store.SaveTransaction(ctx, pending))

	balance, err := store.GetAccountBalance(ctx, cash.ID, time.Time{})
	require.NoError(t, err)
	assert.True(t, balance.DebitTotal.Equal(decimal.NewFromInt(100)))
	assert.True(t, balance.CreditTotal.IsZero())
	assert.Equal(t, "USD", balance.CurrencyCode)
}

func TestGetAccountBalanceAsOf(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	cash := testAccount(t, "1000", models.AccountTypeAsset)
	revenue := testAccount(t, "4000", models.AccountTypeRevenue)
	require.NoError(t, store.SaveAccount(ctx, cash))
	require.NoError(t, store.SaveAccount(ctx, revenue))

	jan := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveTransaction(ctx, postedTransaction(t, cash.ID, revenue.ID, 100, jan)))
	require.NoError(t, store.SaveTransaction(ctx, postedTransaction(t, cash.ID, revenue.ID, 50, mar)))

	balance, err := store.GetAccountBalance(ctx, cash.ID, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, balance.DebitTotal.Equal(decimal.NewFromInt(100)))

	// The cutoff is inclusive.
	balance, err = store.GetAccountBalance(ctx, cash.ID, jan)
	require.NoError(t, err)
	assert.True(t, balance.DebitTotal.Equal(decimal.NewFromInt(100)))
}

func TestGetAccountBalanceUnknownAccount(t *testing.T) {
	store := NewMemoryStorage()

	var notFound *models.AccountNotFoundError
	_, err := store.GetAccountBalance(context.Background(), models.NewAccountID(), time.Time{})
	require.ErrorAs(t, err, &notFound)
}

func TestListTransactionsDateRange(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	cash := testAccount(t, "1000", models.AccountTypeAsset)
	revenue := testAccount(t, "4000", models.AccountTypeRevenue)
	require.NoError(t, store.SaveAccount(ctx, cash))
	require.NoError(t, store.SaveAccount(ctx, revenue))

	for _, month := range []time.Month{time.January, time.February, time.March} {
		effective := time.Date(2025, month, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, store.SaveTransaction(ctx, postedTransaction(t, cash.ID, revenue.ID, 10, effective)))
	}

	start := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	inRange, err := store.ListTransactions(ctx, models.TransactionFilter{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	require.Len(t, inRange, 2)
	assert.True(t, inRange[0].EffectiveDate.After(inRange[1].EffectiveDate))
}

func TestListTransactionsOffsetPastEnd(t *testing.T) {
	store := NewMemoryStorage()

	transactions, err := store.ListTransactions(context.Background(), models.TransactionFilter{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, transactions)
}

func TestClear(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	require.NoError(t, store.SaveAccount(ctx, testAccount(t, "1000", models.AccountTypeAsset)))

	store.Clear()

	accounts, err := store.ListAccounts(ctx, models.AccountFilter{})
	require.NoError(t, err)
	assert.Empty(t, accounts)
}
