package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/ledger_bot/internal/model"
	"github.com/ivanoskov/ledger_bot/internal/service"
	"github.com/ivanoskov/ledger_bot/internal/session"
)

type fakeFinance struct {
	mu           sync.Mutex
	accounts     []model.Account
	categories   []model.Category
	transactions []model.Transaction
	loadErr      error
	recentErr    error
	submitErr    error

	recentLimit int
	submitted   []model.NewTransaction
}

func (f *fakeFinance) Accounts(context.Context) ([]model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.accounts, nil
}

func (f *fakeFinance) Categories(context.Context) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.categories, nil
}

func (f *fakeFinance) RecentTransactions(_ context.Context, limit int) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recentLimit = limit
	return f.transactions, f.recentErr
}

func (f *fakeFinance) SubmitTransaction(_ context.Context, in model.NewTransaction) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, in)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &model.Transaction{
		ID:         fmt.Sprintf("tx-%d", len(f.submitted)),
		AccountID:  in.AccountID,
		CategoryID: in.CategoryID,
		Amount:     in.Amount,
		Name:       in.Name,
		Nature:     in.Nature,
		Date:       in.Date,
	}, nil
}

func (f *fakeFinance) set(fn func(f *fakeFinance)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeFinance) lastSubmitted(t *testing.T) model.NewTransaction {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.submitted)
	return f.submitted[len(f.submitted)-1]
}

func newFinance() *fakeFinance {
	return &fakeFinance{
		accounts: []model.Account{
			{ID: "acc-checking", Name: "Checking", Currency: "USD"},
			{ID: "acc-savings", Name: "Savings", Currency: "USD"},
		},
		categories: []model.Category{
			{ID: "cat-salary", Name: "Salary", Classification: model.ClassificationIncome},
			{ID: "cat-food", Name: "Food & Drinks", Classification: model.ClassificationExpense},
			{ID: "cat-rent", Name: "Rent", Classification: model.ClassificationExpense},
		},
	}
}

type harness struct {
	engine  *Engine
	finance *fakeFinance
	store   *session.MemoryStore
}

func newHarness(t *testing.T, finance *fakeFinance) *harness {
	t.Helper()
	store := session.NewMemoryStore(time.Minute)
	engine, err := New(finance, store,
		WithClock(func() time.Time { return time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	_ = engine.Load(context.Background())
	return &harness{engine: engine, finance: finance, store: store}
}

func (h *harness) send(text string) string {
	return h.engine.HandleMessage(context.Background(), "user-1", text)
}

func (h *harness) state() session.State {
	return h.store.Get("user-1").State
}

func (h *harness) kind() session.Kind {
	return h.state().Kind()
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(nil, session.NewMemoryStore(time.Minute))
	require.Error(t, err)

	_, err = New(newFinance(), nil)
	require.Error(t, err)
}

func TestIdleShowsMenuForUnknownInput(t *testing.T) {
	h := newHarness(t, newFinance())

	assert.Equal(t, msgMainMenu, h.send("hello there"))
	assert.Equal(t, msgMainMenu, h.send("/start"))
	assert.Equal(t, session.KindIdle, h.kind())
}

func TestNewStartsFlow(t *testing.T) {
	for _, cmd := range []string{"new", "add", "/add", "  NEW  "} {
		t.Run(cmd, func(t *testing.T) {
			h := newHarness(t, newFinance())

			reply := h.send(cmd)
			assert.Contains(t, reply, "Expense")
			assert.Contains(t, reply, "Income")
			assert.Equal(t, session.KindSelectType, h.kind())
		})
	}
}

func TestNewWithoutAccountsStaysIdle(t *testing.T) {
	finance := newFinance()
	finance.accounts = nil
	h := newHarness(t, finance)

	assert.Equal(t, msgNoAccounts, h.send("new"))
	assert.Equal(t, session.KindIdle, h.kind())
}

func TestDegradedModeRefusesEntryAndRecovers(t *testing.T) {
	finance := newFinance()
	finance.loadErr = errors.New("finance service down")
	h := newHarness(t, finance)
	require.False(t, h.engine.Ready())

	err := h.engine.Load(context.Background())
	e, ok := service.AsError(err)
	require.True(t, ok)
	assert.Equal(t, service.ErrorConfiguration, e.Code)
	assert.False(t, e.Retryable())
	assert.ErrorContains(t, err, "finance service down")

	assert.Equal(t, msgNotReady, h.send("new"))
	assert.Equal(t, msgNotReady, h.send("accounts"))
	assert.Equal(t, session.KindIdle, h.kind())

	// recent is a live call and still works
	assert.Contains(t, h.send("recent"), "No recent transactions")

	finance.set(func(f *fakeFinance) { f.loadErr = nil })
	assert.Equal(t, msgSelectType, h.send("new"))
	assert.True(t, h.engine.Ready())
}

func TestGlobalCommandsFromEveryState(t *testing.T) {
	steps := []string{"new", "1", "1", "10 Lunch"}

	for depth := 0; depth <= len(steps); depth++ {
		t.Run(fmt.Sprintf("cancel after %d steps", depth), func(t *testing.T) {
			h := newHarness(t, newFinance())
			for _, s := range steps[:depth] {
				h.send(s)
			}

			assert.Equal(t, msgCancelled, h.send("/CANCEL"))
			assert.Equal(t, session.Idle{}, h.state())
		})

		t.Run(fmt.Sprintf("back after %d steps", depth), func(t *testing.T) {
			h := newHarness(t, newFinance())
			for _, s := range steps[:depth] {
				h.send(s)
			}

			assert.Equal(t, msgMainMenu, h.send("menu"))
			assert.Equal(t, session.Idle{}, h.state())
		})

		t.Run(fmt.Sprintf("help after %d steps", depth), func(t *testing.T) {
			h := newHarness(t, newFinance())
			for _, s := range steps[:depth] {
				h.send(s)
			}
			before := h.state()

			assert.Equal(t, msgHelp, h.send(" Help "))
			assert.Equal(t, before, h.state())
		})
	}
}

func TestSelectTypeAliases(t *testing.T) {
	tests := []struct {
		input string
		want  model.Nature
	}{
		{"1", model.NatureExpense},
		{"expense", model.NatureExpense},
		{"Expenses", model.NatureExpense},
		{"2", model.NatureIncome},
		{"INCOME", model.NatureIncome},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			h := newHarness(t, newFinance())
			h.send("new")

			reply := h.send(tt.input)
			assert.Contains(t, reply, "1. Checking")
			assert.Contains(t, reply, "2. Savings")

			st, ok := h.state().(session.SelectAccount)
			require.True(t, ok)
			assert.Equal(t, tt.want, st.Nature)
		})
	}
}

func TestSelectTypeRejectsOtherInput(t *testing.T) {
	h := newHarness(t, newFinance())
	h.send("new")

	for _, input := range []string{"3", "transfer", "0", ""} {
		assert.Equal(t, msgInvalidType, h.send(input))
		assert.Equal(t, session.KindSelectType, h.kind())
	}
}

func TestSelectAccountByIndexAndName(t *testing.T) {
	for _, input := range []string{"2", "savings", "  SAVINGS "} {
		t.Run(input, func(t *testing.T) {
			h := newHarness(t, newFinance())
			h.send("new")
			h.send("2")

			reply := h.send(input)
			assert.Contains(t, reply, "Account: Savings")
			assert.Contains(t, reply, exampleIncome)

			st, ok := h.state().(session.EnterDetails)
			require.True(t, ok)
			assert.Equal(t, "acc-savings", st.Account.ID)
			assert.Equal(t, model.NatureIncome, st.Nature)
		})
	}
}

func TestSelectAccountInvalid(t *testing.T) {
	h := newHarness(t, newFinance())
	h.send("new")
	h.send("1")

	for _, input := range []string{"0", "3", "Check", "-1"} {
		assert.Equal(t, msgInvalidAccount, h.send(input))
		assert.Equal(t, session.KindSelectAccount, h.kind())
	}
}

func TestEnterDetails(t *testing.T) {
	h := newHarness(t, newFinance())
	h.send("new")
	h.send("1")
	h.send("1")

	reply := h.send("nonsense")
	assert.Contains(t, reply, "couldn't read that")
	assert.Contains(t, reply, exampleExpense)
	assert.Equal(t, session.KindEnterDetails, h.kind())

	reply = h.send("$12.75 Pizza night")
	assert.Contains(t, reply, "-$12.75 · Pizza night")
	assert.Contains(t, reply, "1. Food & Drinks")
	assert.Contains(t, reply, "2. Rent")
	assert.Contains(t, reply, "3. Salary")

	st, ok := h.state().(session.SelectCategory)
	require.True(t, ok)
	assert.True(t, st.Amount.Equal(decimal.RequireFromString("12.75")))
	assert.Equal(t, "Pizza night", st.Name)
	assert.Equal(t, "acc-checking", st.Account.ID)
	require.Len(t, st.Categories, 3)
	assert.Equal(t, "cat-food", st.Categories[0].ID)
}

func TestEnterDetailsWithoutCategoriesKeepsAccount(t *testing.T) {
	finance := newFinance()
	finance.categories = []model.Category{{ID: "x", Name: "Transfer", Classification: "transfer"}}
	h := newHarness(t, finance)
	h.send("new")
	h.send("1")
	h.send("2")

	assert.Contains(t, h.send("10 Lunch"), "No categories found")
	st, ok := h.state().(session.EnterDetails)
	require.True(t, ok)
	assert.Equal(t, "acc-savings", st.Account.ID)

	finance.set(func(f *fakeFinance) {
		f.categories = append(f.categories, model.Category{ID: "cat-food", Name: "Food", Classification: model.ClassificationExpense})
	})
	assert.Equal(t, fmt.Sprintf(msgRefreshed, 2, 1), h.send("refresh"))
	assert.Equal(t, session.KindEnterDetails, h.kind())

	assert.Contains(t, h.send("10 Lunch"), "1. Food")
	assert.Equal(t, session.KindSelectCategory, h.kind())
}

func TestSelectCategoryByIndexAndNameSubmitSameCategory(t *testing.T) {
	var submitted []string
	for _, input := range []string{"2", "rent", "RENT"} {
		finance := newFinance()
		h := newHarness(t, finance)
		h.send("new")
		h.send("1")
		h.send("1")
		h.send("900 Monthly rent")

		reply := h.send(input)
		require.Contains(t, reply, "Transaction saved")
		submitted = append(submitted, finance.lastSubmitted(t).CategoryID)
	}

	assert.Equal(t, []string{"cat-rent", "cat-rent", "cat-rent"}, submitted)
}

func TestSelectCategoryInvalid(t *testing.T) {
	h := newHarness(t, newFinance())
	h.send("new")
	h.send("1")
	h.send("1")
	h.send("5 Gum")

	for _, input := range []string{"4", "0", "food"} {
		assert.Equal(t, msgInvalidCategory, h.send(input))
		assert.Equal(t, session.KindSelectCategory, h.kind())
	}
	assert.Empty(t, h.finance.submitted)
}

func TestEndToEndExpense(t *testing.T) {
	h := newHarness(t, newFinance())

	h.send("new")
	h.send("1")
	h.send("1")
	h.send("25.50 Coffee")
	reply := h.send("1")

	assert.Contains(t, reply, "-$25.50")
	assert.Contains(t, reply, "Coffee")
	assert.Contains(t, reply, "Food & Drinks")
	assert.Contains(t, reply, "Checking")
	assert.Contains(t, reply, "Oct 19, 2026")
	assert.Equal(t, session.Idle{}, h.state())

	in := h.finance.lastSubmitted(t)
	assert.Equal(t, "acc-checking", in.AccountID)
	assert.Equal(t, "cat-food", in.CategoryID)
	assert.Equal(t, "2026-10-19", in.Date)
	assert.Equal(t, model.NatureExpense, in.Nature)
	assert.True(t, in.Amount.Equal(decimal.RequireFromString("-25.50")))
	assert.Equal(t, "Coffee", in.Name)
}

func TestEndToEndIncomeIsPositive(t *testing.T) {
	h := newHarness(t, newFinance())

	h.send("add")
	h.send("income")
	h.send("Savings")
	h.send("Bonus 1,000")
	reply := h.send("Salary")

	assert.Contains(t, reply, "$1,000.00")
	assert.NotContains(t, reply, "-$")
	in := h.finance.lastSubmitted(t)
	assert.True(t, in.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, model.NatureIncome, in.Nature)
}

func TestSubmissionDateUsesLocation(t *testing.T) {
	finance := newFinance()
	loc := time.FixedZone("UTC+3", 3*60*60)
	engine, err := New(finance, session.NewMemoryStore(time.Minute),
		WithLocation(loc),
		WithClock(func() time.Time { return time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	require.NoError(t, engine.Load(context.Background()))

	for _, msg := range []string{"new", "1", "1", "3 Tea", "1"} {
		engine.HandleMessage(context.Background(), "u", msg)
	}
	assert.Equal(t, "2026-10-20", finance.lastSubmitted(t).Date)
}

func TestSubmitFailureKeepsState(t *testing.T) {
	finance := newFinance()
	finance.submitErr = &service.Error{Code: service.ErrorUpstream, Message: "account is archived"}
	h := newHarness(t, finance)

	h.send("new")
	h.send("1")
	h.send("2")
	h.send("40 Groceries")
	before := h.state()

	reply := h.send("1")
	assert.Contains(t, reply, "Failed to save the transaction")
	assert.Contains(t, reply, "account is archived")
	assert.Equal(t, before, h.state())

	finance.set(func(f *fakeFinance) { f.submitErr = nil })
	reply = h.send("2")
	assert.Contains(t, reply, "Transaction saved")
	assert.Contains(t, reply, "Savings")
	assert.Equal(t, session.KindIdle, h.kind())
	require.Len(t, finance.submitted, 2)

	// the retry reuses the id so a row written by the failed attempt is overwritten
	assert.NotEmpty(t, finance.submitted[0].ID)
	assert.Equal(t, finance.submitted[0].ID, finance.submitted[1].ID)
}

func TestEachFlowGetsItsOwnTransactionID(t *testing.T) {
	h := newHarness(t, newFinance())
	for i := 0; i < 2; i++ {
		for _, msg := range []string{"new", "1", "1", "4 Snack", "1"} {
			h.send(msg)
		}
	}

	require.Len(t, h.finance.submitted, 2)
	assert.NotEqual(t, h.finance.submitted[0].ID, h.finance.submitted[1].ID)
}

func TestSubmitTimeoutReportsGenericFailure(t *testing.T) {
	finance := newFinance()
	finance.submitErr = context.DeadlineExceeded
	h := newHarness(t, finance)
	for _, msg := range []string{"new", "1", "1", "1 Gum"} {
		h.send(msg)
	}

	reply := h.send("1")
	assert.Contains(t, reply, "unavailable")
	assert.Equal(t, session.KindSelectCategory, h.kind())
}

func TestSnapshotsSurviveRefresh(t *testing.T) {
	finance := newFinance()
	h := newHarness(t, finance)
	h.send("new")
	h.send("1")

	finance.set(func(f *fakeFinance) {
		f.accounts = []model.Account{{ID: "acc-new", Name: "Brokerage"}}
		f.categories = []model.Category{{ID: "cat-other", Name: "Other", Classification: model.ClassificationExpense}}
	})
	require.NoError(t, h.engine.Refresh(context.Background()))

	h.send("2")
	st, ok := h.state().(session.EnterDetails)
	require.True(t, ok)
	assert.Equal(t, "acc-savings", st.Account.ID)

	// the category list is captured when it is shown, after the refresh
	h.send("10 Lunch")
	finance.set(func(f *fakeFinance) {
		f.categories = []model.Category{{ID: "cat-late", Name: "Late", Classification: model.ClassificationExpense}}
	})
	require.NoError(t, h.engine.Refresh(context.Background()))

	h.send("1")
	assert.Equal(t, "cat-other", finance.lastSubmitted(t).CategoryID)
}

func TestRecent(t *testing.T) {
	finance := newFinance()
	finance.transactions = []model.Transaction{
		{Name: "Coffee", Amount: decimal.RequireFromString("-3.5"), Date: "2026-10-18"},
	}
	h := newHarness(t, finance)

	reply := h.send("/recent")
	assert.Contains(t, reply, "-$3.50 Coffee")
	assert.Contains(t, reply, "Uncategorized")
	assert.Equal(t, DefaultRecentLimit, finance.recentLimit)
	assert.Equal(t, session.KindIdle, h.kind())
}

func TestRecentFailure(t *testing.T) {
	finance := newFinance()
	finance.recentErr = &service.Error{Code: service.ErrorTimeout, Message: "the finance service did not respond in time"}
	h := newHarness(t, finance)

	reply := h.send("recent")
	assert.Contains(t, reply, "Could not load recent transactions")
	assert.Contains(t, reply, "did not respond in time")
}

func TestAccounts(t *testing.T) {
	h := newHarness(t, newFinance())

	reply := h.send("/accounts")
	assert.Contains(t, reply, "1. Checking")
	assert.Contains(t, reply, "2. Savings")
}

func TestIdentitiesAreIsolated(t *testing.T) {
	h := newHarness(t, newFinance())
	h.send("new")

	reply := h.engine.HandleMessage(context.Background(), "user-2", "1")
	assert.Equal(t, msgMainMenu, reply)
	assert.Equal(t, session.KindSelectType, h.kind())
	assert.Equal(t, session.KindIdle, h.store.Get("user-2").State.Kind())
}

func TestConcurrentMessagesForOneIdentity(t *testing.T) {
	finance := newFinance()
	h := newHarness(t, finance)
	for _, msg := range []string{"new", "1", "1", "7 Snack"} {
		h.send(msg)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.send("1")
		}()
	}
	wg.Wait()

	// only the first message reaches SELECT_CATEGORY; the rest see IDLE
	finance.mu.Lock()
	defer finance.mu.Unlock()
	assert.Len(t, finance.submitted, 1)
	assert.Zero(t, h.engine.locks.len())
}

func TestRefreshCommand(t *testing.T) {
	finance := newFinance()
	h := newHarness(t, finance)
	h.send("new")

	finance.set(func(f *fakeFinance) {
		f.accounts = append(f.accounts, model.Account{ID: "acc-cash", Name: "Cash"})
	})
	assert.Equal(t, fmt.Sprintf(msgRefreshed, 3, 3), h.send("/REFRESH"))
	assert.Equal(t, session.KindSelectType, h.kind())

	// the flow keeps the two accounts it was started with
	reply := h.send("1")
	assert.NotContains(t, reply, "Cash")

	finance.set(func(f *fakeFinance) { f.loadErr = errors.New("timeout") })
	reply = h.send("refresh")
	assert.Contains(t, reply, "Could not reload")
	assert.Contains(t, reply, "could not be loaded")
	assert.True(t, h.engine.Ready())
}
