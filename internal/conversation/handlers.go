package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivanoskov/ledger_bot/internal/format"
	"github.com/ivanoskov/ledger_bot/internal/model"
	"github.com/ivanoskov/ledger_bot/internal/parser"
	"github.com/ivanoskov/ledger_bot/internal/service"
	"github.com/ivanoskov/ledger_bot/internal/session"
)

func (e *Engine) handleIdle(ctx context.Context, log *zap.Logger, command string) (string, session.State) {
	switch command {
	case "new", "add", "/add":
		accounts, _, err := e.referenceData(ctx, log)
		if err != nil {
			return msgNotReady, session.Idle{}
		}
		if len(accounts) == 0 {
			return msgNoAccounts, session.Idle{}
		}
		return msgSelectType, session.SelectType{Accounts: cloneAccounts(accounts)}

	case "recent", "/recent":
		transactions, err := e.finance.RecentTransactions(ctx, DefaultRecentLimit)
		if err != nil {
			log.Error("recent transactions failed", zap.Error(err))
			return fmt.Sprintf(msgRecentFailed, userMessage(err)), session.Idle{}
		}
		return format.Transactions(transactions), session.Idle{}

	case "accounts", "/accounts":
		accounts, _, err := e.referenceData(ctx, log)
		if err != nil {
			return msgNotReady, session.Idle{}
		}
		return format.Accounts(accounts), session.Idle{}
	}

	return msgMainMenu, session.Idle{}
}

func (e *Engine) handleSelectType(st session.SelectType, command string) (string, session.State) {
	var nature model.Nature
	switch command {
	case "1", "expense", "expenses":
		nature = model.NatureExpense
	case "2", "income":
		nature = model.NatureIncome
	default:
		return msgInvalidType, st
	}

	heading := "💸 Expense"
	if nature == model.NatureIncome {
		heading = "💰 Income"
	}
	reply := heading + "\n\n" + format.Accounts(st.Accounts) + msgSelectAccountFooter
	return reply, session.SelectAccount{Nature: nature, Accounts: st.Accounts}
}

func (e *Engine) handleSelectAccount(st session.SelectAccount, input string) (string, session.State) {
	account, ok := pick(st.Accounts, input, func(a model.Account) string { return a.Name })
	if !ok {
		return msgInvalidAccount, st
	}
	return fmt.Sprintf(msgEnterDetails, account.Name, example(st.Nature)),
		session.EnterDetails{Nature: st.Nature, Account: account}
}

func (e *Engine) handleEnterDetails(ctx context.Context, log *zap.Logger, st session.EnterDetails, input string) (string, session.State) {
	entry, ok := parser.Parse(input)
	if !ok {
		return fmt.Sprintf(msgDetailsHint, example(st.Nature)), st
	}

	_, categories, err := e.referenceData(ctx, log)
	if err != nil {
		return msgNotReady, st
	}
	ordered := format.OrderCategories(categories)
	if len(ordered) == 0 {
		return format.NoCategories + msgNoCategoriesFooter, st
	}

	summary := fmt.Sprintf("📝 %s · %s\n\n",
		format.Currency(st.Nature.Sign(entry.Amount), st.Account.Currency), entry.Name)

	return summary + format.Categories(ordered), session.SelectCategory{
		Nature:        st.Nature,
		Account:       st.Account,
		Amount:        entry.Amount,
		Name:          entry.Name,
		Categories:    ordered,
		TransactionID: uuid.NewString(),
	}
}

// handleSelectCategory submits the transaction. On failure the state is kept
// as is, so any category reply (the same one or another) submits again.
func (e *Engine) handleSelectCategory(ctx context.Context, log *zap.Logger, st session.SelectCategory, input string) (string, session.State) {
	category, ok := pick(st.Categories, input, func(c model.Category) string { return c.Name })
	if !ok {
		return msgInvalidCategory, st
	}

	signed := st.Nature.Sign(st.Amount)
	date := e.now().In(e.location).Format(dateLayout)

	tx, err := e.finance.SubmitTransaction(ctx, model.NewTransaction{
		ID:         st.TransactionID,
		AccountID:  st.Account.ID,
		CategoryID: category.ID,
		Date:       date,
		Amount:     signed,
		Name:       st.Name,
		Nature:     st.Nature,
	})
	if err != nil {
		log.Error("transaction submission failed",
			zap.String("account_id", st.Account.ID),
			zap.String("category_id", category.ID),
			zap.Error(err),
		)
		return fmt.Sprintf(msgSubmitFailed, userMessage(err)), st
	}

	icon := "💸"
	if st.Nature == model.NatureIncome {
		icon = "💰"
	}
	if tx != nil && tx.Date != "" {
		date = tx.Date
	}
	log.Info("transaction recorded", zap.String("category_id", category.ID))

	return fmt.Sprintf(msgSaved,
		icon,
		format.Currency(signed, st.Account.Currency),
		st.Name,
		category.Name,
		st.Account.Name,
		format.Date(date),
	), session.Idle{}
}

// pick resolves input against the list the user was shown: first as a
// 1-based position, then as an exact case-insensitive name.
func pick[T any](items []T, input string, name func(T) string) (T, bool) {
	var zero T
	input = strings.TrimSpace(input)
	if input == "" {
		return zero, false
	}

	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(items) {
		return items[n-1], true
	}
	for _, item := range items {
		if strings.EqualFold(strings.TrimSpace(name(item)), input) {
			return item, true
		}
	}
	return zero, false
}

func example(nature model.Nature) string {
	if nature == model.NatureIncome {
		return exampleIncome
	}
	return exampleExpense
}

func cloneAccounts(accounts []model.Account) []model.Account {
	return append([]model.Account(nil), accounts...)
}

// userMessage is the part of err that can be shown in chat.
func userMessage(err error) string {
	if e, ok := service.AsError(err); ok && e.Message != "" {
		return e.Message
	}
	return "the finance service is unavailable, please try again"
}
