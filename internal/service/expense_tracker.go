package service

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ivanoskov/ledger_bot/internal/model"
)

const (
	DefaultTimeout = 30 * time.Second

	MinRecentLimit = 1
	MaxRecentLimit = 100
	MaxNameLength  = 255

	dateLayout = "2006-01-02"
)

// Repository is the remote finance store.
type Repository interface {
	GetAccounts(ctx context.Context) ([]model.Account, error)
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error)
	CreateTransaction(ctx context.Context, transaction *model.Transaction) error
}

// ExpenseTracker is the engine's gateway to the finance service. Every call is
// bounded by a timeout and fails with *Error.
type ExpenseTracker struct {
	repo    Repository
	timeout time.Duration
	logger  *zap.Logger
}

// NewExpenseTracker wraps repo. A non-positive timeout falls back to
// DefaultTimeout and a nil logger discards output.
func NewExpenseTracker(repo Repository, timeout time.Duration, logger *zap.Logger) *ExpenseTracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpenseTracker{
		repo:    repo,
		timeout: timeout,
		logger:  logger,
	}
}

func (s *ExpenseTracker) Accounts(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	err := s.call(ctx, "get_accounts", func(ctx context.Context) (err error) {
		accounts, err = s.repo.GetAccounts(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *ExpenseTracker) Categories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := s.call(ctx, "get_categories", func(ctx context.Context) (err error) {
		categories, err = s.repo.GetCategories(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// RecentTransactions returns up to limit transactions, newest first.
func (s *ExpenseTracker) RecentTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	if limit < MinRecentLimit || limit > MaxRecentLimit {
		return nil, validationError("limit must be between 1 and 100")
	}

	var transactions []model.Transaction
	err := s.call(ctx, "get_transactions", func(ctx context.Context) (err error) {
		transactions, err = s.repo.GetTransactions(ctx, model.TransactionFilter{Limit: limit})
		return err
	})
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// SubmitTransaction validates in and records it. The returned transaction is
// the one stored by the finance service. A missing in.ID is generated.
func (s *ExpenseTracker) SubmitTransaction(ctx context.Context, in model.NewTransaction) (*model.Transaction, error) {
	if err := validateNewTransaction(&in); err != nil {
		return nil, err
	}

	transaction := &model.Transaction{
		ID:         in.ID,
		AccountID:  in.AccountID,
		CategoryID: in.CategoryID,
		Amount:     in.Amount,
		Name:       in.Name,
		Nature:     in.Nature,
		Date:       in.Date,
	}
	transaction.GenerateID()

	err := s.call(ctx, "create_transaction", func(ctx context.Context) error {
		return s.repo.CreateTransaction(ctx, transaction)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction created",
		zap.String("transaction_id", transaction.ID),
		zap.String("account_id", transaction.AccountID),
		zap.String("nature", string(transaction.Nature)),
	)
	return transaction, nil
}

// SpendingByCategory totals expense magnitudes per category over the last
// limit transactions, largest first.
func (s *ExpenseTracker) SpendingByCategory(ctx context.Context, limit int) ([]model.CategoryStats, error) {
	transactions, err := s.RecentTransactions(ctx, limit)
	if err != nil {
		return nil, err
	}
	return spendingByCategory(transactions), nil
}

func spendingByCategory(transactions []model.Transaction) []model.CategoryStats {
	totals := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, t := range transactions {
		if !t.Amount.IsNegative() {
			continue
		}
		name := t.CategoryName()
		if name == "" {
			name = "Uncategorized"
		}
		amount := t.Amount.Abs()
		totals[name] = totals[name].Add(amount)
		total = total.Add(amount)
	}

	stats := make([]model.CategoryStats, 0, len(totals))
	for name, amount := range totals {
		share, _ := amount.Div(total).Mul(decimal.NewFromInt(100)).Float64()
		stats = append(stats, model.CategoryStats{Name: name, Amount: amount, Share: share})
	}

	sort.Slice(stats, func(i, j int) bool {
		if c := stats[i].Amount.Cmp(stats[j].Amount); c != 0 {
			return c > 0
		}
		return stats[i].Name < stats[j].Name
	})
	return stats
}

func validateNewTransaction(in *model.NewTransaction) *Error {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case strings.TrimSpace(in.AccountID) == "":
		return validationError("account is required")
	case strings.TrimSpace(in.CategoryID) == "":
		return validationError("category is required")
	case in.Name == "":
		return validationError("description is required")
	case utf8.RuneCountInString(in.Name) > MaxNameLength:
		return validationError("description must be at most 255 characters")
	case !in.Nature.Valid():
		return validationError("transaction type must be expense or income")
	}
	if _, err := time.Parse(dateLayout, in.Date); err != nil {
		return validationError("date must be a valid YYYY-MM-DD date")
	}
	return nil
}

// call runs fn under the tracker timeout. A repository that ignores ctx is
// abandoned once the deadline passes; its result is dropped.
func (s *ExpenseTracker) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err == nil {
		return nil
	}

	e := upstreamError(err)
	s.logger.Error("finance service call failed",
		zap.String("op", op),
		zap.String("code", string(e.Code)),
		zap.Error(err),
	)
	return e
}
