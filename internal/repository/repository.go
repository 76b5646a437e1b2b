package repository

import (
	"context"

	"github.com/ivanoskov/ledger_bot/internal/model"
)

// Repository is the remote finance store: reference data plus transactions.
type Repository interface {
	// Reference data
	GetAccounts(ctx context.Context) ([]model.Account, error)
	GetCategories(ctx context.Context) ([]model.Category, error)

	// Transactions
	CreateTransaction(ctx context.Context, transaction *model.Transaction) error
	GetTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error)
}
