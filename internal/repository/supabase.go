package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/ivanoskov/ledger_bot/internal/model"
)

const (
	tableAccounts     = "accounts"
	tableCategories   = "categories"
	tableTransactions = "transactions"

	// embeds the category row through the transactions.category_id foreign key
	transactionColumns = "*,category:categories(id,name,classification)"
)

var _ Repository = (*SupabaseRepository)(nil)

// SupabaseRepository reads and writes the finance tables over PostgREST.
type SupabaseRepository struct {
	client *supabase.Client
}

func NewSupabaseRepository(url, key string) (*SupabaseRepository, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &SupabaseRepository{
		client: client,
	}, nil
}

func (r *SupabaseRepository) GetAccounts(ctx context.Context) ([]model.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, _, err := r.client.From(tableAccounts).
		Select("*", "", false).
		Order("name", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	return decodeRows[model.Account](data, "accounts")
}

func (r *SupabaseRepository) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, _, err := r.client.From(tableCategories).
		Select("*", "", false).
		Order("name", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return decodeRows[model.Category](data, "categories")
}

// CreateTransaction upserts on id, so a retry after a lost response does not
// record the transaction twice.
func (r *SupabaseRepository) CreateTransaction(ctx context.Context, transaction *model.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, _, err := r.client.From(tableTransactions).
		Insert(newTransactionRow(transaction), true, "id", "representation", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	created, err := decodeRows[model.Transaction](data, "created transaction")
	if err != nil {
		return err
	}
	if len(created) > 0 {
		transaction.ID = created[0].ID
		transaction.CreatedAt = created[0].CreatedAt
		if created[0].Currency != "" {
			transaction.Currency = created[0].Currency
		}
	}
	return nil
}

func (r *SupabaseRepository) GetTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := r.client.From(tableTransactions).
		Select(transactionColumns, "", false)

	// newest first
	query = query.
		Order("date", &postgrest.OrderOpts{Ascending: false}).
		Order("created_at", &postgrest.OrderOpts{Ascending: false})

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit, "")
	}

	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return decodeRows[model.Transaction](data, "transactions")
}

// transactionRow is the insert payload; the embedded category and server
// timestamps are not columns we write.
type transactionRow struct {
	ID         string `json:"id"`
	AccountID  string `json:"account_id"`
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
	Name       string `json:"name"`
	Nature     string `json:"nature"`
	Date       string `json:"date"`
}

func newTransactionRow(t *model.Transaction) transactionRow {
	return transactionRow{
		ID:         t.ID,
		AccountID:  t.AccountID,
		CategoryID: t.CategoryID,
		Amount:     t.Amount.StringFixed(2),
		Name:       t.Name,
		Nature:     string(t.Nature),
		Date:       t.Date,
	}
}

func decodeRows[T any](data []byte, what string) ([]T, error) {
	var rows []T
	if len(data) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", what, err)
	}
	return rows, nil
}
