package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Nature decides the sign of a submitted amount.
type Nature string

const (
	NatureExpense Nature = "expense"
	NatureIncome  Nature = "income"
)

func (n Nature) Valid() bool {
	return n == NatureExpense || n == NatureIncome
}

// Sign returns the magnitude with the sign implied by the nature:
// negative for expenses, positive for income.
func (n Nature) Sign(magnitude decimal.Decimal) decimal.Decimal {
	magnitude = magnitude.Abs()
	if n == NatureExpense {
		return magnitude.Neg()
	}
	return magnitude
}

type Transaction struct {
	ID         string          `json:"id"`
	AccountID  string          `json:"account_id"`
	CategoryID string          `json:"category_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency,omitempty"`
	Name       string          `json:"name"`
	Nature     Nature          `json:"nature"`
	Date       string          `json:"date"`
	CreatedAt  time.Time       `json:"created_at,omitempty"`
	Category   *Category       `json:"category,omitempty"`
}

// GenerateID assigns a new UUID if the transaction has none yet.
func (t *Transaction) GenerateID() {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
}

// CategoryName returns the embedded category name, or an empty string.
func (t Transaction) CategoryName() string {
	if t.Category == nil {
		return ""
	}
	return t.Category.Name
}

// NewTransaction is the submission payload for the finance service. ID is
// optional; resubmitting with the same ID updates one row instead of adding
// another.
type NewTransaction struct {
	ID         string
	AccountID  string
	CategoryID string
	Date       string // YYYY-MM-DD
	Amount     decimal.Decimal
	Name       string
	Nature     Nature
}

// TransactionFilter narrows a transaction listing. Results are newest first.
type TransactionFilter struct {
	Limit int
}
