package model

import "time"

// Classification groups categories in lists and must agree with the nature
// of transactions filed under them.
type Classification string

const (
	ClassificationExpense Classification = "expense"
	ClassificationIncome  Classification = "income"
)

type Category struct {
	ID             string         `json:"id,omitempty"`
	Name           string         `json:"name"`
	Classification Classification `json:"classification"` // expense or income
	CreatedAt      time.Time      `json:"created_at,omitempty"`
}
