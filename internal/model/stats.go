package model

import "github.com/shopspring/decimal"

// CategoryStats is the spending total of one category over a set of transactions.
type CategoryStats struct {
	Name   string
	Amount decimal.Decimal
	Share  float64 // percent of the total
}
