package model

import "github.com/shopspring/decimal"

type Account struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Kind     string           `json:"kind"`
	Balance  *decimal.Decimal `json:"balance,omitempty"`
	Currency string           `json:"currency,omitempty"`
}
