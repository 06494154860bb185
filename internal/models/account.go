package models

import "github.com/shopspring/decimal"

// Account is a single bank account. Number is the externally visible
// identifier: a unique string of decimal digits.
type Account struct {
	Number  string          `json:"account_number"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// Identity is the authenticated principal a front-end holds after login.
// Balance is a snapshot taken at authentication time; the engine always
// re-reads balances from the store before acting on them.
type Identity struct {
	Username      string          `json:"username"`
	AccountNumber string          `json:"account_number"`
	Name          string          `json:"name"`
	Balance       decimal.Decimal `json:"balance"`
}

// IsZero reports whether the identity carries no authenticated account.
func (id Identity) IsZero() bool { return id.AccountNumber == "" }
