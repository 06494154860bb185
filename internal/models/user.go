package models

// User maps a login name to its account. One user per account.
type User struct {
	Username      string `json:"username"`
	AccountNumber string `json:"account_number"`
	PasswordHash  string `json:"-"`
}
