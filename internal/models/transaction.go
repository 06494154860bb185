package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

// Transaction type labels are part of the persisted format; the transfer
// kinds keep their space-separated spelling from the original schema.
const (
	TxnDeposit          TransactionType = "Deposit"
	TxnWithdrawal       TransactionType = "Withdrawal"
	TxnTransferSent     TransactionType = "Transfer Sent"
	TxnTransferReceived TransactionType = "Transfer Received"
)

// Transaction is one append-only row of the ledger log. RelatedAccount is
// set only for the transfer kinds and names the counterparty account.
type Transaction struct {
	ID             int64           `json:"id"`
	AccountNumber  string          `json:"account_number"`
	Type           TransactionType `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	RelatedAccount *string         `json:"related_account,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}
