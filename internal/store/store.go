// Package store defines the persistence contract the ledger engine runs
// against. Two implementations exist: a file-backed sqlite store (default)
// and a pgx-backed postgres store.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/simplebank/simplebank/internal/models"
)

// ErrNotFound is returned by reads when the requested row does not exist.
// The engine maps it onto its own error taxonomy.
var ErrNotFound = errors.New("store: not found")

// Store is the read surface plus the transactional entry point.
type Store interface {
	GetAccount(ctx context.Context, number string) (models.Account, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	ListTransactions(ctx context.Context, number string, limit int) ([]models.Transaction, error)

	// WithTx runs fn inside a single database transaction. A nil return
	// commits; any error rolls back every write fn performed and is
	// returned unchanged.
	WithTx(ctx context.Context, fn func(Tx) error) error

	Close() error
}

// Tx is the write surface available inside WithTx. Reads made through it
// observe the transaction's own snapshot, so balance checks are always
// against fresh data.
type Tx interface {
	GetAccount(ctx context.Context, number string) (models.Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	AccountExists(ctx context.Context, number string) (bool, error)

	CreateAccount(ctx context.Context, a models.Account) error
	CreateUser(ctx context.Context, u models.User) error
	UpdateBalance(ctx context.Context, number string, balance decimal.Decimal) error
	InsertTransaction(ctx context.Context, t models.Transaction) error

	DeleteTransactions(ctx context.Context, number string) error
	DeleteUser(ctx context.Context, number string) error
	DeleteAccount(ctx context.Context, number string) error
}

// Backuper is implemented by stores that can snapshot themselves to a
// directory. The sqlite backend supports it; postgres does not.
type Backuper interface {
	Backup(ctx context.Context, dir string) (string, error)
}
