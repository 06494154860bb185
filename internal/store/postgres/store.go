// Package postgres is the pgx-backed store, for deployments that want a
// real database server behind the ledger instead of a local file.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/simplebank/simplebank/internal/models"
	"github.com/simplebank/simplebank/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database at url and brings the schema up to date.
func Open(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)`); err != nil {
		return err
	}

	files, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	for _, f := range files {
		name := f.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, name).Scan(&exists); err != nil {
			return err
		}
		if exists {
			continue
		}

		b, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO schema_migrations(version) VALUES($1)`, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getAccount(ctx context.Context, q querier, number string) (models.Account, error) {
	var a models.Account
	var balance string
	err := q.QueryRow(ctx,
		`SELECT account_number, name, balance::text FROM accounts WHERE account_number = $1`,
		number,
	).Scan(&a.Number, &a.Name, &balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Account{}, store.ErrNotFound
	}
	if err != nil {
		return models.Account{}, err
	}
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return models.Account{}, fmt.Errorf("account %s: bad balance %q: %w", number, balance, err)
	}
	return a, nil
}

func (s *Store) GetAccount(ctx context.Context, number string) (models.Account, error) {
	return getAccount(ctx, s.pool, number)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT username, account_number, password_hash FROM users WHERE username = $1`,
		username,
	).Scan(&u.Username, &u.AccountNumber, &u.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, store.ErrNotFound
	}
	return u, err
}

func (s *Store) ListTransactions(ctx context.Context, number string, limit int) ([]models.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, account_number, type, amount::text, related_account, timestamp
		   FROM transactions
		  WHERE account_number = $1
		  ORDER BY timestamp DESC, id DESC
		  LIMIT $2`,
		number, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var typ, amount string
		if err := rows.Scan(&t.ID, &t.AccountNumber, &typ, &amount, &t.RelatedAccount, &t.Timestamp); err != nil {
			return nil, err
		}
		t.Type = models.TransactionType(typ)
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// WithTx runs fn in one serializable transaction; any error from fn rolls
// the whole unit back.
func (s *Store) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	pgxTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(&tx{pgxTx}); err != nil {
		_ = pgxTx.Rollback(ctx)
		return err
	}
	return pgxTx.Commit(ctx)
}

type tx struct {
	tx pgx.Tx
}

func (t *tx) GetAccount(ctx context.Context, number string) (models.Account, error) {
	var a models.Account
	var balance string
	err := t.tx.QueryRow(ctx,
		`SELECT account_number, name, balance::text FROM accounts
		  WHERE account_number = $1 FOR UPDATE`,
		number,
	).Scan(&a.Number, &a.Name, &balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Account{}, store.ErrNotFound
	}
	if err != nil {
		return models.Account{}, err
	}
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return models.Account{}, err
	}
	return a, nil
}

func (t *tx) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

func (t *tx) AccountExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE account_number = $1)`, number).Scan(&exists)
	return exists, err
}

func (t *tx) CreateAccount(ctx context.Context, a models.Account) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO accounts(account_number, name, balance) VALUES($1, $2, $3)`,
		a.Number, a.Name, a.Balance.String())
	return err
}

func (t *tx) CreateUser(ctx context.Context, u models.User) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO users(username, account_number, password_hash) VALUES($1, $2, $3)`,
		u.Username, u.AccountNumber, u.PasswordHash)
	return err
}

func (t *tx) UpdateBalance(ctx context.Context, number string, balance decimal.Decimal) error {
	res, err := t.tx.Exec(ctx,
		`UPDATE accounts SET balance = $2 WHERE account_number = $1`,
		number, balance.String())
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *tx) InsertTransaction(ctx context.Context, txn models.Transaction) error {
	ts := txn.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO transactions(account_number, type, amount, related_account, timestamp)
		 VALUES($1, $2, $3, $4, $5)`,
		txn.AccountNumber, string(txn.Type), txn.Amount.String(), txn.RelatedAccount, ts)
	return err
}

func (t *tx) DeleteTransactions(ctx context.Context, number string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM transactions WHERE account_number = $1`, number)
	return err
}

func (t *tx) DeleteUser(ctx context.Context, number string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM users WHERE account_number = $1`, number)
	return err
}

func (t *tx) DeleteAccount(ctx context.Context, number string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM accounts WHERE account_number = $1`, number)
	return err
}
