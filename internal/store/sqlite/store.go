// Package sqlite is the file-backed store. It mirrors the original bank.db
// layout and is also what the test suites run against (at :memory:).
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/simplebank/simplebank/internal/models"
	"github.com/simplebank/simplebank/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and brings the schema up to
// date. Pass ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single logical writer: one connection serializes all transactions and
	// keeps sqlite from ever answering SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
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
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=?)`, name).Scan(&exists); err != nil {
			return err
		}
		if exists {
			continue
		}

		b, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO schema_migrations(version) VALUES(?)`, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getAccount(ctx context.Context, q querier, number string) (models.Account, error) {
	var a models.Account
	var balance string
	err := q.QueryRowContext(ctx,
		`SELECT account_number, name, balance FROM accounts WHERE account_number = ?`,
		number,
	).Scan(&a.Number, &a.Name, &balance)
	if errors.Is(err, sql.ErrNoRows) {
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
	return getAccount(ctx, s.db, number)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT username, account_number, password_hash FROM users WHERE username = ?`,
		username,
	).Scan(&u.Username, &u.AccountNumber, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, store.ErrNotFound
	}
	return u, err
}

func (s *Store) ListTransactions(ctx context.Context, number string, limit int) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_number, type, amount, related_account, timestamp
		   FROM transactions
		  WHERE account_number = ?
		  ORDER BY timestamp DESC, id DESC
		  LIMIT ?`,
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

// WithTx runs fn in one sqlite transaction; any error from fn rolls the
// whole unit back.
func (s *Store) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&tx{sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}

// Backup writes a consistent timestamped snapshot of the database into dir
// and returns its path.
func (s *Store) Backup(ctx context.Context, dir string) (string, error) {
	path := fmt.Sprintf("%s/bank_backup_%s.db", dir, time.Now().Format("20060102_150405"))
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return "", err
	}
	return path, nil
}

type tx struct {
	tx *sql.Tx
}

func (t *tx) GetAccount(ctx context.Context, number string) (models.Account, error) {
	return getAccount(ctx, t.tx, number)
}

func (t *tx) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username).Scan(&exists)
	return exists, err
}

func (t *tx) AccountExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE account_number = ?)`, number).Scan(&exists)
	return exists, err
}

func (t *tx) CreateAccount(ctx context.Context, a models.Account) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO accounts(account_number, name, balance) VALUES(?, ?, ?)`,
		a.Number, a.Name, a.Balance.String())
	return err
}

func (t *tx) CreateUser(ctx context.Context, u models.User) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO users(username, account_number, password_hash) VALUES(?, ?, ?)`,
		u.Username, u.AccountNumber, u.PasswordHash)
	return err
}

func (t *tx) UpdateBalance(ctx context.Context, number string, balance decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE account_number = ?`,
		balance.String(), number)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *tx) InsertTransaction(ctx context.Context, txn models.Transaction) error {
	ts := txn.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO transactions(account_number, type, amount, related_account, timestamp)
		 VALUES(?, ?, ?, ?, ?)`,
		txn.AccountNumber, string(txn.Type), txn.Amount.String(), txn.RelatedAccount, ts)
	return err
}

func (t *tx) DeleteTransactions(ctx context.Context, number string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM transactions WHERE account_number = ?`, number)
	return err
}

func (t *tx) DeleteUser(ctx context.Context, number string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM users WHERE account_number = ?`, number)
	return err
}

func (t *tx) DeleteAccount(ctx context.Context, number string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM accounts WHERE account_number = ?`, number)
	return err
}
