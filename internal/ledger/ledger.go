// Package ledger is the account engine shared by the HTTP and console
// front-ends: registration, login, deposits, withdrawals, transfers and the
// persisted transaction log. Every balance-changing operation runs as one
// store transaction, so partial writes are never observable.
package ledger

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simplebank/simplebank/internal/auth"
	"github.com/simplebank/simplebank/internal/models"
	"github.com/simplebank/simplebank/internal/ratelimit"
	"github.com/simplebank/simplebank/internal/store"
)

const (
	accountNumberLen    = 10
	accountNumberTries  = 5
	defaultHistoryLimit = 10
)

type Service struct {
	store store.Store
	guard *ratelimit.Guard
}

func New(st store.Store, guard *ratelimit.Guard) *Service {
	return &Service{store: st, guard: guard}
}

// gate runs the checks shared by every authenticated mutating operation:
// a real identity first, then the rate guard.
func (s *Service) gate(identity models.Identity) error {
	if identity.IsZero() {
		return ErrUnauthenticated
	}
	if !s.guard.Allow(identity.AccountNumber) {
		return ErrRateLimited
	}
	return nil
}

// Register creates the account row and the user row as one atomic unit and
// returns the fresh account number.
func (s *Service) Register(ctx context.Context, username, password, name string, initialDeposit decimal.Decimal) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return "", fmt.Errorf("%w: username too short", ErrInvalidCredentials)
	}
	if password == "" {
		return "", fmt.Errorf("%w: empty password", ErrInvalidCredentials)
	}
	if initialDeposit.IsNegative() {
		return "", ErrInvalidAmount
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}

	var accountNumber string
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		exists, err := tx.UsernameExists(ctx, username)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateUsername
		}

		accountNumber, err = freshAccountNumber(ctx, tx)
		if err != nil {
			return err
		}

		if err := tx.CreateAccount(ctx, models.Account{
			Number:  accountNumber,
			Name:    name,
			Balance: initialDeposit,
		}); err != nil {
			return err
		}
		return tx.CreateUser(ctx, models.User{
			Username:      username,
			AccountNumber: accountNumber,
			PasswordHash:  hash,
		})
	})
	if err != nil {
		return "", err
	}
	return accountNumber, nil
}

// freshAccountNumber draws random 10-digit numbers until one is unused.
// Collisions are astronomically rare, so a handful of tries is plenty.
func freshAccountNumber(ctx context.Context, tx store.Tx) (string, error) {
	for i := 0; i < accountNumberTries; i++ {
		buf := make([]byte, accountNumberLen)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for j := range buf {
			buf[j] = '0' + buf[j]%10
		}
		number := string(buf)

		exists, err := tx.AccountExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", errors.New("could not allocate an account number")
}

// Authenticate checks the credential pair and returns the identity with a
// balance snapshot. The snapshot is a courtesy for display; operations
// always re-read the balance.
func (s *Service) Authenticate(ctx context.Context, username, password string) (models.Identity, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return models.Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if auth.VerifyPassword(password, user.PasswordHash) != nil {
		return models.Identity{}, ErrInvalidCredentials
	}

	acct, err := s.store.GetAccount(ctx, user.AccountNumber)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return models.Identity{
		Username:      user.Username,
		AccountNumber: acct.Number,
		Name:          acct.Name,
		Balance:       acct.Balance,
	}, nil
}

// Deposit adds amount to the balance and appends a Deposit record, both in
// one store transaction. Returns the new balance.
func (s *Service) Deposit(ctx context.Context, identity models.Identity, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := s.gate(identity); err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	var newBalance decimal.Decimal
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		acct, err := tx.GetAccount(ctx, identity.AccountNumber)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}

		newBalance = acct.Balance.Add(amount)
		if err := tx.UpdateBalance(ctx, acct.Number, newBalance); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, models.Transaction{
			AccountNumber: acct.Number,
			Type:          models.TxnDeposit,
			Amount:        amount,
		})
	})
	if err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// Withdraw subtracts amount from the balance and appends a Withdrawal
// record. The balance check runs against the transaction's own read, never
// a cached snapshot.
func (s *Service) Withdraw(ctx context.Context, identity models.Identity, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := s.gate(identity); err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	var newBalance decimal.Decimal
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		acct, err := tx.GetAccount(ctx, identity.AccountNumber)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		if amount.GreaterThan(acct.Balance) {
			return ErrInsufficientFunds
		}

		newBalance = acct.Balance.Sub(amount)
		if err := tx.UpdateBalance(ctx, acct.Number, newBalance); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, models.Transaction{
			AccountNumber: acct.Number,
			Type:          models.TxnWithdrawal,
			Amount:        amount,
		})
	})
	if err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// Transfer debits the sender, credits the recipient and appends the two
// cross-referencing records as one atomic unit. Accounts are read in
// identifier sort order so crossing transfers between the same pair cannot
// deadlock. Any store-level failure inside the unit rolls everything back
// and surfaces as ErrTransferFailed.
func (s *Service) Transfer(ctx context.Context, identity models.Identity, toAccount string, amount decimal.Decimal) error {
	if err := s.gate(identity); err != nil {
		return err
	}
	if toAccount == identity.AccountNumber {
		return ErrSelfTransfer
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	from := identity.AccountNumber
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		accounts := make(map[string]models.Account, 2)
		for _, number := range sortedPair(from, toAccount) {
			acct, err := tx.GetAccount(ctx, number)
			if errors.Is(err, store.ErrNotFound) {
				return ErrAccountNotFound
			}
			if err != nil {
				return err
			}
			accounts[number] = acct
		}

		sender, recipient := accounts[from], accounts[toAccount]
		if amount.GreaterThan(sender.Balance) {
			return ErrInsufficientFunds
		}

		if err := tx.UpdateBalance(ctx, sender.Number, sender.Balance.Sub(amount)); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, recipient.Number, recipient.Balance.Add(amount)); err != nil {
			return err
		}

		ts := time.Now().UTC()
		if err := tx.InsertTransaction(ctx, models.Transaction{
			AccountNumber:  sender.Number,
			Type:           models.TxnTransferSent,
			Amount:         amount,
			RelatedAccount: &recipient.Number,
			Timestamp:      ts,
		}); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, models.Transaction{
			AccountNumber:  recipient.Number,
			Type:           models.TxnTransferReceived,
			Amount:         amount,
			RelatedAccount: &sender.Number,
			Timestamp:      ts,
		})
	})
	if err != nil && !isBusinessErr(err) {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return err
}

func sortedPair(a, b string) [2]string {
	if a > b {
		return [2]string{b, a}
	}
	return [2]string{a, b}
}

// History returns the account's most recent records, newest first, at most
// limit of them.
func (s *Service) History(ctx context.Context, identity models.Identity, limit int) ([]models.Transaction, error) {
	if identity.IsZero() {
		return nil, ErrUnauthenticated
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	txns, err := s.store.ListTransactions(ctx, identity.AccountNumber, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return txns, nil
}

// Balance reads the current balance fresh from the store.
func (s *Service) Balance(ctx context.Context, identity models.Identity) (decimal.Decimal, error) {
	acct, err := s.AccountSummary(ctx, identity)
	if err != nil {
		return decimal.Zero, err
	}
	return acct.Balance, nil
}

// AccountSummary returns the account's current details.
func (s *Service) AccountSummary(ctx context.Context, identity models.Identity) (models.Account, error) {
	if identity.IsZero() {
		return models.Account{}, ErrUnauthenticated
	}
	acct, err := s.store.GetAccount(ctx, identity.AccountNumber)
	if errors.Is(err, store.ErrNotFound) {
		return models.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return acct, nil
}

// DeleteAccount removes the transaction log, the user row and the account
// row as one atomic unit.
func (s *Service) DeleteAccount(ctx context.Context, identity models.Identity) error {
	if identity.IsZero() {
		return ErrUnauthenticated
	}

	number := identity.AccountNumber
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		exists, err := tx.AccountExists(ctx, number)
		if err != nil {
			return err
		}
		if !exists {
			return ErrAccountNotFound
		}
		if err := tx.DeleteTransactions(ctx, number); err != nil {
			return err
		}
		if err := tx.DeleteUser(ctx, number); err != nil {
			return err
		}
		return tx.DeleteAccount(ctx, number)
	})
	if err != nil {
		return err
	}
	s.guard.Forget(number)
	return nil
}
