package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/simplebank/simplebank/internal/models"
	"github.com/simplebank/simplebank/internal/store"
)

type StoreTestSuite struct {
	suite.Suite
	st  *Store
	ctx context.Context
}

func (s *StoreTestSuite) SetupTest() {
	st, err := Open(":memory:")
	require.NoError(s.T(), err, "failed to open test database")
	s.st = st
	s.ctx = context.Background()
}

func (s *StoreTestSuite) TearDownTest() {
	if s.st != nil {
		s.st.Close()
	}
}

func (s *StoreTestSuite) seedAccount(number, balance string) {
	s.T().Helper()
	err := s.st.WithTx(s.ctx, func(tx store.Tx) error {
		return tx.CreateAccount(s.ctx, models.Account{
			Number:  number,
			Name:    "Holder " + number,
			Balance: decimal.RequireFromString(balance),
		})
	})
	require.NoError(s.T(), err)
}

func (s *StoreTestSuite) TestGetAccountNotFound() {
	_, err := s.st.GetAccount(s.ctx, "0000000000")
	assert.ErrorIs(s.T(), err, store.ErrNotFound)
}

func (s *StoreTestSuite) TestAccountRoundTrip() {
	s.seedAccount("1234567890", "10000.00")

	a, err := s.st.GetAccount(s.ctx, "1234567890")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Holder 1234567890", a.Name)
	assert.True(s.T(), a.Balance.Equal(decimal.RequireFromString("10000.00")),
		"balance survives storage exactly: %s", a.Balance)
}

func (s *StoreTestSuite) TestUserRoundTrip() {
	s.seedAccount("1234567890", "0")
	err := s.st.WithTx(s.ctx, func(tx store.Tx) error {
		return tx.CreateUser(s.ctx, models.User{
			Username:      "alice",
			AccountNumber: "1234567890",
			PasswordHash:  "hash",
		})
	})
	require.NoError(s.T(), err)

	u, err := s.st.GetUserByUsername(s.ctx, "alice")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "1234567890", u.AccountNumber)
	assert.Equal(s.T(), "hash", u.PasswordHash)

	_, err = s.st.GetUserByUsername(s.ctx, "nobody")
	assert.ErrorIs(s.T(), err, store.ErrNotFound)
}

// TestWithTxRollback failure anywhere inside the unit must leave no trace
// of any of its writes.
func (s *StoreTestSuite) TestWithTxRollback() {
	boom := errors.New("boom")
	err := s.st.WithTx(s.ctx, func(tx store.Tx) error {
		if err := tx.CreateAccount(s.ctx, models.Account{
			Number: "1111111111", Name: "Doomed", Balance: decimal.Zero,
		}); err != nil {
			return err
		}
		if err := tx.InsertTransaction(s.ctx, models.Transaction{
			AccountNumber: "1111111111",
			Type:          models.TxnDeposit,
			Amount:        decimal.RequireFromString("5"),
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(s.T(), err, boom, "the error comes back unchanged")

	_, err = s.st.GetAccount(s.ctx, "1111111111")
	assert.ErrorIs(s.T(), err, store.ErrNotFound)
	txns, err := s.st.ListTransactions(s.ctx, "1111111111", 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), txns)
}

func (s *StoreTestSuite) TestUpdateBalanceMissingAccount() {
	err := s.st.WithTx(s.ctx, func(tx store.Tx) error {
		return tx.UpdateBalance(s.ctx, "0000000000", decimal.RequireFromString("1"))
	})
	assert.ErrorIs(s.T(), err, store.ErrNotFound)
}

func (s *StoreTestSuite) TestListTransactionsOrderAndLimit() {
	s.seedAccount("1234567890", "0")

	err := s.st.WithTx(s.ctx, func(tx store.Tx) error {
		for i := 1; i <= 4; i++ {
			if err := tx.InsertTransaction(s.ctx, models.Transaction{
				AccountNumber: "1234567890",
				Type:          models.TxnDeposit,
				Amount:        decimal.NewFromInt(int64(i)),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(s.T(), err)

	txns, err := s.st.ListTransactions(s.ctx, "1234567890", 3)
	require.NoError(s.T(), err)
	require.Len(s.T(), txns, 3)
	// newest first; insertion order breaks timestamp ties
	assert.True(s.T(), txns[0].Amount.Equal(decimal.NewFromInt(4)))
	assert.True(s.T(), txns[1].Amount.Equal(decimal.NewFromInt(3)))
	assert.True(s.T(), txns[2].Amount.Equal(decimal.NewFromInt(2)))
}

func (s *StoreTestSuite) TestUsernameAndAccountExists() {
	s.seedAccount("1234567890", "0")
	err := s.st.WithTx(s.ctx, func(tx store.Tx) error {
		ok, err := tx.AccountExists(s.ctx, "1234567890")
		require.NoError(s.T(), err)
		assert.True(s.T(), ok)

		ok, err = tx.AccountExists(s.ctx, "0000000000")
		require.NoError(s.T(), err)
		assert.False(s.T(), ok)

		ok, err = tx.UsernameExists(s.ctx, "nobody")
		require.NoError(s.T(), err)
		assert.False(s.T(), ok)
		return nil
	})
	require.NoError(s.T(), err)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bank.db")

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// reopening the same file must not re-run applied migrations
	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	_, err = st.GetAccount(context.Background(), "0000000000")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBackup(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(filepath.Join(dir, "bank.db"))
	require.NoError(t, err)
	defer st.Close()

	path, err := st.Backup(context.Background(), dir)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	// the snapshot is a working database on its own
	snap, err := Open(path)
	require.NoError(t, err)
	defer snap.Close()
}
