package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/simplebank/simplebank/internal/models"
	"github.com/simplebank/simplebank/internal/ratelimit"
	"github.com/simplebank/simplebank/internal/store/sqlite"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type LedgerTestSuite struct {
	suite.Suite
	st  *sqlite.Store
	svc *Service
	ctx context.Context
}

func (s *LedgerTestSuite) SetupTest() {
	st, err := sqlite.Open(":memory:")
	require.NoError(s.T(), err, "failed to open test store")
	s.st = st
	// zero interval so successive operations in a test are never throttled
	s.svc = New(st, ratelimit.NewGuard(0))
	s.ctx = context.Background()
}

func (s *LedgerTestSuite) TearDownTest() {
	if s.st != nil {
		s.st.Close()
	}
}

// open registers a user with the given starting balance and returns the
// authenticated identity.
func (s *LedgerTestSuite) open(username, balance string) models.Identity {
	s.T().Helper()
	_, err := s.svc.Register(s.ctx, username, "secret123", "Holder "+username, dec(balance))
	require.NoError(s.T(), err)
	id, err := s.svc.Authenticate(s.ctx, username, "secret123")
	require.NoError(s.T(), err)
	return id
}

func (s *LedgerTestSuite) TestRegisterAndAuthenticate() {
	number, err := s.svc.Register(s.ctx, "alice", "secret123", "Alice", dec("250.00"))
	require.NoError(s.T(), err)
	assert.Len(s.T(), number, 10)

	id, err := s.svc.Authenticate(s.ctx, "alice", "secret123")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), number, id.AccountNumber)
	assert.Equal(s.T(), "Alice", id.Name)
	assert.True(s.T(), id.Balance.Equal(dec("250.00")), "balance snapshot: %s", id.Balance)
}

func (s *LedgerTestSuite) TestRegisterDuplicateUsername() {
	_, err := s.svc.Register(s.ctx, "alice", "secret123", "Alice", decimal.Zero)
	require.NoError(s.T(), err)

	_, err = s.svc.Register(s.ctx, "alice", "other-pass", "Other Alice", dec("100"))
	assert.ErrorIs(s.T(), err, ErrDuplicateUsername)

	// the failed attempt must not have left partial rows behind
	id, err := s.svc.Authenticate(s.ctx, "alice", "secret123")
	require.NoError(s.T(), err)
	assert.True(s.T(), id.Balance.IsZero())
}

func (s *LedgerTestSuite) TestRegisterNegativeInitialDeposit() {
	_, err := s.svc.Register(s.ctx, "alice", "secret123", "Alice", dec("-1"))
	assert.ErrorIs(s.T(), err, ErrInvalidAmount)
}

func (s *LedgerTestSuite) TestAuthenticateBadCredentials() {
	s.open("alice", "100")

	_, err := s.svc.Authenticate(s.ctx, "alice", "wrong")
	assert.ErrorIs(s.T(), err, ErrInvalidCredentials)

	_, err = s.svc.Authenticate(s.ctx, "nobody", "secret123")
	assert.ErrorIs(s.T(), err, ErrInvalidCredentials)
}

func (s *LedgerTestSuite) TestDepositWithdrawRoundTrip() {
	id := s.open("alice", "100.00")

	_, err := s.svc.Deposit(s.ctx, id, dec("42.42"))
	require.NoError(s.T(), err)
	balance, err := s.svc.Withdraw(s.ctx, id, dec("42.42"))
	require.NoError(s.T(), err)
	assert.True(s.T(), balance.Equal(dec("100.00")), "round trip balance: %s", balance)
}

func (s *LedgerTestSuite) TestDepositInvalidAmount() {
	id := s.open("alice", "100")

	for _, bad := range []string{"0", "-5"} {
		_, err := s.svc.Deposit(s.ctx, id, dec(bad))
		assert.ErrorIs(s.T(), err, ErrInvalidAmount, "amount %s", bad)
	}

	txns, err := s.svc.History(s.ctx, id, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), txns, "failed deposits must not be recorded")
}

func (s *LedgerTestSuite) TestWithdrawInsufficientFunds() {
	id := s.open("alice", "50")

	_, err := s.svc.Withdraw(s.ctx, id, dec("50.01"))
	assert.ErrorIs(s.T(), err, ErrInsufficientFunds)

	balance, err := s.svc.Balance(s.ctx, id)
	require.NoError(s.T(), err)
	assert.True(s.T(), balance.Equal(dec("50")))

	txns, err := s.svc.History(s.ctx, id, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), txns, "failed withdrawal must not be recorded")
}

func (s *LedgerTestSuite) TestTransfer() {
	alice := s.open("alice", "1000.00")
	bob := s.open("bob", "0.00")

	require.NoError(s.T(), s.svc.Transfer(s.ctx, alice, bob.AccountNumber, dec("300.00")))

	aBal, err := s.svc.Balance(s.ctx, alice)
	require.NoError(s.T(), err)
	bBal, err := s.svc.Balance(s.ctx, bob)
	require.NoError(s.T(), err)
	assert.True(s.T(), aBal.Equal(dec("700.00")), "sender: %s", aBal)
	assert.True(s.T(), bBal.Equal(dec("300.00")), "recipient: %s", bBal)
	// conservation: total unchanged
	assert.True(s.T(), aBal.Add(bBal).Equal(dec("1000.00")))

	// exactly two records, cross-referencing each other
	sent, err := s.svc.History(s.ctx, alice, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), sent, 1)
	assert.Equal(s.T(), models.TxnTransferSent, sent[0].Type)
	require.NotNil(s.T(), sent[0].RelatedAccount)
	assert.Equal(s.T(), bob.AccountNumber, *sent[0].RelatedAccount)

	received, err := s.svc.History(s.ctx, bob, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), received, 1)
	assert.Equal(s.T(), models.TxnTransferReceived, received[0].Type)
	require.NotNil(s.T(), received[0].RelatedAccount)
	assert.Equal(s.T(), alice.AccountNumber, *received[0].RelatedAccount)
	assert.True(s.T(), sent[0].Amount.Equal(received[0].Amount))
}

func (s *LedgerTestSuite) TestTransferRejections() {
	alice := s.open("alice", "100")

	err := s.svc.Transfer(s.ctx, alice, alice.AccountNumber, dec("10"))
	assert.ErrorIs(s.T(), err, ErrSelfTransfer)

	err = s.svc.Transfer(s.ctx, alice, "0000000000", dec("10"))
	assert.ErrorIs(s.T(), err, ErrAccountNotFound)

	bob := s.open("bob", "0")
	err = s.svc.Transfer(s.ctx, alice, bob.AccountNumber, dec("-10"))
	assert.ErrorIs(s.T(), err, ErrInvalidAmount)

	err = s.svc.Transfer(s.ctx, alice, bob.AccountNumber, dec("100.01"))
	assert.ErrorIs(s.T(), err, ErrInsufficientFunds)

	// nothing above may have moved money or written records
	aBal, err := s.svc.Balance(s.ctx, alice)
	require.NoError(s.T(), err)
	assert.True(s.T(), aBal.Equal(dec("100")))
	txns, err := s.svc.History(s.ctx, alice, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), txns)
}

// TestScenario walks the end-to-end sequence: deposit, over-withdraw,
// transfer, self-transfer.
func (s *LedgerTestSuite) TestScenario() {
	a := s.open("alice", "10000.00")
	b := s.open("bob", "0.00")

	balance, err := s.svc.Deposit(s.ctx, a, dec("500.00"))
	require.NoError(s.T(), err)
	assert.True(s.T(), balance.Equal(dec("10500.00")))

	_, err = s.svc.Withdraw(s.ctx, a, dec("20000.00"))
	assert.ErrorIs(s.T(), err, ErrInsufficientFunds)
	balance, err = s.svc.Balance(s.ctx, a)
	require.NoError(s.T(), err)
	assert.True(s.T(), balance.Equal(dec("10500.00")))

	require.NoError(s.T(), s.svc.Transfer(s.ctx, a, b.AccountNumber, dec("1000.00")))
	aBal, _ := s.svc.Balance(s.ctx, a)
	bBal, _ := s.svc.Balance(s.ctx, b)
	assert.True(s.T(), aBal.Equal(dec("9500.00")), "a: %s", aBal)
	assert.True(s.T(), bBal.Equal(dec("1000.00")), "b: %s", bBal)

	assert.ErrorIs(s.T(), s.svc.Transfer(s.ctx, a, a.AccountNumber, dec("100.00")), ErrSelfTransfer)
}

func (s *LedgerTestSuite) TestHistoryOrderAndLimit() {
	id := s.open("alice", "1000")

	for i := 0; i < 7; i++ {
		_, err := s.svc.Deposit(s.ctx, id, decimal.NewFromInt(int64(i+1)))
		require.NoError(s.T(), err)
	}

	txns, err := s.svc.History(s.ctx, id, 5)
	require.NoError(s.T(), err)
	require.Len(s.T(), txns, 5)

	// newest first: amounts 7,6,5,4,3
	for i, want := range []int64{7, 6, 5, 4, 3} {
		assert.True(s.T(), txns[i].Amount.Equal(decimal.NewFromInt(want)),
			"position %d: got %s", i, txns[i].Amount)
	}
	for i := 1; i < len(txns); i++ {
		assert.False(s.T(), txns[i].Timestamp.After(txns[i-1].Timestamp),
			"timestamps must be non-increasing")
	}
}

func (s *LedgerTestSuite) TestDeleteAccount() {
	id := s.open("alice", "100")
	_, err := s.svc.Deposit(s.ctx, id, dec("10"))
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.svc.DeleteAccount(s.ctx, id))

	_, err = s.svc.Authenticate(s.ctx, "alice", "secret123")
	assert.ErrorIs(s.T(), err, ErrInvalidCredentials)

	txns, err := s.svc.History(s.ctx, id, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), txns)

	_, err = s.svc.Balance(s.ctx, id)
	assert.ErrorIs(s.T(), err, ErrAccountNotFound)
}

func (s *LedgerTestSuite) TestUnauthenticated() {
	var nobody models.Identity
	_, err := s.svc.Deposit(s.ctx, nobody, dec("10"))
	assert.ErrorIs(s.T(), err, ErrUnauthenticated)
	_, err = s.svc.History(s.ctx, nobody, 10)
	assert.ErrorIs(s.T(), err, ErrUnauthenticated)
	assert.ErrorIs(s.T(), s.svc.DeleteAccount(s.ctx, nobody), ErrUnauthenticated)
}

func TestLedgerTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

// Rate limiting uses its own service so the throttle window does not leak
// into the other tests.
func TestRateLimitedOperations(t *testing.T) {
	st, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	svc := New(st, ratelimit.NewGuard(time.Hour))
	ctx := context.Background()

	_, err = svc.Register(ctx, "alice", "secret123", "Alice", dec("100"))
	require.NoError(t, err)
	id, err := svc.Authenticate(ctx, "alice", "secret123")
	require.NoError(t, err)

	_, err = svc.Deposit(ctx, id, dec("10"))
	require.NoError(t, err)

	// second mutating operation inside the window is rejected regardless
	// of kind
	_, err = svc.Withdraw(ctx, id, dec("5"))
	assert.ErrorIs(t, err, ErrRateLimited)

	balance, err := svc.Balance(ctx, id)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("110")), "rejected op must not change balance: %s", balance)
}
