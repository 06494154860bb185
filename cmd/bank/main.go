// Command bank is the interactive console front-end. Like the HTTP API it
// only ever calls the ledger engine's public operations.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/term"

	"github.com/simplebank/simplebank/internal/auth"
	"github.com/simplebank/simplebank/internal/config"
	"github.com/simplebank/simplebank/internal/ledger"
	"github.com/simplebank/simplebank/internal/models"
	"github.com/simplebank/simplebank/internal/ratelimit"
	"github.com/simplebank/simplebank/internal/store/sqlite"
)

func main() {
	dbPath := flag.String("db", "", "Path to the database file (defaults to DB_DSN)")
	flag.Parse()

	cfg := config.Load()
	path := *dbPath
	if path == "" {
		path = cfg.DBDSN
	}

	st, err := sqlite.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	// The console backs the database up on startup, off to the side of the
	// working file.
	if path, err := st.Backup(context.Background(), cfg.BackupDir); err == nil {
		fmt.Printf("Database backed up to %s\n", path)
	}

	c := &console{
		svc: ledger.New(st, ratelimit.NewGuard(cfg.RateInterval)),
		tm:  auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL),
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
	}
	c.run(context.Background())
}

type console struct {
	svc *ledger.Service
	tm  *auth.TokenManager
	in  *bufio.Reader
	out io.Writer

	identity models.Identity
	token    string
}

func (c *console) run(ctx context.Context) {
	for {
		if c.identity.IsZero() {
			if done := c.welcomeMenu(ctx); done {
				return
			}
			continue
		}
		c.accountMenu(ctx)
	}
}

func (c *console) welcomeMenu(ctx context.Context) (done bool) {
	fmt.Fprintln(c.out, "\n=== Welcome to Simple Bank ===")
	fmt.Fprintln(c.out, "1. Login")
	fmt.Fprintln(c.out, "2. Register")
	fmt.Fprintln(c.out, "3. Exit")

	switch c.prompt("Enter your choice: ") {
	case "1":
		c.login(ctx)
	case "2":
		c.register(ctx)
	case "3":
		fmt.Fprintln(c.out, "Goodbye!")
		return true
	default:
		fmt.Fprintln(c.out, "Invalid choice. Please try again.")
	}
	return false
}

func (c *console) accountMenu(ctx context.Context) {
	fmt.Fprintf(c.out, "\n=== Welcome, %s ===\n", c.identity.Name)
	fmt.Fprintln(c.out, "1. Deposit")
	fmt.Fprintln(c.out, "2. Withdraw")
	fmt.Fprintln(c.out, "3. Check Balance")
	fmt.Fprintln(c.out, "4. Account Details")
	fmt.Fprintln(c.out, "5. Transfer Money")
	fmt.Fprintln(c.out, "6. Transaction History")
	fmt.Fprintln(c.out, "7. Delete Account")
	fmt.Fprintln(c.out, "8. Logout")

	choice := c.prompt("Enter your choice: ")
	if choice == "8" {
		c.logout()
		return
	}

	// Each authenticated action re-verifies the session token; an expired
	// or tampered token forces a fresh login.
	if _, err := c.tm.Verify(c.token); err != nil {
		fmt.Fprintf(c.out, "%v. Please login again.\n", err)
		c.logout()
		return
	}

	switch choice {
	case "1":
		c.deposit(ctx)
	case "2":
		c.withdraw(ctx)
	case "3":
		c.balance(ctx)
	case "4":
		c.details(ctx)
	case "5":
		c.transfer(ctx)
	case "6":
		c.history(ctx)
	case "7":
		c.deleteAccount(ctx)
	default:
		fmt.Fprintln(c.out, "Invalid choice. Please try again.")
	}
}

func (c *console) login(ctx context.Context) {
	username := c.prompt("Username: ")
	password := c.promptPassword("Password: ")

	id, err := c.svc.Authenticate(ctx, username, password)
	if err != nil {
		fmt.Fprintf(c.out, "%v\n", err)
		return
	}
	token, _, err := c.tm.Issue(id.Username, id.AccountNumber)
	if err != nil {
		fmt.Fprintf(c.out, "Login failed: %v\n", err)
		return
	}
	c.identity, c.token = id, token
	fmt.Fprintf(c.out, "Login successful. Welcome %s!\n", id.Name)
}

func (c *console) register(ctx context.Context) {
	username := c.prompt("Choose a username: ")
	password := c.promptPassword("Choose a password: ")
	name := c.prompt("Your full name: ")
	deposit, err := decimal.NewFromString(c.prompt("Initial deposit amount (0 if none): "))
	if err != nil {
		fmt.Fprintln(c.out, "Invalid amount.")
		return
	}

	number, err := c.svc.Register(ctx, username, password, name, deposit)
	if err != nil {
		fmt.Fprintf(c.out, "%v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Registration successful. Your account number is %s. You can now login.\n", number)
}

func (c *console) logout() {
	c.identity, c.token = models.Identity{}, ""
	fmt.Fprintln(c.out, "Logged out successfully.")
}

func (c *console) deposit(ctx context.Context) {
	amount, ok := c.promptAmount("Enter deposit amount: ")
	if !ok {
		return
	}
	balance, err := c.svc.Deposit(ctx, c.identity, amount)
	if err != nil {
		fmt.Fprintf(c.out, "%v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s deposited successfully. New balance: %s\n",
		amount.StringFixed(2), balance.StringFixed(2))
}

func (c *console) withdraw(ctx context.Context) {
	amount, ok := c.promptAmount("Enter withdrawal amount: ")
	if !ok {
		return
	}
	balance, err := c.svc.Withdraw(ctx, c.identity, amount)
	if err != nil {
		fmt.Fprintf(c.out, "%v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s withdrawn successfully. New balance: %s\n",
		amount.StringFixed(2), balance.StringFixed(2))
}

func (c *console) balance(ctx context.Context) {
	balance, err := c.svc.Balance(ctx, c.identity)
	if err != nil {
		fmt.Fprintf(c.out, "%v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Account Balance: %s\n", balance.StringFixed(2))
}

func (c *console) details(ctx context.Context) {
	acct, err := c.svc.AccountSummary(ctx, c.identity)
	if err != nil {
		fmt.Fprintf(c.out, "%v\n", err)
		return
	}
	fmt.Fprintln(c.out, "\nAccount Details:")
	fmt.Fprintf(c.out, "Account Holder: %s\n", acct.Name)
	fmt.Fprintf(c.out, "Account Number: %s\n", acct.Number)
	fmt.Fprintf(c.out, "Balance: %s\n", acct.Balance.StringFixed(2))
}

func (c *console) transfer(ctx context.Context) {
	toAccount := c.prompt("Enter recipient account number: ")
	amount, ok := c.promptAmount("Enter transfer amount: ")
	if !ok {
		return
	}
	if err := c.svc.Transfer(ctx, c.identity, toAccount, amount); err != nil {
		fmt.Fprintf(c.out, "%v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s transferred successfully to account %s.\n",
		amount.StringFixed(2), toAccount)
}

func (c *console) history(ctx context.Context) {
	txns, err := c.svc.History(ctx, c.identity, 10)
	if err != nil {
		fmt.Fprintf(c.out, "%v\n", err)
		return
	}
	if len(txns) == 0 {
		fmt.Fprintln(c.out, "No transactions found.")
		return
	}

	fmt.Fprintln(c.out, "\nLast 10 Transactions:")
	for _, t := range txns {
		ts := t.Timestamp.Format(time.DateTime)
		switch t.Type {
		case models.TxnTransferSent:
			fmt.Fprintf(c.out, "%s: Transferred %s to account %s\n", ts, t.Amount.StringFixed(2), *t.RelatedAccount)
		case models.TxnTransferReceived:
			fmt.Fprintf(c.out, "%s: Received %s from account %s\n", ts, t.Amount.StringFixed(2), *t.RelatedAccount)
		default:
			fmt.Fprintf(c.out, "%s: %s of %s\n", ts, t.Type, t.Amount.StringFixed(2))
		}
	}
}

func (c *console) deleteAccount(ctx context.Context) {
	confirm := c.prompt("Are you sure you want to delete your account? This cannot be undone. (yes/no): ")
	if !strings.EqualFold(confirm, "yes") {
		fmt.Fprintln(c.out, "Account deletion cancelled.")
		return
	}
	if err := c.svc.DeleteAccount(ctx, c.identity); err != nil {
		fmt.Fprintf(c.out, "Failed to delete account: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "Account deleted successfully.")
	c.logout()
}

func (c *console) prompt(msg string) string {
	fmt.Fprint(c.out, msg)
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	return strings.TrimSpace(line)
}

func (c *console) promptAmount(msg string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(c.prompt(msg))
	if err != nil {
		fmt.Fprintln(c.out, "Invalid amount.")
		return decimal.Zero, false
	}
	return amount, true
}

// promptPassword reads without echo when stdin is a terminal and falls back
// to a plain read when it is not (tests, pipes).
func (c *console) promptPassword(msg string) string {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return c.prompt(msg)
	}
	fmt.Fprint(c.out, msg)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(c.out)
	if err != nil {
		return ""
	}
	return string(b)
}
