package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simplebank/simplebank/internal/api/httpx"
	"github.com/simplebank/simplebank/internal/auth"
	"github.com/simplebank/simplebank/internal/ledger"
	"github.com/simplebank/simplebank/internal/metrics"
	"github.com/simplebank/simplebank/internal/middleware"
	"github.com/simplebank/simplebank/internal/models"
)

type handlers struct {
	svc *ledger.Service
	tm  *auth.TokenManager
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "malformed request body", nil)
		return false
	}
	return true
}

func identity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteLedgerError(w, ledger.ErrUnauthenticated)
	}
	return id, ok
}

// record bumps the per-operation counters after an engine call.
func record(op string, err error) {
	if err != nil {
		metrics.LedgerOpsFailed.WithLabelValues(op).Inc()
		return
	}
	metrics.LedgerOpsTotal.WithLabelValues(op).Inc()
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username       string          `json:"username"`
		Password       string          `json:"password"`
		Name           string          `json:"name"`
		InitialDeposit decimal.Decimal `json:"initial_deposit"`
	}
	if !decode(w, r, &req) {
		return
	}

	number, err := h.svc.Register(r.Context(), req.Username, req.Password, req.Name, req.InitialDeposit)
	record("register", err)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"account_number": number})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}

	id, err := h.svc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}

	token, exp, err := h.tm.Issue(id.Username, id.AccountNumber)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "token generation failed", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
		"identity":   id,
	})
}

// logout exists for front-end symmetry; tokens are self-contained, so the
// server has nothing to forget.
func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) account(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	acct, err := h.svc.AccountSummary(r.Context(), id)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, acct)
}

func (h *handlers) balance(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	bal, err := h.svc.Balance(r.Context(), id)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"balance": bal})
}

func (h *handlers) deposit(w http.ResponseWriter, r *http.Request) {
	h.mutateBalance(w, r, "deposit", h.svc.Deposit)
}

func (h *handlers) withdraw(w http.ResponseWriter, r *http.Request) {
	h.mutateBalance(w, r, "withdraw", h.svc.Withdraw)
}

type balanceOp func(ctx context.Context, id models.Identity, amount decimal.Decimal) (decimal.Decimal, error)

func (h *handlers) mutateBalance(w http.ResponseWriter, r *http.Request, op string, fn balanceOp) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}

	newBalance, err := fn(r.Context(), id, req.Amount)
	record(op, err)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"balance": newBalance})
}

func (h *handlers) transfer(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req struct {
		ToAccount string          `json:"to_account"`
		Amount    decimal.Decimal `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}

	err := h.svc.Transfer(r.Context(), id, req.ToAccount, req.Amount)
	record("transfer", err)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) transactions(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	txns, err := h.svc.History(r.Context(), id, limit)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	httpx.WriteJSON(w, http.StatusOK, txns)
}

func (h *handlers) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	err := h.svc.DeleteAccount(r.Context(), id)
	record("delete_account", err)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
