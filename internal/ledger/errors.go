package ledger

import "errors"

// Business-rule and failure sentinels. Handlers match them with errors.Is
// to pick status codes; none of them is ever swallowed.
var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrSelfTransfer       = errors.New("cannot transfer to own account")
	ErrAccountNotFound    = errors.New("account not found")
	ErrTransferFailed     = errors.New("transfer failed")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrRateLimited        = errors.New("too many requests")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

// businessErrs are detected before (or instead of) committing any write;
// everything else coming out of an atomic unit is a store-level failure.
var businessErrs = []error{
	ErrDuplicateUsername,
	ErrInvalidCredentials,
	ErrInvalidAmount,
	ErrInsufficientFunds,
	ErrSelfTransfer,
	ErrAccountNotFound,
}

func isBusinessErr(err error) bool {
	for _, e := range businessErrs {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
