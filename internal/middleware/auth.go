package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/simplebank/simplebank/internal/api/httpx"
	"github.com/simplebank/simplebank/internal/auth"
	"github.com/simplebank/simplebank/internal/models"
)

type ctxKey struct{}

var identityKey ctxKey

// IdentityFrom returns the authenticated identity set by Auth, if any.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}

type AuthMiddleware struct {
	tm *auth.TokenManager
}

func NewAuthMiddleware(tm *auth.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tm: tm}
}

// Auth requires a valid bearer token and puts the identity it names into
// the request context. Expired and malformed tokens both end the request
// with 401; there is no fallback identity.
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ah := r.Header.Get("Authorization")
		if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token", nil)
			return
		}
		token := strings.TrimSpace(ah[len("Bearer "):])

		claims, err := m.tm.Verify(token)
		if err != nil {
			code := "session_invalid"
			if errors.Is(err, auth.ErrTokenExpired) {
				code = "session_expired"
			}
			httpx.WriteError(w, http.StatusUnauthorized, code, err.Error(), nil)
			return
		}

		identity := models.Identity{
			Username:      claims.Username,
			AccountNumber: claims.AccountNumber,
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}
