package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/inkflow/server/internal/auth"
)

type contextKey string

const ownerContextKey contextKey = "owner"

// Owner identifies the authenticated document owner of a request.
type Owner struct {
	UserID uuid.UUID
	Email  string
}

// RequireOwner verifies the Bearer token on owner-facing endpoints and puts
// the authenticated owner into the request context.
func RequireOwner(tokens *auth.OwnerTokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				unauthorized(w, "invalid bearer token")
				return
			}

			owner := Owner{UserID: claims.UserID, Email: claims.Email}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerContextKey, owner)))
		})
	}
}

// OwnerFromContext returns the authenticated owner set by RequireOwner.
func OwnerFromContext(ctx context.Context) (Owner, bool) {
	owner, ok := ctx.Value(ownerContextKey).(Owner)
	return owner, ok
}

func unauthorized(w http.ResponseWriter, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "details": details})
}
