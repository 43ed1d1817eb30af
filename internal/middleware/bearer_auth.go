package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxOperatorKey contextKey = "operator"
)

// TokenValidator resolves a bearer token to an operator id and role.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

// Operator is the authenticated caller stored in the request context.
type Operator struct {
	ID   uuid.UUID
	Role string
}

// BearerAuth rejects requests without a valid operator token and puts the
// operator into the request context.
func BearerAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			id, role, err := tokens.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := WithOperator(r.Context(), &Operator{ID: id, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalBearerAuth lets anonymous requests through but still rejects a
// malformed or invalid token. A valid token puts the operator into the context.
func OptionalBearerAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			BearerAuth(tokens)(next).ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects operators whose role is not in roles with 403. It must
// run after BearerAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			op := OperatorFromCtx(r.Context())
			if op == nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if !slices.Contains(roles, op.Role) {
				http.Error(w, `{"error":"operator role may not perform this action"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OperatorFromCtx returns the authenticated operator or nil.
func OperatorFromCtx(ctx context.Context) *Operator {
	op, _ := ctx.Value(ctxOperatorKey).(*Operator)
	return op
}

// WithOperator returns a context carrying the given operator.
func WithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, ctxOperatorKey, op)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
