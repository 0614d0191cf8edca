package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/utils"
)

type contextKey string

const UserIDKey contextKey = "userID"

// UserID returns the authenticated user stored by Auth.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// WithUserID stores an authenticated user id in ctx.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

// Auth verifies the HS256 session token from the "token" cookie (or a
// Bearer header) and stores its userId claim in the request context.
func Auth(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			tokenStr := bearerToken(r)
			if tokenStr == "" {
				unauthorized(w, r)
				return
			}

			token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return key, nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, r)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				unauthorized(w, r)
				return
			}
			raw, _ := claims["userId"].(string)
			userID, err := uuid.Parse(raw)
			if err != nil || userID == uuid.Nil {
				unauthorized(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if c, err := r.Cookie("token"); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	utils.ErrorResponse(w, r, apperr.New(apperr.Unauthorized, "Unauthorized"))
}
