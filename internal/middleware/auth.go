package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pkordes/tripline/internal/domain"
)

type subjectKey struct{}

// SubjectFromContext returns the token subject stored by NewAuthHandler.
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey{}).(string)
	return sub, ok
}

// GenerateToken signs an HS256 token for subject that expires after ttl.
func GenerateToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateToken parses an HS256 token and returns its claims.
// Expired, malformed or wrongly signed tokens return an error wrapping
// domain.ErrUnauthenticated.
func ValidateToken(secret []byte, token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.Join(domain.ErrUnauthenticated, err)
	}
	return claims, nil
}

// NewAuthHandler returns a middleware that requires a valid bearer token.
// A missing, expired or invalid token is rejected with 401 and an
// authentication_failure body. An empty secret disables the check.
func NewAuthHandler(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				writeUnauthenticated(w)
				return
			}
			claims, err := ValidateToken(secret, raw)
			if err != nil {
				writeUnauthenticated(w)
				return
			}
			noteSubject(r.Context(), claims.Subject)
			ctx := context.WithValue(r.Context(), subjectKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthenticated(w http.ResponseWriter) {
	ce := &domain.CommitError{Kind: domain.FailureAuthentication, Err: domain.ErrUnauthenticated}
	writeError(w, http.StatusUnauthorized, string(ce.Kind), ce.UserMessage())
}

// writeError writes the API's error envelope for requests rejected before
// they reach a handler.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
