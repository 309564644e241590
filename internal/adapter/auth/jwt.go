// Package auth verifies the bearer tokens issued by the account service.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/codesage-ai/interview-server/internal/domain"
)

// Verifier checks HMAC-signed JWTs and extracts the user identity.
type Verifier struct {
	secret   []byte
	audience string
}

func NewVerifier(secret, audience string) *Verifier {
	return &Verifier{secret: []byte(secret), audience: audience}
}

// Verify parses and validates the token and returns the subject claim.
// Every failure maps to ErrUnauthorized; callers never see parser details.
func (v *Verifier) Verify(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", fmt.Errorf("op=verify_token: missing token: %w", domain.ErrUnauthorized)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("op=verify_token: %w", domain.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("op=verify_token: invalid claims: %w", domain.ErrUnauthorized)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("op=verify_token: missing subject: %w", domain.ErrUnauthorized)
	}
	return sub, nil
}
