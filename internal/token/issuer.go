// Package token issues signed verification credentials for manifests that
// pass validation.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DefaultValidity is how long a verification token stays valid.
const DefaultValidity = 90 * 24 * time.Hour

// Issuer signs verification tokens with an externally managed secret.
type Issuer struct {
	secret   []byte
	validity time.Duration
	issuer   string
}

// Claims bind the verified source to the validation that produced the token.
type Claims struct {
	jwt.RegisteredClaims
	Source      string `json:"source"`
	SpecVersion string `json:"spec_version"`
	ValidatedAt int64  `json:"validated_at"`
}

// NewIssuer creates a token issuer. The secret is required; validity
// defaults to 90 days.
func NewIssuer(secret []byte, validity time.Duration, issuerName string) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret is required")
	}
	if validity <= 0 {
		validity = DefaultValidity
	}
	if issuerName == "" {
		issuerName = "agent-manifest-registry"
	}
	return &Issuer{secret: secret, validity: validity, issuer: issuerName}, nil
}

// Issue signs a credential binding source identity, validation timestamp and
// spec version.
func (i *Issuer) Issue(source string, validatedAt time.Time, specVersion string) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   source,
			IssuedAt:  jwt.NewNumericDate(validatedAt),
			ExpiresAt: jwt.NewNumericDate(validatedAt.Add(i.validity)),
		},
		Source:      source,
		SpecVersion: specVersion,
		ValidatedAt: validatedAt.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign verification token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a previously issued token.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid verification token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("verification token is not valid")
	}
	return &claims, nil
}
