// Package token issues and validates principal tokens for the registry.
//
// The wallet/identity layer is an external collaborator: it hands callers a
// signed bearer token whose subject is their account address. The registry
// trusts the resolved subject and applies its own role checks per call.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
)

// PrincipalClaims represents the JWT claims carried by registry bearer tokens.
// The account address travels in the standard subject claim.
type PrincipalClaims struct {
	jwt.RegisteredClaims
}

// Service handles principal token creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
}

// NewService creates a token service with an HMAC signing key.
func NewService(signingKey, issuer, audience string, tokenTTL time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		tokenTTL:   tokenTTL,
	}
}

// Generate mints a signed principal token for the given account address.
func (s *Service) Generate(address domain.Address) (string, error) {
	if address.IsZero() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}

	now := time.Now()
	claims := PrincipalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   address.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// ValidateToken verifies a bearer token and resolves the calling address.
func (s *Service) ValidateToken(tokenString string) (domain.Address, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &PrincipalClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*PrincipalClaims)
	if !ok || !parsed.Valid {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	address, err := domain.ParseAddress(claims.Subject)
	if err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "token subject is not a valid address")
	}
	return address, nil
}
