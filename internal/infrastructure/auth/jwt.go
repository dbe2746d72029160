package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	appidentity "github.com/retail/backend/internal/application/identity"
	"github.com/retail/backend/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrMissingOrgID     = errors.New("missing organization_id in claims")
	ErrMissingSubject   = errors.New("missing subject in claims")
)

// Claims are the claims of an identity provider access token. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	OrganizationID string `json:"organization_id"`
	Email          string `json:"email,omitempty"`
	Name           string `json:"name,omitempty"`
	Role           string `json:"role,omitempty"`
}

// Principal converts validated claims into the caller description used by the app
func (c *Claims) Principal() (appidentity.Principal, error) {
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return appidentity.Principal{}, ErrInvalidClaims
	}
	orgID, err := uuid.Parse(c.OrganizationID)
	if err != nil {
		return appidentity.Principal{}, ErrInvalidClaims
	}
	return appidentity.Principal{
		UserID:         userID,
		OrganizationID: orgID,
		Email:          c.Email,
		Name:           c.Name,
		Role:           strings.ToUpper(c.Role),
	}, nil
}

// TokenValidator validates HMAC-signed access tokens issued by the identity provider
type TokenValidator struct {
	secret []byte
	parser *jwt.Parser
}

// NewTokenValidator creates a validator. Issuer and audience are checked when configured.
func NewTokenValidator(cfg config.JWTConfig) *TokenValidator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &TokenValidator{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(opts...),
	}
}

// Validate parses the token and returns its claims
func (v *TokenValidator) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}
	if !token.Valid {
		return nil, ErrInvalidClaims
	}

	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	if claims.OrganizationID == "" {
		return nil, ErrMissingOrgID
	}
	return claims, nil
}

// Authenticate validates the token and returns its principal
func (v *TokenValidator) Authenticate(tokenString string) (appidentity.Principal, error) {
	claims, err := v.Validate(tokenString)
	if err != nil {
		return appidentity.Principal{}, err
	}
	return claims.Principal()
}

// SignToken signs claims with the shared secret. Local tooling and tests use it to
// mint tokens the validator accepts.
func SignToken(secret string, claims *Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
