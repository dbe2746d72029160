package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/retail/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestValidator() *TokenValidator {
	return NewTokenValidator(config.JWTConfig{Secret: testSecret, Issuer: "https://id.example.com", Leeway: time.Second})
}

func validClaims() *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: uuid.NewString(),
			Issuer:  "https://id.example.com",
		},
		OrganizationID: uuid.NewString(),
		Email:          "amina@example.com",
		Name:           "Amina",
		Role:           "admin",
	}
}

func sign(t *testing.T, claims *Claims, ttl time.Duration) string {
	t.Helper()
	token, err := SignToken(testSecret, claims, ttl)
	require.NoError(t, err)
	return token
}

func TestTokenValidator_Authenticate(t *testing.T) {
	claims := validClaims()
	token := sign(t, claims, time.Hour)

	p, err := newTestValidator().Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, claims.Subject, p.UserID.String())
	assert.Equal(t, claims.OrganizationID, p.OrganizationID.String())
	assert.Equal(t, "amina@example.com", p.Email)
	assert.Equal(t, "ADMIN", p.Role, "role claims are normalized to upper case")
}

func TestTokenValidator_Rejects(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name  string
		token func(t *testing.T) string
		want  error
	}{
		{
			name:  "expired",
			token: func(t *testing.T) string { return sign(t, validClaims(), -time.Hour) },
			want:  ErrExpiredToken,
		},
		{
			name: "not yet valid",
			token: func(t *testing.T) string {
				c := validClaims()
				c.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))
				return sign(t, c, 2*time.Hour)
			},
			want: ErrTokenNotYetValid,
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				token, err := SignToken("another-secret-another-secret-xx", validClaims(), time.Hour)
				require.NoError(t, err)
				return token
			},
			want: ErrInvalidToken,
		},
		{
			name: "wrong issuer",
			token: func(t *testing.T) string {
				c := validClaims()
				c.Issuer = "https://evil.example.com"
				return sign(t, c, time.Hour)
			},
			want: ErrInvalidToken,
		},
		{
			name: "unsigned algorithm",
			token: func(t *testing.T) string {
				token, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				return token
			},
			want: ErrInvalidToken,
		},
		{
			name: "missing organization",
			token: func(t *testing.T) string {
				c := validClaims()
				c.OrganizationID = ""
				return sign(t, c, time.Hour)
			},
			want: ErrMissingOrgID,
		},
		{
			name: "missing subject",
			token: func(t *testing.T) string {
				c := validClaims()
				c.Subject = ""
				return sign(t, c, time.Hour)
			},
			want: ErrMissingSubject,
		},
		{
			name:  "garbage",
			token: func(*testing.T) string { return "not-a-token" },
			want:  ErrInvalidToken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.token(t))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClaims_Principal_InvalidIDs(t *testing.T) {
	c := validClaims()
	c.OrganizationID = "acme"
	token := sign(t, c, time.Hour)

	_, err := newTestValidator().Authenticate(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}
