package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ilm2/server/internal/model"
)

const sessionTTL = 24 * time.Hour

// ErrInvalidToken is returned by Verify for any unusable token: bad
// signature, malformed, or expired. The reasons are deliberately not
// distinguished to callers.
var ErrInvalidToken = errors.New("invalid token")

// SessionClaims is the payload of an ILM2 session token. Role and Scopes
// are fixed at issuance; the subject is the usuario ID.
type SessionClaims struct {
	Email       string     `json:"email"`
	Nome        string     `json:"nome"`
	Perfil      string     `json:"perfil"`
	MunicipioID *uuid.UUID `json:"municipio_id,omitempty"`
	Role        string     `json:"role"`
	Scopes      []string   `json:"scopes"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies session tokens (HS256, 24h validity).
// Tokens are stateless: once issued they are valid until expiry and cannot
// be revoked server-side.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a new token service
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Sign mints a session token for the usuario.
func (s *TokenService) Sign(u model.Usuario) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		Email:       u.Email,
		Nome:        u.Nome,
		Perfil:      u.Perfil,
		MunicipioID: u.MunicipioID,
		Role:        "authenticated",
		Scopes:      []string{"read", "write"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the decoded claims, or
// ErrInvalidToken on any failure.
func (s *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
