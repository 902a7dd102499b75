package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilm2/server/internal/mail"
	"github.com/ilm2/server/internal/model"
	"github.com/ilm2/server/internal/repo"
)

// Protocol outcomes of VerifyCode. Wrong-code on a real account and unknown
// account both map to ErrIncorrectCode; true expiry, attempt exhaustion and
// a missing challenge all map to ErrExpiredCode. The collapse is the
// anti-enumeration design, not sloppiness.
var (
	ErrIncorrectCode = errors.New("código incorreto")
	ErrExpiredCode   = errors.New("código expirado")
)

// AuthService is the passwordless login protocol handler. Each call is
// stateless; the only state between calls lives in the OTP store.
type AuthService struct {
	usuarios    repo.UsuarioRepo
	otps        repo.OTPRepo
	codes       CodeSource
	hasher      CodeHasher
	tokens      *TokenService
	sender      mail.Sender
	ttl         time.Duration
	maxAttempts int
	validate    *validator.Validate
}

// NewAuthService creates a new auth service. CodeSource and CodeHasher are
// chosen by the caller from configuration (production vs dev strategies).
func NewAuthService(
	usuarios repo.UsuarioRepo,
	otps repo.OTPRepo,
	codes CodeSource,
	hasher CodeHasher,
	tokens *TokenService,
	sender mail.Sender,
	ttl time.Duration,
	maxAttempts int,
) *AuthService {
	return &AuthService{
		usuarios:    usuarios,
		otps:        otps,
		codes:       codes,
		hasher:      hasher,
		tokens:      tokens,
		sender:      sender,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		validate:    validator.New(),
	}
}

// RequestCode issues a new challenge for the account behind email, replacing
// any prior one. A nil error carries no information about account existence:
// malformed emails and unknown accounts return nil without side effects.
// The code is generated, hashed and stored before any delivery attempt.
func (s *AuthService) RequestCode(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if s.validate.Var(email, "required,email") != nil {
		return nil
	}

	usuario, err := s.usuarios.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUsuarioNotFound) {
			return nil
		}
		return fmt.Errorf("lookup usuario: %w", err)
	}

	code := s.codes.Code()
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	expiresAt := time.Now().Add(s.ttl)
	if err := s.otps.Replace(ctx, usuario.ID, hash, expiresAt); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}

	if err := s.sender.SendCode(ctx, usuario.Email, usuario.Nome, code); err != nil {
		// The challenge is already stored; delivery failure must not leak
		// through the response. Log and move on.
		log.Printf("send code to %s failed: %v", maskEmail(usuario.Email), err)
	}
	return nil
}

// VerifyCode checks the submitted code against the account's outstanding
// challenge and, on success, consumes the challenge and returns the usuario
// with a signed session token.
func (s *AuthService) VerifyCode(ctx context.Context, email, code string) (model.Usuario, string, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)

	usuario, err := s.usuarios.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUsuarioNotFound) {
			return model.Usuario{}, "", ErrIncorrectCode
		}
		return model.Usuario{}, "", fmt.Errorf("lookup usuario: %w", err)
	}

	challenge, err := s.otps.Get(ctx, usuario.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNoChallenge) {
			return model.Usuario{}, "", ErrExpiredCode
		}
		return model.Usuario{}, "", fmt.Errorf("load challenge: %w", err)
	}

	if time.Now().After(challenge.ExpiresAt) {
		if err := s.otps.Delete(ctx, usuario.ID); err != nil {
			log.Printf("delete expired challenge for %s: %v", maskEmail(usuario.Email), err)
		}
		return model.Usuario{}, "", ErrExpiredCode
	}

	// Attempt exhaustion is reported as expiry on purpose.
	if challenge.Attempts >= s.maxAttempts {
		return model.Usuario{}, "", ErrExpiredCode
	}

	if !s.hasher.Verify(code, challenge.CodeHash) {
		if _, err := s.otps.IncrementAttempts(ctx, challenge.ID); err != nil {
			log.Printf("increment attempts for %s: %v", maskEmail(usuario.Email), err)
		}
		return model.Usuario{}, "", ErrIncorrectCode
	}

	token, err := s.tokens.Sign(usuario)
	if err != nil {
		return model.Usuario{}, "", fmt.Errorf("sign token: %w", err)
	}

	// Single use: the challenge is gone the moment a token is minted.
	if err := s.otps.Delete(ctx, usuario.ID); err != nil {
		return model.Usuario{}, "", fmt.Errorf("consume challenge: %w", err)
	}

	return usuario, token, nil
}

// maskEmail masks the local part of an email for logging (e.g. al***@example.org).
func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	local := email[:at]
	if len(local) <= 2 {
		return "***" + email[at:]
	}
	return local[:2] + "***" + email[at:]
}
