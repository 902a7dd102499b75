package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilm2/server/internal/model"
	"github.com/ilm2/server/internal/repo/inmem"
)

// recordSender captures delivered codes instead of sending email.
type recordSender struct {
	mu    sync.Mutex
	codes []string
	fail  bool
}

func (s *recordSender) SendCode(_ context.Context, to, nome, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp is down")
	}
	s.codes = append(s.codes, code)
	return nil
}

func (s *recordSender) lastCode(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.codes, "expected at least one delivered code")
	return s.codes[len(s.codes)-1]
}

func (s *recordSender) sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

type testEnv struct {
	svc     *AuthService
	tokens  *TokenService
	usuario model.Usuario
	otps    *inmem.OTPRepo
	sender  *recordSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	u := testUsuario()
	otps := inmem.NewOTPRepo()
	sender := &recordSender{}
	tokens := NewTokenService(testSecret)
	svc := NewAuthService(
		inmem.NewUsuarioRepo(u),
		otps,
		NewRandomSource(),
		NewBcryptHasher(),
		tokens,
		sender,
		5*time.Minute,
		5,
	)
	return &testEnv{svc: svc, tokens: tokens, usuario: u, otps: otps, sender: sender}
}

func TestRequestCode_createsChallenge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.RequestCode(ctx, env.usuario.Email))

	c, err := env.otps.Get(ctx, env.usuario.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Attempts)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), c.ExpiresAt, 10*time.Second)
	assert.Equal(t, 1, env.sender.sent())
	assert.NotContains(t, c.CodeHash, env.sender.lastCode(t), "plaintext code must not appear in the stored hash")
}

func TestRequestCode_unknownAndMalformedAreSilent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, email := range []string{"nobody@example.org", "not-an-email", "", "   "} {
		require.NoError(t, env.svc.RequestCode(ctx, email), "email %q", email)
	}
	assert.Equal(t, 0, env.sender.sent(), "no code may be delivered for unknown or malformed emails")
}

func TestRequestCode_replacesPriorChallenge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.RequestCode(ctx, env.usuario.Email))
	first := env.sender.lastCode(t)

	require.NoError(t, env.svc.RequestCode(ctx, env.usuario.Email))
	second := env.sender.lastCode(t)

	// The first code no longer verifies; the second does.
	_, _, err := env.svc.VerifyCode(ctx, env.usuario.Email, first)
	if first != second {
		assert.ErrorIs(t, err, ErrIncorrectCode)
		_, _, err = env.svc.VerifyCode(ctx, env.usuario.Email, second)
	}
	assert.NoError(t, err)
}

func TestRequestCode_deliveryFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t)
	env.sender.fail = true
	ctx := context.Background()

	require.NoError(t, env.svc.RequestCode(ctx, env.usuario.Email))

	// The challenge was stored before the delivery attempt.
	_, err := env.otps.Get(ctx, env.usuario.ID)
	assert.NoError(t, err)
}

func TestVerifyCode_success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.RequestCode(ctx, env.usuario.Email))
	code := env.sender.lastCode(t)

	u, token, err := env.svc.VerifyCode(ctx, env.usuario.Email, code)
	require.NoError(t, err)
	assert.Equal(t, env.usuario.ID, u.ID)

	claims, err := env.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, env.usuario.ID.String(), claims.Subject)
	assert.Equal(t, env.usuario.Email, claims.Email)
	assert.Equal(t, env.usuario.Nome, claims.Nome)
	assert.Equal(t, env.usuario.Perfil, claims.Perfil)
	assert.Equal(t, "authenticated", claims.Role)
	assert.Equal(t, []string{"read", "write"}, claims.Scopes)

	// Single use: the same code fails the second time, reported as expiry.
	_, _, err = env.svc.VerifyCode(ctx, env.usuario.Email, code)
	assert.ErrorIs(t, err, ErrExpiredCode)
}

func TestVerifyCode_unknownEmail(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.svc.VerifyCode(context.Background(), "nobody@example.org", "123456")
	assert.ErrorIs(t, err, ErrIncorrectCode)
}

func TestVerifyCode_noChallenge(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.svc.VerifyCode(context.Background(), env.usuario.Email, "123456")
	assert.ErrorIs(t, err, ErrExpiredCode)
}

func TestVerifyCode_wrongCodeIncrementsAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.RequestCode(ctx, env.usuario.Email))

	_, _, err := env.svc.VerifyCode(ctx, env.usuario.Email, "000000")
	assert.ErrorIs(t, err, ErrIncorrectCode)

	c, err := env.otps.Get(ctx, env.usuario.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Attempts)
}

func TestVerifyCode_attemptCeiling(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.RequestCode(ctx, env.usuario.Email))
	code := env.sender.lastCode(t)

	for i := 0; i < 5; i++ {
		_, _, err := env.svc.VerifyCode(ctx, env.usuario.Email, "000000")
		assert.ErrorIs(t, err, ErrIncorrectCode, "attempt %d", i+1)
	}

	// Ceiling reached: even the correct code now reads as expired.
	_, _, err := env.svc.VerifyCode(ctx, env.usuario.Email, code)
	assert.ErrorIs(t, err, ErrExpiredCode)
}

func TestVerifyCode_expiredChallengeIsDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.RequestCode(ctx, env.usuario.Email))
	code := env.sender.lastCode(t)

	c, err := env.otps.Get(ctx, env.usuario.ID)
	require.NoError(t, err)
	c.ExpiresAt = time.Now().Add(-time.Second)
	env.otps.Seed(c)

	_, _, err = env.svc.VerifyCode(ctx, env.usuario.Email, code)
	assert.ErrorIs(t, err, ErrExpiredCode)

	_, err = env.otps.Get(ctx, env.usuario.ID)
	assert.Error(t, err, "expired challenge should be removed on detection")
}

func TestDevStrategies_fixedCodeOnly(t *testing.T) {
	// Dev mode: fixed source + dev hasher, wired the same way main does it.
	u := testUsuario()
	otps := inmem.NewOTPRepo()
	sender := &recordSender{}
	svc := NewAuthService(
		inmem.NewUsuarioRepo(u),
		otps,
		NewFixedSource(),
		NewDevHasher(),
		NewTokenService(testSecret),
		sender,
		5*time.Minute,
		5,
	)
	ctx := context.Background()

	require.NoError(t, svc.RequestCode(ctx, u.Email))
	assert.Equal(t, DevCode, sender.lastCode(t))

	_, _, err := svc.VerifyCode(ctx, u.Email, "999999")
	assert.ErrorIs(t, err, ErrIncorrectCode, "only the generated code is valid, even in dev mode")

	_, token, err := svc.VerifyCode(ctx, u.Email, DevCode)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"alice@example.org": "al***@example.org",
		"ab@example.org":    "***@example.org",
		"not-an-email":      "***",
		"":                  "***",
	}
	for in, want := range cases {
		assert.Equal(t, want, maskEmail(in), "input %q", in)
	}
}
