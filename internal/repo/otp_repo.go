package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ilm2/server/internal/model"
	"github.com/lib/pq"
	"github.com/sethvargo/go-retry"
)

// ErrNoChallenge is returned when a usuario has no outstanding challenge.
// Absence is a normal protocol state, not an infrastructure failure.
var ErrNoChallenge = errors.New("no otp challenge")

// OTPRepo is the durable store of OTP challenges. At most one challenge
// exists per usuario; Replace supersedes any prior one atomically.
type OTPRepo interface {
	Replace(ctx context.Context, usuarioID uuid.UUID, codeHash string, expiresAt time.Time) error
	Get(ctx context.Context, usuarioID uuid.UUID) (model.OTPChallenge, error)
	IncrementAttempts(ctx context.Context, challengeID uuid.UUID) (newAttempts int, err error)
	Delete(ctx context.Context, usuarioID uuid.UUID) error
}

type otpRepo struct {
	db *sql.DB
}

// NewOTPRepo creates a new OTPRepo instance
func NewOTPRepo(db *sql.DB) OTPRepo {
	return &otpRepo{db: db}
}

// Replace atomically deletes any existing challenge for the usuario and
// inserts a new one with attempts = 0. An advisory lock serializes
// concurrent replacements per usuario so a stale challenge can never
// survive alongside a new one; serialization hiccups are retried briefly.
func (r *otpRepo) Replace(ctx context.Context, usuarioID uuid.UUID, codeHash string, expiresAt time.Time) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(50*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := r.replaceOnce(ctx, usuarioID, codeHash, expiresAt)
		if isRetryablePgErr(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (r *otpRepo) replaceOnce(ctx context.Context, usuarioID uuid.UUID, codeHash string, expiresAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Blocks until we hold the per-usuario lock; released on COMMIT/ROLLBACK.
	_, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(1, hashtext($1))`, usuarioID.String())
	if err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM auth_otp WHERE usuario_id = $1`, usuarioID)
	if err != nil {
		return fmt.Errorf("delete existing challenge: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO auth_otp (usuario_id, code_hash, expires_at, attempts)
		VALUES ($1, $2, $3, 0)
	`, usuarioID, codeHash, expiresAt)
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get returns the challenge for the usuario, or ErrNoChallenge. Expiry and
// attempt-ceiling checks belong to the protocol layer, not the store.
func (r *otpRepo) Get(ctx context.Context, usuarioID uuid.UUID) (model.OTPChallenge, error) {
	query := `
		SELECT id, usuario_id, code_hash, expires_at, attempts, created_at
		FROM auth_otp
		WHERE usuario_id = $1
	`
	var c model.OTPChallenge
	var idStr, usuarioIDStr string
	err := r.db.QueryRowContext(ctx, query, usuarioID).Scan(
		&idStr,
		&usuarioIDStr,
		&c.CodeHash,
		&c.ExpiresAt,
		&c.Attempts,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.OTPChallenge{}, ErrNoChallenge
		}
		return model.OTPChallenge{}, fmt.Errorf("query challenge: %w", err)
	}

	c.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.OTPChallenge{}, fmt.Errorf("parse challenge ID: %w", err)
	}
	c.UsuarioID, err = uuid.Parse(usuarioIDStr)
	if err != nil {
		return model.OTPChallenge{}, fmt.Errorf("parse usuario ID: %w", err)
	}
	return c, nil
}

// IncrementAttempts adds 1 to the failed-attempt counter; returns the new count.
func (r *otpRepo) IncrementAttempts(ctx context.Context, challengeID uuid.UUID) (int, error) {
	var newAttempts int
	err := r.db.QueryRowContext(ctx, `
		UPDATE auth_otp
		SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts
	`, challengeID).Scan(&newAttempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNoChallenge
		}
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return newAttempts, nil
}

// Delete removes the usuario's challenge. Deleting an absent challenge is a no-op.
func (r *otpRepo) Delete(ctx context.Context, usuarioID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auth_otp WHERE usuario_id = $1`, usuarioID)
	if err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	return nil
}

// isRetryablePgErr reports whether err is a transient serialization or
// deadlock failure worth retrying.
func isRetryablePgErr(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}
