// Package inmem provides in-memory repository implementations for local
// development and tests that do not need Postgres.
package inmem

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ilm2/server/internal/model"
	"github.com/ilm2/server/internal/repo"
)

// UsuarioRepo is an in-memory repo.UsuarioRepo.
type UsuarioRepo struct {
	mu      sync.RWMutex
	byEmail map[string]model.Usuario
}

// NewUsuarioRepo creates a repo pre-populated with the given usuarios.
func NewUsuarioRepo(usuarios ...model.Usuario) *UsuarioRepo {
	r := &UsuarioRepo{byEmail: make(map[string]model.Usuario)}
	for _, u := range usuarios {
		r.byEmail[strings.ToLower(u.Email)] = u
	}
	return r
}

func (r *UsuarioRepo) GetByEmail(_ context.Context, email string) (model.Usuario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return model.Usuario{}, repo.ErrUsuarioNotFound
	}
	return u, nil
}

// OTPRepo is an in-memory repo.OTPRepo with the same single-challenge-per-
// usuario semantics as the Postgres implementation.
type OTPRepo struct {
	mu        sync.Mutex
	byUsuario map[uuid.UUID]model.OTPChallenge
}

// NewOTPRepo creates an empty in-memory challenge store.
func NewOTPRepo() *OTPRepo {
	return &OTPRepo{byUsuario: make(map[uuid.UUID]model.OTPChallenge)}
}

func (r *OTPRepo) Replace(_ context.Context, usuarioID uuid.UUID, codeHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUsuario[usuarioID] = model.OTPChallenge{
		ID:        uuid.New(),
		UsuarioID: usuarioID,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
		Attempts:  0,
		CreatedAt: time.Now(),
	}
	return nil
}

func (r *OTPRepo) Get(_ context.Context, usuarioID uuid.UUID) (model.OTPChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byUsuario[usuarioID]
	if !ok {
		return model.OTPChallenge{}, repo.ErrNoChallenge
	}
	return c, nil
}

func (r *OTPRepo) IncrementAttempts(_ context.Context, challengeID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.byUsuario {
		if c.ID == challengeID {
			c.Attempts++
			r.byUsuario[id] = c
			return c.Attempts, nil
		}
	}
	return 0, repo.ErrNoChallenge
}

func (r *OTPRepo) Delete(_ context.Context, usuarioID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUsuario, usuarioID)
	return nil
}

// Seed overwrites the usuario's challenge with the given record. Test helper.
func (r *OTPRepo) Seed(c model.OTPChallenge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUsuario[c.UsuarioID] = c
}

var (
	_ repo.UsuarioRepo = (*UsuarioRepo)(nil)
	_ repo.OTPRepo     = (*OTPRepo)(nil)
)
