package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ilm2/server/internal/model"
)

// ErrUsuarioNotFound is returned when no usuario matches the lookup.
var ErrUsuarioNotFound = errors.New("usuario not found")

// UsuarioRepo is the account-lookup collaborator of the auth flow. Accounts
// are managed elsewhere in the application; the auth core only reads them.
type UsuarioRepo interface {
	GetByEmail(ctx context.Context, email string) (model.Usuario, error)
}

type usuarioRepo struct {
	db *sql.DB
}

// NewUsuarioRepo creates a new UsuarioRepo instance
func NewUsuarioRepo(db *sql.DB) UsuarioRepo {
	return &usuarioRepo{db: db}
}

// GetByEmail retrieves a usuario by email (case-insensitive).
func (r *usuarioRepo) GetByEmail(ctx context.Context, email string) (model.Usuario, error) {
	query := `
		SELECT id, email, nome, perfil, municipio_id, created_at
		FROM usuarios
		WHERE lower(email) = lower($1)
	`
	var u model.Usuario
	var idStr string
	var municipioID sql.NullString
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&idStr,
		&u.Email,
		&u.Nome,
		&u.Perfil,
		&municipioID,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Usuario{}, ErrUsuarioNotFound
		}
		return model.Usuario{}, fmt.Errorf("query usuario: %w", err)
	}

	u.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.Usuario{}, fmt.Errorf("parse usuario ID: %w", err)
	}
	if municipioID.Valid {
		mid, err := uuid.Parse(municipioID.String)
		if err != nil {
			return model.Usuario{}, fmt.Errorf("parse municipio ID: %w", err)
		}
		u.MunicipioID = &mid
	}

	return u, nil
}
