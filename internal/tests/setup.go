package tests

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/ilm2/server/internal/db"
	"github.com/ilm2/server/internal/model"
)

// PrepareDB runs migrations and clears auth tables for a clean test state.
func PrepareDB(ctx context.Context, database *sql.DB) error {
	if err := db.Migrate(database); err != nil {
		return err
	}
	_, err := database.ExecContext(ctx, "TRUNCATE TABLE auth_otp, usuarios RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("truncate auth tables: %w", err)
	}
	return nil
}

// SeedUsuario inserts a usuario and returns the stored record.
func SeedUsuario(ctx context.Context, database *sql.DB, email, nome, perfil string, municipioID *uuid.UUID) (model.Usuario, error) {
	var idStr string
	err := database.QueryRowContext(ctx, `
		INSERT INTO usuarios (email, nome, perfil, municipio_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, email, nome, perfil, municipioID).Scan(&idStr)
	if err != nil {
		return model.Usuario{}, fmt.Errorf("seed usuario: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.Usuario{}, fmt.Errorf("parse seeded usuario ID: %w", err)
	}
	return model.Usuario{ID: id, Email: email, Nome: nome, Perfil: perfil, MunicipioID: municipioID}, nil
}
