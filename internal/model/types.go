package model

import (
	"time"

	"github.com/google/uuid"
)

// Usuario is an ILM2 account as seen by the auth core. The record is owned
// by the user-management side of the application; the auth flow only reads it.
type Usuario struct {
	ID          uuid.UUID
	Email       string
	Nome        string
	Perfil      string
	MunicipioID *uuid.UUID
	CreatedAt   time.Time
}

// OTPChallenge is the single outstanding passcode challenge for a usuario.
// Only the hash of the code is ever stored.
type OTPChallenge struct {
	ID        uuid.UUID
	UsuarioID uuid.UUID
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
	CreatedAt time.Time
}
