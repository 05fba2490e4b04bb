// Package core define el repositorio de usuarios del grid: el allow-list de
// identidades autorizadas y las credenciales para el login directo legacy.
package core

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
)

// User es una cuenta del grid autorizada a loguearse por el bridge.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Identity     string // URI de la identidad delegada asociada (puede ser "")
	PasswordHash *string
	Enabled      bool
	CreatedAt    time.Time
}

// UserRepository resuelve usuarios por identidad delegada (allow-list) o por
// nombre (login directo). Toda implementación debe ser segura bajo acceso
// concurrente.
type UserRepository interface {
	Ping(ctx context.Context) error

	// GetByIdentity busca el usuario dueño de una identidad delegada.
	// ErrNotFound significa identidad no autorizada.
	GetByIdentity(ctx context.Context, identity string) (*User, error)

	// GetByName busca el usuario por nombre de avatar (first/last).
	GetByName(ctx context.Context, firstName, lastName string) (*User, error)

	// CheckPassword verifica una password contra el hash guardado.
	CheckPassword(hash *string, pwd string) bool
}
