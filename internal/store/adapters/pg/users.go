// users.go — UserRepository sobre Postgres (pgxpool)
package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/gridbridge/internal/security/password"
	"github.com/dropDatabas3/gridbridge/internal/store/core"
)

type userRepo struct{ pool *pgxpool.Pool }

// New crea un UserRepository sobre un pool existente.
func New(pool *pgxpool.Pool) core.UserRepository {
	return &userRepo{pool: pool}
}

// Connect abre un pool con el DSN dado y retorna el repositorio.
func Connect(ctx context.Context, dsn string) (core.UserRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &userRepo{pool: pool}, nil
}

func (r *userRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *userRepo) GetByIdentity(ctx context.Context, identity string) (*core.User, error) {
	const query = `
		SELECT id, first_name, last_name, email, identity_uri, password_hash, enabled, created_at
		FROM grid_user WHERE identity_uri = $1
	`
	return r.scanOne(ctx, query, identity)
}

func (r *userRepo) GetByName(ctx context.Context, firstName, lastName string) (*core.User, error) {
	const query = `
		SELECT id, first_name, last_name, email, identity_uri, password_hash, enabled, created_at
		FROM grid_user WHERE lower(first_name) = lower($1) AND lower(last_name) = lower($2)
	`
	return r.scanOne(ctx, query, firstName, lastName)
}

func (r *userRepo) CheckPassword(hash *string, pwd string) bool {
	if hash == nil || *hash == "" {
		return false
	}
	return password.Verify(pwd, *hash)
}

func (r *userRepo) scanOne(ctx context.Context, query string, args ...any) (*core.User, error) {
	var u core.User
	var identity *string
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &identity, &u.PasswordHash, &u.Enabled, &u.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if identity != nil {
		u.Identity = *identity
	}
	return &u, nil
}
