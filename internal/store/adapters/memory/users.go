// users.go — UserRepository en memoria, para desarrollo y tests.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/dropDatabas3/gridbridge/internal/security/password"
	"github.com/dropDatabas3/gridbridge/internal/store/core"
)

type userRepo struct {
	mu    sync.RWMutex
	users []core.User
}

func New(users ...core.User) core.UserRepository {
	return &userRepo{users: append([]core.User(nil), users...)}
}

func (r *userRepo) Ping(ctx context.Context) error { return nil }

func (r *userRepo) GetByIdentity(ctx context.Context, identity string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.users {
		if r.users[i].Identity == identity {
			u := r.users[i]
			return &u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *userRepo) GetByName(ctx context.Context, firstName, lastName string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.users {
		if strings.EqualFold(r.users[i].FirstName, firstName) && strings.EqualFold(r.users[i].LastName, lastName) {
			u := r.users[i]
			return &u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *userRepo) CheckPassword(hash *string, pwd string) bool {
	if hash == nil || *hash == "" {
		return false
	}
	return password.Verify(pwd, *hash)
}
