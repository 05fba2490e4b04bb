package negotiation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/gridbridge/internal/cache"
	"github.com/dropDatabas3/gridbridge/internal/domain/types"
	"github.com/dropDatabas3/gridbridge/internal/services"
	"github.com/google/uuid"
)

// LoginTimeout es cuánto puede tardar una negociación completa. Un
// PendingLogin que no llegó a completion en este plazo se trata como si
// nunca hubiera existido.
const LoginTimeout = 10 * time.Minute

const (
	loginKeyPrefix = "plogin:"
	loginIndexKey  = "plogin_index"
)

// Registry guarda los PendingLogin en el cache, keyed por session id.
// Toda mutación de una sesión pasa por el lock de esa sesión; operaciones
// sobre sesiones distintas no comparten lock.
type Registry struct {
	cache    cache.Cache
	services *services.Registry

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRegistry(c cache.Cache, svcs *services.Registry) *Registry {
	return &Registry{
		cache:    c,
		services: svcs,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Create computa los requirements vía el service registry y registra un
// PendingLogin fresco con expiración de 10 minutos. Si ningún service tiene
// requirements retorna ErrNothingToNegotiate con un login efímero igualmente
// poblado, para que el caller pueda saltar directo a completion.
func (r *Registry) Create(ctx context.Context, identity string, method types.AuthMethod, firstName, lastName, email, realm string) (*types.PendingLogin, error) {
	sessionID := uuid.New()
	reqs := r.services.ComputeRequirements(ctx, sessionID, identity)

	// Services en orden de registración, filtrados a los que computaron
	// requirements (un provider caído queda fuera de esta negociación).
	var svcIDs []types.ServiceID
	for _, id := range r.services.Services() {
		if _, ok := reqs[id]; ok {
			svcIDs = append(svcIDs, id)
		}
	}

	login := &types.PendingLogin{
		SessionID:    sessionID,
		Identity:     identity,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		Services:     svcIDs,
		Requirements: reqs,
		Fulfilled:    make(map[types.ServiceID]bool),
		CreatedAt:    time.Now(),
		AuthMethod:   method,
		Realm:        realm,
	}

	// Requirements ya satisfechos al crearse (capabilities locales emitidas
	// por el provider) quedan fulfilled de entrada.
	for id, rs := range reqs {
		if len(rs.Names) > 0 && rs.Satisfied() {
			login.Fulfilled[id] = true
		}
	}

	if login.NextUnfulfilled() == "" {
		return login, ErrNothingToNegotiate
	}

	r.put(login)
	r.indexAdd(sessionID)
	return login, nil
}

// Store registra un login construido por Create aunque no tenga nada que
// negociar. Lo usa el path directo legacy: la sesión se provisiona primero y
// el RPC con credenciales llega después, dentro del timeout.
func (r *Registry) Store(login *types.PendingLogin) {
	r.put(login)
	r.indexAdd(login.SessionID)
}

// Get resuelve un PendingLogin vivo por session id.
func (r *Registry) Get(sessionID uuid.UUID) (*types.PendingLogin, bool) {
	b, ok := r.cache.Get(loginKeyPrefix + sessionID.String())
	if !ok {
		return nil, false
	}
	var login types.PendingLogin
	if err := json.Unmarshal(b, &login); err != nil {
		return nil, false
	}
	return &login, true
}

// MarkGranted mergea las URIs otorgadas por un service en el requirement set
// de la sesión y, si quedó satisfecho, marca el service como fulfilled.
// Atómico respecto de otras mutaciones de la misma sesión.
func (r *Registry) MarkGranted(sessionID uuid.UUID, service types.ServiceID, granted map[string]string) (*types.PendingLogin, error) {
	lock := r.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	login, ok := r.Get(sessionID)
	if !ok {
		return nil, ErrSessionExpired
	}

	rs, declared := login.Requirements[service]
	if !declared {
		return nil, fmt.Errorf("service %s not part of session %s", service, sessionID)
	}
	rs.Merge(granted)
	login.Requirements[service] = rs
	if rs.Satisfied() {
		login.Fulfilled[service] = true
	}

	r.put(login)
	return login, nil
}

// Delete descarta una negociación. Idempotente.
func (r *Registry) Delete(sessionID uuid.UUID) {
	r.cache.Delete(loginKeyPrefix + sessionID.String())
	r.indexRemove(sessionID)

	r.mu.Lock()
	delete(r.locks, sessionID.String())
	r.mu.Unlock()
}

// List retorna las negociaciones vivas, para el surface de admin.
func (r *Registry) List() []*types.PendingLogin {
	ids := r.indexGet()
	out := make([]*types.PendingLogin, 0, len(ids))
	for _, id := range ids {
		sid, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		if login, ok := r.Get(sid); ok {
			out = append(out, login)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *Registry) put(login *types.PendingLogin) {
	b, _ := json.Marshal(login)
	// La expiración es absoluta desde la creación: un update no extiende
	// la vida de la negociación.
	ttl := time.Until(login.CreatedAt.Add(LoginTimeout))
	if ttl <= 0 {
		return
	}
	r.cache.Set(loginKeyPrefix+login.SessionID.String(), b, ttl)
}

func (r *Registry) sessionLock(sessionID uuid.UUID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[sessionID.String()]
	if !ok {
		l = &sync.Mutex{}
		r.locks[sessionID.String()] = l
	}
	return l
}

func (r *Registry) indexAdd(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.indexGet()
	ids = append(ids, sessionID.String())
	b, _ := json.Marshal(ids)
	r.cache.Set(loginIndexKey, b, LoginTimeout)
}

func (r *Registry) indexRemove(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.indexGet()
	out := ids[:0]
	for _, id := range ids {
		if id != sessionID.String() {
			out = append(out, id)
		}
	}
	b, _ := json.Marshal(out)
	r.cache.Set(loginIndexKey, b, LoginTimeout)
}

func (r *Registry) indexGet() []string {
	b, ok := r.cache.Get(loginIndexKey)
	if !ok {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil
	}
	return ids
}
