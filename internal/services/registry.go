// Package services mantiene el registro de backend services que deben otorgar
// capabilities cuando una identidad completa autenticación.
package services

import (
	"context"
	"sync"

	"github.com/dropDatabas3/gridbridge/internal/domain/types"
	"github.com/dropDatabas3/gridbridge/internal/observability/logger"
	"github.com/google/uuid"
)

// CapabilityProvider declara qué capabilities necesita un service para una
// sesión dada. Retorna el requirement set inicial (nombres pendientes de
// otorgar). Un error marca al provider como fallido para esa sesión; no
// aborta el cómputo de los demás.
type CapabilityProvider interface {
	ComputeCapabilities(ctx context.Context, sessionID uuid.UUID, identity string) (types.RequirementSet, error)
}

// ProviderFunc adapta una función a CapabilityProvider.
type ProviderFunc func(ctx context.Context, sessionID uuid.UUID, identity string) (types.RequirementSet, error)

func (f ProviderFunc) ComputeCapabilities(ctx context.Context, sessionID uuid.UUID, identity string) (types.RequirementSet, error) {
	return f(ctx, sessionID, identity)
}

type registration struct {
	id       types.ServiceID
	provider CapabilityProvider
}

// Registry es el registro process-wide de services. Register sobreescribe la
// registración previa del mismo identifier y es seguro de llamar concurrente
// con ComputeRequirements; las registraciones viven lo que vive el proceso.
type Registry struct {
	mu   sync.RWMutex
	regs []registration
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register agrega o reemplaza un service. El orden de primera registración
// define el orden en que la negociación visita los services.
func (r *Registry) Register(id types.ServiceID, p CapabilityProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.regs {
		if r.regs[i].id == id {
			r.regs[i].provider = p
			return
		}
	}
	r.regs = append(r.regs, registration{id: id, provider: p})
}

// Services retorna los identifiers en orden de registración.
func (r *Registry) Services() []types.ServiceID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ServiceID, len(r.regs))
	for i, reg := range r.regs {
		out[i] = reg.id
	}
	return out
}

// ComputeRequirements invoca cada provider registrado, en orden. Un provider
// que falla se loguea y se omite: su service queda fuera de la negociación de
// esa sesión, sin abortar a los demás (política de fallo aislado).
func (r *Registry) ComputeRequirements(ctx context.Context, sessionID uuid.UUID, identity string) map[types.ServiceID]types.RequirementSet {
	r.mu.RLock()
	regs := append([]registration(nil), r.regs...)
	r.mu.RUnlock()

	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("services.registry"),
		logger.SessionID(sessionID.String()),
	)

	out := make(map[types.ServiceID]types.RequirementSet, len(regs))
	for _, reg := range regs {
		rs, err := reg.provider.ComputeCapabilities(ctx, sessionID, identity)
		if err != nil {
			log.Warn("capability provider failed, skipping service",
				logger.Service(string(reg.id)),
				logger.Err(err),
			)
			continue
		}
		out[reg.id] = rs
	}
	return out
}
