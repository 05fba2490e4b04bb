package services

import (
	"context"

	"github.com/dropDatabas3/gridbridge/internal/capability"
	"github.com/dropDatabas3/gridbridge/internal/domain/types"
	"github.com/google/uuid"
)

// RemoteProvider declara capabilities que otorga el propio service vía el
// intercambio de autorización: el requirement set arranca pendiente y las
// URIs reales llegan en el callback.
type RemoteProvider struct {
	Capabilities []string
}

func (p RemoteProvider) ComputeCapabilities(ctx context.Context, sessionID uuid.UUID, identity string) (types.RequirementSet, error) {
	return types.NewRequirementSet(p.Capabilities...), nil
}

// LocalProvider declara capabilities que sirve el propio bridge: se emiten en
// el CapabilityStore al crearse la sesión y nacen ya otorgadas, sin round
// trip de autorización.
type LocalProvider struct {
	Store *capability.Store
	// Handlers mapea nombre de capability -> handler local que la sirve.
	Handlers map[string]string
	// Order fija el orden de declaración de los nombres.
	Order []string
}

func (p LocalProvider) ComputeCapabilities(ctx context.Context, sessionID uuid.UUID, identity string) (types.RequirementSet, error) {
	rs := types.NewRequirementSet(p.Order...)
	for _, name := range p.Order {
		uri, err := p.Store.Issue(sessionID, p.Handlers[name], false, nil)
		if err != nil {
			return types.RequirementSet{}, err
		}
		rs.Granted[name] = uri
	}
	return rs, nil
}
