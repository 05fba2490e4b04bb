// Package types contiene los tipos de dominio del bridge.
package types

import (
	"time"

	"github.com/google/uuid"
)

// AuthMethod indica cómo se autenticó la identidad de una sesión.
type AuthMethod string

const (
	AuthMethodOpenID AuthMethod = "openid"
	AuthMethodDirect AuthMethod = "direct"
)

// ServiceID identifica un backend service (URI).
type ServiceID string

// RequirementSet mapea cada capability requerida (URI de nombre) a la URI que
// la sirve una vez otorgada. Vacío ("") significa pendiente de otorgar.
// Names preserva el orden de declaración del provider.
type RequirementSet struct {
	Names   []string          `json:"names"`
	Granted map[string]string `json:"granted"`
}

// NewRequirementSet construye un RequirementSet pendiente para los nombres dados.
func NewRequirementSet(names ...string) RequirementSet {
	rs := RequirementSet{Names: append([]string(nil), names...), Granted: make(map[string]string, len(names))}
	for _, n := range names {
		rs.Granted[n] = ""
	}
	return rs
}

// Satisfied retorna true si toda capability requerida tiene una URI otorgada.
func (rs RequirementSet) Satisfied() bool {
	for _, n := range rs.Names {
		if rs.Granted[n] == "" {
			return false
		}
	}
	return true
}

// Merge incorpora URIs otorgadas. Nombres que no estaban declarados se
// agregan al final (un service puede otorgar más de lo pedido).
func (rs *RequirementSet) Merge(granted map[string]string) {
	if rs.Granted == nil {
		rs.Granted = make(map[string]string, len(granted))
	}
	for name, uri := range granted {
		if _, known := rs.Granted[name]; !known {
			rs.Names = append(rs.Names, name)
		}
		rs.Granted[name] = uri
	}
}

// PendingLogin es el registro server-side de una negociación de login en curso.
// Solo el PendingLoginRegistry lo muta; se destruye por expiración o al
// completar/fallar la negociación.
type PendingLogin struct {
	SessionID    uuid.UUID                    `json:"session_id"`
	Identity     string                       `json:"identity"`
	FirstName    string                       `json:"first_name,omitempty"`
	LastName     string                       `json:"last_name,omitempty"`
	Email        string                       `json:"email,omitempty"`
	Services     []ServiceID                  `json:"services"`
	Requirements map[ServiceID]RequirementSet `json:"requirements"`
	Fulfilled    map[ServiceID]bool           `json:"fulfilled"`
	CreatedAt    time.Time                    `json:"created_at"`
	AuthMethod   AuthMethod                   `json:"auth_method"`
	// Realm es el origin del consumidor que inició el login; unidad de
	// consentimiento al completar.
	Realm string `json:"realm,omitempty"`
}

// Complete retorna true sii todo service declarado está fulfilled.
// Fulfilled siempre es subconjunto de Services (invariante del registry).
func (p *PendingLogin) Complete() bool {
	for _, svc := range p.Services {
		if !p.Fulfilled[svc] {
			return false
		}
	}
	return true
}

// NextUnfulfilled retorna el primer service en orden de registración cuyo
// requirement set no está fulfilled, o "" si no queda ninguno.
func (p *PendingLogin) NextUnfulfilled() ServiceID {
	for _, svc := range p.Services {
		if !p.Fulfilled[svc] {
			return svc
		}
	}
	return ""
}

// Capability es un grant opaco emitido para una sesión. Es propiedad del
// CapabilityStore; los handlers la referencian, nunca la poseen.
type Capability struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	Handler    string    `json:"handler"`
	ClientCert bool      `json:"client_cert"`
	State      []byte    `json:"state,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// AuthCookie es la entrada cacheada detrás de la cookie de consentimiento:
// una identidad autenticada y los realms que ya consintió.
type AuthCookie struct {
	Identity  string    `json:"identity"`
	Realms    []string  `json:"realms"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HasRealm retorna true si el realm ya fue consentido.
func (c *AuthCookie) HasRealm(realm string) bool {
	for _, r := range c.Realms {
		if r == realm {
			return true
		}
	}
	return false
}
