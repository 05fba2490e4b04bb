// Package capability emite y resuelve capabilities: URIs opacas que otorgan
// acceso bearer a una operación de un backend service, con expiración.
package capability

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/gridbridge/internal/cache"
	"github.com/dropDatabas3/gridbridge/internal/domain/types"
	"github.com/dropDatabas3/gridbridge/internal/metrics"
	"github.com/google/uuid"
)

// DefaultTTL es la vida útil por defecto de una capability.
const DefaultTTL = 12 * time.Hour

// PathPrefix es el path bajo el cual se sirven las capabilities.
const PathPrefix = "/caps/cablebeach/"

const (
	capKeyPrefix   = "cap:"
	indexKeyPrefix = "capsx:"
)

// Store emite capabilities con IDs no adivinables y las guarda en el cache
// con TTL. Mantiene un índice secundario sesión -> IDs (en el mismo cache)
// para poder revocar por sesión.
type Store struct {
	cache   cache.Cache
	baseURL string
	ttl     time.Duration

	// mu serializa el read-modify-write del índice por sesión.
	mu sync.Mutex
}

// NewStore crea un Store. baseURL es la raíz pública del bridge
// (ej: https://grid.example.com). ttl <= 0 usa DefaultTTL.
func NewStore(c cache.Cache, baseURL string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: c, baseURL: strings.TrimRight(baseURL, "/"), ttl: ttl}
}

// Issue genera una capability fresca ligada a la sesión y retorna su URL
// pública: <base>/caps/cablebeach/<id>.
func (s *Store) Issue(sessionID uuid.UUID, handler string, clientCert bool, state []byte) (string, error) {
	id := uuid.New()
	entry := types.Capability{
		ID:         id,
		SessionID:  sessionID,
		Handler:    handler,
		ClientCert: clientCert,
		State:      state,
		ExpiresAt:  time.Now().Add(s.ttl),
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshal capability: %w", err)
	}
	s.cache.Set(capKeyPrefix+id.String(), b, s.ttl)
	s.indexAdd(sessionID, id)
	metrics.CapabilitiesIssued.Inc()
	return s.baseURL + PathPrefix + id.String(), nil
}

// Resolve busca una capability por ID. ok es false para IDs desconocidos,
// malformados o expirados.
func (s *Store) Resolve(capID string) (types.Capability, bool) {
	if _, err := uuid.Parse(capID); err != nil {
		return types.Capability{}, false
	}
	b, ok := s.cache.Get(capKeyPrefix + capID)
	if !ok {
		return types.Capability{}, false
	}
	var entry types.Capability
	if err := json.Unmarshal(b, &entry); err != nil {
		return types.Capability{}, false
	}
	return entry, true
}

// RevokeSession invalida las capabilities vivas de una sesión usando el
// índice secundario y retorna cuántas eliminó. No es instantáneo: una
// capability emitida concurrentemente con la revocación puede quedar viva
// hasta su expiración natural. Trade-off aceptado y documentado; el índice
// cubre el caso normal.
func (s *Store) RevokeSession(sessionID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.indexGet(sessionID)
	for _, id := range ids {
		s.cache.Delete(capKeyPrefix + id)
	}
	s.cache.Delete(indexKeyPrefix + sessionID.String())
	return len(ids)
}

func (s *Store) indexAdd(sessionID, capID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := append(s.indexGet(sessionID), capID.String())
	b, _ := json.Marshal(ids)
	// El índice comparte el TTL de la capability más nueva; entradas del
	// índice que apuntan a capabilities ya expiradas se resuelven como
	// not-found en Resolve.
	s.cache.Set(indexKeyPrefix+sessionID.String(), b, s.ttl)
}

func (s *Store) indexGet(sessionID uuid.UUID) []string {
	b, ok := s.cache.Get(indexKeyPrefix + sessionID.String())
	if !ok {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil
	}
	return ids
}
