// Package consent implementa el store detrás de las cookies de autenticación:
// un token opaco por browser que mapea a una identidad ya autenticada y al
// conjunto de realms que esa identidad consintió.
package consent

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dropDatabas3/gridbridge/internal/cache"
	"github.com/dropDatabas3/gridbridge/internal/domain/types"
	tokens "github.com/dropDatabas3/gridbridge/internal/security/token"
)

// TTL es la expiración de la cookie, contada desde el último refresh.
const TTL = 5 * 24 * time.Hour

const keyPrefix = "authck:"

// Store guarda AuthCookies en el cache, keyed por hash del token (el token en
// claro solo viaja en la cookie del browser).
type Store struct {
	cache cache.Cache

	// mu serializa el read-modify-write de una entrada (RecordConsent).
	mu sync.Mutex
}

func NewStore(c cache.Cache) *Store {
	return &Store{cache: c}
}

// SetOrRefresh reusa un token existente si todavía resuelve a una entrada
// viva (extendiendo su expiración a 5 días) o acuña uno nuevo para la
// identidad dada. Retorna el token a setear en la cookie y la entrada.
func (s *Store) SetOrRefresh(existingToken, identity string) (string, types.AuthCookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingToken != "" {
		if ck, ok := s.get(existingToken); ok && ck.Identity == identity {
			ck.ExpiresAt = time.Now().Add(TTL)
			s.put(existingToken, ck)
			return existingToken, ck, nil
		}
	}

	token, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return "", types.AuthCookie{}, fmt.Errorf("mint auth cookie token: %w", err)
	}
	ck := types.AuthCookie{
		Identity:  identity,
		Realms:    nil,
		ExpiresAt: time.Now().Add(TTL),
	}
	s.put(token, ck)
	return token, ck, nil
}

// Identity resuelve la identidad cacheada detrás de un token.
func (s *Store) Identity(token string) (string, bool) {
	ck, ok := s.get(token)
	if !ok {
		return "", false
	}
	return ck.Identity, true
}

// HasConsented retorna true si el token resuelve a una entrada viva que ya
// consintió el realm dado.
func (s *Store) HasConsented(token, realm string) bool {
	ck, ok := s.get(token)
	return ok && ck.HasRealm(realm)
}

// RecordConsent agrega el realm al set de consentidos si no estaba
// (semántica de set, sin duplicados). Token desconocido es un no-op.
func (s *Store) RecordConsent(token, realm string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ck, ok := s.get(token)
	if !ok || ck.HasRealm(realm) {
		return
	}
	ck.Realms = append(ck.Realms, realm)
	s.put(token, ck)
}

func (s *Store) get(token string) (types.AuthCookie, bool) {
	b, ok := s.cache.Get(keyPrefix + tokens.SHA256Base64URL(token))
	if !ok {
		return types.AuthCookie{}, false
	}
	var ck types.AuthCookie
	if err := json.Unmarshal(b, &ck); err != nil {
		return types.AuthCookie{}, false
	}
	return ck, true
}

func (s *Store) put(token string, ck types.AuthCookie) {
	b, _ := json.Marshal(ck)
	s.cache.Set(keyPrefix+tokens.SHA256Base64URL(token), b, time.Until(ck.ExpiresAt))
}
