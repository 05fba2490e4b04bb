// Package cache define la abstracción de cache con expiración por entrada.
//
// Todo el estado efímero del bridge vive acá: pending logins, capabilities,
// cookies de consentimiento y requests de autorización en vuelo. El contrato
// observable es el mismo para todos los backends: un Get sobre una key
// expirada retorna not-found, sin importar si la eviction es lazy o por sweep.
package cache

import "time"

// Cache es un key-value store con TTL por entrada.
// Todas las operaciones son seguras bajo acceso concurrente. Ningún caller
// puede asumir acceso exclusivo entre dos llamadas: cualquier check-then-act
// sobre una key debe resolverse en el store que la posee.
type Cache interface {
	// Get retorna el valor de una key. ok es false si la key no existe
	// o si su expiración ya pasó.
	Get(key string) (value []byte, ok bool)

	// Set inserta o sobreescribe una key. Valor y expiración se reemplazan
	// de forma atómica: un lector concurrente nunca observa el valor nuevo
	// con la expiración vieja ni viceversa.
	Set(key string, value []byte, ttl time.Duration)

	// Delete elimina una key. Es idempotente.
	Delete(key string)
}
