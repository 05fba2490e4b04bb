// Package memory implementa cache.Cache en memoria sobre go-cache.
//
// go-cache combina eviction lazy (el Get chequea la expiración) con un sweep
// periódico en background. El sweep solo remueve entradas cuya expiración ya
// pasó; un Set reemplaza entrada y deadline bajo el mismo lock, así que un
// refresh nunca pierde contra el janitor.
package memory

import (
	"time"

	"github.com/dropDatabas3/gridbridge/internal/cache"
	gocache "github.com/patrickmn/go-cache"
)

type Mem struct{ c *gocache.Cache }

// New crea un cache en memoria. defaultTTL aplica cuando Set recibe ttl <= 0.
// El janitor corre cada minuto.
func New(defaultTTL time.Duration) cache.Cache {
	return &Mem{c: gocache.New(defaultTTL, time.Minute)}
}

func (m *Mem) Get(k string) ([]byte, bool) {
	v, ok := m.c.Get(k)
	if !ok {
		return nil, false
	}
	b, _ := v.([]byte)
	return b, true
}

func (m *Mem) Set(k string, v []byte, ttl time.Duration) { m.c.Set(k, v, ttl) }
func (m *Mem) Delete(k string)                           { m.c.Delete(k) }
