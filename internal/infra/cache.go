package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	listaCachePrefix  = "categorias:lista:"
	listaCacheVersion = "categorias:version"
)

// ListaCache stores rendered category list pages in Redis. Invalidation bumps
// a version counter that is part of every page key, so stale pages are never
// read again and simply expire with their TTL.
//
// Every call is best effort: Redis errors are logged and reported as a miss,
// and a Breaker stops hammering Redis while it is down.
type ListaCache struct {
	rdb     *redis.Client
	ttl     time.Duration
	breaker *Breaker
}

func NewListaCache(rdb *redis.Client, ttl time.Duration) *ListaCache {
	return &ListaCache{
		rdb:     rdb,
		ttl:     ttl,
		breaker: NewBreaker(5, 30*time.Second),
	}
}

func (c *ListaCache) version(ctx context.Context) (int64, error) {
	v, err := c.rdb.Get(ctx, listaCacheVersion).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *ListaCache) key(version int64, clave string) string {
	return fmt.Sprintf("%sv%d:%s", listaCachePrefix, version, clave)
}

// Obtener decodes the page cached under the current version into dest and
// reports whether it was found. The returned version must be handed back to
// Guardar: it is read before the caller queries the database, so a page built
// while a mutation commits lands under a version Invalidar already retired.
// A negative version means Redis could not be read and nothing gets stored.
func (c *ListaCache) Obtener(ctx context.Context, clave string, dest any) (int64, bool) {
	version := int64(-1)
	var data []byte
	err := c.breaker.Do(func() error {
		v, err := c.version(ctx)
		if err != nil {
			return err
		}
		version = v
		data, err = c.rdb.Get(ctx, c.key(v, clave)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	})
	if err != nil {
		c.logFallo(err, "obtener")
		return version, false
	}
	if data == nil {
		return version, false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Warn().Err(err).Str("clave", clave).Msg("cache: entrada corrupta")
		return version, false
	}
	return version, true
}

// Guardar stores valor under the version Obtener returned.
func (c *ListaCache) Guardar(ctx context.Context, version int64, clave string, valor any) {
	if version < 0 {
		return
	}
	data, err := json.Marshal(valor)
	if err != nil {
		log.Warn().Err(err).Msg("cache: no se pudo serializar")
		return
	}
	err = c.breaker.Do(func() error {
		return c.rdb.Set(ctx, c.key(version, clave), data, c.ttl).Err()
	})
	if err != nil {
		c.logFallo(err, "guardar")
	}
}

// Invalidar makes every cached page unreachable.
func (c *ListaCache) Invalidar(ctx context.Context) {
	err := c.breaker.Do(func() error {
		return c.rdb.Incr(ctx, listaCacheVersion).Err()
	})
	if err != nil {
		c.logFallo(err, "invalidar")
	}
}

func (c *ListaCache) logFallo(err error, op string) {
	if errors.Is(err, ErrBreakerOpen) {
		return
	}
	log.Warn().Err(err).Str("op", op).Msg("cache: redis no disponible")
}

// Estado reports the breaker guarding Redis, for the health endpoint.
func (c *ListaCache) Estado() BreakerState {
	return c.breaker.State()
}
