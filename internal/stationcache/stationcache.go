// Package stationcache keeps the station list in Redis so segment computations do not hit
// the database on every request.
package stationcache

import (
	"context"
	"encoding/json"
	"time"

	"railticket/internal/domain/models"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTTL = 10 * time.Minute
	allKey     = "railticket:stations:all"
)

type Source interface {
	ListStations(ctx context.Context) ([]models.Station, error)
	GetStation(ctx context.Context, id uuid.UUID) (models.Station, error)
}

// LookupObserver counts hits and misses.
type LookupObserver interface {
	CacheLookup(result string)
}

type Cache struct {
	Source   Source
	Observer LookupObserver

	cache *cache.Cache[string]
}

func New(source Source, client redis.UniversalClient, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	redisStore := redisstore.NewRedis(client, store.WithExpiration(ttl))
	return &Cache{
		Source: source,
		cache:  cache.New[string](redisStore),
	}
}

func (c *Cache) observe(result string) {
	if c.Observer != nil {
		c.Observer.CacheLookup(result)
	}
}

// ListStations serves the cached list, loading it from the source on a miss. A Redis
// failure degrades to reading the source.
func (c *Cache) ListStations(ctx context.Context) ([]models.Station, error) {
	cached, err := c.cache.Get(ctx, allKey)
	if err == nil {
		var out []models.Station
		if jsonErr := json.Unmarshal([]byte(cached), &out); jsonErr == nil {
			c.observe("hit")
			return out, nil
		}
		log.Warn().Str("key", allKey).Msg("discarding undecodable station cache entry")
	}
	c.observe("miss")

	stations, err := c.Source.ListStations(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(stations)
	if err != nil {
		return stations, nil
	}
	if err := c.cache.Set(ctx, allKey, string(data)); err != nil {
		c.observe("error")
		log.Warn().Err(err).Msg("station cache set")
	}
	return stations, nil
}

func (c *Cache) GetStation(ctx context.Context, id uuid.UUID) (models.Station, error) {
	stations, err := c.ListStations(ctx)
	if err != nil {
		return models.Station{}, err
	}
	for _, s := range stations {
		if s.ID == id {
			return s, nil
		}
	}
	s, err := c.Source.GetStation(ctx, id)
	if err != nil {
		return models.Station{}, err
	}
	// Present in the source but not in the cached list: the list is stale.
	c.Invalidate(ctx)
	return s, nil
}

// Invalidate drops the cached list. Call it after changing station data.
func (c *Cache) Invalidate(ctx context.Context) {
	if err := c.cache.Delete(ctx, allKey); err != nil {
		log.Warn().Err(err).Msg("station cache invalidate")
	}
}
