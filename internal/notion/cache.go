package notion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/coocood/freecache"
)

const (
	defaultCacheSize = 1024 * 1024 // bytes, freecache minimum is 512KB
	defaultCacheTTL  = time.Hour
)

// DatabaseRetriever is the part of the remote API the cache needs.
type DatabaseRetriever interface {
	RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error)
}

// DataSourceCache maps database ids to the id of their first data source.
// Entries expire after the configured TTL so a re-pointed database is picked
// up again; Invalidate and Purge drop entries on demand.
type DataSourceCache struct {
	cache *freecache.Cache
	ttl   int // seconds
	log   *slog.Logger
}

// NewDataSourceCache creates a cache with entries living for ttl.
func NewDataSourceCache(ttl time.Duration, log *slog.Logger) *DataSourceCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &DataSourceCache{
		cache: freecache.NewCache(defaultCacheSize),
		ttl:   int(ttl.Seconds()),
		log:   log,
	}
}

// Resolve returns the data source id for id. Ids that are not databases
// (or that cannot be read) resolve to themselves, since users normally pick
// data sources directly.
func (c *DataSourceCache) Resolve(ctx context.Context, api DatabaseRetriever, id string) string {
	if id == "" {
		return ""
	}
	if v, err := c.cache.Get([]byte(id)); err == nil {
		return string(v)
	}

	resolved := id
	db, err := api.RetrieveDatabase(ctx, id)
	switch {
	case err != nil && !isClientError(err):
		// Transient failure: answer with the id but do not remember it.
		c.log.Warn("failed to resolve data source id", "id", id, "error", err)
		return id
	case err != nil:
		c.log.Debug("id is not a readable database, using it as a data source id", "id", id, "error", err)
	case len(db.DataSources) == 0:
		c.log.Warn("database has no data sources, using database id", "id", id)
	default:
		resolved = db.DataSources[0].ID
	}

	if err := c.cache.Set([]byte(id), []byte(resolved), c.ttl); err != nil {
		c.log.Warn("caching data source id failed", "id", id, "error", err)
	}
	return resolved
}

// Invalidate drops the entry for id.
func (c *DataSourceCache) Invalidate(id string) {
	c.cache.Del([]byte(id))
}

// Purge drops every entry.
func (c *DataSourceCache) Purge() {
	c.cache.Clear()
}

func isClientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != 429
}

// Len returns the number of live entries.
func (c *DataSourceCache) Len() int64 {
	return c.cache.EntryCount()
}
