package recipes

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"recipebox/internal/domain"
	"recipebox/internal/infra/metrics"
)

// PageCache хранит страницы ленты. Сбои хранилища не выходят наружу:
// чтение превращается в промах, запись и сброс в no-op.
type PageCache struct {
	backend           domain.Cache
	ttl               time.Duration
	opTimeout         time.Duration
	invalidateTimeout time.Duration
	log               zerolog.Logger
}

// NewPageCache создаёт кэш ленты. backend может быть nil, тогда кэш выключен.
// opTimeout ограничивает чтение и запись, invalidateTimeout ограничивает полный сброс.
func NewPageCache(backend domain.Cache, ttl, opTimeout, invalidateTimeout time.Duration, logger zerolog.Logger) *PageCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if opTimeout <= 0 {
		opTimeout = 250 * time.Millisecond
	}
	if invalidateTimeout <= 0 {
		invalidateTimeout = 5 * time.Second
	}
	return &PageCache{
		backend:           backend,
		ttl:               ttl,
		opTimeout:         opTimeout,
		invalidateTimeout: invalidateTimeout,
		log:               logger,
	}
}

func (c *PageCache) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opTimeout)
}

// Get возвращает страницу из кэша.
func (c *PageCache) Get(ctx context.Context, q domain.ListQuery) (domain.CachedPage, bool) {
	if c == nil || c.backend == nil {
		return domain.CachedPage{}, false
	}
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	key := CacheKey(q)
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			metrics.ObserveCacheOperation("get", "miss")
		} else {
			metrics.ObserveCacheOperation("get", "error")
			c.log.Warn().Err(err).Str("key", key).Msg("cache: get failed")
		}
		return domain.CachedPage{}, false
	}
	var page domain.CachedPage
	if err := json.Unmarshal(data, &page); err != nil {
		metrics.ObserveCacheOperation("get", "error")
		c.log.Warn().Err(err).Str("key", key).Msg("cache: corrupted entry")
		return domain.CachedPage{}, false
	}
	metrics.ObserveCacheOperation("get", "hit")
	return page, true
}

// Put сохраняет страницу на ttl.
func (c *PageCache) Put(ctx context.Context, q domain.ListQuery, page domain.CachedPage) {
	if c == nil || c.backend == nil {
		return
	}
	data, err := json.Marshal(page)
	if err != nil {
		metrics.ObserveCacheOperation("set", "error")
		c.log.Warn().Err(err).Msg("cache: marshal page")
		return
	}
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	key := CacheKey(q)
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		metrics.ObserveCacheOperation("set", "error")
		c.log.Warn().Err(err).Str("key", key).Msg("cache: set failed")
		return
	}
	metrics.ObserveCacheOperation("set", "ok")
}

// InvalidateAll удаляет все закэшированные страницы ленты. Вызывается после записи в БД,
// поэтому отмена запроса клиентом не прерывает сброс.
func (c *PageCache) InvalidateAll(ctx context.Context) {
	if c == nil || c.backend == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.invalidateTimeout)
	defer cancel()

	n, err := c.backend.DeletePrefix(ctx, CacheKeyPrefix)
	if err != nil {
		metrics.ObserveCacheOperation("invalidate", "error")
		c.log.Warn().Err(err).Msg("cache: invalidate failed")
		return
	}
	metrics.ObserveCacheOperation("invalidate", "ok")
	c.log.Debug().Int("deleted", n).Msg("cache: recipe pages invalidated")
}
