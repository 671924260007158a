package cache

import (
	"context"
	"os"
	"time"

	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/logging"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/metrics"
)

// Locator is anything that resolves a film id to a source path
type Locator interface {
	Locate(ctx context.Context, filmID int) (string, error)
}

// LocatorCache remembers resolved sources in Redis. A cached path that has
// disappeared from disk, or whose size changed, is resolved again.
type LocatorCache struct {
	next     Locator
	cache    *Cache
	ttl      time.Duration
	readOnly bool
	logger   *logging.Logger
}

// NewLocatorCache wraps next with a Redis-backed cache
func NewLocatorCache(next Locator, cache *Cache, ttl time.Duration, logger *logging.Logger) *LocatorCache {
	if logger == nil {
		logger = logging.Nop()
	}
	return &LocatorCache{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.WithComponent("cache"),
	}
}

// WithReadOnly makes Locate use cached entries without ever writing or
// dropping one. Dry runs use it so Redis is left as it was.
func (l *LocatorCache) WithReadOnly(readOnly bool) *LocatorCache {
	l.readOnly = readOnly
	return l
}

// Locate returns the cached source when it is still valid, otherwise asks
// the wrapped locator and caches the answer. Redis errors fall through to
// the wrapped locator.
func (l *LocatorCache) Locate(ctx context.Context, filmID int) (string, error) {
	entry, err := l.cache.GetSource(ctx, filmID)
	if err != nil {
		l.logger.WithError(err).Warn("source cache read failed")
		metrics.RecordError("cache", "read")
	}
	if entry != nil {
		if info, statErr := os.Stat(entry.Path); statErr == nil && info.Size() == entry.Size {
			metrics.RecordCacheAccess("source", true)
			l.logger.WithFilmID(filmID).Debug("source cache hit")
			return entry.Path, nil
		}
		l.logger.WithFilmID(filmID).Debugf("cached source %s is stale", entry.Path)
	}
	metrics.RecordCacheAccess("source", false)

	path, err := l.next.Locate(ctx, filmID)
	if err != nil {
		if entry != nil && !l.readOnly {
			_ = l.cache.DeleteSource(ctx, filmID)
		}
		return "", err
	}
	if l.readOnly {
		return path, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return path, nil
	}
	if err := l.cache.SetSource(ctx, &SourceEntry{
		FilmID:     filmID,
		Path:       path,
		Size:       info.Size(),
		ResolvedAt: time.Now().UTC(),
	}, l.ttl); err != nil {
		l.logger.WithError(err).Warn("source cache write failed")
		metrics.RecordError("cache", "write")
	}

	return path, nil
}
