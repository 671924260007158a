package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides caching functionality using Redis
type Cache struct {
	client *redis.Client
}

// SourceEntry is a resolved film source as stored in Redis
type SourceEntry struct {
	FilmID     int       `json:"film_id"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

func sourceKey(filmID int) string {
	return fmt.Sprintf("film:source:%d", filmID)
}

// SetSource caches the resolved source of a film
func (c *Cache) SetSource(ctx context.Context, entry *SourceEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal source entry: %w", err)
	}

	return c.client.Set(ctx, sourceKey(entry.FilmID), data, ttl).Err()
}

// GetSource retrieves a cached source. A miss returns nil, nil.
func (c *Cache) GetSource(ctx context.Context, filmID int) (*SourceEntry, error) {
	data, err := c.client.Get(ctx, sourceKey(filmID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get source from cache: %w", err)
	}

	var entry SourceEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal source entry: %w", err)
	}

	return &entry, nil
}

// DeleteSource removes a cached source
func (c *Cache) DeleteSource(ctx context.Context, filmID int) error {
	return c.client.Del(ctx, sourceKey(filmID)).Err()
}

// Ping checks the connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
