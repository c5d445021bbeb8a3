package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xeternum/proyecto-mapa/internal/domain"
	apperrors "github.com/xeternum/proyecto-mapa/pkg/errors"
)

const keyPrefix = "service:"

// ListingCache implements repository.ListingCache using Redis. Cached
// entries carry the rating projection, so review mutations invalidate the
// owning service's entry.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewListingCache creates a new Redis-backed listing cache.
func NewListingCache(client *redis.Client, ttl time.Duration) *ListingCache {
	return &ListingCache{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a cached service listing by ID.
func (c *ListingCache) Get(ctx context.Context, id string) (*domain.Service, error) {
	key := keyPrefix + id

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("redis get service: %w", err)
	}

	var svc domain.Service
	if err := json.Unmarshal(data, &svc); err != nil {
		return nil, fmt.Errorf("unmarshal service: %w", err)
	}

	return &svc, nil
}

// Set caches a service listing with the configured TTL.
func (c *ListingCache) Set(ctx context.Context, svc *domain.Service) error {
	key := keyPrefix + svc.ID

	data, err := json.Marshal(svc)
	if err != nil {
		return fmt.Errorf("marshal service: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set service: %w", err)
	}

	return nil
}

// Invalidate removes a service listing from the cache.
func (c *ListingCache) Invalidate(ctx context.Context, id string) error {
	key := keyPrefix + id

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del service: %w", err)
	}

	return nil
}
