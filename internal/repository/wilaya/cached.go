package wilaya

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"souq-orders/internal/domain"
)

const listKey = "wilayas:all"

// Cached serves the delivery-fee table from Redis, reading through to the
// wrapped repository on a miss. Redis failures are logged and fall back to
// the wrapped repository.
type Cached struct {
	next   Repository
	redis  redis.Cmdable
	ttl    time.Duration
	logger *log.Logger
}

func NewCached(next Repository, client redis.Cmdable, ttl time.Duration, logger *log.Logger) *Cached {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cached{next: next, redis: client, ttl: ttl, logger: logger}
}

func (c *Cached) List(ctx context.Context) ([]domain.Wilaya, error) {
	data, err := c.redis.Get(ctx, listKey).Bytes()
	switch {
	case err == nil:
		var list []domain.Wilaya
		if err := json.Unmarshal(data, &list); err != nil {
			c.logger.Printf("wilaya cache: decode %s error=%v (continuing with db)", listKey, err)
			break
		}
		return list, nil
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Printf("wilaya cache: get %s error=%v (continuing with db)", listKey, err)
	}

	list, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(list)
	if err != nil {
		c.logger.Printf("wilaya cache: encode error=%v", err)
		return list, nil
	}
	if err := c.redis.Set(ctx, listKey, payload, c.ttl).Err(); err != nil {
		c.logger.Printf("wilaya cache: set %s error=%v", listKey, err)
	}
	return list, nil
}

// GetByName looks the name up in the cached list.
func (c *Cached) GetByName(ctx context.Context, name string) (*domain.Wilaya, error) {
	list, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Name == name {
			w := list[i]
			return &w, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (c *Cached) Upsert(ctx context.Context, name string, fee decimal.Decimal) (*domain.Wilaya, error) {
	w, err := c.next.Upsert(ctx, name, fee)
	if err != nil {
		return nil, err
	}
	c.Invalidate(ctx)
	return w, nil
}

// Invalidate drops the cached list.
func (c *Cached) Invalidate(ctx context.Context) {
	if err := c.redis.Del(ctx, listKey).Err(); err != nil {
		c.logger.Printf("wilaya cache: delete %s error=%v", listKey, err)
	}
}
