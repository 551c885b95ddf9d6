// Package quotecache implements the quote lifecycle state machine
// (available -> reserved -> consumed, with release back to available) on two
// backends: a shared Redis store whose atomic transitions are single
// round-trip Lua scripts, and a single-process in-memory fallback.
package quotecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"putshield-service/internal/application"
	"putshield-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	quoteKeyPrefix   = "pshield:q:"
	holdingKeyPrefix = "pshield:h:"
)

// Verdicts shared between the Lua scripts and their Go callers.
const (
	verdictOK           = "ok"
	verdictNotFound     = "not_found"
	verdictUnauthorized = "unauthorized"
	verdictExpired      = "expired"
	verdictInUse        = "in_use"
)

// reserveScript flips available -> reserved in one atomic round trip. An
// expired quote is removed as a side effect, reserved or not, so abandoned
// reservations self-heal.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local status = redis.call('HGET', key, 'status')
if not status or status == 'consumed' then
  return {'not_found', ''}
end
local owner = redis.call('HGET', key, 'user_id')
if owner ~= ARGV[1] then
  return {'unauthorized', ''}
end
local vu = tonumber(redis.call('HGET', key, 'valid_until'))
if not vu or tonumber(ARGV[2]) > vu then
  local holding = redis.call('HGET', key, 'holding_id')
  redis.call('DEL', key)
  if holding then
    redis.call('SREM', ARGV[4] .. holding, ARGV[3])
  end
  return {'expired', ''}
end
if status == 'reserved' then
  return {'in_use', ''}
end
redis.call('HSET', key, 'status', 'reserved')
redis.call('HSET', key, 'reserved_at', ARGV[2])
return {'ok', redis.call('HGET', key, 'data')}
`)

// releaseScript is a best-effort reserved -> available; a no-op otherwise.
var releaseScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'status') == 'reserved' then
  redis.call('HSET', KEYS[1], 'status', 'available')
  redis.call('HDEL', KEYS[1], 'reserved_at')
  return 1
end
return 0
`)

// consumeScript marks the quote consumed and removes every sibling cached
// for the same holding, enforcing at-most-one-active-protection before the
// persisted write even lands.
var consumeScript = redis.NewScript(`
local key = KEYS[1]
local status = redis.call('HGET', key, 'status')
if not status then
  return 'not_found'
end
redis.call('HSET', key, 'status', 'consumed')
local holding = redis.call('HGET', key, 'holding_id')
if holding then
  local idx = ARGV[1] .. holding
  local ids = redis.call('SMEMBERS', idx)
  for _, id in ipairs(ids) do
    if id ~= ARGV[3] then
      redis.call('DEL', ARGV[2] .. id)
    end
  end
  redis.call('DEL', idx)
end
return 'ok'
`)

var invalidateScript = redis.NewScript(`
local ids = redis.call('SMEMBERS', KEYS[1])
for _, id in ipairs(ids) do
  redis.call('DEL', ARGV[1] .. id)
end
redis.call('DEL', KEYS[1])
return #ids
`)

var _ application.QuoteCache = (*RedisCache)(nil)

// RedisCache is the shared-store backend, correct across multiple service
// instances.
type RedisCache struct {
	Client    *redis.Client
	TTLBuffer time.Duration
	now       func() time.Time
}

func NewRedisCache(client *redis.Client, ttlBuffer time.Duration) *RedisCache {
	return &RedisCache{Client: client, TTLBuffer: ttlBuffer, now: func() time.Time { return time.Now().UTC() }}
}

func quoteKey(id string) string   { return quoteKeyPrefix + id }
func holdingKey(id string) string { return holdingKeyPrefix + id }

func (c *RedisCache) Put(ctx context.Context, q domain.Quote, userID string) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("quotecache: encode quote: %w", err)
	}
	now := c.now()
	ttl := q.ValidUntil.Sub(now) + c.TTLBuffer
	if ttl <= 0 {
		return fmt.Errorf("quote %s already expired: %w", q.ID, domain.ErrExpired)
	}

	pipe := c.Client.TxPipeline()
	key := quoteKey(q.ID)
	pipe.HSet(ctx, key,
		"data", string(data),
		"user_id", userID,
		"holding_id", q.HoldingID,
		"status", string(domain.QuoteStatusAvailable),
		"valid_until", q.ValidUntil.UnixMilli(),
		"created_at", now.UnixMilli(),
	)
	pipe.PExpire(ctx, key, ttl)
	idx := holdingKey(q.HoldingID)
	pipe.SAdd(ctx, idx, q.ID)
	pipe.PExpire(ctx, idx, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *RedisCache) GetAndValidate(ctx context.Context, quoteID, userID string) (domain.CachedQuote, error) {
	key := quoteKey(quoteID)
	fields, err := c.Client.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.CachedQuote{}, err
	}
	if len(fields) == 0 {
		return domain.CachedQuote{}, fmt.Errorf("quote %s: %w", quoteID, domain.ErrNotFound)
	}
	status := domain.QuoteStatus(fields["status"])
	if status == domain.QuoteStatusConsumed {
		return domain.CachedQuote{}, fmt.Errorf("quote %s: %w", quoteID, domain.ErrNotFound)
	}
	if fields["user_id"] != userID {
		return domain.CachedQuote{}, fmt.Errorf("quote %s: %w", quoteID, domain.ErrUnauthorized)
	}

	validUntil, _ := strconv.ParseInt(fields["valid_until"], 10, 64)
	if c.now().UnixMilli() > validUntil {
		// Remove eagerly so subsequent lookups also fail.
		pipe := c.Client.TxPipeline()
		pipe.Del(ctx, key)
		pipe.SRem(ctx, holdingKey(fields["holding_id"]), quoteID)
		_, _ = pipe.Exec(ctx)
		return domain.CachedQuote{}, fmt.Errorf("quote %s: %w", quoteID, domain.ErrExpired)
	}
	if status == domain.QuoteStatusReserved {
		return domain.CachedQuote{}, fmt.Errorf("quote %s is reserved: %w", quoteID, domain.ErrConflict)
	}

	return decodeCached(fields)
}

func (c *RedisCache) Reserve(ctx context.Context, quoteID, userID string) (domain.CachedQuote, error) {
	now := c.now()
	res, err := reserveScript.Run(ctx, c.Client,
		[]string{quoteKey(quoteID)},
		userID, now.UnixMilli(), quoteID, holdingKeyPrefix,
	).Result()
	if err != nil {
		return domain.CachedQuote{}, err
	}
	parts, ok := res.([]interface{})
	if !ok || len(parts) != 2 {
		return domain.CachedQuote{}, fmt.Errorf("quotecache: unexpected reserve result %v", res)
	}
	verdict, _ := parts[0].(string)
	if err := verdictErr(verdict, quoteID); err != nil {
		return domain.CachedQuote{}, err
	}

	raw, _ := parts[1].(string)
	var q domain.Quote
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return domain.CachedQuote{}, fmt.Errorf("quotecache: decode quote %s: %w", quoteID, err)
	}
	return domain.CachedQuote{
		Quote:      q,
		UserID:     userID,
		Status:     domain.QuoteStatusReserved,
		ReservedAt: &now,
	}, nil
}

func (c *RedisCache) Release(ctx context.Context, quoteID string) error {
	return releaseScript.Run(ctx, c.Client, []string{quoteKey(quoteID)}).Err()
}

func (c *RedisCache) Consume(ctx context.Context, quoteID string) error {
	res, err := consumeScript.Run(ctx, c.Client,
		[]string{quoteKey(quoteID)},
		holdingKeyPrefix, quoteKeyPrefix, quoteID,
	).Result()
	if err != nil {
		return err
	}
	if verdict, _ := res.(string); verdict != verdictOK {
		return fmt.Errorf("quote %s: %w", quoteID, domain.ErrNotFound)
	}
	return nil
}

func (c *RedisCache) InvalidateForHolding(ctx context.Context, holdingID string) error {
	return invalidateScript.Run(ctx, c.Client, []string{holdingKey(holdingID)}, quoteKeyPrefix).Err()
}

func verdictErr(verdict, quoteID string) error {
	switch verdict {
	case verdictOK:
		return nil
	case verdictNotFound:
		return fmt.Errorf("quote %s: %w", quoteID, domain.ErrNotFound)
	case verdictUnauthorized:
		return fmt.Errorf("quote %s: %w", quoteID, domain.ErrUnauthorized)
	case verdictExpired:
		return fmt.Errorf("quote %s: %w", quoteID, domain.ErrExpired)
	case verdictInUse:
		return fmt.Errorf("quote %s: %w", quoteID, domain.ErrQuoteInUse)
	default:
		return errors.New("quotecache: unknown verdict " + verdict)
	}
}

func decodeCached(fields map[string]string) (domain.CachedQuote, error) {
	var q domain.Quote
	if err := json.Unmarshal([]byte(fields["data"]), &q); err != nil {
		return domain.CachedQuote{}, fmt.Errorf("quotecache: decode quote: %w", err)
	}
	cq := domain.CachedQuote{
		Quote:  q,
		UserID: fields["user_id"],
		Status: domain.QuoteStatus(fields["status"]),
	}
	if ms, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		cq.CreatedAt = time.UnixMilli(ms).UTC()
	}
	if raw, ok := fields["reserved_at"]; ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			t := time.UnixMilli(ms).UTC()
			cq.ReservedAt = &t
		}
	}
	return cq, nil
}
