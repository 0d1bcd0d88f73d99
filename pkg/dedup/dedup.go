// Package dedup remembers chat update ids so redelivered webhooks run once.
package dedup

import (
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

const (
	redisNS    = "memereportUpdates"
	DefaultTTL = 24 * time.Hour
)

// ConnGetter is satisfied by *redis.Pool.
type ConnGetter interface {
	Get() redis.Conn
}

type Updates struct {
	pool ConnGetter
	ttl  time.Duration
}

func NewUpdates(pool ConnGetter, ttl time.Duration) *Updates {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Updates{
		pool: pool,
		ttl:  ttl,
	}
}

func NewPool(url string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 4 * time.Minute,
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(url)
		},
	}
}

// Seen marks updateID as handled and reports whether it already was.
func (u *Updates) Seen(updateID int64) (bool, error) {
	conn := u.pool.Get()
	defer conn.Close()

	key := fmt.Sprintf("%s:%d", redisNS, updateID)
	_, err := redis.String(conn.Do("SET", key, "1", "NX", "EX", int(u.ttl/time.Second)))
	if errors.Is(err, redis.ErrNil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup: failed marking update %d: %w", updateID, err)
	}
	return false, nil
}
