package limiter

import (
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

type redisLimiter struct {
	prefix string
	pool   *redis.Pool
}

// Redis returns a Redis Limiter implementation.
func Redis(pool *redis.Pool, prefix string) Limiter {
	return &redisLimiter{
		prefix: prefix,
		pool:   pool,
	}
}

func (l *redisLimiter) Request(limitee *Limitee) (int64, time.Time, error) {
	var (
		conn = l.pool.Get()
		key  = fmt.Sprintf("%s:%s", l.prefix, limitee.Hash)
	)
	defer conn.Close()

	count, err := incr(conn, key)
	if err != nil {
		return 0, time.Now(), err
	}

	ttl, err := getTTL(conn, key)
	if err != nil {
		return 0, time.Now(), err
	}

	// A fresh window, or a key which lost its expiry, starts a new window.
	if ttl < 0 {
		ttl = limitee.WindowSize

		_, err := conn.Do("EXPIRE", key, uint64(limitee.WindowSize/time.Second))
		if err != nil {
			return 0, time.Now(), err
		}

		if count > 1 {
			// Key predates the window, the counter restarts with this hit.
			count = 1

			if _, err := conn.Do("SET", key, count, "EX", uint64(limitee.WindowSize/time.Second)); err != nil {
				return 0, time.Now(), err
			}
		}
	}

	return count, time.Now().Add(ttl), nil
}

func incr(conn redis.Conn, key string) (int64, error) {
	res, err := conn.Do("INCR", key)
	if err != nil {
		return 0, err
	}

	return res.(int64), nil
}

func getTTL(conn redis.Conn, key string) (time.Duration, error) {
	// TTL returns -2 for a key that doesn't exist and -1 if none is set.
	res, err := conn.Do("TTL", key)
	if err != nil {
		return 0, err
	}

	return time.Duration(res.(int64)) * time.Second, nil
}
