package redis

import (
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

type Key struct {
	// Stamp of the model the cached value was computed with.
	ModelStamp string
	// Prefix - Helps better grouping and searching
	// i.e insights
	Prefix string
	// Suffix - optional
	Suffix string
}

var (
	ErrorInvalidModel  = errors.New("invalid key model stamp")
	ErrorInvalidPrefix = errors.New("invalid key prefix")
	ErrorInvalidKey    = errors.New("invalid redis cache key")
	ErrorCacheMiss     = errors.New("cache miss")
)

// PrefixInsights groups cached insight periods.
const PrefixInsights = "insights"

func NewKey(modelStamp, prefix, suffix string) (*Key, error) {
	if modelStamp == "" {
		return nil, ErrorInvalidModel
	}

	if prefix == "" {
		return nil, ErrorInvalidPrefix
	}

	return &Key{ModelStamp: modelStamp, Prefix: prefix, Suffix: suffix}, nil
}

func (key *Key) Key() (string, error) {
	if key.ModelStamp == "" {
		return "", ErrorInvalidModel
	}

	if key.Prefix == "" {
		return "", ErrorInvalidPrefix
	}

	// key: i.e, insights:model:c5m3n1h2ki1s7b6ctl4g:2013-01_2014-06
	return fmt.Sprintf("%s:model:%s:%s", key.Prefix, key.ModelStamp, key.Suffix), nil
}

// NewPool returns a connection pool to the redis at host:port.
func NewPool(host string, port int) *redis.Pool {
	address := fmt.Sprintf("%s:%d", host, port)
	return &redis.Pool{
		MaxIdle:     10,
		MaxActive:   50,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", address)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// Cache stores computed insight periods so they are shared across serving instances.
type Cache struct {
	pool         *redis.Pool
	expiryInSecs float64
}

// New returns a cache over pool. An expiry of 0 keeps values until evicted.
func New(pool *redis.Pool, expiryInSecs float64) *Cache {
	return &Cache{pool: pool, expiryInSecs: expiryInSecs}
}

func Set(conn redis.Conn, key *Key, value string, expiryInSecs float64) error {
	if key == nil {
		return ErrorInvalidKey
	}

	if value == "" {
		return errors.New("empty cache key value")
	}

	cKey, err := key.Key()
	if err != nil {
		return err
	}

	if expiryInSecs == 0 {
		_, err = conn.Do("SET", cKey, value)
	} else {
		_, err = conn.Do("SET", cKey, value, "EX", int64(expiryInSecs))
	}

	return err
}

// Get returns ErrorCacheMiss when the key does not exist.
func Get(conn redis.Conn, key *Key) (string, error) {
	if key == nil {
		return "", ErrorInvalidKey
	}

	cKey, err := key.Key()
	if err != nil {
		return "", err
	}

	value, err := redis.String(conn.Do("GET", cKey))
	if err == redis.ErrNil {
		return "", ErrorCacheMiss
	}
	return value, err
}

// GetPeriod returns the cached insights of a range computed with the model stamp.
func (c *Cache) GetPeriod(modelStamp, rangeKey string) (string, error) {
	key, err := NewKey(modelStamp, PrefixInsights, rangeKey)
	if err != nil {
		return "", err
	}

	conn := c.pool.Get()
	defer conn.Close()
	return Get(conn, key)
}

func (c *Cache) SetPeriod(modelStamp, rangeKey, value string) error {
	key, err := NewKey(modelStamp, PrefixInsights, rangeKey)
	if err != nil {
		return err
	}

	conn := c.pool.Get()
	defer conn.Close()
	return Set(conn, key, value, c.expiryInSecs)
}
