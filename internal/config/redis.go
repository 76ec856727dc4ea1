package config

// Redis backs the rate limiter, the slot search cache and the pending
// payment intent store.  If the server cannot be reached at startup the
// constructor returns nil and callers degrade: limiter and cache turn into
// pass-through middleware, intents are kept in process memory.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings.
//
//	REDIS_ADDR               host:port (REDIS_HOST + REDIS_PORT take precedence)
//	REDIS_PASSWORD           optional password
//	REDIS_DB                 database number (default 0)
//	REDIS_TLS                enable TLS
//	REDIS_TLS_SKIP_VERIFY    skip certificate verification
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	TLS        bool
	SkipVerify bool
}

func LoadRedisConfig() RedisConfig {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
		addr = host + ":" + port
	}
	return RedisConfig{
		Addr:       addr,
		Password:   envStr("REDIS_PASSWORD", ""),
		DB:         envInt("REDIS_DB", 0),
		TLS:        envBool("REDIS_TLS", false),
		SkipVerify: envBool("REDIS_TLS_SKIP_VERIFY", false),
	}
}

// NewRedisClient dials Redis and pings it with a short timeout.  The
// returned client is nil when the ping fails.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{InsecureSkipVerify: cfg.SkipVerify}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
