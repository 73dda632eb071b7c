package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/mediocregopher/radix/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// RedisConfig of the shared cache store
type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	PoolSize  int           `mapstructure:"pool_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// putScript writes the entry and its stamp unless the stored stamp is newer
var putScript = radix.NewEvalScript(2, `
local current = redis.call('GET', KEYS[2])
if current and tonumber(current) > tonumber(ARGV[1]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2])
redis.call('SET', KEYS[2], ARGV[1])
return 1
`)

// RedisStore keeps entries in redis so every instance shares them. Entries carry
// no expiry, the last good value must outlive any upstream outage.
type RedisStore struct {
	pool   radix.Client
	prefix string
}

// NewRedisStore connects a pool to the configured server
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	size := cfg.PoolSize
	if size <= 0 {
		size = 10
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	connFunc := func(network, addr string) (radix.Conn, error) {
		opts := []radix.DialOpt{radix.DialTimeout(timeout), radix.DialSelectDB(cfg.DB)}
		if cfg.Password != "" {
			opts = append(opts, radix.DialAuthPass(cfg.Password))
		}
		return radix.Dial(network, addr, opts...)
	}
	pool, err := radix.NewPool("tcp", cfg.Addr, size, radix.PoolConnFunc(connFunc))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to redis at %s", cfg.Addr)
	}
	log.Info().Str("section", "cache").Str("action", "connect").Str("addr", cfg.Addr).Msg("Connected to redis")
	return NewRedisStoreWithClient(pool, cfg.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing radix client
func NewRedisStoreWithClient(client radix.Client, prefix string) *RedisStore {
	return &RedisStore{pool: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

func (s *RedisStore) stampKey(key string) string {
	return s.prefix + key + ":cachedAt"
}

// Get godoc
func (s *RedisStore) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	mn := radix.MaybeNil{Rcv: &value}
	if err := s.pool.Do(radix.Cmd(&mn, "GET", s.key(key))); err != nil {
		return nil, errors.Wrapf(err, "redis GET %s", key)
	}
	if mn.Nil {
		return nil, ErrNotFound
	}
	return value, nil
}

// Put godoc
func (s *RedisStore) Put(_ context.Context, key string, cachedAt int64, value []byte) (bool, error) {
	var written int
	err := s.pool.Do(putScript.Cmd(&written,
		s.key(key), s.stampKey(key),
		strconv.FormatInt(cachedAt, 10), string(value),
	))
	if err != nil {
		return false, errors.Wrapf(err, "redis PUT %s", key)
	}
	return written == 1, nil
}

// Delete godoc
func (s *RedisStore) Delete(_ context.Context, key string) error {
	if err := s.pool.Do(radix.Cmd(nil, "DEL", s.key(key), s.stampKey(key))); err != nil {
		return errors.Wrapf(err, "redis DEL %s", key)
	}
	return nil
}

// Close the connection pool
func (s *RedisStore) Close() error {
	return s.pool.Close()
}
