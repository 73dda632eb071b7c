// Package cache serves metric values stale-while-revalidate over a keyed Store.
//
// A fresh entry is returned as is. A stale entry is returned immediately and one
// background refresh per key is started. A miss runs the producer up to
// MaxAttempts times with a fixed delay and only valid results are ever written.
package cache

import (
	"context"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.com/bunkercoin/dashboard_api/monitor"
	"golang.org/x/sync/singleflight"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EntryVersion is the schema version of stored entries
const EntryVersion = 1

// Origin tells how a value was served
type Origin string

const (
	OriginFresh Origin = "fresh"
	OriginStale Origin = "stale"
	OriginMiss  Origin = "miss"
)

var (
	// ErrUnavailable is returned when a miss exhausts every attempt
	ErrUnavailable = errors.New("data temporarily unavailable")
	// ErrValidationFailed is returned when a produced value is rejected
	ErrValidationFailed = errors.New("produced value failed validation")
)

// Options for one key
type Options struct {
	MaxAge      time.Duration `mapstructure:"max_age"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	// Timeout bounds each producer call, 0 leaves it to the producer
	Timeout time.Duration `mapstructure:"timeout"`
}

func (o Options) attempts() int {
	if o.MaxAttempts < 1 {
		return 1
	}
	return o.MaxAttempts
}

// Producer computes the current value of a key
type Producer[T any] func(ctx context.Context) (T, error)

// Validator accepts or rejects a produced value. It must not have side effects.
type Validator[T any] func(T) bool

// Entry is the stored form of a value
type Entry struct {
	Version  int                 `json:"v"`
	CachedAt int64               `json:"cachedAt"`
	Data     jsoniter.RawMessage `json:"data"`
}

// Cache coordinates producers, validators and the store
type Cache struct {
	store      Store
	group      singleflight.Group
	lock       sync.Mutex
	refreshing map[string]struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	now        func() time.Time
}

// New cache over the given store
func New(store Store) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		store:      store,
		refreshing: make(map[string]struct{}),
		ctx:        ctx,
		cancel:     cancel,
		now:        time.Now,
	}
}

// Store returns the underlying store
func (c *Cache) Store() Store {
	return c.store
}

func (c *Cache) nowMillis() int64 {
	return c.now().UnixNano() / int64(time.Millisecond)
}

// Fetch returns the value of key, producing it when missing and refreshing it in
// the background when older than MaxAge.
func Fetch[T any](ctx context.Context, c *Cache, key string, opts Options, produce Producer[T], valid Validator[T]) (T, Origin, error) {
	if data, cachedAt, ok := read[T](ctx, c, key); ok {
		age := time.Duration(c.nowMillis()-cachedAt) * time.Millisecond
		if age <= opts.MaxAge {
			monitor.CacheRequests.WithLabelValues(key, string(OriginFresh)).Inc()
			return data, OriginFresh, nil
		}
		monitor.CacheRequests.WithLabelValues(key, string(OriginStale)).Inc()
		refreshInBackground(c, key, opts, produce, valid)
		return data, OriginStale, nil
	}

	monitor.CacheRequests.WithLabelValues(key, string(OriginMiss)).Inc()
	// the shared attempt runs on the cache context, a caller leaving early must not
	// fail the others waiting on the same key
	results := c.group.DoChan(key, func() (interface{}, error) {
		return produceWithRetry(c.ctx, c, key, opts, produce, valid)
	})
	var zero T
	select {
	case <-ctx.Done():
		return zero, OriginMiss, errors.Wrap(ErrUnavailable, ctx.Err().Error())
	case res := <-results:
		if res.Err != nil {
			return zero, OriginMiss, res.Err
		}
		return res.Val.(T), OriginMiss, nil
	}
}

// ForceRefresh runs the producer once regardless of the cached age and overwrites
// the entry with a valid result. An invalid result is returned with ErrValidationFailed
// and left unwritten.
func ForceRefresh[T any](ctx context.Context, c *Cache, key string, opts Options, produce Producer[T], valid Validator[T]) (T, error) {
	logger := log.With().Str("section", "cache").Str("action", "force_refresh").Str("key", key).Logger()
	started := c.nowMillis()
	data, err := runProducer(ctx, opts, produce)
	if err != nil {
		monitor.CacheRefresh.WithLabelValues(key, "error").Inc()
		logger.Error().Err(err).Msg("Forced refresh failed")
		return data, err
	}
	if valid != nil && !valid(data) {
		monitor.CacheRefresh.WithLabelValues(key, "invalid").Inc()
		logger.Warn().Msg("Forced refresh returned invalid data, cache left untouched")
		return data, ErrValidationFailed
	}
	monitor.CacheRefresh.WithLabelValues(key, "ok").Inc()
	write(ctx, c, key, started, data)
	return data, nil
}

// Evict removes the entry of key
func (c *Cache) Evict(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// Wait blocks until every running background refresh finished
func (c *Cache) Wait() {
	c.wg.Wait()
}

// Close cancels running background refreshes and waits for them
func (c *Cache) Close() {
	c.cancel()
	c.wg.Wait()
}

// read returns the decoded entry. Unparsable or foreign entries count as a miss.
func read[T any](ctx context.Context, c *Cache, key string) (T, int64, bool) {
	var zero T
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if err != ErrNotFound {
			log.Warn().Err(err).Str("section", "cache").Str("action", "read").Str("key", key).Msg("Unable to read cache entry")
		}
		return zero, 0, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Version != EntryVersion || len(entry.Data) == 0 {
		log.Warn().Err(err).Str("section", "cache").Str("action", "read").Str("key", key).Msg("Ignoring unparsable cache entry")
		return zero, 0, false
	}
	var data T
	if err := json.Unmarshal(entry.Data, &data); err != nil {
		log.Warn().Err(err).Str("section", "cache").Str("action", "read").Str("key", key).Msg("Ignoring cache entry of unexpected shape")
		return zero, 0, false
	}
	return data, entry.CachedAt, true
}

// write stores data stamped with the time its production began
func write[T any](ctx context.Context, c *Cache, key string, started int64, data T) {
	logger := log.With().Str("section", "cache").Str("action", "write").Str("key", key).Logger()
	if c.ctx.Err() != nil {
		logger.Debug().Msg("Cache closed, dropping write")
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		logger.Error().Err(err).Msg("Unable to encode cache value")
		return
	}
	raw, err := json.Marshal(Entry{Version: EntryVersion, CachedAt: started, Data: payload})
	if err != nil {
		logger.Error().Err(err).Msg("Unable to encode cache entry")
		return
	}
	written, err := c.store.Put(ctx, key, started, raw)
	if err != nil {
		logger.Error().Err(err).Msg("Unable to write cache entry")
		return
	}
	if !written {
		logger.Info().Int64("cachedAt", started).Msg("Dropped write older than the stored entry")
	}
}

func runProducer[T any](ctx context.Context, opts Options, produce Producer[T]) (T, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return produce(ctx)
}

func produceWithRetry[T any](ctx context.Context, c *Cache, key string, opts Options, produce Producer[T], valid Validator[T]) (T, error) {
	logger := log.With().Str("section", "cache").Str("action", "produce").Str("key", key).Str("origin", string(OriginMiss)).Logger()
	var zero T
	attempts := opts.attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		started := c.nowMillis()
		data, err := runProducer(ctx, opts, produce)
		switch {
		case err != nil:
			monitor.CacheRefresh.WithLabelValues(key, "error").Inc()
			logger.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", attempts).Msg("Producer failed")
		case valid != nil && !valid(data):
			monitor.CacheRefresh.WithLabelValues(key, "invalid").Inc()
			logger.Warn().Int("attempt", attempt).Int("max_attempts", attempts).Msg("Producer returned invalid data")
		default:
			monitor.CacheRefresh.WithLabelValues(key, "ok").Inc()
			write(ctx, c, key, started, data)
			return data, nil
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return zero, errors.Wrap(ErrUnavailable, ctx.Err().Error())
			case <-time.After(opts.RetryDelay):
			}
		}
	}
	logger.Error().Int("max_attempts", attempts).Msg("All attempts failed")
	return zero, ErrUnavailable
}

// refreshInBackground starts one detached refresh of key unless one is running
func refreshInBackground[T any](c *Cache, key string, opts Options, produce Producer[T], valid Validator[T]) {
	c.lock.Lock()
	if _, busy := c.refreshing[key]; busy {
		c.lock.Unlock()
		return
	}
	c.refreshing[key] = struct{}{}
	c.wg.Add(1)
	c.lock.Unlock()

	go func() {
		defer func() {
			c.lock.Lock()
			delete(c.refreshing, key)
			c.lock.Unlock()
			c.wg.Done()
		}()

		logger := log.With().Str("section", "cache").Str("action", "refresh").Str("key", key).Str("origin", string(OriginStale)).Logger()
		started := c.nowMillis()
		data, err := runProducer(c.ctx, opts, produce)
		if err != nil {
			monitor.CacheRefresh.WithLabelValues(key, "error").Inc()
			logger.Error().Err(err).Int("attempt", 1).Msg("Background refresh failed")
			return
		}
		if valid != nil && !valid(data) {
			monitor.CacheRefresh.WithLabelValues(key, "invalid").Inc()
			logger.Warn().Int("attempt", 1).Msg("Background refresh returned invalid data, keeping stale entry")
			return
		}
		monitor.CacheRefresh.WithLabelValues(key, "ok").Inc()
		write(c.ctx, c, key, started, data)
		logger.Debug().Msg("Background refresh stored")
	}()
}
