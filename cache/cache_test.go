package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPrice struct {
	Price float64 `json:"price"`
}

func validPrice(p testPrice) bool {
	return p.Price > 0
}

type testClock struct {
	lock sync.Mutex
	t    time.Time
}

func (c *testClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.lock.Lock()
	c.t = c.t.Add(d)
	c.lock.Unlock()
}

func newTestCache() (*Cache, *MemoryStore, *testClock) {
	store := NewMemoryStore()
	clock := &testClock{t: time.Unix(1700000000, 0)}
	c := New(store)
	c.now = clock.Now
	return c, store, clock
}

func countingProducer(calls *int32, value float64) Producer[testPrice] {
	return func(context.Context) (testPrice, error) {
		atomic.AddInt32(calls, 1)
		return testPrice{Price: value}, nil
	}
}

func TestFetch(t *testing.T) {
	opts := Options{MaxAge: 60 * time.Second, MaxAttempts: 3, RetryDelay: time.Millisecond}
	ctx := context.Background()

	Convey("a miss produces, stores and reports miss", t, func() {
		c, store, _ := newTestCache()
		var calls int32
		data, origin, err := Fetch(ctx, c, "price", opts, countingProducer(&calls, 1.5), validPrice)
		So(err, ShouldBeNil)
		So(origin, ShouldEqual, OriginMiss)
		So(data.Price, ShouldEqual, 1.5)
		So(calls, ShouldEqual, 1)
		So(store.Len(), ShouldEqual, 1)

		Convey("a second fetch within max age is fresh and does not call the producer", func() {
			data, origin, err := Fetch(ctx, c, "price", opts, countingProducer(&calls, 2), validPrice)
			So(err, ShouldBeNil)
			So(origin, ShouldEqual, OriginFresh)
			So(data.Price, ShouldEqual, 1.5)
			So(calls, ShouldEqual, 1)
		})
	})

	Convey("invalid data on every attempt is unavailable and never stored", t, func() {
		c, store, _ := newTestCache()
		var calls int32
		_, origin, err := Fetch(ctx, c, "price", opts, countingProducer(&calls, 0), validPrice)
		So(err, ShouldEqual, ErrUnavailable)
		So(origin, ShouldEqual, OriginMiss)
		So(calls, ShouldEqual, 3)
		So(store.Len(), ShouldEqual, 0)
	})

	Convey("a producer error is retried until it succeeds", t, func() {
		c, _, _ := newTestCache()
		var calls int32
		produce := func(context.Context) (testPrice, error) {
			if atomic.AddInt32(&calls, 1) < 3 {
				return testPrice{}, errors.New("upstream down")
			}
			return testPrice{Price: 3}, nil
		}
		data, _, err := Fetch(ctx, c, "price", opts, produce, validPrice)
		So(err, ShouldBeNil)
		So(data.Price, ShouldEqual, 3)
		So(calls, ShouldEqual, 3)
	})

	Convey("max attempts below one still tries once", t, func() {
		c, _, _ := newTestCache()
		var calls int32
		_, _, err := Fetch(ctx, c, "price", Options{MaxAge: time.Second}, countingProducer(&calls, 0), validPrice)
		So(err, ShouldEqual, ErrUnavailable)
		So(calls, ShouldEqual, 1)
	})

	Convey("a stale entry is served and refreshed exactly once in the background", t, func() {
		c, _, clock := newTestCache()
		var calls int32
		_, _, err := Fetch(ctx, c, "price", opts, countingProducer(&calls, 1), validPrice)
		So(err, ShouldBeNil)

		clock.Advance(opts.MaxAge + time.Millisecond)
		release := make(chan struct{})
		slow := func(context.Context) (testPrice, error) {
			<-release
			atomic.AddInt32(&calls, 1)
			return testPrice{Price: 2}, nil
		}
		data, origin, err := Fetch(ctx, c, "price", opts, slow, validPrice)
		So(err, ShouldBeNil)
		So(origin, ShouldEqual, OriginStale)
		So(data.Price, ShouldEqual, 1)

		data, origin, _ = Fetch(ctx, c, "price", opts, slow, validPrice)
		So(origin, ShouldEqual, OriginStale)
		So(data.Price, ShouldEqual, 1)

		close(release)
		c.Wait()
		So(calls, ShouldEqual, 2)

		data, origin, err = Fetch(ctx, c, "price", opts, slow, validPrice)
		So(err, ShouldBeNil)
		So(origin, ShouldEqual, OriginFresh)
		So(data.Price, ShouldEqual, 2)
	})

	Convey("an invalid background refresh keeps the stale entry", t, func() {
		c, _, clock := newTestCache()
		var calls int32
		_, _, _ = Fetch(ctx, c, "price", opts, countingProducer(&calls, 1), validPrice)
		clock.Advance(opts.MaxAge + time.Millisecond)

		_, origin, _ := Fetch(ctx, c, "price", opts, countingProducer(&calls, 0), validPrice)
		So(origin, ShouldEqual, OriginStale)
		c.Wait()

		data, origin, _ := Fetch(ctx, c, "price", opts, countingProducer(&calls, 0), validPrice)
		So(origin, ShouldEqual, OriginStale)
		So(data.Price, ShouldEqual, 1)
		c.Wait()
	})

	Convey("an entry exactly max age old is still fresh", t, func() {
		c, _, clock := newTestCache()
		var calls int32
		_, _, _ = Fetch(ctx, c, "price", opts, countingProducer(&calls, 1), validPrice)
		clock.Advance(opts.MaxAge)
		_, origin, _ := Fetch(ctx, c, "price", opts, countingProducer(&calls, 1), validPrice)
		So(origin, ShouldEqual, OriginFresh)
	})
}

func TestFetchUnparsableEntry(t *testing.T) {
	ctx := context.Background()
	opts := Options{MaxAge: time.Minute, MaxAttempts: 1}

	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "{broken"},
		{name: "unknown version", raw: `{"v":2,"cachedAt":1,"data":{"price":1}}`},
		{name: "missing data", raw: `{"v":1,"cachedAt":1}`},
		{name: "wrong data shape", raw: `{"v":1,"cachedAt":1,"data":"text"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, store, _ := newTestCache()
			_, err := store.Put(ctx, "price", 0, []byte(tt.raw))
			require.NoError(t, err)

			var calls int32
			data, origin, err := Fetch(ctx, c, "price", opts, countingProducer(&calls, 4), validPrice)
			require.NoError(t, err)
			require.Equal(t, OriginMiss, origin)
			require.Equal(t, 4.0, data.Price)
			require.EqualValues(t, 1, calls)
		})
	}
}

func TestFetchDeduplicatesConcurrentMisses(t *testing.T) {
	c, _, _ := newTestCache()
	opts := Options{MaxAge: time.Minute, MaxAttempts: 1}
	var calls int32
	release := make(chan struct{})
	produce := func(context.Context) (testPrice, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return testPrice{Price: 1}, nil
	}

	var wg sync.WaitGroup
	started := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			_, _, err := Fetch(context.Background(), c, "price", opts, produce, validPrice)
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < 5; i++ {
		<-started
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	require.LessOrEqual(t, atomic.LoadInt32(&calls), int32(5))
	require.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestFetchMissOutlivesCancelledCaller(t *testing.T) {
	c, store, _ := newTestCache()
	opts := Options{MaxAge: time.Minute, MaxAttempts: 1}
	var calls int32
	release := make(chan struct{})
	produce := func(ctx context.Context) (testPrice, error) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-release:
			return testPrice{Price: 3}, nil
		case <-ctx.Done():
			return testPrice{}, ctx.Err()
		}
	}

	leaving, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	first := make(chan error, 1)
	go func() {
		_, _, err := Fetch(leaving, c, "price", opts, produce, validPrice)
		first <- err
	}()

	second := make(chan testPrice, 1)
	go func() {
		data, _, err := Fetch(context.Background(), c, "price", opts, produce, validPrice)
		assert.NoError(t, err)
		second <- data
	}()

	err := <-first
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnavailable))

	close(release)
	require.Equal(t, 3.0, (<-second).Price)
	require.Equal(t, 1, store.Len())
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetchNothingWrittenAfterClose(t *testing.T) {
	c, store, _ := newTestCache()
	c.Close()
	_, _, err := Fetch(context.Background(), c, "price", Options{MaxAge: time.Minute, MaxAttempts: 1}, func(context.Context) (testPrice, error) {
		return testPrice{Price: 1}, nil
	}, validPrice)
	require.NoError(t, err)
	require.Equal(t, 0, store.Len())
}

func TestFetchServesStaleLongAfterMaxAge(t *testing.T) {
	c, store, clock := newTestCache()
	opts := Options{MaxAge: time.Minute, MaxAttempts: 1}
	var calls int32
	_, _, err := Fetch(context.Background(), c, "price", opts, countingProducer(&calls, 1), validPrice)
	require.NoError(t, err)

	clock.Advance(48 * time.Hour)
	failing := func(context.Context) (testPrice, error) {
		return testPrice{}, errors.New("upstream down")
	}
	data, origin, err := Fetch(context.Background(), c, "price", opts, failing, validPrice)
	require.NoError(t, err)
	require.Equal(t, OriginStale, origin)
	require.Equal(t, 1.0, data.Price)

	c.Wait()
	require.Equal(t, 1, store.Len())
}

func TestForceRefresh(t *testing.T) {
	ctx := context.Background()
	opts := Options{MaxAge: time.Hour, MaxAttempts: 1}

	Convey("force refresh overwrites a fresh entry with a valid value", t, func() {
		c, _, _ := newTestCache()
		var calls int32
		_, _, _ = Fetch(ctx, c, "price", opts, countingProducer(&calls, 1), validPrice)
		data, err := ForceRefresh(ctx, c, "price", opts, countingProducer(&calls, 5), validPrice)
		So(err, ShouldBeNil)
		So(data.Price, ShouldEqual, 5)

		data, origin, _ := Fetch(ctx, c, "price", opts, countingProducer(&calls, 9), validPrice)
		So(origin, ShouldEqual, OriginFresh)
		So(data.Price, ShouldEqual, 5)
	})

	Convey("force refresh with invalid data leaves the entry untouched", t, func() {
		c, _, _ := newTestCache()
		var calls int32
		_, _, _ = Fetch(ctx, c, "price", opts, countingProducer(&calls, 1), validPrice)
		data, err := ForceRefresh(ctx, c, "price", opts, countingProducer(&calls, 0), validPrice)
		So(err, ShouldEqual, ErrValidationFailed)
		So(data.Price, ShouldEqual, 0)

		data, _, _ = Fetch(ctx, c, "price", opts, countingProducer(&calls, 9), validPrice)
		So(data.Price, ShouldEqual, 1)
	})

	Convey("evict removes the entry", t, func() {
		c, store, _ := newTestCache()
		var calls int32
		_, _, _ = Fetch(ctx, c, "price", opts, countingProducer(&calls, 1), validPrice)
		So(c.Evict(ctx, "price"), ShouldBeNil)
		So(store.Len(), ShouldEqual, 0)
	})
}

func TestMemoryStorePutKeepsNewest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	written, err := store.Put(ctx, "k", 200, []byte("new"))
	require.NoError(t, err)
	require.True(t, written)

	written, err = store.Put(ctx, "k", 100, []byte("old"))
	require.NoError(t, err)
	require.False(t, written)

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "new", string(value))

	written, err = store.Put(ctx, "k", 200, []byte("same"))
	require.NoError(t, err)
	require.True(t, written)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	require.Equal(t, ErrNotFound, err)
}

func TestStaleRefreshDoesNotOverwriteNewerEntry(t *testing.T) {
	ctx := context.Background()
	c, store, clock := newTestCache()
	opts := Options{MaxAge: time.Second, MaxAttempts: 1}
	var calls int32
	_, _, err := Fetch(ctx, c, "price", opts, countingProducer(&calls, 1), validPrice)
	require.NoError(t, err)
	clock.Advance(2 * time.Second)

	release := make(chan struct{})
	slow := func(context.Context) (testPrice, error) {
		<-release
		return testPrice{Price: 2}, nil
	}
	_, origin, _ := Fetch(ctx, c, "price", opts, slow, validPrice)
	require.Equal(t, OriginStale, origin)

	// a newer value lands while the refresh is still running
	clock.Advance(time.Second)
	_, err = ForceRefresh(ctx, c, "price", opts, countingProducer(&calls, 3), validPrice)
	require.NoError(t, err)

	close(release)
	c.Wait()

	raw, err := store.Get(ctx, "price")
	require.NoError(t, err)
	var entry Entry
	require.NoError(t, json.Unmarshal(raw, &entry))
	require.JSONEq(t, `{"price":3}`, string(entry.Data))
}
