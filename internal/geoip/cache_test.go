package geoip

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	name  string
	calls atomic.Int32
	loc   Location
	err   error
	delay time.Duration
}

func (p *countingProvider) Name() string { return p.name }

func (p *countingProvider) Lookup(ctx context.Context, address string) (Location, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return Location{}, ctx.Err()
		}
	}
	return p.loc, p.err
}

func TestCache_HitSkipsProvider(t *testing.T) {
	primary := &countingProvider{name: "primary", loc: Location{Country: "NL", City: "Amsterdam"}}
	c := NewCache(NewMemoryStore(0), []Provider{primary}, time.Hour, time.Second, nil)

	for i := 0; i < 5; i++ {
		loc := c.Resolve(context.Background(), "1.2.3.4")
		assert.Equal(t, Location{Country: "NL", City: "Amsterdam"}, loc)
	}
	assert.Equal(t, int32(1), primary.calls.Load())
}

func TestCache_FallsBackInOrder(t *testing.T) {
	primary := &countingProvider{name: "primary", err: errors.New("boom")}
	empty := &countingProvider{name: "empty"}
	fallback := &countingProvider{name: "fallback", loc: Location{Country: "Germany", City: "Berlin"}}
	c := NewCache(NewMemoryStore(0), []Provider{primary, empty, fallback}, time.Hour, time.Second, nil)

	loc := c.Resolve(context.Background(), "5.6.7.8")
	assert.Equal(t, "Germany", loc.Country)
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, int32(1), empty.calls.Load())
	assert.Equal(t, int32(1), fallback.calls.Load())
}

func TestCache_StopsAtFirstProviderWithData(t *testing.T) {
	primary := &countingProvider{name: "primary", loc: Location{Country: "US"}}
	fallback := &countingProvider{name: "fallback", loc: Location{Country: "CA"}}
	c := NewCache(NewMemoryStore(0), []Provider{primary, fallback}, time.Hour, time.Second, nil)

	assert.Equal(t, "US", c.Resolve(context.Background(), "8.8.8.8").Country)
	assert.Equal(t, int32(0), fallback.calls.Load())
}

func TestCache_EmptyResultIsCached(t *testing.T) {
	primary := &countingProvider{name: "primary", err: errors.New("down")}
	fallback := &countingProvider{name: "fallback", err: errors.New("down too")}
	c := NewCache(NewMemoryStore(0), []Provider{primary, fallback}, time.Hour, time.Second, nil)

	assert.Equal(t, Location{}, c.Resolve(context.Background(), "9.9.9.9"))
	assert.Equal(t, Location{}, c.Resolve(context.Background(), "9.9.9.9"))
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, int32(1), fallback.calls.Load())
}

func TestCache_EmptyAddressSkipsEverything(t *testing.T) {
	store := NewMemoryStore(0)
	primary := &countingProvider{name: "primary", loc: Location{Country: "US"}}
	c := NewCache(store, []Provider{primary}, time.Hour, time.Second, nil)

	assert.Equal(t, Location{}, c.Resolve(context.Background(), ""))
	assert.Equal(t, int32(0), primary.calls.Load())
	assert.Equal(t, 0, store.Len())
}

func TestCache_ExpiredEntryRefetches(t *testing.T) {
	store := NewMemoryStore(0)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	primary := &countingProvider{name: "primary", loc: Location{Country: "FR"}}
	c := NewCache(store, []Provider{primary}, 24*time.Hour, time.Second, nil)

	c.Resolve(context.Background(), "1.1.1.1")
	now = now.Add(23 * time.Hour)
	c.Resolve(context.Background(), "1.1.1.1")
	assert.Equal(t, int32(1), primary.calls.Load())

	now = now.Add(2 * time.Hour)
	c.Resolve(context.Background(), "1.1.1.1")
	assert.Equal(t, int32(2), primary.calls.Load())
}

func TestCache_SlowProviderTimesOut(t *testing.T) {
	slow := &countingProvider{name: "slow", loc: Location{Country: "JP"}, delay: 5 * time.Second}
	fallback := &countingProvider{name: "fallback", loc: Location{Country: "KR"}}
	c := NewCache(NewMemoryStore(0), []Provider{slow, fallback}, time.Hour, 20*time.Millisecond, nil)

	start := time.Now()
	loc := c.Resolve(context.Background(), "2.2.2.2")
	require.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "KR", loc.Country)
}

func TestCache_CancelledCallerIsNotCached(t *testing.T) {
	store := NewMemoryStore(0)
	slow := &countingProvider{name: "slow", loc: Location{Country: "JP"}, delay: time.Second}
	c := NewCache(store, []Provider{slow}, time.Hour, 5*time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, Location{}, c.Resolve(ctx, "3.3.3.3"))
	assert.Equal(t, 0, store.Len())
}

func TestCache_ConcurrentResolve(t *testing.T) {
	primary := &countingProvider{name: "primary", loc: Location{Country: "BR"}}
	c := NewCache(NewMemoryStore(0), []Provider{primary}, time.Hour, time.Second, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "BR", c.Resolve(context.Background(), "4.4.4.4").Country)
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, primary.calls.Load(), int32(1))
}
