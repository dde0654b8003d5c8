// Package services – RankCache
//
// A process-lifetime cache for the slow, rate-limited upstream rank endpoint.
// Entries are keyed by (region, name, tag), case-normalized, and stay fresh
// for a fixed TTL. A miss triggers a refresh with a bounded retry budget and
// exponential backoff; exhausted retries cache an "Unrated" sentinel for the
// full TTL so a known-bad lookup cannot produce a thundering herd.
//
// Concurrency: refreshes for distinct keys run in parallel up to a counting
// semaphore; refreshes for the same key coalesce onto one in-flight fetch via
// singleflight. These are the only synchronization points this cache needs.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"valbot/internal/config"
	"valbot/internal/metrics"
	"valbot/internal/valorant"
)

// UnratedTier is the sentinel tier cached after exhausted retries.
const UnratedTier = "Unrated"

// RankKey identifies one cached rank lookup. Build it with NewRankKey so the
// fields are consistently normalized.
type RankKey struct {
	Region string
	Name   string
	Tag    string
}

// NewRankKey normalizes the lookup coordinates into a cache key.
func NewRankKey(region, name, tag string) RankKey {
	return RankKey{
		Region: NormRegion(region),
		Name:   strings.ToLower(strings.TrimSpace(name)),
		Tag:    strings.ToLower(strings.TrimSpace(tag)),
	}
}

func (k RankKey) String() string {
	return k.Region + "/" + k.Name + "#" + k.Tag
}

// RankEntry is the cached result of one rank lookup.
type RankEntry struct {
	Tier         string
	RR           int
	ThumbnailURL string

	// Fallback marks a sentinel entry cached after exhausted retries.
	Fallback bool

	expiresAt time.Time
}

// RankFetcher is the upstream lookup the cache refreshes through.
// *valorant.Client's GetMMR satisfies it.
type RankFetcher func(ctx context.Context, region, name, tag string) (*valorant.MMR, error)

// RankOption mutates RankCache construction.
type RankOption func(*RankCache)

// WithClock injects a time source, for tests.
func WithClock(clock func() time.Time) RankOption {
	return func(c *RankCache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithSleep injects the inter-attempt wait, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) RankOption {
	return func(c *RankCache) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithInitialBackoff overrides the first retry interval.
func WithInitialBackoff(d time.Duration) RankOption {
	return func(c *RankCache) {
		if d > 0 {
			c.initialBackoff = d
		}
	}
}

// RankCache caches rank lookups for a fixed TTL with coalesced refreshes.
type RankCache struct {
	fetch          RankFetcher
	ttl            time.Duration
	retries        int
	initialBackoff time.Duration
	clock          func() time.Time
	sleep          func(ctx context.Context, d time.Duration) error

	group singleflight.Group
	sem   *semaphore.Weighted

	mu      sync.Mutex
	entries map[RankKey]RankEntry
}

// NewRankCache constructs a RankCache refreshing through fetch.
func NewRankCache(fetch RankFetcher, cfg config.RankConfig, options ...RankOption) *RankCache {
	c := &RankCache{
		fetch:          fetch,
		ttl:            cfg.TTL,
		retries:        cfg.Retries,
		initialBackoff: 500 * time.Millisecond,
		clock:          time.Now,
		sleep:          sleepCtx,
		sem:            semaphore.NewWeighted(int64(cfg.Concurrency)),
		entries:        make(map[RankKey]RankEntry),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Get returns the rank for (region, name, tag), serving a fresh cached entry
// without an upstream call and refreshing otherwise. A stale entry is evicted
// on lookup. Not-found accounts surface ErrAccountNotFound and are not
// cached; other exhausted failures degrade to a cached Unrated fallback.
func (c *RankCache) Get(ctx context.Context, region, name, tag string) (RankEntry, error) {
	key := NewRankKey(region, name, tag)

	if entry, ok := c.lookup(key); ok {
		metrics.RankLookups.WithLabelValues("hit").Inc()
		return entry, nil
	}
	metrics.RankLookups.WithLabelValues("miss").Inc()

	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		// A waiter may arrive just after the winner stored the entry.
		if entry, ok := c.lookup(key); ok {
			return entry, nil
		}
		return c.refresh(ctx, key)
	})
	if err != nil {
		return RankEntry{}, err
	}
	return v.(RankEntry), nil
}

// Clear drops every cached entry.
func (c *RankCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[RankKey]RankEntry)
}

// lookup returns a fresh entry, evicting a stale one.
func (c *RankCache) lookup(key RankKey) (RankEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return RankEntry{}, false
	}
	if !c.clock().Before(entry.expiresAt) {
		delete(c.entries, key)
		return RankEntry{}, false
	}
	return entry, true
}

func (c *RankCache) store(key RankKey, entry RankEntry) RankEntry {
	entry.expiresAt = c.clock().Add(c.ttl)
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return entry
}

// refresh fetches the rank with the retry budget, doubling the backoff after
// a rate-limit response relative to a generic failure.
func (c *RankCache) refresh(ctx context.Context, key RankKey) (RankEntry, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return RankEntry{}, fmt.Errorf("%w: %v", valorant.ErrTransient, err)
	}
	defer c.sem.Release(1)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialBackoff
	bo.RandomizationFactor = 0 // fixed schedule, scaled only by the rate-limit doubling
	bo.MaxElapsedTime = 0      // the attempt ceiling bounds the loop

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		mmr, err := c.fetch(ctx, key.Region, key.Name, key.Tag)
		if err == nil {
			return c.store(key, RankEntry{
				Tier:         mmr.Tier,
				RR:           mmr.RR,
				ThumbnailURL: mmr.ThumbnailURL,
			}), nil
		}
		if errors.Is(err, valorant.ErrNotFound) {
			// A nonexistent account is not a degraded lookup; surface it
			// and keep the key uncached so a corrected lookup works.
			return RankEntry{}, ErrAccountNotFound
		}
		lastErr = err

		if attempt == c.retries {
			break
		}
		wait := bo.NextBackOff()
		if errors.Is(err, valorant.ErrRateLimited) {
			wait *= 2
		}
		log.Debug().Str("key", key.String()).Int("attempt", attempt).
			Dur("wait", wait).Err(err).Msg("rank refresh retrying")
		if err := c.sleep(ctx, wait); err != nil {
			return RankEntry{}, fmt.Errorf("%w: %v", valorant.ErrTransient, err)
		}
	}

	metrics.RankLookups.WithLabelValues("fallback").Inc()
	log.Warn().Str("key", key.String()).Err(lastErr).
		Msg("rank refresh exhausted retries, caching fallback")
	return c.store(key, RankEntry{Tier: UnratedTier, Fallback: true}), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
