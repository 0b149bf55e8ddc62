//go:generate go run github.com/golang/mock/mockgen -destination=./mocks/store.go -package=mocks . Store

// Package cache keeps the last raw feed response per request slot and
// decides whether it is still fresh enough to reuse.
//
// Freshness is time since fetch, not window identity: a response younger
// than the TTL is returned even though the requested window has moved on.
// This keeps the upstream feed from being hit on every poll.
//
// Responses live in a Store (file, Postgres or S3) with a small in-memory
// LRU in front of it. Access to one slot is serialized; different slots
// never block each other.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/smardexporter/internal/models"
)

// DefaultTTL is how long a fetched response stays fresh.
const DefaultTTL = 15 * time.Minute

// FetchFunc retrieves a fresh body for the given window.
type FetchFunc func(ctx context.Context, window models.TimeWindow) ([]byte, error)

// Observer is notified about cache hits and misses.
type Observer interface {
	CacheHit()
	CacheMiss()
}

// Options configures a FeedCache. Zero values fall back to defaults.
type Options struct {
	TTL      time.Duration
	LRUSize  int
	Now      func() time.Time
	Observer Observer
	Logger   logrus.FieldLogger
}

// FeedCache serves raw feed responses from its store while they are fresh
// and refetches them otherwise.
type FeedCache struct {
	store  Store
	front  *lru.Cache
	ttl    time.Duration
	now    func() time.Time
	obs    Observer
	logger logrus.FieldLogger

	mu    sync.Mutex
	slots map[string]*sync.Mutex
}

// New creates a FeedCache on top of store.
func New(store Store, opts Options) (*FeedCache, error) {
	if store == nil {
		return nil, errors.New("cache: store is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.LRUSize <= 0 {
		opts.LRUSize = 16
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	front, err := lru.New(opts.LRUSize)
	if err != nil {
		return nil, fmt.Errorf("cache: create lru: %w", err)
	}

	return &FeedCache{
		store:  store,
		front:  front,
		ttl:    opts.TTL,
		now:    opts.Now,
		obs:    opts.Observer,
		logger: opts.Logger,
		slots:  make(map[string]*sync.Mutex),
	}, nil
}

// IsFresh reports whether a response fetched at fetchedAt is still usable at now.
func IsFresh(fetchedAt, now time.Time, ttl time.Duration) bool {
	if fetchedAt.IsZero() {
		return false
	}
	return now.Sub(fetchedAt) < ttl
}

// GetOrFetch returns the stored body for key if it is fresh, otherwise it
// calls fetch, stores the result and returns it. Fetch errors are returned
// as-is and nothing is stored.
func (c *FeedCache) GetOrFetch(ctx context.Context, key models.RequestKey, window models.TimeWindow, fetch FetchFunc) ([]byte, error) {
	slot := key.Slot()
	lock := c.slotLock(slot)
	lock.Lock()
	defer lock.Unlock()

	if cached, ok := c.lookup(ctx, slot); ok && IsFresh(cached.FetchedAt, c.now(), c.ttl) {
		c.hit()
		c.logger.WithFields(logrus.Fields{
			"slot":       slot,
			"fetched_at": cached.FetchedAt,
		}).Debug("Serving cached feed response")
		return cached.Body, nil
	}
	c.miss()

	body, err := fetch(ctx, window)
	if err != nil {
		return nil, err
	}

	resp := &models.CachedResponse{Key: key, Body: body, FetchedAt: c.now()}
	c.front.Add(slot, resp)
	if err := c.store.Save(ctx, slot, resp); err != nil {
		c.logger.WithError(err).WithField("slot", slot).Warn("Failed to persist feed response")
	}
	return body, nil
}

func (c *FeedCache) lookup(ctx context.Context, slot string) (*models.CachedResponse, bool) {
	if v, ok := c.front.Get(slot); ok {
		return v.(*models.CachedResponse), true
	}

	resp, err := c.store.Load(ctx, slot)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.WithError(err).WithField("slot", slot).Warn("Failed to load cached feed response")
		}
		return nil, false
	}
	c.front.Add(slot, resp)
	return resp, true
}

func (c *FeedCache) slotLock(slot string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.slots[slot]
	if !ok {
		l = &sync.Mutex{}
		c.slots[slot] = l
	}
	return l
}

func (c *FeedCache) hit() {
	if c.obs != nil {
		c.obs.CacheHit()
	}
}

func (c *FeedCache) miss() {
	if c.obs != nil {
		c.obs.CacheMiss()
	}
}
