package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/learner-ns/lns/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrReadFailure is returned by Refresh when any contract read failed. The
// previous snapshot stays in place.
var ErrReadFailure = errors.New("registry read failed")

// Reader is the read side of the name service contract.
type Reader interface {
	GetAllNames(ctx context.Context) ([]string, error)
	GetRecord(ctx context.Context, name string) (string, error)
	GetOwner(ctx context.Context, name string) (common.Address, error)
}

// Entry is one registered name. ID is the position of the name in the
// contract's name list.
type Entry struct {
	ID     int
	Name   string
	Record string
	Owner  common.Address
}

// OwnedBy compares addresses case-insensitively.
func (e Entry) OwnedBy(account string) bool {
	return account != "" && strings.EqualFold(e.Owner.Hex(), account)
}

// Cache holds the last complete read of the registry. Snapshots are replaced
// wholesale and never updated in place.
type Cache struct {
	mu        sync.RWMutex
	entries   []Entry
	byName    map[string]int
	fetchedAt time.Time

	refreshMu   sync.Mutex
	reader      Reader
	concurrency int
	interval    time.Duration
	logger      *zap.Logger
}

func NewCache(reader Reader, concurrency int, interval time.Duration, logger *zap.Logger) *Cache {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Cache{
		byName:      make(map[string]int),
		reader:      reader,
		concurrency: concurrency,
		interval:    interval,
		logger:      logger.Named("registry"),
	}
}

// Refresh reads every name with its record and owner and publishes the result
// as the new snapshot.
func (c *Cache) Refresh(ctx context.Context) ([]Entry, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	start := time.Now()
	entries, err := c.fetch(ctx)
	metrics.RegistryRefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RegistryRefreshFailures.Inc()
		c.logger.Error("Failed to refresh registry, keeping previous snapshot", zap.Error(err))
		return c.Snapshot(), fmt.Errorf("%w: %v", ErrReadFailure, err)
	}

	byName := make(map[string]int, len(entries))
	for i, e := range entries {
		byName[e.Name] = i
	}

	c.mu.Lock()
	c.entries = entries
	c.byName = byName
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	metrics.RegistryNames.Set(float64(len(entries)))
	c.logger.Info("Registry refreshed", zap.Int("item_count", len(entries)), zap.Duration("took", time.Since(start)))
	return c.Snapshot(), nil
}

func (c *Cache) fetch(ctx context.Context) ([]Entry, error) {
	names, err := c.reader.GetAllNames(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(names))
	seen := make(map[string]bool, len(names))
	for id, name := range names {
		if seen[name] {
			c.logger.Warn("Duplicate name in registry, keeping first occurrence", zap.String("name", name), zap.Int("id", id))
			continue
		}
		seen[name] = true
		entries = append(entries, Entry{ID: id, Name: name})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := range entries {
		e := &entries[i]
		g.Go(func() error {
			record, err := c.reader.GetRecord(gctx, e.Name)
			if err != nil {
				return fmt.Errorf("record of %q: %w", e.Name, err)
			}
			owner, err := c.reader.GetOwner(gctx, e.Name)
			if err != nil {
				return fmt.Errorf("owner of %q: %w", e.Name, err)
			}
			e.Record = record
			e.Owner = owner
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Snapshot returns a copy of the current entries in ID order.
func (c *Cache) Snapshot() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Entry(nil), c.entries...)
}

func (c *Cache) Lookup(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byName[name]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// FetchedAt is the time of the last successful refresh, zero if none.
func (c *Cache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// Run refreshes the cache every poll interval until ctx is done.
func (c *Cache) Run(ctx context.Context) {
	if c.interval == 0 {
		c.logger.Info("Registry polling interval is zero, cache will not be updated periodically.")
		return
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// failures are logged by Refresh
			_, _ = c.Refresh(ctx)
		}
	}
}
