package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"superstore-dashboard/internal/models"
)

// Cache memoizes loaded tables by source identity. Entries live until
// they are invalidated or the process exits.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*models.Table
	group   singleflight.Group
	logger  *slog.Logger
}

func NewCache(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries: make(map[string]*models.Table),
		logger:  logger,
	}
}

// Get returns the table for src, loading it on first use. Concurrent
// callers with the same identity share one load.
func (c *Cache) Get(ctx context.Context, src Source) (*models.Table, string, error) {
	id, err := src.Identity(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("source identity: %w", err)
	}

	c.mu.RLock()
	table, ok := c.entries[id]
	c.mu.RUnlock()
	if ok {
		c.logger.Debug("dataset cache hit", "identity", id, "records", table.Len())
		return table, id, nil
	}

	v, err, _ := c.group.Do(id, func() (any, error) {
		c.mu.RLock()
		cached, ok := c.entries[id]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		start := time.Now()
		t, err := src.Load(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[id] = t
		c.mu.Unlock()

		c.logger.Info("dataset loaded",
			"identity", id,
			"records", t.Len(),
			"duration", time.Since(start),
		)
		return t, nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("load dataset: %w", err)
	}
	return v.(*models.Table), id, nil
}

// Invalidate drops the entry for identity and reports whether one existed.
func (c *Cache) Invalidate(identity string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[identity]
	delete(c.entries, identity)
	return ok
}

// Purge drops every entry and returns how many were held.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]*models.Table)
	return n
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
