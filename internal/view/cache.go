package view

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"finboard/internal/analytics"
	"finboard/internal/models"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/dgraph-io/ristretto/v2/z"
	"go.uber.org/zap"
)

// generationStripes bounds the memory spent on per-user generations. Users
// sharing a stripe only cost each other a skipped cache fill.
const generationStripes = 256

// Cache keeps rendered read views per user. Entries are dropped when an
// invalidation names their scope, or when their TTL runs out. Cached values
// are shared between readers and must be treated as read-only.
//
// Readers take a Generation before loading from the store and hand it back
// when filling the cache. A fill whose generation was overtaken by an
// invalidation is discarded, so a slow read never re-caches a stale view.
type Cache struct {
	store  *ristretto.Cache[string, any]
	ttl    time.Duration
	logger *zap.Logger

	mu          sync.Mutex
	generations [generationStripes]uint64
}

func NewCache(maxEntries int64, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	store, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters:        maxEntries * 10, // number of keys to track frequency of
		MaxCost:            maxEntries,
		BufferItems:        64, // number of keys per Get buffer
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create view cache: %w", err)
	}
	return &Cache{store: store, ttl: ttl, logger: logger}, nil
}

// userKey length-prefixes the user id so that no user id or transaction id,
// whatever characters it holds, can produce another user's key.
func userKey(kind, userID string) string {
	return kind + ":" + strconv.Itoa(len(userID)) + ":" + userID
}

func dashboardKey(userID string) string    { return userKey("dashboard", userID) }
func transactionsKey(userID string) string { return userKey("transactions", userID) }
func transactionKey(userID, id string) string {
	return userKey("transaction", userID) + ":" + id
}

func stripe(userID string) int {
	h, _ := z.KeyToHash(userID)
	return int(h % generationStripes)
}

// Generation returns the user's current invalidation generation.
func (c *Cache) Generation(userID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[stripe(userID)]
}

func (c *Cache) Summary(userID string) (analytics.Summary, bool) {
	v, ok := c.store.Get(dashboardKey(userID))
	if !ok {
		return analytics.Summary{}, false
	}
	s, ok := v.(analytics.Summary)
	return s, ok
}

func (c *Cache) SetSummary(userID string, gen uint64, s analytics.Summary) {
	c.set(userID, gen, dashboardKey(userID), s)
}

// Transactions returns the user's full transaction set, the source of every
// listing page.
func (c *Cache) Transactions(userID string) ([]models.Transaction, bool) {
	v, ok := c.store.Get(transactionsKey(userID))
	if !ok {
		return nil, false
	}
	txs, ok := v.([]models.Transaction)
	return txs, ok
}

func (c *Cache) SetTransactions(userID string, gen uint64, txs []models.Transaction) {
	c.set(userID, gen, transactionsKey(userID), txs)
}

func (c *Cache) Transaction(userID, id string) (models.Transaction, bool) {
	v, ok := c.store.Get(transactionKey(userID, id))
	if !ok {
		return models.Transaction{}, false
	}
	tx, ok := v.(models.Transaction)
	return tx, ok
}

func (c *Cache) SetTransaction(userID string, gen uint64, tx models.Transaction) {
	c.set(userID, gen, transactionKey(userID, tx.ID), tx)
}

func (c *Cache) set(userID string, gen uint64, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[stripe(userID)] != gen {
		c.logger.Debug("Skipping stale view fill", zap.String("user_id", userID))
		return
	}
	c.store.SetWithTTL(key, value, 1, c.ttl)
	// Make the write visible to the next Get.
	c.store.Wait()
}

// Invalidate drops the cached views named by inv and moves the user to a new
// generation.
func (c *Cache) Invalidate(_ context.Context, inv Invalidation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[stripe(inv.UserID)]++

	for _, scope := range inv.Scopes {
		switch scope {
		case ScopeDashboard:
			c.store.Del(dashboardKey(inv.UserID))
		case ScopeTransactions:
			c.store.Del(transactionsKey(inv.UserID))
		default:
			id, ok := scope.TransactionID()
			if !ok {
				c.logger.Warn("Unknown view scope", zap.String("scope", string(scope)))
				continue
			}
			c.store.Del(transactionKey(inv.UserID, id))
		}
	}
	c.logger.Debug("View cache invalidated",
		zap.String("user_id", inv.UserID),
		zap.Int("scopes", len(inv.Scopes)),
	)
	return nil
}

func (c *Cache) Close() {
	c.store.Close()
}
