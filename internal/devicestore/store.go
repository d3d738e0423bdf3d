// Package devicestore keeps per-device local storage slots in Redis. Each slot
// holds one JSON document and the last writer wins.
package devicestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// MaxSearchHistory caps the number of remembered searches per device.
const MaxSearchHistory = 10

type slotStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DeviceCartKey(deviceID string) string
	DeviceSearchHistoryKey(deviceID string) string
}

// Store reads and writes device slots.
type Store struct {
	redis slotStore
	ttl   time.Duration
}

// New builds a device store. A zero ttl keeps slots until they are cleared.
func New(client *redisclient.Client, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Store{redis: client, ttl: ttl}, nil
}

// CartSlot returns the device's local cart slot.
func (s *Store) CartSlot(deviceID string) *CartSlot {
	return &CartSlot{store: s, key: s.redis.DeviceCartKey(deviceID)}
}

// SearchHistory returns the device's recent searches, most recent first.
func (s *Store) SearchHistory(ctx context.Context, deviceID string) ([]string, error) {
	history := []string{}
	if err := s.read(ctx, s.redis.DeviceSearchHistoryKey(deviceID), &history); err != nil {
		return nil, err
	}
	return history, nil
}

// RecordSearch moves query to the front of the device's history. Blank queries
// are ignored and repeated queries are de-duplicated case-insensitively.
func (s *Store) RecordSearch(ctx context.Context, deviceID, query string) ([]string, error) {
	history, err := s.SearchHistory(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return history, nil
	}
	next := PushSearch(history, query)
	if err := s.write(ctx, s.redis.DeviceSearchHistoryKey(deviceID), next); err != nil {
		return nil, err
	}
	return next, nil
}

// ClearSearchHistory forgets every search on the device.
func (s *Store) ClearSearchHistory(ctx context.Context, deviceID string) error {
	return s.redis.Del(ctx, s.redis.DeviceSearchHistoryKey(deviceID))
}

// PushSearch returns history with query at the front, without case-insensitive
// duplicates and capped at MaxSearchHistory.
func PushSearch(history []string, query string) []string {
	query = strings.TrimSpace(query)
	out := make([]string, 0, MaxSearchHistory)
	if query != "" {
		out = append(out, query)
	}
	for _, entry := range history {
		if len(out) == MaxSearchHistory {
			break
		}
		if strings.EqualFold(strings.TrimSpace(entry), query) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func (s *Store) read(ctx context.Context, key string, dest any) error {
	raw, err := s.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redisclient.Nil) {
			return nil
		}
		return fmt.Errorf("read slot %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("decode slot %s: %w", key, err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode slot %s: %w", key, err)
	}
	if err := s.redis.Set(ctx, key, string(payload), s.ttl); err != nil {
		return fmt.Errorf("write slot %s: %w", key, err)
	}
	return nil
}

// CartSlot is one device's local cart.
type CartSlot struct {
	store *Store
	key   string
}

// Load returns the stored lines, or an empty collection when the slot is unset.
func (c *CartSlot) Load(ctx context.Context) ([]types.CartItem, error) {
	items := []types.CartItem{}
	if err := c.store.read(ctx, c.key, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Save overwrites the slot with the full line collection.
func (c *CartSlot) Save(ctx context.Context, items []types.CartItem) error {
	if items == nil {
		items = []types.CartItem{}
	}
	return c.store.write(ctx, c.key, items)
}
