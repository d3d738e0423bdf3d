package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	DeviceSessionKey(deviceID string) string
}

// Session is the signed-in identity remembered for a device.
type Session struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
	SignedInAt  time.Time `json:"signedInAt"`
}

// Manager persists device sessions in Redis so a device stays signed in
// across API restarts and instances.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.IdentityConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{
		store: client,
		keyer: client,
		ttl:   cfg.SessionTTL,
	}, nil
}

// Save stores the session for deviceID, replacing any previous one.
func (m *Manager) Save(ctx context.Context, deviceID string, sess Session) error {
	if strings.TrimSpace(deviceID) == "" {
		return fmt.Errorf("device id is required")
	}
	if strings.TrimSpace(sess.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return m.store.Set(ctx, m.keyer.DeviceSessionKey(deviceID), string(payload), m.ttl)
}

// Load returns the device's session, or nil when the device is anonymous.
func (m *Manager) Load(ctx context.Context, deviceID string) (*Session, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, fmt.Errorf("device id is required")
	}
	raw, err := m.store.Get(ctx, m.keyer.DeviceSessionKey(deviceID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Revoke forgets the device's session.
func (m *Manager) Revoke(ctx context.Context, deviceID string) error {
	if strings.TrimSpace(deviceID) == "" {
		return fmt.Errorf("device id is required")
	}
	return m.store.Del(ctx, m.keyer.DeviceSessionKey(deviceID))
}
