package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) DeviceSessionKey(deviceID string) string {
	return "sess:" + deviceID
}

func TestManagerSaveLoadRevoke(t *testing.T) {
	store := newMockStore()
	manager := &Manager{store: store, keyer: store, ttl: time.Hour}
	ctx := context.Background()

	if sess, err := manager.Load(ctx, "dev-1"); err != nil || sess != nil {
		t.Fatalf("expected anonymous device, got %+v err=%v", sess, err)
	}

	signedIn := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	if err := manager.Save(ctx, "dev-1", Session{UserID: "u1", Email: "u1@example.com", SignedInAt: signedIn}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.ttls["sess:dev-1"] != time.Hour {
		t.Fatalf("expected ttl to be applied, got %v", store.ttls["sess:dev-1"])
	}

	sess, err := manager.Load(ctx, "dev-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sess == nil || sess.UserID != "u1" || !sess.SignedInAt.Equal(signedIn) {
		t.Fatalf("unexpected session %+v", sess)
	}

	if err := manager.Revoke(ctx, "dev-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if sess, _ := manager.Load(ctx, "dev-1"); sess != nil {
		t.Fatalf("expected session to be revoked, got %+v", sess)
	}
}

func TestManagerRejectsBlankInput(t *testing.T) {
	store := newMockStore()
	manager := &Manager{store: store, keyer: store, ttl: time.Hour}
	ctx := context.Background()

	if err := manager.Save(ctx, "", Session{UserID: "u1"}); err == nil {
		t.Fatal("expected missing device error")
	}
	if err := manager.Save(ctx, "dev-1", Session{}); err == nil {
		t.Fatal("expected missing user error")
	}
	if _, err := manager.Load(ctx, " "); err == nil {
		t.Fatal("expected missing device error on load")
	}
}

func TestManagerAgainstRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redisclient.NewFromClient(redislib.NewClient(&redislib.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	manager, err := NewManager(client, config.IdentityConfig{SessionTTL: 30 * time.Minute})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	ctx := context.Background()
	if err := manager.Save(ctx, "dev-9", Session{UserID: "u9"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("sf:session:device:dev-9"); ttl != 30*time.Minute {
		t.Fatalf("expected ttl 30m, got %v", ttl)
	}
	mr.FastForward(31 * time.Minute)
	if sess, err := manager.Load(ctx, "dev-9"); err != nil || sess != nil {
		t.Fatalf("expected expired session, got %+v err=%v", sess, err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(nil, config.IdentityConfig{SessionTTL: time.Hour}); err == nil {
		t.Fatal("expected redis client error")
	}
	if _, err := NewManager(&redisclient.Client{}, config.IdentityConfig{}); err == nil {
		t.Fatal("expected ttl error")
	}
}
