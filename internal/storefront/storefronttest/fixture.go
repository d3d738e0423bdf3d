// Package storefronttest builds a device registry backed by an in-memory
// Redis for handler and middleware tests.
package storefronttest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/devicestore"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// MemoryRemote is a RemoteStore holding cart documents in a map.
type MemoryRemote struct {
	mu   sync.Mutex
	docs map[string][]cart.Line
}

func (m *MemoryRemote) Subscribe(ctx context.Context, userID string, onChange func([]cart.Line), onError func(error)) (func(), error) {
	onChange(m.Lines(userID))
	return func() {}, nil
}

func (m *MemoryRemote) Save(ctx context.Context, userID string, lines []cart.Line) error {
	m.Seed(userID, lines)
	return nil
}

// Seed replaces the user's cart document.
func (m *MemoryRemote) Seed(userID string, lines []cart.Line) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[userID] = append([]cart.Line(nil), lines...)
}

// Lines returns a copy of the user's cart document.
func (m *MemoryRemote) Lines(userID string) []cart.Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]cart.Line(nil), m.docs[userID]...)
}

type noopProfiles struct{}

func (noopProfiles) RecordSignIn(context.Context, identity.User, time.Time) error { return nil }

// Fixture wires a real Registry against miniredis.
type Fixture struct {
	Registry *storefront.Registry
	Remote   *MemoryRemote
	Sessions *session.Manager
	Devices  *devicestore.Store
	Redis    *redisclient.Client
	Identity config.IdentityConfig
}

// New starts miniredis and builds the registry. Everything is torn down with t.
func New(t testing.TB) *Fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisclient.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	idCfg := config.IdentityConfig{
		Issuer:     "https://id.storefront.test",
		Audience:   "storefront-web",
		Secret:     "storefronttest-secret",
		SessionTTL: time.Hour,
	}
	sessions, err := session.NewManager(client, idCfg)
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	devices, err := devicestore.New(client, 0)
	if err != nil {
		t.Fatalf("device store: %v", err)
	}
	remote := &MemoryRemote{docs: make(map[string][]cart.Line)}

	reg, err := storefront.NewRegistry(storefront.RegistryParams{
		Identity: idCfg,
		Cart:     config.CartConfig{RemoteTimeout: time.Second, DeviceIdleTTL: 30 * time.Minute},
		Sessions: sessions,
		Hub:      identity.NewHub(),
		Profiles: noopProfiles{},
		Remote:   remote,
		Local:    devices,
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(reg.Close)

	return &Fixture{
		Registry: reg,
		Remote:   remote,
		Sessions: sessions,
		Devices:  devices,
		Redis:    client,
		Identity: idCfg,
	}
}

// Token mints an ID token the fixture's provider accepts.
func (f *Fixture) Token(t testing.TB, subject string) string {
	t.Helper()
	token, err := pkgAuth.MintIDToken(f.Identity, time.Now(), time.Hour, pkgAuth.IDTokenPayload{
		Subject: subject,
		Email:   subject + "@example.com",
		Name:    subject,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

// Device returns the device's containers, building them if needed.
func (f *Fixture) Device(t testing.TB, deviceID string) *storefront.Device {
	t.Helper()
	dev, err := f.Registry.Get(context.Background(), deviceID)
	if err != nil {
		t.Fatalf("get device %s: %v", deviceID, err)
	}
	return dev
}

// SignIn signs subject in on the device.
func (f *Fixture) SignIn(t testing.TB, deviceID, subject string) *storefront.Device {
	t.Helper()
	dev := f.Device(t, deviceID)
	res, err := dev.Identity.SignIn(context.Background(), identity.Credential{IDToken: f.Token(t, subject)})
	if err != nil || res.Status != identity.SignedIn {
		t.Fatalf("sign in %s: %+v err=%v", subject, res, err)
	}
	return dev
}
