package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type memorySessions struct {
	mu      sync.Mutex
	data    map[string]session.Session
	loadErr error
	saveErr error
}

func newMemorySessions() *memorySessions {
	return &memorySessions{data: make(map[string]session.Session)}
}

func (m *memorySessions) Save(ctx context.Context, deviceID string, sess session.Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[deviceID] = sess
	return nil
}

func (m *memorySessions) Load(ctx context.Context, deviceID string) (*session.Session, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.data[deviceID]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (m *memorySessions) Revoke(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, deviceID)
	return nil
}

func testIdentityConfig() config.IdentityConfig {
	return config.IdentityConfig{
		Issuer:     "https://id.storefront.test",
		Audience:   "storefront-web",
		Secret:     "top-secret",
		SessionTTL: time.Hour,
	}
}

func newTestProvider(t *testing.T, cfg config.IdentityConfig, sessions *memorySessions, hub *Hub) *TokenProvider {
	t.Helper()
	p, err := NewTokenProvider(TokenProviderParams{DeviceID: "dev-1", Config: cfg, Sessions: sessions, Hub: hub})
	if err != nil {
		t.Fatalf("new token provider: %v", err)
	}
	return p
}

func mintToken(t *testing.T, cfg config.IdentityConfig, sub string) string {
	t.Helper()
	token, err := pkgAuth.MintIDToken(cfg, time.Now(), time.Hour, pkgAuth.IDTokenPayload{
		Subject: sub,
		Email:   sub + "@example.com",
		Name:    "Shopper " + sub,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return token
}

func TestTokenProviderSignInPersistsAndNotifies(t *testing.T) {
	cfg := testIdentityConfig()
	sessions := newMemorySessions()
	hub := NewHub()
	p := newTestProvider(t, cfg, sessions, hub)

	var notified []*User
	stop, err := p.Watch(context.Background(), func(u *User) { notified = append(notified, u) })
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer stop()

	user, err := p.SignIn(context.Background(), Credential{IDToken: mintToken(t, cfg, "u1")})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if user.ID != "u1" || user.Email != "u1@example.com" || user.DisplayName != "Shopper u1" {
		t.Fatalf("unexpected user %+v", user)
	}
	if sess := sessions.data["dev-1"]; sess.UserID != "u1" {
		t.Fatalf("expected persisted session, got %+v", sess)
	}
	if len(notified) != 2 || notified[0] != nil || notified[1].ID != "u1" {
		t.Fatalf("expected anonymous then u1 notifications, got %+v", notified)
	}

	if err := p.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if _, ok := sessions.data["dev-1"]; ok {
		t.Fatal("expected session to be revoked")
	}
	if len(notified) != 3 || notified[2] != nil {
		t.Fatalf("expected sign-out notification, got %+v", notified)
	}
}

func TestTokenProviderWatchEmitsPersistedSession(t *testing.T) {
	sessions := newMemorySessions()
	sessions.data["dev-1"] = session.Session{UserID: "u7", Email: "u7@example.com"}
	p := newTestProvider(t, testIdentityConfig(), sessions, NewHub())

	var got *User
	if _, err := p.Watch(context.Background(), func(u *User) { got = u }); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if got == nil || got.ID != "u7" {
		t.Fatalf("expected restored session, got %+v", got)
	}
}

func TestTokenProviderWatchLoadError(t *testing.T) {
	sessions := newMemorySessions()
	sessions.loadErr = errors.New("redis down")
	hub := NewHub()
	p := newTestProvider(t, testIdentityConfig(), sessions, hub)

	if _, err := p.Watch(context.Background(), func(*User) {}); err == nil {
		t.Fatal("expected watch error")
	}
	if len(hub.watchers) != 0 {
		t.Fatal("failed watch must not leave a hub subscription behind")
	}
}

func TestTokenProviderErrorCodes(t *testing.T) {
	p := newTestProvider(t, testIdentityConfig(), newMemorySessions(), NewHub())
	ctx := context.Background()

	for _, code := range []string{ErrorCodeCancelledPopup, ErrorCodePopupClosed, "auth/popup-closed-by-user", "cancelled"} {
		if _, err := p.SignIn(ctx, Credential{ErrorCode: code}); !errors.Is(err, ErrCancelled) {
			t.Fatalf("code %q: expected ErrCancelled, got %v", code, err)
		}
	}
	if _, err := p.SignIn(ctx, Credential{ErrorCode: "auth/configuration-not-found"}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if _, err := p.SignIn(ctx, Credential{ErrorCode: "network-request-failed"}); err == nil || errors.Is(err, ErrCancelled) {
		t.Fatalf("expected generic error, got %v", err)
	}
}

func TestTokenProviderUnconfigured(t *testing.T) {
	p := newTestProvider(t, config.IdentityConfig{}, newMemorySessions(), NewHub())
	if _, err := p.SignIn(context.Background(), Credential{IDToken: "x"}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTokenProviderRejectsBadToken(t *testing.T) {
	cfg := testIdentityConfig()
	p := newTestProvider(t, cfg, newMemorySessions(), NewHub())

	other := cfg
	other.Secret = "someone-else"
	if _, err := p.SignIn(context.Background(), Credential{IDToken: mintToken(t, other, "u1")}); err == nil {
		t.Fatal("expected verification error")
	}
	if _, err := p.SignIn(context.Background(), Credential{}); err == nil {
		t.Fatal("expected missing token error")
	}
}

func TestContainerOverTokenProvider(t *testing.T) {
	cfg := testIdentityConfig()
	sessions := newMemorySessions()
	hub := NewHub()
	p := newTestProvider(t, cfg, sessions, hub)
	profiles := &fakeProfiles{}

	c, err := New(context.Background(), Params{Provider: p, Profiles: profiles})
	if err != nil {
		t.Fatalf("new container: %v", err)
	}
	defer c.Close()

	res, err := c.SignIn(context.Background(), Credential{IDToken: mintToken(t, cfg, "u3")})
	if err != nil || res.Status != SignedIn {
		t.Fatalf("unexpected sign-in result %+v err=%v", res, err)
	}
	if got := c.Current(); got == nil || got.ID != "u3" {
		t.Fatalf("expected current u3, got %+v", got)
	}

	res, err = c.SignIn(context.Background(), Credential{ErrorCode: ErrorCodePopupClosed})
	if err != nil || res.Status != SignInCancelled {
		t.Fatalf("expected cancelled, got %+v err=%v", res, err)
	}
	if got := c.Current(); got == nil || got.ID != "u3" {
		t.Fatal("cancelled sign-in must not change the session")
	}

	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if c.Current() != nil {
		t.Fatal("expected anonymous after sign-out")
	}
}
