package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// Provider error codes reported by the client-side sign-in popup.
const (
	ErrorCodeCancelledPopup        = "cancelled-popup-request"
	ErrorCodePopupClosed           = "popup-closed-by-user"
	ErrorCodeCancelled             = "cancelled"
	ErrorCodeConfigurationNotFound = "configuration-not-found"
)

type sessionStore interface {
	Save(ctx context.Context, deviceID string, sess session.Session) error
	Load(ctx context.Context, deviceID string) (*session.Session, error)
	Revoke(ctx context.Context, deviceID string) error
}

// TokenProviderParams bundles the dependencies of a TokenProvider.
type TokenProviderParams struct {
	DeviceID string
	Config   config.IdentityConfig
	Sessions sessionStore
	Hub      *Hub
	Clock    func() time.Time
}

// TokenProvider verifies ID tokens issued by the external identity provider and
// remembers the result as the device's session.
type TokenProvider struct {
	deviceID string
	cfg      config.IdentityConfig
	sessions sessionStore
	hub      *Hub
	now      func() time.Time
}

// NewTokenProvider builds a provider bound to one device.
func NewTokenProvider(params TokenProviderParams) (*TokenProvider, error) {
	if strings.TrimSpace(params.DeviceID) == "" {
		return nil, fmt.Errorf("device id is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if params.Hub == nil {
		return nil, fmt.Errorf("identity hub is required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &TokenProvider{
		deviceID: params.DeviceID,
		cfg:      params.Config,
		sessions: params.Sessions,
		hub:      params.Hub,
		now:      now,
	}, nil
}

func (p *TokenProvider) SignIn(ctx context.Context, cred Credential) (*User, error) {
	if err := classifyErrorCode(cred.ErrorCode); err != nil {
		return nil, err
	}
	if !p.cfg.Configured() {
		return nil, ErrConfiguration
	}
	token := strings.TrimSpace(cred.IDToken)
	if token == "" {
		return nil, errors.New("id token is required")
	}

	claims, err := pkgAuth.ParseIDToken(p.cfg, token)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	user := &User{
		ID:          claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		PhotoURL:    claims.Picture,
	}

	if err := p.sessions.Save(ctx, p.deviceID, session.Session{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
		SignedInAt:  p.now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	p.hub.Publish(p.deviceID, user)
	return cloneUser(user), nil
}

func (p *TokenProvider) SignOut(ctx context.Context) error {
	if err := p.sessions.Revoke(ctx, p.deviceID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	p.hub.Publish(p.deviceID, nil)
	return nil
}

func (p *TokenProvider) Watch(ctx context.Context, fn func(*User)) (func(), error) {
	stop := p.hub.Subscribe(p.deviceID, fn)
	sess, err := p.sessions.Load(ctx, p.deviceID)
	if err != nil {
		stop()
		return nil, fmt.Errorf("load session: %w", err)
	}
	fn(userFromSession(sess))
	return stop, nil
}

func userFromSession(sess *session.Session) *User {
	if sess == nil {
		return nil
	}
	return &User{
		ID:          sess.UserID,
		Email:       sess.Email,
		DisplayName: sess.DisplayName,
		PhotoURL:    sess.PhotoURL,
	}
}

func classifyErrorCode(code string) error {
	code = strings.ToLower(strings.TrimSpace(code))
	code = strings.TrimPrefix(code, "auth/")
	switch code {
	case "":
		return nil
	case ErrorCodeCancelledPopup, ErrorCodePopupClosed, ErrorCodeCancelled:
		return ErrCancelled
	case ErrorCodeConfigurationNotFound:
		return ErrConfiguration
	default:
		return fmt.Errorf("identity provider error %q", code)
	}
}
