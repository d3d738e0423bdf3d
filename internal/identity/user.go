package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCancelled means the shopper dismissed the provider's sign-in flow.
	ErrCancelled = errors.New("sign-in cancelled by user")
	// ErrConfiguration means the identity provider is not set up for this deployment.
	ErrConfiguration = errors.New("identity provider misconfigured")
	// ErrSignInFailed wraps every other sign-in failure. Callers may retry.
	ErrSignInFailed = errors.New("sign-in failed")
)

// User is the signed-in shopper. A nil *User means anonymous.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// Credential is what the client-side sign-in flow handed back: either an ID
// token or the provider's error code.
type Credential struct {
	IDToken   string
	ErrorCode string
}

// SignInStatus is the outcome of a SignIn call that did not fail.
type SignInStatus string

const (
	SignedIn         SignInStatus = "signed_in"
	SignInCancelled  SignInStatus = "cancelled"
	SignInInProgress SignInStatus = "in_progress"
)

// SignInResult is returned by Container.SignIn.
type SignInResult struct {
	Status SignInStatus `json:"status"`
	User   *User        `json:"user,omitempty"`
}

// Provider is the identity provider boundary.
type Provider interface {
	SignIn(ctx context.Context, cred Credential) (*User, error)
	SignOut(ctx context.Context) error
	// Watch emits the current identity immediately and then on every change
	// until stop is called.
	Watch(ctx context.Context, fn func(*User)) (stop func(), err error)
}

// ProfileStore records sign-ins against the user profile document.
type ProfileStore interface {
	RecordSignIn(ctx context.Context, user User, at time.Time) error
}

// Metrics counts sign-in outcomes.
type Metrics interface {
	SignIn(status string)
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
