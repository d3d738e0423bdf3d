package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Params bundles the dependencies required to build a Container.
type Params struct {
	Provider Provider
	Profiles ProfileStore
	Logger   *logger.Logger
	Metrics  Metrics
	Clock    func() time.Time
}

// Container holds the identity session for one device.
type Container struct {
	provider Provider
	profiles ProfileStore
	logg     *logger.Logger
	metrics  Metrics
	now      func() time.Time

	signingIn atomic.Bool

	// notifyMu orders observer deliveries: an initial Subscribe call and an
	// identity change never interleave.
	notifyMu sync.Mutex

	mu        sync.RWMutex
	current   *User
	settled   bool
	observers map[int]func(*User)
	nextObs   int

	ready     chan struct{}
	readyOnce sync.Once
	stopWatch func()
}

// New builds a container and attaches it to the provider's identity stream.
func New(ctx context.Context, params Params) (*Container, error) {
	if params.Provider == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	c := &Container{
		provider:  params.Provider,
		profiles:  params.Profiles,
		logg:      params.Logger,
		metrics:   params.Metrics,
		now:       now,
		observers: make(map[int]func(*User)),
		ready:     make(chan struct{}),
	}
	stop, err := params.Provider.Watch(ctx, c.apply)
	if err != nil {
		return nil, fmt.Errorf("watch identity: %w", err)
	}
	c.stopWatch = stop
	return c, nil
}

// SignIn runs the provider sign-in. Concurrent calls while one is in flight
// return SignInInProgress without reaching the provider.
func (c *Container) SignIn(ctx context.Context, cred Credential) (SignInResult, error) {
	if !c.signingIn.CompareAndSwap(false, true) {
		c.count(SignInInProgress)
		return SignInResult{Status: SignInInProgress}, nil
	}
	defer c.signingIn.Store(false)

	user, err := c.provider.SignIn(ctx, cred)
	switch {
	case errors.Is(err, ErrCancelled):
		c.count(SignInCancelled)
		return SignInResult{Status: SignInCancelled}, nil
	case errors.Is(err, ErrConfiguration):
		c.count("configuration_error")
		return SignInResult{}, err
	case err != nil:
		c.count("failed")
		return SignInResult{}, fmt.Errorf("%w: %w", ErrSignInFailed, err)
	case user == nil:
		c.count("failed")
		return SignInResult{}, fmt.Errorf("%w: provider returned no user", ErrSignInFailed)
	}

	if err := c.profiles.RecordSignIn(ctx, *user, c.now().UTC()); err != nil && c.logg != nil {
		logCtx := c.logg.WithField(c.logg.WithUserID(ctx, user.ID), "error", err.Error())
		c.logg.Warn(logCtx, "identity.profile_write_failed")
	}

	c.count(SignedIn)
	return SignInResult{Status: SignedIn, User: cloneUser(user)}, nil
}

// SignOut signs the device out. Provider failures are returned as-is.
func (c *Container) SignOut(ctx context.Context) error {
	return c.provider.SignOut(ctx)
}

// Current returns the signed-in user or nil.
func (c *Container) Current() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneUser(c.current)
}

// Loading reports whether the first identity notification is still pending.
func (c *Container) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.settled
}

// Ready is closed after the first identity notification.
func (c *Container) Ready() <-chan struct{} {
	return c.ready
}

// Subscribe registers fn for identity changes. When the container has already
// settled fn is invoked immediately with the current user.
func (c *Container) Subscribe(fn func(*User)) (unsubscribe func()) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	settled := c.settled
	current := cloneUser(c.current)
	c.mu.Unlock()

	if settled {
		fn(current)
	}
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Close detaches from the provider stream.
func (c *Container) Close() {
	if c.stopWatch != nil {
		c.stopWatch()
	}
}

func (c *Container) apply(user *User) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.current = cloneUser(user)
	c.settled = true
	observers := make([]func(*User), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	c.readyOnce.Do(func() { close(c.ready) })
	for _, fn := range observers {
		fn(cloneUser(user))
	}
}

func (c *Container) count(status SignInStatus) {
	if c.metrics != nil {
		c.metrics.SignIn(string(status))
	}
}
