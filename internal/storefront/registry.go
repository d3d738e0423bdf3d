// Package storefront owns the per-device container pair: the identity session
// and the cart that follows it.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/devicestore"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// ErrClosed is returned by Get after Close.
var ErrClosed = errors.New("device registry closed")

// SessionStore remembers the signed-in identity per device.
type SessionStore interface {
	Save(ctx context.Context, deviceID string, sess session.Session) error
	Load(ctx context.Context, deviceID string) (*session.Session, error)
	Revoke(ctx context.Context, deviceID string) error
}

// CartSlots hands out the local cart slot of a device.
type CartSlots interface {
	CartSlot(deviceID string) *devicestore.CartSlot
}

// Metrics is the union of what both containers record.
type Metrics interface {
	identity.Metrics
	cart.Metrics
}

// RegistryParams wires a Registry.
type RegistryParams struct {
	Identity config.IdentityConfig
	Cart     config.CartConfig
	Sessions SessionStore
	Hub      *identity.Hub
	Profiles identity.ProfileStore
	Remote   cart.RemoteStore
	Local    CartSlots
	Metrics  Metrics
	Logger   *logger.Logger
	Clock    func() time.Time
}

// Device is the container pair serving one device id.
type Device struct {
	ID       string
	Identity *identity.Container
	Cart     *cart.Container

	unsubscribe func()
	lastSeen    atomic.Int64
}

func (d *Device) touch(now time.Time) {
	d.lastSeen.Store(now.UnixNano())
}

func (d *Device) close() {
	if d.unsubscribe != nil {
		d.unsubscribe()
	}
	d.Cart.Close()
	d.Identity.Close()
}

// Registry creates device containers on first use and evicts idle ones.
type Registry struct {
	params     RegistryParams
	now        func() time.Time
	baseCtx    context.Context
	baseCancel context.CancelFunc

	group singleflight.Group

	mu      sync.Mutex
	devices map[string]*Device
	closed  bool
}

// NewRegistry validates params and builds an empty registry.
func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Hub == nil {
		return nil, fmt.Errorf("identity hub required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile store required")
	}
	if params.Remote == nil {
		return nil, fmt.Errorf("remote cart store required")
	}
	if params.Local == nil {
		return nil, fmt.Errorf("local cart slots required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	base, cancel := context.WithCancel(context.Background())
	return &Registry{
		params:     params,
		now:        now,
		baseCtx:    base,
		baseCancel: cancel,
		devices:    make(map[string]*Device),
	}, nil
}

// Get returns the device's containers, building them on first use. Concurrent
// first calls for the same device share one construction.
func (r *Registry) Get(ctx context.Context, deviceID string) (*Device, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("device id required")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	if dev, ok := r.devices[deviceID]; ok {
		dev.touch(r.now())
		r.mu.Unlock()
		return dev, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do(deviceID, func() (any, error) {
		r.mu.Lock()
		if dev, ok := r.devices[deviceID]; ok {
			r.mu.Unlock()
			return dev, nil
		}
		r.mu.Unlock()

		dev, err := r.build(context.WithoutCancel(ctx), deviceID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			dev.close()
			return nil, ErrClosed
		}
		r.devices[deviceID] = dev
		return dev, nil
	})
	if err != nil {
		return nil, err
	}
	dev := v.(*Device)
	dev.touch(r.now())
	return dev, nil
}

func (r *Registry) build(ctx context.Context, deviceID string) (*Device, error) {
	provider, err := identity.NewTokenProvider(identity.TokenProviderParams{
		DeviceID: deviceID,
		Config:   r.params.Identity,
		Sessions: r.params.Sessions,
		Hub:      r.params.Hub,
		Clock:    r.params.Clock,
	})
	if err != nil {
		return nil, err
	}
	var idMetrics identity.Metrics
	var cartMetrics cart.Metrics
	if r.params.Metrics != nil {
		idMetrics, cartMetrics = r.params.Metrics, r.params.Metrics
	}
	ident, err := identity.New(ctx, identity.Params{
		Provider: provider,
		Profiles: r.params.Profiles,
		Logger:   r.params.Logger,
		Metrics:  idMetrics,
		Clock:    r.params.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("build identity container: %w", err)
	}

	cartCtx := r.baseCtx
	if r.params.Logger != nil {
		cartCtx = r.params.Logger.WithDeviceID(cartCtx, deviceID)
	}
	crt, err := cart.New(cartCtx, cart.Params{
		Local:         cart.NewLocalStore(r.params.Local.CartSlot(deviceID)),
		Remote:        r.params.Remote,
		Logger:        r.params.Logger,
		Metrics:       cartMetrics,
		RemoteTimeout: r.params.Cart.RemoteTimeout,
	})
	if err != nil {
		ident.Close()
		return nil, fmt.Errorf("build cart container: %w", err)
	}

	dev := &Device{ID: deviceID, Identity: ident, Cart: crt}
	dev.unsubscribe = ident.Subscribe(func(user *identity.User) {
		crt.SetSession(cartCtx, user)
	})
	return dev, nil
}

// Len reports how many devices are live.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

// Sweep closes devices idle for longer than the configured DeviceIdleTTL and
// returns how many were evicted.
func (r *Registry) Sweep() int {
	ttl := r.params.Cart.DeviceIdleTTL
	if ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-ttl).UnixNano()

	r.mu.Lock()
	var idle []*Device
	for id, dev := range r.devices {
		if dev.lastSeen.Load() < cutoff {
			idle = append(idle, dev)
			delete(r.devices, id)
		}
	}
	r.mu.Unlock()

	for _, dev := range idle {
		dev.close()
	}
	if len(idle) > 0 && r.params.Logger != nil {
		r.params.Logger.Info(r.params.Logger.WithField(r.baseCtx, "evicted", len(idle)), "storefront.devices_evicted")
	}
	return len(idle)
}

// Run sweeps idle devices until ctx ends or the registry is closed.
func (r *Registry) Run(ctx context.Context) {
	interval := r.params.Cart.DeviceIdleTTL / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.baseCtx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close tears down every device. Later Get calls return ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	devices := r.devices
	r.devices = make(map[string]*Device)
	r.mu.Unlock()

	r.baseCancel()
	for _, dev := range devices {
		dev.close()
	}
}
