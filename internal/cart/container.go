package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// RemoteStore is the signed-in user's cart document.
type RemoteStore interface {
	// Subscribe delivers the current document to onChange before returning and
	// then every later change until cancel is called or ctx ends. onError
	// reports a broken subscription; no further callbacks follow it.
	Subscribe(ctx context.Context, userID string, onChange func([]Line), onError func(error)) (cancel func(), err error)
	// Save merge-writes the full line collection.
	Save(ctx context.Context, userID string, lines []Line) error
}

// LocalStore is the device's own cart slot.
type LocalStore interface {
	Load(ctx context.Context) ([]Line, error)
	Save(ctx context.Context, lines []Line) error
}

// Metrics counts mode transitions.
type Metrics interface {
	CartModeChanged(mode string)
}

// Params bundles the dependencies required to build a Container.
type Params struct {
	Local         LocalStore
	Remote        RemoteStore
	Logger        *logger.Logger
	Metrics       Metrics
	RemoteTimeout time.Duration
}

// Container mirrors either the device's local cart or the signed-in user's
// remote cart into memory.
type Container struct {
	local   LocalStore
	remote  RemoteStore
	logg    *logger.Logger
	metrics Metrics
	timeout time.Duration

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu         sync.Mutex
	state      State
	sessionSet bool
	generation uint64
	cancelSub  func()
	version    uint64
	// connecting is set while a sign-in subscribe is in flight. Mutations
	// made meanwhile are queued and replayed on whichever store wins.
	connecting bool
	pending    []Event

	persistMu sync.Mutex
	persisted uint64
}

// New builds a container in anonymous mode. State is loaded by the first
// SetSession call.
func New(ctx context.Context, params Params) (*Container, error) {
	if params.Local == nil {
		return nil, fmt.Errorf("local store is required")
	}
	if params.Remote == nil {
		return nil, fmt.Errorf("remote store is required")
	}
	base, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &Container{
		local:      params.Local,
		remote:     params.Remote,
		logg:       params.Logger,
		metrics:    params.Metrics,
		timeout:    params.RemoteTimeout,
		baseCtx:    base,
		baseCancel: cancel,
		state:      State{Lines: []Line{}, Mode: enums.CartModeAnonymous},
	}, nil
}

// SetSession switches the container to user, or to anonymous when user is nil.
// Repeated calls for the same user are no-ops. The previous cart is abandoned.
func (c *Container) SetSession(ctx context.Context, user *identity.User) {
	userID := ""
	if user != nil {
		userID = user.ID
	}

	c.mu.Lock()
	if c.sessionSet && c.state.UserID == userID {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	if c.cancelSub != nil {
		c.cancelSub()
		c.cancelSub = nil
	}
	c.sessionSet = true
	c.state = State{Lines: []Line{}, Mode: c.state.Mode, UserID: userID}
	c.connecting = userID != ""
	c.pending = nil
	c.mu.Unlock()

	if userID == "" {
		c.setMode(gen, enums.CartModeAnonymous, false)
		c.loadLocal(ctx, gen)
		return
	}

	subCtx, subCancel := context.WithCancel(c.baseCtx)
	cancel, err := c.subscribeWithTimeout(subCtx, subCancel, userID, gen)
	if err != nil {
		c.degrade(ctx, gen, "subscribe", err, nil)
		return
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		cancel()
		return
	}
	c.cancelSub = cancel
	queued := len(c.pending) > 0
	c.connecting = false
	c.pending = nil
	changed := c.switchModeLocked(enums.CartModeSynced, false)
	c.mu.Unlock()
	c.modeChanged(changed, enums.CartModeSynced)

	if queued {
		c.commit(ctx)
	}
}

// AddLine merges line into the cart on (ProductID, Size).
func (c *Container) AddLine(ctx context.Context, line Line) {
	c.mutate(ctx, Event{Kind: EventAdd, Line: line})
}

// SetQuantity sets a line's quantity. Zero or less removes the line.
func (c *Container) SetQuantity(ctx context.Context, productID, size string, qty int) {
	c.mutate(ctx, Event{Kind: EventSetQuantity, ProductID: productID, Size: size, Quantity: qty})
}

// RemoveLine drops the line keyed by (productID, size).
func (c *Container) RemoveLine(ctx context.Context, productID, size string) {
	c.mutate(ctx, Event{Kind: EventRemove, ProductID: productID, Size: size})
}

// Clear empties the cart.
func (c *Container) Clear(ctx context.Context) {
	c.mutate(ctx, Event{Kind: EventClear})
}

// Snapshot returns a copy of the current state.
func (c *Container) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	st.Lines = cloneLines(c.state.Lines)
	return st
}

// Total is the sum of price times quantity over every line.
func (c *Container) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Total(c.state.Lines)
}

// LineCount is the sum of quantities.
func (c *Container) LineCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Count(c.state.Lines)
}

// Close cancels the remote subscription.
func (c *Container) Close() {
	c.mu.Lock()
	c.generation++
	if c.cancelSub != nil {
		c.cancelSub()
		c.cancelSub = nil
	}
	c.mu.Unlock()
	c.baseCancel()
}

func (c *Container) mutate(ctx context.Context, ev Event) {
	c.mu.Lock()
	c.state.Lines = Reduce(c.state.Lines, ev)
	if c.connecting {
		c.pending = append(c.pending, ev)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.commit(ctx)
}

// commit persists the in-memory lines to the store the current mode uses.
func (c *Container) commit(ctx context.Context) {
	c.mu.Lock()
	if c.connecting {
		c.mu.Unlock()
		return
	}
	c.version++
	version := c.version
	gen := c.generation
	mode := c.state.Mode
	userID := c.state.UserID
	lines := cloneLines(c.state.Lines)
	c.mu.Unlock()

	c.persist(context.WithoutCancel(ctx), gen, version, mode, userID, lines)
}

func replay(lines []Line, events []Event) []Line {
	for _, ev := range events {
		lines = Reduce(lines, ev)
	}
	return lines
}

// persist writes lines unless a newer version has already been written.
func (c *Container) persist(ctx context.Context, gen, version uint64, mode enums.CartMode, userID string, lines []Line) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if version <= c.persisted {
		return
	}
	c.persisted = version

	c.mu.Lock()
	if gen != c.generation {
		if c.state.UserID != userID {
			c.mu.Unlock()
			return
		}
		gen, mode = c.generation, c.state.Mode
	}
	c.mu.Unlock()

	if mode == enums.CartModeSynced {
		writeCtx, cancel := c.withTimeout(ctx)
		err := c.remote.Save(writeCtx, userID, lines)
		cancel()
		if err != nil {
			c.degrade(ctx, gen, "write", err, lines)
		}
		return
	}
	if err := c.local.Save(ctx, lines); err != nil {
		c.warn(ctx, "cart.local_write_failed", err)
	}
}

func (c *Container) subscribeWithTimeout(subCtx context.Context, subCancel context.CancelFunc, userID string, gen uint64) (func(), error) {
	onChange := func(lines []Line) { c.applyRemote(gen, lines) }
	onError := func(err error) { c.degrade(c.baseCtx, gen, "subscription", err, nil) }

	type result struct {
		cancel func()
		err    error
	}
	done := make(chan result, 1)
	go func() {
		cancel, err := c.remote.Subscribe(subCtx, userID, onChange, onError)
		done <- result{cancel: cancel, err: err}
	}()

	var timer <-chan time.Time
	if c.timeout > 0 {
		t := time.NewTimer(c.timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case res := <-done:
		if res.err != nil {
			subCancel()
			return nil, res.err
		}
		return func() {
			if res.cancel != nil {
				res.cancel()
			}
			subCancel()
		}, nil
	case <-timer:
		subCancel()
		return nil, fmt.Errorf("remote subscribe: %w", context.DeadlineExceeded)
	}
}

func (c *Container) applyRemote(gen uint64, lines []Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.state.Lines = Reduce(c.state.Lines, Event{Kind: EventReplace, Lines: lines})
	if c.connecting {
		c.state.Lines = replay(c.state.Lines, c.pending)
	}
}

// degrade moves the current session to the local slot. When lines is nil the
// slot is loaded into memory; otherwise lines are written to it.
func (c *Container) degrade(ctx context.Context, gen uint64, stage string, cause error, lines []Line) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.generation++
	next := c.generation
	if c.cancelSub != nil {
		c.cancelSub()
		c.cancelSub = nil
	}
	queued := c.pending
	c.connecting = false
	c.pending = nil
	c.mu.Unlock()

	c.warn(ctx, "cart.degraded", fmt.Errorf("%s: %w", stage, cause))
	c.setMode(next, enums.CartModeDegraded, true)

	if lines == nil {
		c.loadLocal(ctx, next, queued...)
		if len(queued) > 0 {
			c.commit(ctx)
		}
		return
	}
	if err := c.local.Save(ctx, lines); err != nil {
		c.warn(ctx, "cart.local_write_failed", err)
	}
}

// loadLocal replaces memory with the local slot, then replays queued events.
func (c *Container) loadLocal(ctx context.Context, gen uint64, queued ...Event) {
	lines, err := c.local.Load(ctx)
	if err != nil {
		c.warn(ctx, "cart.local_read_failed", err)
		lines = []Line{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.state.Lines = replay(Reduce(nil, Event{Kind: EventReplace, Lines: lines}), queued)
}

func (c *Container) setMode(gen uint64, mode enums.CartMode, offline bool) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	changed := c.switchModeLocked(mode, offline)
	c.mu.Unlock()
	c.modeChanged(changed, mode)
}

func (c *Container) switchModeLocked(mode enums.CartMode, offline bool) bool {
	changed := c.state.Mode != mode
	c.state.Mode = mode
	c.state.Offline = offline
	return changed
}

func (c *Container) modeChanged(changed bool, mode enums.CartMode) {
	if changed && c.metrics != nil {
		c.metrics.CartModeChanged(mode.String())
	}
}

func (c *Container) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Container) warn(ctx context.Context, msg string, err error) {
	if c.logg == nil || err == nil || (errors.Is(err, context.Canceled) && c.baseCtx.Err() != nil) {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), msg)
}

type itemSlot interface {
	Load(ctx context.Context) ([]types.CartItem, error)
	Save(ctx context.Context, items []types.CartItem) error
}

type localSlot struct {
	slot itemSlot
}

// NewLocalStore adapts a device storage slot to LocalStore.
func NewLocalStore(slot itemSlot) LocalStore {
	return localSlot{slot: slot}
}

func (l localSlot) Load(ctx context.Context) ([]Line, error) {
	items, err := l.slot.Load(ctx)
	if err != nil {
		return nil, err
	}
	return FromItems(items), nil
}

func (l localSlot) Save(ctx context.Context, lines []Line) error {
	return l.slot.Save(ctx, ToItems(lines))
}
