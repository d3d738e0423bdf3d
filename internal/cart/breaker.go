package cart

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerSettings tunes the remote cart circuit breaker.
type BreakerSettings struct {
	Name             string
	FailureThreshold uint32
	Cooldown         time.Duration
	OnStateChange    func(from, to string)
}

// BreakerStore fails remote cart calls fast while the document store is down,
// so new sessions go straight to the local slot.
type BreakerStore struct {
	next RemoteStore
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreakerStore wraps next with a circuit breaker.
func NewBreakerStore(next RemoteStore, settings BreakerSettings) *BreakerStore {
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	name := settings.Name
	if name == "" {
		name = "remote-cart"
	}
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	if settings.OnStateChange != nil {
		st.OnStateChange = func(_ string, from, to gobreaker.State) {
			settings.OnStateChange(from.String(), to.String())
		}
	}
	return &BreakerStore{next: next, cb: gobreaker.NewCircuitBreaker[any](st)}
}

func (b *BreakerStore) Subscribe(ctx context.Context, userID string, onChange func([]Line), onError func(error)) (func(), error) {
	var cancel func()
	_, err := b.cb.Execute(func() (any, error) {
		var err error
		cancel, err = b.next.Subscribe(ctx, userID, onChange, onError)
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	return cancel, nil
}

func (b *BreakerStore) Save(ctx context.Context, userID string, lines []Line) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Save(ctx, userID, lines)
	})
	return err
}

// State reports the breaker state, for health output.
func (b *BreakerStore) State() string {
	return b.cb.State().String()
}
