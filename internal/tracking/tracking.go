package tracking

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrNotFound means no carrier knows the tracking number. A known shipment
// with no checkpoints yet is returned as an empty timeline instead.
var ErrNotFound = errors.New("tracking number not found")

// Carrier resolves a tracking number into a shipment timeline.
type Carrier interface {
	Track(ctx context.Context, number string) (*Timeline, error)
}

// Checkpoint is one step of a shipment. Pending steps have no timestamp.
type Checkpoint struct {
	Status      string    `json:"status"`
	Location    string    `json:"location"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Completed   bool      `json:"completed"`
	Description string    `json:"description"`
	At          time.Time `json:"-"`
}

// Timeline is the tracking view for one shipment.
type Timeline struct {
	TrackingNumber    string       `json:"trackingNumber"`
	OrderID           string       `json:"orderId"`
	Status            string       `json:"status"`
	CurrentLocation   string       `json:"currentLocation"`
	EstimatedDelivery string       `json:"estimatedDelivery"`
	Events            []Checkpoint `json:"timeline"`
}

// Normalize orders the events chronologically: completed checkpoints by time,
// followed by pending ones in their original order.
func Normalize(t *Timeline) *Timeline {
	if t == nil {
		return nil
	}
	events := make([]Checkpoint, len(t.Events))
	copy(events, t.Events)
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Completed != events[j].Completed {
			return events[i].Completed
		}
		if !events[i].Completed {
			return false
		}
		return events[i].At.Before(events[j].At)
	})
	out := *t
	out.Events = events
	return &out
}

// NormalizeNumber canonicalises user input before lookup.
func NormalizeNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

type chain struct {
	carriers []Carrier
}

// Chain tries each carrier in turn, moving on only when a carrier reports ErrNotFound.
func Chain(carriers ...Carrier) Carrier {
	return chain{carriers: carriers}
}

func (c chain) Track(ctx context.Context, number string) (*Timeline, error) {
	for _, carrier := range c.carriers {
		if carrier == nil {
			continue
		}
		timeline, err := carrier.Track(ctx, number)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return Normalize(timeline), nil
	}
	return nil, ErrNotFound
}
