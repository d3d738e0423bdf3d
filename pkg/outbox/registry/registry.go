// Package registry maps outbox event types to their Pub/Sub topic and
// payload schema, and decodes stored rows for the relay.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// EventDescriptor routes one event type.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

// ResolvedEvent is a stored row after envelope and payload decoding.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	routes map[enums.OutboxEventType]EventDescriptor
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	return newRegistry(
		route[payloads.OrderPlacedEvent](enums.EventOrderPlaced, cfg.OrdersTopic),
	), nil
}

func newRegistry(descs ...EventDescriptor) *EventRegistry {
	r := &EventRegistry{routes: make(map[enums.OutboxEventType]EventDescriptor, len(descs))}
	for _, d := range descs {
		r.routes[d.EventType] = d
	}
	return r
}

// route builds a descriptor whose payload decodes into *T. The aggregate
// comes from the event type itself.
func route[T any](event enums.OutboxEventType, topic string) EventDescriptor {
	aggregate, _ := event.Aggregate()
	return EventDescriptor{
		EventType:     event,
		AggregateType: aggregate,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			v := new(T)
			if err := json.Unmarshal(raw, v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// Topics lists the distinct destination topics, sorted.
func (r *EventRegistry) Topics() []string {
	set := make(map[string]struct{}, len(r.routes))
	for _, d := range r.routes {
		set[d.Topic] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Resolve decodes row. Every failure is a NonRetryableError because the row
// itself is bad and will not improve on retry.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	d, ok := r.routes[row.EventType]
	switch {
	case !ok:
		return nil, permanent("unsupported event type %s", row.EventType)
	case d.AggregateType != row.AggregateType:
		return nil, permanent("event %s expects aggregate %s, row has %s", row.EventType, d.AggregateType, row.AggregateType)
	case row.AggregateID == uuid.Nil:
		return nil, permanent("event %s has no aggregate_id", row.EventType)
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, permanent("event %s has an empty payload", row.EventType)
	}
	payload, err := d.decode(env.Data)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", row.EventType, err))
	}
	return &ResolvedEvent{Descriptor: d, Envelope: env, Payload: payload}, nil
}

func permanent(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}
