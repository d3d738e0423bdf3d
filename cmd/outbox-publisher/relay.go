package main

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const (
	fallbackBatchSize   = 50
	fallbackPoll        = 500 * time.Millisecond
	fallbackMaxAttempts = 10
	sendTimeout         = 15 * time.Second
)

type txDB interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type topicSource interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type relayMetrics interface {
	OutboxPublished(eventType string, duration time.Duration, err error)
}

type pendingEvents interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetters interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// RelayParams wires the publisher loop. Sender and Clock are optional.
type RelayParams struct {
	Outbox   config.OutboxConfig
	Logger   *logger.Logger
	DB       txDB
	Topics   topicSource
	Events   pendingEvents
	Resolver eventResolver
	DLQ      deadLetters
	Sender   func(topic string) sender
	Metrics  relayMetrics
	Clock    func() time.Time
}

// Relay drains committed outbox rows to Pub/Sub. Each batch runs inside one
// transaction so row locks hold until the bookkeeping commits.
type Relay struct {
	logg        *logger.Logger
	db          txDB
	topics      topicSource
	events      pendingEvents
	resolver    eventResolver
	dlq         deadLetters
	senderFor   func(topic string) sender
	metrics     relayMetrics
	now         func() time.Time
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.Topics == nil:
		return nil, errors.New("pubsub client is required")
	case p.Events == nil:
		return nil, errors.New("outbox repository is required")
	case p.Resolver == nil:
		return nil, errors.New("event registry is required")
	case p.DLQ == nil:
		return nil, errors.New("dlq repository is required")
	}

	r := &Relay{
		logg:        p.Logger,
		db:          p.DB,
		topics:      p.Topics,
		events:      p.Events,
		resolver:    p.Resolver,
		dlq:         p.DLQ,
		senderFor:   p.Sender,
		metrics:     p.Metrics,
		now:         p.Clock,
		batchSize:   positiveOr(p.Outbox.BatchSize, fallbackBatchSize),
		maxAttempts: positiveOr(p.Outbox.MaxAttempts, fallbackMaxAttempts),
		poll:        fallbackPoll,
	}
	if p.Outbox.PollIntervalMS > 0 {
		r.poll = time.Duration(p.Outbox.PollIntervalMS) * time.Millisecond
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.senderFor == nil {
		r.senderFor = func(topic string) sender {
			return wrapPublisher(p.Topics.Publisher(topic))
		}
	}
	return r, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run polls until ctx is cancelled. Full batches are followed immediately by
// another drain; empty ones wait one poll interval. Batch errors back off.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.checkDependencies(ctx); err != nil {
		return err
	}

	pace := newPacer(r.poll)
	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox.relay_stopped")
			return err
		}

		busy, err := r.drain(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox.batch_failed", err)
			if err := pause(ctx, pace.failed()); err != nil {
				return err
			}
		case busy:
			pace.reset()
		default:
			pace.reset()
			if err := pause(ctx, pace.idle()); err != nil {
				return err
			}
		}
	}
}

func (r *Relay) checkDependencies(ctx context.Context) error {
	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", r.db.Ping},
		{"pubsub", r.topics.Ping},
	}
	for _, c := range checks {
		if err := c.ping(ctx); err != nil {
			r.logg.Error(r.logg.WithField(ctx, "dependency", c.name), "outbox.dependency_unavailable", err)
			return err
		}
	}
	return nil
}

// drain handles one batch and reports whether any rows were claimed.
func (r *Relay) drain(ctx context.Context) (bool, error) {
	claimed := false
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.events.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		claimed = len(rows) > 0
		for _, row := range rows {
			if err := r.deliver(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}
