package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

// deliver publishes a single row and records the outcome on it. Only
// bookkeeping failures are returned; publish failures are absorbed into the
// row's retry or dead-letter state.
func (r *Relay) deliver(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	fields := rowFields(row)
	fields["batch_size"] = r.batchSize

	resolved, err := r.resolver.Resolve(row)
	if err != nil {
		return r.bury(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err, fields)
	}
	topic := resolved.Descriptor.Topic
	fields["topic"] = topic
	fields["event_id"] = resolved.Envelope.EventID
	fields["occurred_at"] = resolved.Envelope.OccurredAt.Format(time.RFC3339Nano)

	sendErr := r.send(ctx, topic, row, resolved)
	if sendErr == nil {
		if err := r.events.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.logg.Info(r.logg.WithFields(ctx, fields), "outbox.event_published")
		return nil
	}

	var permanent registry.NonRetryableError
	if errors.As(sendErr, &permanent) {
		return r.bury(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, sendErr, fields)
	}

	attempt := row.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= r.maxAttempts {
		return r.bury(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("gave up after %d attempts: %w", attempt, sendErr), fields)
	}

	logCtx := r.logg.WithFields(ctx, fields)
	r.logg.Warn(r.logg.WithField(logCtx, "error", sendErr.Error()), "outbox.publish_retry_scheduled")
	if err := r.events.MarkFailedTx(tx, row.ID, sendErr); err != nil {
		return fmt.Errorf("mark failed %s: %w", row.ID, err)
	}
	return nil
}

// bury moves a row to the dead-letter table and closes it out.
func (r *Relay) bury(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	logCtx := r.logg.WithFields(ctx, fields)
	r.logg.Warn(r.logg.WithField(logCtx, "error", cause.Error()), "outbox.event_dead_lettered")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      r.now().UTC(),
	}
	if err := r.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := r.events.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	return nil
}

func (r *Relay) send(ctx context.Context, topic string, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	out := r.senderFor(topic)
	if out == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	started := r.now()
	pending := out.Publish(sendCtx, &gcppubsub.Message{
		Data:       row.Payload,
		Attributes: messageAttributes(row, resolved.Envelope.EventID),
	})
	if pending == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher for %s returned no result", topic))
	}
	_, err := pending.Get(sendCtx)
	if r.metrics != nil {
		r.metrics.OutboxPublished(string(row.EventType), r.now().Sub(started), err)
	}
	return err
}

// messageAttributes lets subscribers route on event metadata without
// decoding the envelope.
func messageAttributes(row models.OutboxEvent, eventID string) map[string]string {
	return map[string]string{
		"event_id":       eventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
	}
}

func rowFields(row models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}
