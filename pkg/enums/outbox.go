package enums

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateOrder
}

// OutboxEventType is the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderPlaced OutboxEventType = "order_placed"
)

// eventAggregates pins every event type to the aggregate that emits it.
var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventOrderPlaced: AggregateOrder,
}

func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate reports which aggregate type may emit e.
func (e OutboxEventType) Aggregate() (OutboxAggregateType, bool) {
	a, ok := eventAggregates[e]
	return a, ok
}
