package orders

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const (
	processingAfter = time.Hour
	confirmedAfter  = 24 * time.Hour
	shippedAfter    = 48 * time.Hour
	outForDelivery  = 24 * time.Hour
)

var fulfillmentRank = map[enums.OrderStatus]int{
	enums.OrderStatusPending:        0,
	enums.OrderStatusProcessing:     1,
	enums.OrderStatusConfirmed:      2,
	enums.OrderStatusShipped:        3,
	enums.OrderStatusOutForDelivery: 4,
	enums.OrderStatusDelivered:      5,
}

// ScheduledStatus is where an order should be in fulfillment at now, judged by
// its age and estimated delivery. Cancelled orders stay cancelled and no order
// ever moves backwards.
func ScheduledStatus(order models.Order, now time.Time) enums.OrderStatus {
	current := order.Status.Display()
	if current == enums.OrderStatusCancelled {
		return current
	}

	age := now.Sub(order.CreatedAt)
	target := enums.OrderStatusPending
	switch {
	case !now.Before(order.EstimatedDelivery):
		target = enums.OrderStatusDelivered
	case !now.Before(order.EstimatedDelivery.Add(-outForDelivery)):
		target = enums.OrderStatusOutForDelivery
	case age >= shippedAfter:
		target = enums.OrderStatusShipped
	case age >= confirmedAfter:
		target = enums.OrderStatusConfirmed
	case age >= processingAfter:
		target = enums.OrderStatusProcessing
	}

	if fulfillmentRank[target] <= fulfillmentRank[current] {
		return current
	}
	return target
}
