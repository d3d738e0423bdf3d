package tracking

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"gorm.io/gorm"
)

// OrderFinder looks up a placed order by its tracking number.
type OrderFinder interface {
	FindByTrackingNumber(ctx context.Context, number string) (*models.Order, error)
}

type step struct {
	status      string
	location    string
	description string
}

var fulfillmentSteps = []step{
	{"Order Placed", "Online Store", "Your order has been placed successfully"},
	{"Order Confirmed", "Warehouse", "Order confirmed and being prepared for shipment"},
	{"Shipped", "Distribution Center", "Package shipped from warehouse"},
	{"Out for Delivery", "Local Delivery Center", "Package out for delivery"},
	{"Delivered", "Shipping Address", "Package delivered successfully"},
}

var completedSteps = map[enums.OrderStatus]int{
	enums.OrderStatusPending:        1,
	enums.OrderStatusProcessing:     1,
	enums.OrderStatusConfirmed:      2,
	enums.OrderStatusShipped:        3,
	enums.OrderStatusOutForDelivery: 4,
	enums.OrderStatusDelivered:      5,
}

// OrderCarrier derives a timeline from a placed order's fulfillment status.
type OrderCarrier struct {
	orders OrderFinder
}

// NewOrderCarrier builds a carrier over the orders store.
func NewOrderCarrier(orders OrderFinder) *OrderCarrier {
	return &OrderCarrier{orders: orders}
}

func (c *OrderCarrier) Track(ctx context.Context, number string) (*Timeline, error) {
	if c.orders == nil {
		return nil, ErrNotFound
	}
	order, err := c.orders.FindByTrackingNumber(ctx, NormalizeNumber(number))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find order by tracking number: %w", err)
	}
	if order == nil {
		return nil, ErrNotFound
	}
	return timelineFromOrder(order), nil
}

func timelineFromOrder(order *models.Order) *Timeline {
	status := order.Status.Display()
	placedAt := order.CreatedAt
	timeline := &Timeline{
		TrackingNumber:    order.TrackingNumber,
		OrderID:           order.ID.String(),
		Status:            status.String(),
		EstimatedDelivery: order.EstimatedDelivery.Format("2006-01-02"),
	}

	if status == enums.OrderStatusCancelled {
		first := fulfillmentSteps[0]
		timeline.Events = []Checkpoint{
			{Status: first.status, Location: first.location, Description: first.description, Completed: true, At: placedAt, Date: placedAt.Format("2006-01-02"), Time: placedAt.Format("3:04 PM")},
			{Status: "Cancelled", Description: "Order was cancelled", Completed: true, At: placedAt},
		}
		timeline.CurrentLocation = "Cancelled"
		return timeline
	}

	completed := completedSteps[status]
	for i, s := range fulfillmentSteps {
		cp := Checkpoint{Status: s.status, Location: s.location, Description: s.description}
		if i < completed {
			cp.Completed = true
			cp.At = placedAt
			timeline.CurrentLocation = s.location
		}
		if i == 0 {
			cp.Date = placedAt.Format("2006-01-02")
			cp.Time = placedAt.Format("3:04 PM")
		}
		timeline.Events = append(timeline.Events, cp)
	}
	return timeline
}
