package orders

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
)

// PlaceOrderInput carries the signed-in shopper, the cart snapshot and the checkout form.
type PlaceOrderInput struct {
	UserID        string
	UserEmail     string
	UserName      string
	DeviceID      string
	Items         []types.OrderItem
	Address       types.ShippingAddress
	PaymentMethod enums.PaymentMethod
}

// ListFilters narrows the order history. A nil status lists every order.
type ListFilters struct {
	Status *enums.OrderStatus
}

// OrderDTO is the order as shown in history, detail, and the checkout confirmation.
type OrderDTO struct {
	ID                uuid.UUID             `json:"id"`
	Items             []types.OrderItem     `json:"items"`
	ShippingAddress   types.ShippingAddress `json:"shippingAddress"`
	PaymentMethod     enums.PaymentMethod   `json:"paymentMethod"`
	Subtotal          int64                 `json:"subtotal"`
	Shipping          int64                 `json:"shipping"`
	Tax               int64                 `json:"tax"`
	Total             int64                 `json:"total"`
	Status            enums.OrderStatus     `json:"status"`
	TrackingNumber    string                `json:"trackingNumber"`
	OrderDate         time.Time             `json:"orderDate"`
	EstimatedDelivery time.Time             `json:"estimatedDelivery"`
	ItemCount         int                   `json:"itemCount"`
}

// OrderList wraps one page of order history plus the next page cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// FromModel maps a stored order to its DTO. Unknown statuses display as pending.
func FromModel(m models.Order) OrderDTO {
	items := m.Items
	if items == nil {
		items = []types.OrderItem{}
	}
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return OrderDTO{
		ID:                m.ID,
		Items:             items,
		ShippingAddress:   m.ShippingAddress,
		PaymentMethod:     m.PaymentMethod,
		Subtotal:          m.Subtotal,
		Shipping:          m.Shipping,
		Tax:               m.Tax,
		Total:             m.Total,
		Status:            m.Status.Display(),
		TrackingNumber:    m.TrackingNumber,
		OrderDate:         m.CreatedAt,
		EstimatedDelivery: m.EstimatedDelivery,
		ItemCount:         count,
	}
}
