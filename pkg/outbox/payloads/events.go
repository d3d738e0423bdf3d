package payloads

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
)

// OrderPlacedEvent is emitted in the checkout transaction once an order row exists.
type OrderPlacedEvent struct {
	OrderID           uuid.UUID           `json:"orderId"`
	UserID            string              `json:"userId"`
	UserEmail         string              `json:"userEmail"`
	TrackingNumber    string              `json:"trackingNumber"`
	PaymentMethod     enums.PaymentMethod `json:"paymentMethod"`
	Items             []types.OrderItem   `json:"items"`
	Subtotal          int64               `json:"subtotal"`
	Shipping          int64               `json:"shipping"`
	Tax               int64               `json:"tax"`
	Total             int64               `json:"total"`
	EstimatedDelivery time.Time           `json:"estimatedDelivery"`
	PlacedAt          time.Time           `json:"placedAt"`
}
