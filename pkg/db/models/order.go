package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is an append-only record of a placed checkout.
type Order struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID            string                `gorm:"column:user_id;type:text;not null"`
	UserEmail         string                `gorm:"column:user_email;type:text;not null"`
	UserName          string                `gorm:"column:user_name;type:text"`
	Items             []types.OrderItem     `gorm:"column:items;type:jsonb;serializer:json;not null"`
	ShippingAddress   types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	PaymentMethod     enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null"`
	Subtotal          int64                 `gorm:"column:subtotal;not null"`
	Shipping          int64                 `gorm:"column:shipping;not null"`
	Tax               int64                 `gorm:"column:tax;not null"`
	Total             int64                 `gorm:"column:total;not null"`
	Status            enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	TrackingNumber    string                `gorm:"column:tracking_number;type:text;not null;uniqueIndex"`
	EstimatedDelivery time.Time             `gorm:"column:estimated_delivery;not null"`
	CreatedAt         time.Time             `gorm:"column:created_at"`
}
