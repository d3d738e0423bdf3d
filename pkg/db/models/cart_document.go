package models

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// CartDocument is the signed-in user's remote cart. Writes only ever touch
// items and updated_at.
type CartDocument struct {
	UserID    string           `gorm:"column:user_id;type:text;primaryKey"`
	Items     []types.CartItem `gorm:"column:items;type:jsonb;serializer:json;not null"`
	UpdatedAt time.Time        `gorm:"column:updated_at"`
}

func (CartDocument) TableName() string { return "carts" }
