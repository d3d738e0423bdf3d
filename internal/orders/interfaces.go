package orders

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindForUser(ctx context.Context, userID string, orderID uuid.UUID) (*models.Order, error)
	FindByTrackingNumber(ctx context.Context, number string) (*models.Order, error)
	ListForUser(ctx context.Context, userID string, params pagination.Params, filters ListFilters) ([]models.Order, error)
	ListOpen(ctx context.Context, after *pagination.Cursor, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error)
}
