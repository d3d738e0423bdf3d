package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  user_email TEXT NOT NULL,
  user_name TEXT,
  items TEXT NOT NULL,
  shipping_address TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  subtotal INTEGER NOT NULL,
  shipping INTEGER NOT NULL,
  tax INTEGER NOT NULL,
  total INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  tracking_number TEXT NOT NULL UNIQUE,
  estimated_delivery DATETIME NOT NULL,
  created_at DATETIME
);`
	events := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	require.NoError(t, conn.Exec(orders).Error)
	require.NoError(t, conn.Exec(events).Error)
	return conn
}

func seedOrder(t *testing.T, conn *gorm.DB, userID, tracking string, status enums.OrderStatus, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		ID:                uuid.New(),
		UserID:            userID,
		UserEmail:         userID + "@example.com",
		Items:             []types.OrderItem{{ProductID: "4", Name: "Floral Wrap Dress", Price: 1299, Size: "S", Quantity: 1}},
		ShippingAddress:   types.ShippingAddress{FirstName: "Meera", City: "Pune"},
		PaymentMethod:     enums.PaymentMethodUPI,
		Subtotal:          1299,
		Shipping:          200,
		Tax:               234,
		Total:             1733,
		Status:            status,
		TrackingNumber:    tracking,
		EstimatedDelivery: createdAt.AddDate(0, 0, 5),
		CreatedAt:         createdAt,
	}
	require.NoError(t, NewRepository(conn).Create(context.Background(), &order))
	return order
}

func TestRepositoryFindScopesToUser(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	order := seedOrder(t, conn, "user-1", "TRKFIND00001", enums.OrderStatusPending, time.Now().UTC())

	found, err := repo.FindForUser(ctx, "user-1", order.ID)
	require.NoError(t, err)
	assert.Equal(t, "TRKFIND00001", found.TrackingNumber)
	assert.Equal(t, order.Items, found.Items)
	assert.Equal(t, "Pune", found.ShippingAddress.City)

	_, err = repo.FindForUser(ctx, "user-2", order.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	byNumber, err := repo.FindByTrackingNumber(ctx, "TRKFIND00001")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.ID)

	_, err = repo.FindByTrackingNumber(ctx, "TRKMISSING00")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryTrackingNumberIsUnique(t *testing.T) {
	conn := setupOrdersTestDB(t)
	seedOrder(t, conn, "user-1", "TRKDUPLICATE", enums.OrderStatusPending, time.Now().UTC())

	dup := models.Order{
		ID:                uuid.New(),
		UserID:            "user-2",
		UserEmail:         "user-2@example.com",
		Items:             []types.OrderItem{},
		PaymentMethod:     enums.PaymentMethodCard,
		Status:            enums.OrderStatusPending,
		TrackingNumber:    "TRKDUPLICATE",
		EstimatedDelivery: time.Now().UTC(),
	}
	err := NewRepository(conn).Create(context.Background(), &dup)
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, trackingNumberUniqueKey))
}

func TestRepositoryListForUserPagesNewestFirst(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	oldest := seedOrder(t, conn, "user-1", "TRKLIST00001", enums.OrderStatusDelivered, base)
	middle := seedOrder(t, conn, "user-1", "TRKLIST00002", enums.OrderStatusShipped, base.Add(time.Hour))
	newest := seedOrder(t, conn, "user-1", "TRKLIST00003", enums.OrderStatusPending, base.Add(2*time.Hour))
	seedOrder(t, conn, "user-2", "TRKLIST00004", enums.OrderStatusPending, base.Add(3*time.Hour))

	rows, err := repo.ListForUser(ctx, "user-1", pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, newest.ID, rows[0].ID)
	assert.Equal(t, middle.ID, rows[1].ID)

	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: rows[1].CreatedAt, ID: rows[1].ID})
	rows, err = repo.ListForUser(ctx, "user-1", pagination.Params{Limit: 2, Cursor: cursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, oldest.ID, rows[0].ID)

	shipped := enums.OrderStatusShipped
	rows, err = repo.ListForUser(ctx, "user-1", pagination.Params{}, ListFilters{Status: &shipped})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, middle.ID, rows[0].ID)
}

func TestPlaceOrderPersistsOrderAndOutboxEventTogether(t *testing.T) {
	conn := setupOrdersTestDB(t)
	seedOrder(t, conn, "user-9", "TRKTAKEN0001", enums.OrderStatusPending, time.Now().UTC())

	numbers := []string{"TRKTAKEN0001", "TRKFRESH0001"}
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Tx:     db.NewFromConn(conn),
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
		TrackingNumbers: func() (string, error) {
			n := numbers[0]
			numbers = numbers[1:]
			return n, nil
		},
	})
	require.NoError(t, err)

	order, err := svc.PlaceOrder(context.Background(), checkoutInput())
	require.NoError(t, err)
	assert.Equal(t, "TRKFRESH0001", order.TrackingNumber)

	var count int64
	require.NoError(t, conn.Model(&models.Order{}).Where("user_id = ?", "user-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, order.ID, events[0].AggregateID)
	assert.Equal(t, enums.EventOrderPlaced, events[0].EventType)
}

func TestRepositoryListOpenSkipsTerminalOrders(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	pending := seedOrder(t, conn, "user-1", "TRKOPEN00001", enums.OrderStatusPending, base)
	shipped := seedOrder(t, conn, "user-1", "TRKOPEN00002", enums.OrderStatusShipped, base.Add(time.Hour))
	seedOrder(t, conn, "user-1", "TRKOPEN00003", enums.OrderStatusDelivered, base.Add(2*time.Hour))
	seedOrder(t, conn, "user-2", "TRKOPEN00004", enums.OrderStatusCancelled, base.Add(3*time.Hour))

	rows, err := repo.ListOpen(context.Background(), nil, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, pending.ID, rows[0].ID)
	assert.Equal(t, shipped.ID, rows[1].ID)
}

func TestRepositoryListOpenPagesAfterCursor(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := seedOrder(t, conn, "user-1", "TRKPAGE00001", enums.OrderStatusPending, base)
	second := seedOrder(t, conn, "user-1", "TRKPAGE00002", enums.OrderStatusProcessing, base.Add(time.Minute))
	third := seedOrder(t, conn, "user-2", "TRKPAGE00003", enums.OrderStatusShipped, base.Add(2*time.Minute))

	page, err := repo.ListOpen(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, first.ID, page[0].ID)
	assert.Equal(t, second.ID, page[1].ID)

	page, err = repo.ListOpen(ctx, &pagination.Cursor{CreatedAt: second.CreatedAt, ID: second.ID}, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, third.ID, page[0].ID)
}

func TestRepositoryUpdateStatusIsConditional(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	order := seedOrder(t, conn, "user-1", "TRKSTATUS001", enums.OrderStatusPending, time.Now().UTC())

	changed, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusProcessing)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusShipped)
	require.NoError(t, err)
	assert.False(t, changed)

	found, err := repo.FindForUser(ctx, "user-1", order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, found.Status)
}
