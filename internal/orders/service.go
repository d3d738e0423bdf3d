package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrEmptyCart is returned when checkout is attempted with no cart lines.
var ErrEmptyCart = errors.New("cart is empty")

const (
	defaultDeliveryDays     = 5
	maxTrackingAttempts     = 5
	trackingNumberUniqueKey = "tracking_number"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Metrics records order placement.
type Metrics interface {
	OrderPlaced(paymentMethod string)
}

// Service defines checkout and order history operations.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error)
	ListOrders(ctx context.Context, userID string, params pagination.Params, filters ListFilters) (*OrderList, error)
	GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*OrderDTO, error)
}

// ServiceParams wires the order service. Policy defaults to checkout.DefaultPolicy.
type ServiceParams struct {
	Repo            Repository
	Tx              txRunner
	Outbox          outboxPublisher
	Policy          *checkout.Policy
	DeliveryDays    int
	Metrics         Metrics
	Logger          *logger.Logger
	Clock           func() time.Time
	TrackingNumbers func() (string, error)
}

type service struct {
	repo            Repository
	tx              txRunner
	outbox          outboxPublisher
	policy          checkout.Policy
	deliveryDays    int
	metrics         Metrics
	logg            *logger.Logger
	now             func() time.Time
	trackingNumbers func() (string, error)
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	policy := checkout.DefaultPolicy()
	if params.Policy != nil {
		policy = *params.Policy
	}
	days := params.DeliveryDays
	if days <= 0 {
		days = defaultDeliveryDays
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	numbers := params.TrackingNumbers
	if numbers == nil {
		numbers = NewTrackingNumber
	}
	return &service{
		repo:            params.Repo,
		tx:              params.Tx,
		outbox:          params.Outbox,
		policy:          policy,
		deliveryDays:    days,
		metrics:         params.Metrics,
		logg:            params.Logger,
		now:             clock,
		trackingNumbers: numbers,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to place an order")
	}
	if len(input.Items) == 0 {
		return nil, ErrEmptyCart
	}
	var subtotal int64
	for _, item := range input.Items {
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1").
				WithDetails(map[string]any{"productId": item.ProductID, "size": item.Size})
		}
		if item.Price < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price must be non-negative").
				WithDetails(map[string]any{"productId": item.ProductID})
		}
		subtotal += item.LineTotal()
	}
	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCard
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}

	totals := s.policy.Compute(subtotal)
	placedAt := s.now().UTC()
	email := input.UserEmail
	if email == "" {
		email = input.Address.Email
	}
	name := input.UserName
	if name == "" {
		name = input.Address.FullName()
	}

	order := models.Order{
		UserID:            input.UserID,
		UserEmail:         email,
		UserName:          name,
		Items:             input.Items,
		ShippingAddress:   input.Address,
		PaymentMethod:     method,
		Subtotal:          totals.Subtotal,
		Shipping:          totals.Shipping,
		Tax:               totals.Tax,
		Total:             totals.Total,
		Status:            enums.OrderStatusPending,
		EstimatedDelivery: placedAt.AddDate(0, 0, s.deliveryDays),
		CreatedAt:         placedAt,
	}

	var lastErr error
	for attempt := 1; attempt <= maxTrackingAttempts; attempt++ {
		number, err := s.trackingNumbers()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate tracking number")
		}
		order.ID = uuid.New()
		order.TrackingNumber = number

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).Create(ctx, &order); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, s.placedEvent(order, input.DeviceID))
		})
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		if !db.IsUniqueViolation(err, trackingNumberUniqueKey) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place order")
		}
		s.warn(ctx, "orders.tracking_number_collision", map[string]any{"attempt": attempt})
	}
	if lastErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "could not allocate a tracking number")
	}

	if s.metrics != nil {
		s.metrics.OrderPlaced(method.String())
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, order.UserID), map[string]any{
			"order_id":        order.ID.String(),
			"tracking_number": order.TrackingNumber,
			"total":           order.Total,
		})
		s.logg.Info(logCtx, "orders.placed")
	}

	dto := FromModel(order)
	return &dto, nil
}

func (s *service) placedEvent(order models.Order, deviceID string) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		OccurredAt:    order.CreatedAt,
		Actor:         &outbox.ActorRef{UserID: order.UserID, DeviceID: deviceID},
		Data: payloads.OrderPlacedEvent{
			OrderID:           order.ID,
			UserID:            order.UserID,
			UserEmail:         order.UserEmail,
			TrackingNumber:    order.TrackingNumber,
			PaymentMethod:     order.PaymentMethod,
			Items:             order.Items,
			Subtotal:          order.Subtotal,
			Shipping:          order.Shipping,
			Tax:               order.Tax,
			Total:             order.Total,
			EstimatedDelivery: order.EstimatedDelivery,
			PlacedAt:          order.CreatedAt,
		},
	}
}

func (s *service) ListOrders(ctx context.Context, userID string, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to view orders")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListForUser(ctx, userID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page, more := pagination.Trim(rows, params.Limit)

	list := &OrderList{Orders: make([]OrderDTO, 0, len(page))}
	for _, row := range page {
		list.Orders = append(list.Orders, FromModel(row))
	}
	if more {
		last := page[len(page)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

func (s *service) GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*OrderDTO, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to view orders")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindForUser(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	dto := FromModel(*order)
	return &dto, nil
}

func (s *service) warn(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), msg)
}
