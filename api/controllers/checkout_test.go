package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/storefront/storefronttest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubOrderService struct {
	placed  *orders.PlaceOrderInput
	listed  *orders.ListFilters
	params  pagination.Params
	err     error
	orderID uuid.UUID
}

func (s *stubOrderService) PlaceOrder(ctx context.Context, input orders.PlaceOrderInput) (*orders.OrderDTO, error) {
	s.placed = &input
	if s.err != nil {
		return nil, s.err
	}
	if len(input.Items) == 0 {
		return nil, orders.ErrEmptyCart
	}
	return &orders.OrderDTO{
		ID:             uuid.New(),
		Items:          input.Items,
		PaymentMethod:  input.PaymentMethod,
		Status:         enums.OrderStatusPending,
		TrackingNumber: "TRK000000001",
		OrderDate:      time.Now().UTC(),
	}, nil
}

func (s *stubOrderService) ListOrders(ctx context.Context, userID string, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	s.listed = &filters
	s.params = params
	return &orders.OrderList{Orders: []orders.OrderDTO{}}, s.err
}

func (s *stubOrderService) GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*orders.OrderDTO, error) {
	s.orderID = orderID
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{ID: orderID}, nil
}

func checkoutForm() map[string]string {
	return map[string]string{
		"email":     "asha@example.com",
		"firstName": "Asha",
		"lastName":  "Rao",
		"address":   "12 MG Road",
		"city":      "Bengaluru",
		"state":     "KA",
		"zipCode":   "560001",
		"phone":     "+919800000000",
	}
}

func TestCheckoutPlacesOrderAndClearsCart(t *testing.T) {
	fx := storefronttest.New(t)
	dev := fx.SignIn(t, "dev-1", "user-1")
	dev.Cart.AddLine(t.Context(), cart.Line{ProductID: "1", Name: "Tee", Price: 499, Size: "M", Quantity: 2})
	svc := &stubOrderService{}

	resp := httptest.NewRecorder()
	CheckoutPlaceOrder(svc, nil).ServeHTTP(resp, deviceRequest(http.MethodPost, "/api/v1/checkout", jsonBody(t, checkoutForm()), dev))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.placed == nil || svc.placed.UserID != "user-1" || svc.placed.DeviceID != "dev-1" {
		t.Fatalf("unexpected order input %+v", svc.placed)
	}
	if svc.placed.PaymentMethod != enums.PaymentMethodCard {
		t.Fatalf("expected default card payment, got %s", svc.placed.PaymentMethod)
	}
	if len(svc.placed.Items) != 1 || svc.placed.Items[0].Quantity != 2 || svc.placed.Items[0].Price != 499 {
		t.Fatalf("unexpected items %+v", svc.placed.Items)
	}
	if svc.placed.Address.FullName() != "Asha Rao" || svc.placed.Address.ZipCode != "560001" {
		t.Fatalf("unexpected address %+v", svc.placed.Address)
	}
	if got := decodeData[orders.OrderDTO](t, resp); got.TrackingNumber == "" {
		t.Fatalf("expected tracking number in response")
	}
	if dev.Cart.LineCount() != 0 {
		t.Fatalf("expected cart to be cleared after checkout")
	}
}

func TestCheckoutRequiresSignIn(t *testing.T) {
	fx := storefronttest.New(t)
	dev := fx.Device(t, "dev-1")
	svc := &stubOrderService{}

	resp := httptest.NewRecorder()
	CheckoutPlaceOrder(svc, nil).ServeHTTP(resp, deviceRequest(http.MethodPost, "/api/v1/checkout", jsonBody(t, checkoutForm()), dev))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if svc.placed != nil {
		t.Fatalf("order service must not be called for anonymous devices")
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	fx := storefronttest.New(t)
	dev := fx.SignIn(t, "dev-1", "user-1")

	resp := httptest.NewRecorder()
	CheckoutPlaceOrder(&stubOrderService{}, nil).ServeHTTP(resp, deviceRequest(http.MethodPost, "/api/v1/checkout", jsonBody(t, checkoutForm()), dev))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if got := decodeError(t, resp); got.Error.Code != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("unexpected code %s", got.Error.Code)
	}
}

func TestCheckoutValidatesForm(t *testing.T) {
	fx := storefronttest.New(t)
	dev := fx.SignIn(t, "dev-1", "user-1")
	dev.Cart.AddLine(t.Context(), cart.Line{ProductID: "1", Name: "Tee", Price: 499, Size: "M", Quantity: 1})

	cases := map[string]func(map[string]string){
		"missing city":   func(f map[string]string) { delete(f, "city") },
		"bad email":      func(f map[string]string) { f["email"] = "not-an-email" },
		"unknown method": func(f map[string]string) { f["paymentMethod"] = "bitcoin" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			form := checkoutForm()
			mutate(form)
			svc := &stubOrderService{}
			resp := httptest.NewRecorder()
			CheckoutPlaceOrder(svc, nil).ServeHTTP(resp, deviceRequest(http.MethodPost, "/api/v1/checkout", jsonBody(t, form), dev))
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", resp.Code)
			}
			if svc.placed != nil {
				t.Fatalf("invalid form must not reach the order service")
			}
		})
	}
	if dev.Cart.LineCount() != 1 {
		t.Fatalf("cart must survive failed checkouts")
	}
}

func TestCheckoutKeepsCartOnFailure(t *testing.T) {
	fx := storefronttest.New(t)
	dev := fx.SignIn(t, "dev-1", "user-1")
	dev.Cart.AddLine(t.Context(), cart.Line{ProductID: "1", Name: "Tee", Price: 499, Size: "M", Quantity: 1})
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeDependency, "place order")}

	resp := httptest.NewRecorder()
	CheckoutPlaceOrder(svc, nil).ServeHTTP(resp, deviceRequest(http.MethodPost, "/api/v1/checkout", jsonBody(t, checkoutForm()), dev))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if dev.Cart.LineCount() != 1 {
		t.Fatalf("cart must survive failed checkouts")
	}
}
