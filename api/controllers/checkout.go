package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type checkoutRequest struct {
	Email         string `json:"email" validate:"required,email"`
	FirstName     string `json:"firstName" validate:"required,max=64"`
	LastName      string `json:"lastName" validate:"required,max=64"`
	Address       string `json:"address" validate:"required,max=256"`
	City          string `json:"city" validate:"required,max=64"`
	State         string `json:"state" validate:"required,max=64"`
	ZipCode       string `json:"zipCode" validate:"required,max=16"`
	Phone         string `json:"phone" validate:"required,max=20"`
	PaymentMethod string `json:"paymentMethod" validate:"omitempty,oneof=card upi cod"`
}

func (c checkoutRequest) address() types.ShippingAddress {
	return types.ShippingAddress{
		FirstName: strings.TrimSpace(c.FirstName),
		LastName:  strings.TrimSpace(c.LastName),
		Email:     strings.TrimSpace(c.Email),
		Phone:     strings.TrimSpace(c.Phone),
		Address:   strings.TrimSpace(c.Address),
		City:      strings.TrimSpace(c.City),
		State:     strings.TrimSpace(c.State),
		ZipCode:   strings.TrimSpace(c.ZipCode),
	}
}

// CheckoutPlaceOrder turns the signed-in device's cart into an order and
// empties the cart once the order is stored.
func CheckoutPlaceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		dev, user, ok := requireUser(w, r, logg, "checkout")
		if !ok {
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment method"))
			return
		}

		snap := dev.Cart.Snapshot()
		order, err := svc.PlaceOrder(r.Context(), orders.PlaceOrderInput{
			UserID:        user.ID,
			UserEmail:     user.Email,
			UserName:      user.DisplayName,
			DeviceID:      dev.ID,
			Items:         cart.ToOrderItems(snap.Lines),
			Address:       payload.address(),
			PaymentMethod: method,
		})
		if err != nil {
			if errors.Is(err, orders.ErrEmptyCart) {
				err = pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "your cart is empty")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dev.Cart.Clear(r.Context())
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
