package controllers

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// QuickAddSize is the size used when a product is added from search results.
const QuickAddSize = "M"

type productFinder interface {
	Get(id string) (*catalog.Product, error)
}

type cartResponse struct {
	Lines     []cart.Line     `json:"lines"`
	Mode      enums.CartMode  `json:"mode"`
	Offline   bool            `json:"offline"`
	LineCount int             `json:"lineCount"`
	Total     int64           `json:"total"`
	Quote     checkout.Totals `json:"quote"`
}

func newCartResponse(c *cart.Container, policy checkout.Policy) cartResponse {
	snap := c.Snapshot()
	total := cart.Total(snap.Lines)
	return cartResponse{
		Lines:     snap.Lines,
		Mode:      snap.Mode,
		Offline:   snap.Offline,
		LineCount: cart.Count(snap.Lines),
		Total:     total,
		Quote:     policy.Compute(total),
	}
}

type addLineRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1,max=99"`
	QuickAdd  bool   `json:"quickAdd"`
}

type setQuantityRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Size      string `json:"size" validate:"required"`
	Quantity  int    `json:"quantity" validate:"max=99"`
}

// CartFetch returns the device's cart with its checkout quote.
func CartFetch(policy checkout.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dev, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, newCartResponse(dev.Cart, policy))
	}
}

// CartAddLine adds a catalog product to the cart. Name, price and image come
// from the catalog, never from the client.
func CartAddLine(products productFinder, policy checkout.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dev, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}

		var payload addLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := products.Get(payload.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := lineFromProduct(product, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dev.Cart.AddLine(r.Context(), line)
		responses.WriteSuccess(w, newCartResponse(dev.Cart, policy))
	}
}

func lineFromProduct(product *catalog.Product, payload addLineRequest) (cart.Line, error) {
	size := strings.TrimSpace(payload.Size)
	switch {
	case size == "" && payload.QuickAdd:
		size = QuickAddSize
	case size == "":
		return cart.Line{}, pkgerrors.New(pkgerrors.CodeValidation, "Please select a size").
			WithDetails(map[string]string{"size": "is required"})
	case len(product.Sizes) > 0 && !slices.Contains(product.Sizes, size):
		return cart.Line{}, pkgerrors.New(pkgerrors.CodeValidation, "size not available").
			WithDetails(map[string]any{"size": size, "available": product.Sizes})
	}

	qty := payload.Quantity
	if qty == 0 {
		qty = 1
	}
	return cart.Line{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.Image,
		Size:      size,
		Color:     strings.TrimSpace(payload.Color),
		Quantity:  qty,
	}, nil
}

// CartSetQuantity sets a line's quantity. Zero or less removes the line.
func CartSetQuantity(policy checkout.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dev, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}

		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dev.Cart.SetQuantity(r.Context(), payload.ProductID, payload.Size, payload.Quantity)
		responses.WriteSuccess(w, newCartResponse(dev.Cart, policy))
	}
}

// CartRemoveLine removes the line identified by the product_id and size query parameters.
func CartRemoveLine(policy checkout.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dev, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}

		query := r.URL.Query()
		productID := strings.TrimSpace(query.Get("product_id"))
		size := strings.TrimSpace(query.Get("size"))
		if productID == "" || size == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product_id and size are required"))
			return
		}

		dev.Cart.RemoveLine(r.Context(), productID, size)
		responses.WriteSuccess(w, newCartResponse(dev.Cart, policy))
	}
}

func CartClear(policy checkout.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dev, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		dev.Cart.Clear(r.Context())
		responses.WriteSuccess(w, newCartResponse(dev.Cart, policy))
	}
}
