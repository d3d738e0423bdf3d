package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

const (
	DefaultFreeShippingThreshold int64 = 2000
	DefaultFlatShippingFee       int64 = 200
	DefaultTaxRate                     = "0.18"
)

// Totals is the checkout breakdown shown in the cart and persisted on orders.
// All amounts are whole rupees.
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// Policy holds the shipping and tax parameters.
type Policy struct {
	FreeShippingThreshold int64
	FlatShippingFee       int64
	TaxRate               decimal.Decimal
}

// DefaultPolicy ships free strictly above 2000 and charges 18% tax.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		FlatShippingFee:       DefaultFlatShippingFee,
		TaxRate:               decimal.RequireFromString(DefaultTaxRate),
	}
}

// NewPolicy builds a policy from configuration.
func NewPolicy(cfg config.CheckoutConfig) (Policy, error) {
	rate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return Policy{}, fmt.Errorf("parse tax rate %q: %w", cfg.TaxRate, err)
	}
	if rate.IsNegative() {
		return Policy{}, fmt.Errorf("tax rate must be non-negative")
	}
	if cfg.FlatShippingFee < 0 || cfg.FreeShippingThreshold < 0 {
		return Policy{}, fmt.Errorf("shipping settings must be non-negative")
	}
	return Policy{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingFee:       cfg.FlatShippingFee,
		TaxRate:               rate,
	}, nil
}

// Compute derives shipping, tax, and total for subtotal. Tax is rounded half
// away from zero to the whole rupee.
func (p Policy) Compute(subtotal int64) Totals {
	shipping := p.FlatShippingFee
	if subtotal > p.FreeShippingThreshold {
		shipping = 0
	}
	tax := decimal.NewFromInt(subtotal).Mul(p.TaxRate).Round(0).IntPart()
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal + shipping + tax,
	}
}

// ComputeTotals applies the default policy.
func ComputeTotals(subtotal int64) Totals {
	return DefaultPolicy().Compute(subtotal)
}
