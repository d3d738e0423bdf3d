package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Storefront records the business counters exported on /metrics.
type Storefront struct {
	cartModes       *prometheus.CounterVec
	signIns         *prometheus.CounterVec
	ordersPlaced    *prometheus.CounterVec
	outboxPublishes *prometheus.CounterVec
	publishDuration *prometheus.HistogramVec
}

// NewStorefront registers the storefront metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	cartModes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mode_transitions_total",
		Help: "Cart container transitions into each storage mode.",
	}, []string{"mode"})
	signIns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_sign_ins_total",
		Help: "Sign-in attempts by outcome.",
	}, []string{"status"})
	ordersPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Orders placed by payment method.",
	}, []string{"payment_method"})
	outboxPublishes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_outbox_publishes_total",
		Help: "Outbox publish attempts by result.",
	}, []string{"event_type", "result"})
	publishDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_outbox_publish_duration_seconds",
		Help:    "Duration of outbox publish calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	reg.MustRegister(cartModes, signIns, ordersPlaced, outboxPublishes, publishDuration)
	return &Storefront{
		cartModes:       cartModes,
		signIns:         signIns,
		ordersPlaced:    ordersPlaced,
		outboxPublishes: outboxPublishes,
		publishDuration: publishDuration,
	}
}

// CartModeChanged counts a cart container entering mode.
func (s *Storefront) CartModeChanged(mode string) {
	if s == nil || s.cartModes == nil {
		return
	}
	s.cartModes.WithLabelValues(normalizeLabel(mode)).Inc()
}

// SignIn counts a sign-in outcome.
func (s *Storefront) SignIn(status string) {
	if s == nil || s.signIns == nil {
		return
	}
	s.signIns.WithLabelValues(normalizeLabel(status)).Inc()
}

// OrderPlaced counts a placed order.
func (s *Storefront) OrderPlaced(paymentMethod string) {
	if s == nil || s.ordersPlaced == nil {
		return
	}
	s.ordersPlaced.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// OutboxPublished records a publish attempt and its duration.
func (s *Storefront) OutboxPublished(eventType string, duration time.Duration, err error) {
	if s == nil || s.outboxPublishes == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	eventType = normalizeLabel(eventType)
	s.outboxPublishes.WithLabelValues(eventType, result).Inc()
	s.publishDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
