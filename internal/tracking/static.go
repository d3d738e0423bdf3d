package tracking

import (
	"context"
	"fmt"
	"time"
)

const checkpointLayout = "2006-01-02 3:04 PM"

// StaticCarrier serves a fixed table of demo shipments.
type StaticCarrier struct {
	shipments map[string]Timeline
}

// NewStaticCarrier returns a carrier preloaded with the demo shipments.
func NewStaticCarrier() *StaticCarrier {
	return &StaticCarrier{shipments: map[string]Timeline{
		"TRK123456789": {
			TrackingNumber:    "TRK123456789",
			OrderID:           "ORD-2024-001",
			Status:            "delivered",
			CurrentLocation:   "Delivered to Customer",
			EstimatedDelivery: "2024-01-18",
			Events: []Checkpoint{
				done("Order Placed", "Online Store", "2024-01-15", "10:30 AM", "Your order has been placed successfully"),
				done("Order Confirmed", "Warehouse - Mumbai", "2024-01-15", "11:00 AM", "Order confirmed and being prepared for shipment"),
				done("Shipped", "Mumbai Distribution Center", "2024-01-16", "2:00 PM", "Package shipped from warehouse"),
				done("In Transit", "Delhi Hub", "2024-01-17", "8:00 AM", "Package in transit to destination city"),
				done("Out for Delivery", "Local Delivery Center - Delhi", "2024-01-18", "9:00 AM", "Package out for delivery"),
				done("Delivered", "123 Main Street, Delhi", "2024-01-18", "3:30 PM", "Package delivered successfully"),
			},
		},
		"TRK987654321": {
			TrackingNumber:    "TRK987654321",
			OrderID:           "ORD-2024-002",
			Status:            "shipped",
			CurrentLocation:   "In Transit - Chennai Hub",
			EstimatedDelivery: "2024-01-22",
			Events: []Checkpoint{
				done("Order Placed", "Online Store", "2024-01-20", "2:15 PM", "Your order has been placed successfully"),
				done("Order Confirmed", "Warehouse - Bangalore", "2024-01-20", "2:45 PM", "Order confirmed and being prepared for shipment"),
				done("Shipped", "Bangalore Distribution Center", "2024-01-21", "10:00 AM", "Package shipped from warehouse"),
				done("In Transit", "Chennai Hub", "2024-01-21", "6:00 PM", "Package in transit to destination city"),
				{Status: "Out for Delivery", Location: "Local Delivery Center", Description: "Package will be out for delivery soon"},
				{Status: "Delivered", Description: "Package will be delivered"},
			},
		},
	}}
}

func done(status, location, date, clock, description string) Checkpoint {
	at := mustParseCheckpoint(date, clock)
	return Checkpoint{
		Status:      status,
		Location:    location,
		Date:        date,
		Time:        clock,
		Completed:   true,
		Description: description,
		At:          at,
	}
}

// mustParseCheckpoint panics on a malformed fixture date so a typo fails at
// startup instead of producing a zero timestamp.
func mustParseCheckpoint(date, clock string) time.Time {
	at, err := time.Parse(checkpointLayout, date+" "+clock)
	if err != nil {
		panic(fmt.Sprintf("tracking fixture checkpoint %q %q: %v", date, clock, err))
	}
	return at
}

// Track returns a copy of the stored timeline.
func (s *StaticCarrier) Track(_ context.Context, number string) (*Timeline, error) {
	timeline, ok := s.shipments[NormalizeNumber(number)]
	if !ok {
		return nil, ErrNotFound
	}
	events := make([]Checkpoint, len(timeline.Events))
	copy(events, timeline.Events)
	timeline.Events = events
	return &timeline, nil
}
