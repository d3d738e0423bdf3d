package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func assertChronological(t *testing.T, events []Checkpoint) {
	t.Helper()
	seenPending := false
	var last time.Time
	for i, ev := range events {
		if !ev.Completed {
			seenPending = true
			continue
		}
		if seenPending {
			t.Fatalf("completed checkpoint %d (%s) follows a pending one", i, ev.Status)
		}
		if ev.At.Before(last) {
			t.Fatalf("checkpoint %d (%s) out of order", i, ev.Status)
		}
		last = ev.At
	}
}

func TestStaticCarrierDelivered(t *testing.T) {
	timeline, err := NewStaticCarrier().Track(context.Background(), "TRK123456789")
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if timeline.Status != "delivered" || len(timeline.Events) != 6 {
		t.Fatalf("unexpected timeline %+v", timeline)
	}
	for _, ev := range timeline.Events {
		if !ev.Completed {
			t.Fatalf("delivered shipment has pending checkpoint %s", ev.Status)
		}
	}
	assertChronological(t, timeline.Events)
}

func TestStaticCarrierShipped(t *testing.T) {
	timeline, err := NewStaticCarrier().Track(context.Background(), " trk987654321 ")
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if timeline.Status != "shipped" || len(timeline.Events) != 6 {
		t.Fatalf("unexpected timeline %+v", timeline)
	}
	completed := 0
	for _, ev := range timeline.Events {
		if ev.Completed {
			completed++
		}
	}
	if completed != 4 {
		t.Fatalf("expected 4 completed checkpoints, got %d", completed)
	}
	assertChronological(t, timeline.Events)
}

func TestStaticCarrierNotFound(t *testing.T) {
	if _, err := NewStaticCarrier().Track(context.Background(), "TRK000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStaticCarrierReturnsCopies(t *testing.T) {
	carrier := NewStaticCarrier()
	first, _ := carrier.Track(context.Background(), "TRK123456789")
	first.Events[0].Status = "mutated"
	second, _ := carrier.Track(context.Background(), "TRK123456789")
	if second.Events[0].Status != "Order Placed" {
		t.Fatalf("stored timeline was mutated")
	}
}

func TestNormalizeReordersEvents(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	in := &Timeline{Events: []Checkpoint{
		{Status: "pending-a"},
		{Status: "second", Completed: true, At: base.Add(time.Hour)},
		{Status: "pending-b"},
		{Status: "first", Completed: true, At: base},
	}}
	out := Normalize(in)
	want := []string{"first", "second", "pending-a", "pending-b"}
	for i, status := range want {
		if out.Events[i].Status != status {
			t.Fatalf("position %d: expected %s got %s", i, status, out.Events[i].Status)
		}
	}
	if in.Events[0].Status != "pending-a" {
		t.Fatalf("input must not be modified")
	}
	if Normalize(nil) != nil {
		t.Fatalf("nil timeline should stay nil")
	}
}

type stubCarrier struct {
	timeline *Timeline
	err      error
	calls    int
}

func (s *stubCarrier) Track(context.Context, string) (*Timeline, error) {
	s.calls++
	return s.timeline, s.err
}

func TestChainFallsThroughNotFound(t *testing.T) {
	miss := &stubCarrier{err: ErrNotFound}
	hit := &stubCarrier{timeline: &Timeline{TrackingNumber: "TRK1"}}
	never := &stubCarrier{err: errors.New("should not be called")}

	timeline, err := Chain(miss, nil, hit, never).Track(context.Background(), "TRK1")
	if err != nil || timeline.TrackingNumber != "TRK1" {
		t.Fatalf("unexpected result %+v err=%v", timeline, err)
	}
	if never.calls != 0 {
		t.Fatalf("chain should stop at the first hit")
	}

	if _, err := Chain(miss).Track(context.Background(), "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	boom := errors.New("carrier down")
	if _, err := Chain(&stubCarrier{err: boom}, hit).Track(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("expected carrier error to propagate, got %v", err)
	}
}

type stubFinder struct {
	order *models.Order
	err   error
}

func (s stubFinder) FindByTrackingNumber(context.Context, string) (*models.Order, error) {
	return s.order, s.err
}

func TestOrderCarrierDerivesTimeline(t *testing.T) {
	placed := time.Date(2026, 3, 2, 14, 5, 0, 0, time.UTC)
	order := &models.Order{
		ID:                uuid.New(),
		TrackingNumber:    "TRKABC123XYZ",
		Status:            enums.OrderStatusShipped,
		CreatedAt:         placed,
		EstimatedDelivery: placed.AddDate(0, 0, 5),
	}
	timeline, err := NewOrderCarrier(stubFinder{order: order}).Track(context.Background(), "trkabc123xyz")
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if timeline.Status != "shipped" || timeline.EstimatedDelivery != "2026-03-07" {
		t.Fatalf("unexpected timeline %+v", timeline)
	}
	if len(timeline.Events) != 5 || !timeline.Events[2].Completed || timeline.Events[3].Completed {
		t.Fatalf("unexpected checkpoints %+v", timeline.Events)
	}
	if timeline.CurrentLocation != "Distribution Center" {
		t.Fatalf("unexpected current location %s", timeline.CurrentLocation)
	}
	assertChronological(t, timeline.Events)
}

func TestOrderCarrierUnknownStatusShowsPending(t *testing.T) {
	order := &models.Order{ID: uuid.New(), Status: "mystery", CreatedAt: time.Now()}
	timeline, err := NewOrderCarrier(stubFinder{order: order}).Track(context.Background(), "x")
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if timeline.Status != "pending" || !timeline.Events[0].Completed || timeline.Events[1].Completed {
		t.Fatalf("unexpected timeline %+v", timeline)
	}
}

func TestOrderCarrierNotFound(t *testing.T) {
	carrier := NewOrderCarrier(stubFinder{err: gorm.ErrRecordNotFound})
	if _, err := carrier.Track(context.Background(), "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	boom := errors.New("db down")
	if _, err := NewOrderCarrier(stubFinder{err: boom}).Track(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestStaticFixtureTimestampsParse(t *testing.T) {
	for number, timeline := range NewStaticCarrier().shipments {
		for _, ev := range timeline.Events {
			if ev.Completed && ev.At.IsZero() {
				t.Fatalf("%s: checkpoint %s has no timestamp", number, ev.Status)
			}
		}
	}
}

func TestMustParseCheckpointPanicsOnTypo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for malformed fixture time")
		}
	}()
	mustParseCheckpoint("2024-01-32", "2:15 PM")
}
