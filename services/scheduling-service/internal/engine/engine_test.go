package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/clock"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/memstore"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
)

// recordingDispatcher captures emitted lifecycle events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []model.LifecycleEvent
}

func (d *recordingDispatcher) Dispatch(_ context.Context, evt model.LifecycleEvent) {
	d.mu.Lock()
	d.events = append(d.events, evt)
	d.mu.Unlock()
}

func (d *recordingDispatcher) statuses() []model.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.Status, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Status)
	}
	return out
}

// testNow is the pinned clock instant for all engine tests.
var testNow = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

type fixture struct {
	engine     *Engine
	catalog    *memstore.Catalog
	ledger     *memstore.Ledger
	avail      *memstore.Availability
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		catalog:    memstore.NewCatalog(),
		ledger:     memstore.NewLedger(),
		avail:      memstore.NewAvailability(),
		dispatcher: &recordingDispatcher{},
	}
	f.engine = New(Config{
		Catalog:      f.catalog,
		Availability: f.avail,
		Ledger:       f.ledger,
		Dispatcher:   f.dispatcher,
		Clock:        clock.NewFixed(testNow),
	})

	ctx := context.Background()
	must(t, f.catalog.PutBusiness(ctx, model.Business{
		ID: "biz-1", Name: "Studio One", OwnerID: "owner-1", Approved: true,
	}))
	must(t, f.catalog.PutService(ctx, model.Service{
		ID: "svc-1", BusinessID: "biz-1", Name: "Cut", DurationMins: 30, PriceCents: 2500, Active: true,
	}))
	return f
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func date(y int, m time.Month, d int) model.Date {
	return model.Date{Year: y, Month: m, Day: d}
}

func slots(t *testing.T, ss ...string) []model.TimeOfDay {
	t.Helper()
	out := make([]model.TimeOfDay, 0, len(ss))
	for _, s := range ss {
		v, err := model.ParseTimeOfDay(s)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, v)
	}
	return out
}

func (f *fixture) declare(t *testing.T, staffID string, d model.Date, ss ...string) {
	t.Helper()
	must(t, f.engine.SetAvailability(context.Background(), "biz-1", staffID, d, slots(t, ss...)))
}

func (f *fixture) book(t *testing.T, staffID string, d model.Date, slot string, customerID string) model.Appointment {
	t.Helper()
	s, err := model.ParseTimeOfDay(slot)
	if err != nil {
		t.Fatal(err)
	}
	appt, err := f.engine.RequestBooking(context.Background(), BookingRequest{
		BusinessID: "biz-1",
		ServiceID:  "svc-1",
		StaffID:    staffID,
		Date:       d,
		Slot:       s,
		CustomerID: customerID,
	})
	if err != nil {
		t.Fatal(err)
	}
	return appt
}

func TestBookingLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := date(2026, time.March, 10)
	f.declare(t, "", d, "09:00", "09:15", "09:30")

	appt := f.book(t, "", d, "09:15", "cust-1")
	if appt.Status != model.StatusPending {
		t.Fatalf("status = %s, want pending", appt.Status)
	}
	if appt.ProviderID != model.ImplicitProviderID {
		t.Fatalf("provider = %q, want implicit", appt.ProviderID)
	}

	// The held slot disappears from the open set.
	res, err := f.engine.Slots(ctx, SlotsQuery{BusinessID: "biz-1", ServiceID: "svc-1", Date: d})
	must(t, err)
	if len(res.Slots) != 2 {
		t.Fatalf("open slots = %v", res.Slots)
	}
	if res.Closed() {
		t.Fatal("day with declared slots must not read closed")
	}

	// Owner approves; the claim persists.
	confirmed, err := f.engine.Transition(ctx, appt.ID, model.ActionApprove, Actor{BusinessID: "biz-1"})
	must(t, err)
	if confirmed.Status != model.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", confirmed.Status)
	}

	_, err = f.engine.RequestBooking(ctx, BookingRequest{
		BusinessID: "biz-1", ServiceID: "svc-1", Date: d,
		Slot: slots(t, "09:15")[0], CustomerID: "cust-2",
	})
	if !errors.Is(err, model.ErrSlotConflict) {
		t.Fatalf("expected conflict on confirmed slot, got %v", err)
	}

	// Customer cancels; the slot frees.
	cancelled, err := f.engine.Transition(ctx, appt.ID, model.ActionCancel, Actor{CustomerID: "cust-1"})
	must(t, err)
	if cancelled.Status != model.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
	f.book(t, "", d, "09:15", "cust-2")

	got := f.dispatcher.statuses()
	want := []model.Status{model.StatusPending, model.StatusConfirmed, model.StatusCancelled, model.StatusPending}
	if len(got) != len(want) {
		t.Fatalf("events = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

// captureLedger wraps the in-memory ledger and records the lifecycle event
// handed to each mutation, mirroring what a durable ledger would commit
// alongside the write.
type captureLedger struct {
	*memstore.Ledger
	mu     sync.Mutex
	events []model.LifecycleEvent
}

func (l *captureLedger) Claim(ctx context.Context, appt model.Appointment, evt model.LifecycleEvent) (model.Appointment, error) {
	appt, err := l.Ledger.Claim(ctx, appt, evt)
	if err == nil {
		l.mu.Lock()
		l.events = append(l.events, evt)
		l.mu.Unlock()
	}
	return appt, err
}

func (l *captureLedger) Transition(ctx context.Context, id string, from []model.Status, to model.Status, evt model.LifecycleEvent) (model.Appointment, error) {
	appt, err := l.Ledger.Transition(ctx, id, from, to, evt)
	if err == nil {
		l.mu.Lock()
		l.events = append(l.events, evt)
		l.mu.Unlock()
	}
	return appt, err
}

// The event describing a booking or transition must reach the ledger as part
// of the mutation call, fully populated, so a durable ledger can persist both
// in one transaction instead of emitting after the fact.
func TestLifecycleEventRidesWithMutation(t *testing.T) {
	ctx := context.Background()
	catalog := memstore.NewCatalog()
	avail := memstore.NewAvailability()
	ledger := &captureLedger{Ledger: memstore.NewLedger()}
	eng := New(Config{
		Catalog:      catalog,
		Availability: avail,
		Ledger:       ledger,
		Clock:        clock.NewFixed(testNow),
	})

	must(t, catalog.PutBusiness(ctx, model.Business{
		ID: "biz-1", Name: "Studio One", OwnerID: "owner-1", Approved: true,
	}))
	must(t, catalog.PutService(ctx, model.Service{
		ID: "svc-1", BusinessID: "biz-1", Name: "Cut", DurationMins: 30, Active: true,
	}))
	d := date(2026, time.March, 10)
	must(t, eng.SetAvailability(ctx, "biz-1", "", d, slots(t, "09:00")))

	appt, err := eng.RequestBooking(ctx, BookingRequest{
		BusinessID: "biz-1", ServiceID: "svc-1", Date: d,
		Slot: 9 * 60, CustomerID: "cust-1", CustomerName: "Dana",
	})
	must(t, err)

	if len(ledger.events) != 1 {
		t.Fatalf("events = %d, want 1", len(ledger.events))
	}
	evt := ledger.events[0]
	if evt.AppointmentID != appt.ID || evt.Status != model.StatusPending {
		t.Fatalf("claim event = %+v", evt)
	}
	if evt.OwnerID != "owner-1" || evt.BusinessName != "Studio One" {
		t.Fatalf("claim event missing owner routing: %+v", evt)
	}
	if evt.CustomerName != "Dana" || evt.Date != d || evt.Slot != 9*60 {
		t.Fatalf("claim event payload = %+v", evt)
	}

	_, err = eng.Transition(ctx, appt.ID, model.ActionApprove, Actor{BusinessID: "biz-1"})
	must(t, err)
	if len(ledger.events) != 2 {
		t.Fatalf("events = %d, want 2", len(ledger.events))
	}
	if evt := ledger.events[1]; evt.Status != model.StatusConfirmed || evt.AppointmentID != appt.ID {
		t.Fatalf("transition event = %+v", evt)
	}

	// A losing claim records nothing.
	_, err = eng.RequestBooking(ctx, BookingRequest{
		BusinessID: "biz-1", ServiceID: "svc-1", Date: d,
		Slot: 9 * 60, CustomerID: "cust-2",
	})
	if !errors.Is(err, model.ErrSlotConflict) {
		t.Fatalf("got %v", err)
	}
	if len(ledger.events) != 2 {
		t.Fatalf("conflict must not record an event, got %d", len(ledger.events))
	}
}

func TestConcurrentBookingExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	d := date(2026, time.March, 10)
	f.declare(t, "", d, "09:00")

	const racers = 32
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.RequestBooking(context.Background(), BookingRequest{
				BusinessID: "biz-1", ServiceID: "svc-1", Date: d,
				Slot: 9 * 60, CustomerID: "cust",
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, model.ErrSlotConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want 1", wins)
	}
}

func TestDeclineFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := date(2026, time.March, 10)
	f.declare(t, "", d, "09:00")

	appt := f.book(t, "", d, "09:00", "cust-1")
	_, err := f.engine.Transition(ctx, appt.ID, model.ActionDecline, Actor{BusinessID: "biz-1"})
	must(t, err)

	f.book(t, "", d, "09:00", "cust-2")
}

func TestBookingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := date(2026, time.March, 10)
	f.declare(t, "", d, "09:00")

	cases := []struct {
		name string
		req  BookingRequest
		want error
	}{
		{
			name: "undeclared slot",
			req:  BookingRequest{BusinessID: "biz-1", ServiceID: "svc-1", Date: d, Slot: 10 * 60, CustomerID: "c"},
			want: model.ErrSlotNotOffered,
		},
		{
			name: "off-grid slot",
			req:  BookingRequest{BusinessID: "biz-1", ServiceID: "svc-1", Date: d, Slot: 9*60 + 10, CustomerID: "c"},
			want: model.ErrSlotNotOffered,
		},
		{
			name: "past date",
			req:  BookingRequest{BusinessID: "biz-1", ServiceID: "svc-1", Date: date(2026, time.March, 1), Slot: 9 * 60, CustomerID: "c"},
			want: model.ErrOutOfRange,
		},
		{
			name: "beyond horizon",
			req:  BookingRequest{BusinessID: "biz-1", ServiceID: "svc-1", Date: date(2026, time.October, 1), Slot: 9 * 60, CustomerID: "c"},
			want: model.ErrOutOfRange,
		},
		{
			name: "unknown business",
			req:  BookingRequest{BusinessID: "nope", ServiceID: "svc-1", Date: d, Slot: 9 * 60, CustomerID: "c"},
			want: model.ErrNotFound,
		},
		{
			name: "unknown service",
			req:  BookingRequest{BusinessID: "biz-1", ServiceID: "nope", Date: d, Slot: 9 * 60, CustomerID: "c"},
			want: model.ErrNotFound,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.engine.RequestBooking(ctx, c.req)
			if !errors.Is(err, c.want) {
				t.Fatalf("got %v, want %v", err, c.want)
			}
		})
	}
}

func TestBookingUnapprovedBusiness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	must(t, f.catalog.SetApproved(ctx, "biz-1", false))
	d := date(2026, time.March, 10)
	f.declare(t, "", d, "09:00")

	_, err := f.engine.RequestBooking(ctx, BookingRequest{
		BusinessID: "biz-1", ServiceID: "svc-1", Date: d, Slot: 9 * 60, CustomerID: "c",
	})
	if !errors.Is(err, model.ErrBusinessNotApproved) {
		t.Fatalf("got %v", err)
	}
}

func TestBookingInactiveService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	must(t, f.catalog.PutService(ctx, model.Service{
		ID: "svc-off", BusinessID: "biz-1", Name: "Retired", DurationMins: 30, Active: false,
	}))
	d := date(2026, time.March, 10)
	f.declare(t, "", d, "09:00")

	_, err := f.engine.RequestBooking(ctx, BookingRequest{
		BusinessID: "biz-1", ServiceID: "svc-off", Date: d, Slot: 9 * 60, CustomerID: "c",
	})
	if !errors.Is(err, model.ErrServiceInactive) {
		t.Fatalf("got %v", err)
	}
}

func TestSameDayPastSlotsFiltered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := model.DateOf(testNow) // clock reads 12:00
	f.declare(t, "", today, "09:00", "12:00", "14:00")

	res, err := f.engine.Slots(ctx, SlotsQuery{BusinessID: "biz-1", ServiceID: "svc-1", Date: today})
	must(t, err)
	if len(res.Slots) != 1 || res.Slots[0] != 14*60 {
		t.Fatalf("open = %v, want [14:00]", res.Slots)
	}

	// Booking a started slot is out of range even though it is declared.
	_, err = f.engine.RequestBooking(ctx, BookingRequest{
		BusinessID: "biz-1", ServiceID: "svc-1", Date: today, Slot: 12 * 60, CustomerID: "c",
	})
	if !errors.Is(err, model.ErrOutOfRange) {
		t.Fatalf("got %v", err)
	}
}

func TestSlotsBeyondHorizonEmptyNotError(t *testing.T) {
	f := newFixture(t)
	res, err := f.engine.Slots(context.Background(), SlotsQuery{
		BusinessID: "biz-1", ServiceID: "svc-1", Date: date(2026, time.December, 1),
	})
	must(t, err)
	if len(res.Slots) != 0 {
		t.Fatalf("open = %v", res.Slots)
	}
}

func TestStaffResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := date(2026, time.March, 10)

	must(t, f.catalog.PutStaff(ctx, model.Staff{
		ID: "staff-a", BusinessID: "biz-1", Name: "A", ServiceIDs: []string{"svc-1"},
	}))
	must(t, f.catalog.PutStaff(ctx, model.Staff{
		ID: "staff-b", BusinessID: "biz-1", Name: "B", ServiceIDs: []string{"other"},
	}))
	f.declare(t, "staff-a", d, "09:00")

	// Only one staff member is qualified, so no staff_id is needed.
	appt := f.book(t, "", d, "09:00", "cust-1")
	if appt.ProviderID != "staff-a" {
		t.Fatalf("provider = %q, want staff-a", appt.ProviderID)
	}

	// An unqualified explicit staff member is rejected.
	_, err := f.engine.RequestBooking(ctx, BookingRequest{
		BusinessID: "biz-1", ServiceID: "svc-1", StaffID: "staff-b",
		Date: d, Slot: 9 * 60, CustomerID: "c",
	})
	if !errors.Is(err, model.ErrNotQualified) {
		t.Fatalf("got %v", err)
	}

	// Two qualified members force the caller to choose.
	must(t, f.catalog.PutStaff(ctx, model.Staff{
		ID: "staff-c", BusinessID: "biz-1", Name: "C", ServiceIDs: []string{"svc-1"},
	}))
	_, err = f.engine.RequestBooking(ctx, BookingRequest{
		BusinessID: "biz-1", ServiceID: "svc-1",
		Date: d, Slot: 9 * 60, CustomerID: "c",
	})
	if !errors.Is(err, model.ErrStaffRequired) {
		t.Fatalf("got %v", err)
	}
}

func TestTransitionAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := date(2026, time.March, 10)
	f.declare(t, "", d, "09:00")
	appt := f.book(t, "", d, "09:00", "cust-1")

	// Customers cannot approve.
	_, err := f.engine.Transition(ctx, appt.ID, model.ActionApprove, Actor{CustomerID: "cust-1"})
	if !errors.Is(err, model.ErrNotAllowed) {
		t.Fatalf("got %v", err)
	}

	// A different business cannot act at all.
	_, err = f.engine.Transition(ctx, appt.ID, model.ActionCancel, Actor{BusinessID: "biz-2"})
	if !errors.Is(err, model.ErrNotAllowed) {
		t.Fatalf("got %v", err)
	}

	// A different customer cannot cancel.
	_, err = f.engine.Transition(ctx, appt.ID, model.ActionCancel, Actor{CustomerID: "cust-2"})
	if !errors.Is(err, model.ErrNotAllowed) {
		t.Fatalf("got %v", err)
	}

	// The owner can cancel.
	_, err = f.engine.Transition(ctx, appt.ID, model.ActionCancel, Actor{BusinessID: "biz-1"})
	must(t, err)
}

func TestTransitionFromTerminalState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := date(2026, time.March, 10)
	f.declare(t, "", d, "09:00")
	appt := f.book(t, "", d, "09:00", "cust-1")

	_, err := f.engine.Transition(ctx, appt.ID, model.ActionDecline, Actor{BusinessID: "biz-1"})
	must(t, err)

	for _, action := range []model.Action{model.ActionApprove, model.ActionDecline, model.ActionCancel} {
		_, err := f.engine.Transition(ctx, appt.ID, action, Actor{BusinessID: "biz-1"})
		if !errors.Is(err, model.ErrInvalidTransition) {
			t.Fatalf("%s after decline: got %v", action, err)
		}
	}
}

func TestTransitionNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Transition(context.Background(), "missing", model.ActionCancel, Actor{BusinessID: "biz-1"})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

// Narrowing availability after a booking neither cancels the appointment nor
// resurfaces the slot.
func TestNarrowingKeepsBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := date(2026, time.March, 10)
	f.declare(t, "", d, "09:00", "09:30")
	appt := f.book(t, "", d, "09:00", "cust-1")

	f.declare(t, "", d) // owner clears the day

	got, err := f.engine.Appointment(ctx, appt.ID)
	must(t, err)
	if got.Status != model.StatusPending {
		t.Fatalf("status = %s", got.Status)
	}

	res, err := f.engine.Slots(ctx, SlotsQuery{BusinessID: "biz-1", ServiceID: "svc-1", Date: d})
	must(t, err)
	if len(res.Slots) != 0 {
		t.Fatalf("open = %v", res.Slots)
	}
	if !res.Closed() {
		t.Fatal("cleared day should read closed")
	}
}

func TestSetAvailabilityValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := date(2026, time.March, 10)

	if err := f.engine.SetAvailability(ctx, "nope", "", d, slots(t, "09:00")); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("unknown business: got %v", err)
	}
	if err := f.engine.SetAvailability(ctx, "biz-1", "ghost", d, slots(t, "09:00")); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("unknown staff: got %v", err)
	}
	if err := f.engine.SetAvailability(ctx, "biz-1", "", d, []model.TimeOfDay{9*60 + 10}); !errors.Is(err, model.ErrSlotNotOffered) {
		t.Fatalf("off-grid slot: got %v", err)
	}
}

func TestAvailabilityLastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := date(2026, time.March, 10)

	f.declare(t, "", d, "09:00", "09:30")
	f.declare(t, "", d, "14:00")

	declared, err := f.engine.Availability(ctx, "biz-1", "", d)
	must(t, err)
	if len(declared) != 1 || declared[0] != 14*60 {
		t.Fatalf("declared = %v, want [14:00]", declared)
	}
}
