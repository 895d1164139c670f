// Package engine orchestrates slot computation, booking and lifecycle
// transitions over pluggable stores. It is the only caller allowed to mutate
// appointment state, and it does so exclusively through the Ledger.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/clock"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/slotcalc"
)

// AvailabilityStore owns the declared-open slot sets. Writes replace the
// whole set for a key; concurrent writers resolve last-write-wins.
type AvailabilityStore interface {
	Set(ctx context.Context, businessID, providerID string, date model.Date, slots []model.TimeOfDay) error
	Get(ctx context.Context, businessID, providerID string, date model.Date) ([]model.TimeOfDay, error)
}

// Ledger owns appointments. Claim must be atomic per claim key: of two
// concurrent claims for the same key, exactly one succeeds and the other gets
// model.ErrSlotConflict. Transition is a compare-and-set on the status field.
// Both mutations receive the lifecycle event describing them: a durable ledger
// must record the event atomically with the mutation (the Postgres ledger
// writes an outbox row in the same transaction), so a committed change is
// never silently eventless. The in-memory ledger discards it; dev mode and
// tests observe events through the Dispatcher instead.
type Ledger interface {
	Claim(ctx context.Context, appt model.Appointment, evt model.LifecycleEvent) (model.Appointment, error)
	Get(ctx context.Context, id string) (model.Appointment, error)
	Transition(ctx context.Context, id string, from []model.Status, to model.Status, evt model.LifecycleEvent) (model.Appointment, error)
	HeldSlots(ctx context.Context, businessID, providerID string, date model.Date) ([]model.TimeOfDay, error)
	ListByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]model.Appointment, error)
}

// Catalog resolves businesses, services and staff. Reads only.
type Catalog interface {
	Business(ctx context.Context, id string) (model.Business, error)
	Service(ctx context.Context, businessID, serviceID string) (model.Service, error)
	Staff(ctx context.Context, businessID, staffID string) (model.Staff, error)
	ListStaff(ctx context.Context, businessID string) ([]model.Staff, error)
}

// Dispatcher receives lifecycle events after a transition commits. It is a
// post-commit observer (the dev-mode log sink, test recorders); the durable
// record of the event is the ledger's job. Delivery is best-effort: a dispatch
// failure never rolls back or blocks the transition, so implementations must
// not return errors to the engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt model.LifecycleEvent)
}

// DefaultHorizonMonths bounds how far ahead bookings are accepted.
const DefaultHorizonMonths = 6

type Engine struct {
	catalog       Catalog
	avail         AvailabilityStore
	ledger        Ledger
	dispatcher    Dispatcher
	clock         clock.Clock
	horizonMonths int
	logger        *slog.Logger
}

type Config struct {
	Catalog       Catalog
	Availability  AvailabilityStore
	Ledger        Ledger
	Dispatcher    Dispatcher
	Clock         clock.Clock
	HorizonMonths int
	Logger        *slog.Logger
}

func New(cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystem()
	}
	if cfg.HorizonMonths <= 0 {
		cfg.HorizonMonths = DefaultHorizonMonths
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		catalog:       cfg.Catalog,
		avail:         cfg.Availability,
		ledger:        cfg.Ledger,
		dispatcher:    cfg.Dispatcher,
		clock:         cfg.Clock,
		horizonMonths: cfg.HorizonMonths,
		logger:        cfg.Logger,
	}
}

func (e *Engine) HorizonMonths() int {
	return e.horizonMonths
}

// withinHorizon reports whether date falls in [today, today+horizon].
func (e *Engine) withinHorizon(date model.Date, today model.Date) bool {
	return !date.Before(today) && !date.After(today.AddMonths(e.horizonMonths))
}

// resolveProvider turns an optional staff id into the claim-key provider.
// Explicit staff must belong to the business and be qualified. With no staff
// given: a staff-less business books against the implicit provider, a single
// qualified staff member is used implicitly, and anything else needs the
// caller to disambiguate.
func (e *Engine) resolveProvider(ctx context.Context, businessID, serviceID, staffID string) (string, error) {
	if staffID != "" {
		st, err := e.catalog.Staff(ctx, businessID, staffID)
		if err != nil {
			return "", err
		}
		if !st.Qualified(serviceID) {
			return "", model.ErrNotQualified
		}
		return st.ID, nil
	}

	all, err := e.catalog.ListStaff(ctx, businessID)
	if err != nil {
		return "", err
	}
	if len(all) == 0 {
		return model.ImplicitProviderID, nil
	}

	var qualified []model.Staff
	for _, st := range all {
		if st.Qualified(serviceID) {
			qualified = append(qualified, st)
		}
	}
	switch len(qualified) {
	case 0:
		return "", model.ErrNotQualified
	case 1:
		return qualified[0].ID, nil
	default:
		return "", model.ErrStaffRequired
	}
}

type SlotsQuery struct {
	BusinessID string
	ServiceID  string
	StaffID    string
	Date       model.Date
}

type SlotsResult struct {
	Slots    []model.TimeOfDay
	Declared int
	Booked   int
}

// Closed reports "empty because nothing was declared", as opposed to empty
// because every declared slot is claimed.
func (r SlotsResult) Closed() bool {
	return r.Declared == 0
}

// Slots computes the bookable slots for a business/provider/date. Dates
// outside the horizon yield an empty result rather than an error; booking is
// where OutOfRange is enforced.
func (e *Engine) Slots(ctx context.Context, q SlotsQuery) (SlotsResult, error) {
	biz, err := e.catalog.Business(ctx, q.BusinessID)
	if err != nil {
		return SlotsResult{}, err
	}
	svc, err := e.catalog.Service(ctx, biz.ID, q.ServiceID)
	if err != nil {
		return SlotsResult{}, err
	}
	if !svc.Active {
		return SlotsResult{}, model.ErrServiceInactive
	}

	providerID, err := e.resolveProvider(ctx, q.BusinessID, q.ServiceID, q.StaffID)
	if err != nil {
		return SlotsResult{}, err
	}

	now := e.clock.Now()
	if !e.withinHorizon(q.Date, model.DateOf(now)) {
		return SlotsResult{}, nil
	}

	declared, err := e.avail.Get(ctx, q.BusinessID, providerID, q.Date)
	if err != nil {
		return SlotsResult{}, fmt.Errorf("load availability: %w", err)
	}
	held, err := e.ledger.HeldSlots(ctx, q.BusinessID, providerID, q.Date)
	if err != nil {
		return SlotsResult{}, fmt.Errorf("load held slots: %w", err)
	}

	res := slotcalc.Compute(declared, held)

	// Same-day slots whose start has passed are not bookable.
	if q.Date == model.DateOf(now) {
		open := res.Open[:0]
		for _, s := range res.Open {
			if q.Date.At(s).After(now) {
				open = append(open, s)
			}
		}
		res.Open = open
	}

	return SlotsResult{Slots: res.Open, Declared: res.Declared, Booked: res.Booked}, nil
}

type BookingRequest struct {
	BusinessID   string
	ServiceID    string
	StaffID      string
	Date         model.Date
	Slot         model.TimeOfDay
	CustomerID   string
	CustomerName string
	// PaymentRef is supplied by the payment collaborator and stored opaquely.
	PaymentRef string
}

// RequestBooking validates the request and atomically claims the slot,
// producing a PENDING appointment. The free-check and insert are one atomic
// unit with respect to all other booking attempts on the same key.
func (e *Engine) RequestBooking(ctx context.Context, req BookingRequest) (model.Appointment, error) {
	if !req.Slot.OnBoundary() {
		return model.Appointment{}, model.ErrSlotNotOffered
	}

	now := e.clock.Now()
	if !e.withinHorizon(req.Date, model.DateOf(now)) {
		return model.Appointment{}, model.ErrOutOfRange
	}

	biz, err := e.catalog.Business(ctx, req.BusinessID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !biz.Approved {
		return model.Appointment{}, model.ErrBusinessNotApproved
	}
	svc, err := e.catalog.Service(ctx, biz.ID, req.ServiceID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !svc.Active {
		return model.Appointment{}, model.ErrServiceInactive
	}

	providerID, err := e.resolveProvider(ctx, req.BusinessID, req.ServiceID, req.StaffID)
	if err != nil {
		return model.Appointment{}, err
	}

	declared, err := e.avail.Get(ctx, req.BusinessID, providerID, req.Date)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("load availability: %w", err)
	}
	offered := false
	for _, s := range declared {
		if s == req.Slot {
			offered = true
			break
		}
	}
	if !offered {
		return model.Appointment{}, model.ErrSlotNotOffered
	}
	if req.Date == model.DateOf(now) && !req.Date.At(req.Slot).After(now) {
		return model.Appointment{}, model.ErrOutOfRange
	}

	staffID := req.StaffID
	if staffID == "" && providerID != model.ImplicitProviderID {
		staffID = providerID
	}

	appt := model.Appointment{
		ID:           uuid.NewString(),
		BusinessID:   req.BusinessID,
		ServiceID:    req.ServiceID,
		StaffID:      staffID,
		ProviderID:   providerID,
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		Date:         req.Date,
		Slot:         req.Slot,
		Status:       model.StatusPending,
		PaymentRef:   req.PaymentRef,
		CreatedAt:    now,
	}

	evt := e.lifecycleEvent(ctx, appt)
	created, err := e.ledger.Claim(ctx, appt, evt)
	if err != nil {
		return model.Appointment{}, err
	}

	e.dispatch(ctx, evt)
	return created, nil
}

// Actor identifies who is asking for a transition. Exactly one of the fields
// is normally set; authentication itself happens upstream.
type Actor struct {
	BusinessID string
	CustomerID string
}

// Transition applies approve/decline/cancel with the guards from the
// transition table. Approve and decline are owner-only; cancel is allowed to
// the owner or the requesting customer. The status change is a compare-and-set
// so a losing racer gets ErrInvalidTransition, never a double apply.
func (e *Engine) Transition(ctx context.Context, appointmentID string, action model.Action, actor Actor) (model.Appointment, error) {
	from, to, ok := model.Next(action)
	if !ok {
		return model.Appointment{}, model.ErrInvalidTransition
	}

	appt, err := e.ledger.Get(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}

	switch action {
	case model.ActionApprove, model.ActionDecline:
		if actor.BusinessID == "" || actor.BusinessID != appt.BusinessID {
			return model.Appointment{}, model.ErrNotAllowed
		}
	case model.ActionCancel:
		ownerOK := actor.BusinessID != "" && actor.BusinessID == appt.BusinessID
		customerOK := actor.CustomerID != "" && actor.CustomerID == appt.CustomerID
		if !ownerOK && !customerOK {
			return model.Appointment{}, model.ErrNotAllowed
		}
	}

	target := appt
	target.Status = to
	evt := e.lifecycleEvent(ctx, target)
	updated, err := e.ledger.Transition(ctx, appointmentID, from, to, evt)
	if err != nil {
		return model.Appointment{}, err
	}

	e.dispatch(ctx, evt)
	return updated, nil
}

// SetAvailability replaces the declared-open set for the exact key. Narrowing
// never touches existing appointments; held slots simply stop being offered
// to new bookings via the slot computation.
func (e *Engine) SetAvailability(ctx context.Context, businessID, staffID string, date model.Date, slots []model.TimeOfDay) error {
	if _, err := e.catalog.Business(ctx, businessID); err != nil {
		return err
	}
	providerID := model.ProviderID(staffID)
	if staffID != "" {
		if _, err := e.catalog.Staff(ctx, businessID, staffID); err != nil {
			return err
		}
	}
	for _, s := range slots {
		if !s.OnBoundary() {
			return fmt.Errorf("%w: %s is off the %d-minute grid", model.ErrSlotNotOffered, s, model.SlotGranularity)
		}
	}
	return e.avail.Set(ctx, businessID, providerID, date, slots)
}

// Availability returns the declared set for the key; empty if never declared.
func (e *Engine) Availability(ctx context.Context, businessID, staffID string, date model.Date) ([]model.TimeOfDay, error) {
	return e.avail.Get(ctx, businessID, model.ProviderID(staffID), date)
}

// CatalogService exposes a catalog lookup so the HTTP layer can price a
// booking without holding its own catalog handle.
func (e *Engine) CatalogService(ctx context.Context, businessID, serviceID string) (model.Service, error) {
	return e.catalog.Service(ctx, businessID, serviceID)
}

func (e *Engine) Appointment(ctx context.Context, id string) (model.Appointment, error) {
	return e.ledger.Get(ctx, id)
}

func (e *Engine) AppointmentsByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error) {
	return e.ledger.ListByBusiness(ctx, businessID, limit)
}

func (e *Engine) AppointmentsByCustomer(ctx context.Context, customerID string, limit int) ([]model.Appointment, error) {
	return e.ledger.ListByCustomer(ctx, customerID, limit)
}

// Now exposes the engine clock so read-time projections use the same time
// source.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// lifecycleEvent builds the event describing a mutation before it is applied,
// so the ledger can persist both as one unit.
func (e *Engine) lifecycleEvent(ctx context.Context, appt model.Appointment) model.LifecycleEvent {
	evt := model.LifecycleEvent{
		AppointmentID: appt.ID,
		BusinessID:    appt.BusinessID,
		CustomerID:    appt.CustomerID,
		CustomerName:  appt.CustomerName,
		ServiceID:     appt.ServiceID,
		Date:          appt.Date,
		Slot:          appt.Slot,
		Status:        appt.Status,
		OccurredAt:    e.clock.Now(),
	}
	// Owner routing info is best-effort; the event still goes out without it.
	if biz, err := e.catalog.Business(ctx, appt.BusinessID); err == nil {
		evt.OwnerID = biz.OwnerID
		evt.BusinessName = biz.Name
	}
	return evt
}

func (e *Engine) dispatch(ctx context.Context, evt model.LifecycleEvent) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.Dispatch(ctx, evt)
}
