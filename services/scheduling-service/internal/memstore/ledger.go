// Package memstore provides in-memory implementations of the engine's store
// interfaces. It backs the dev mode (no DATABASE_URL) and the test suite.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
)

// Ledger keeps appointments in memory. The slot claim is a LoadOrStore on a
// sync.Map keyed by ClaimKey, which gives the required exactly-one-winner
// semantics without any global lock: different keys never contend.
type Ledger struct {
	claims sync.Map // model.ClaimKey -> appointment id

	mu    sync.RWMutex
	appts map[string]model.Appointment
}

func NewLedger() *Ledger {
	return &Ledger{appts: make(map[string]model.Appointment)}
}

// Claim ignores the lifecycle event: in-memory callers observe events through
// the engine's dispatcher, not a durable record.
func (l *Ledger) Claim(_ context.Context, appt model.Appointment, _ model.LifecycleEvent) (model.Appointment, error) {
	if _, loaded := l.claims.LoadOrStore(appt.ClaimKey(), appt.ID); loaded {
		return model.Appointment{}, model.ErrSlotConflict
	}

	l.mu.Lock()
	l.appts[appt.ID] = appt
	l.mu.Unlock()
	return appt, nil
}

func (l *Ledger) Get(_ context.Context, id string) (model.Appointment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	appt, ok := l.appts[id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	return appt, nil
}

func (l *Ledger) Transition(_ context.Context, id string, from []model.Status, to model.Status, _ model.LifecycleEvent) (model.Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	appt, ok := l.appts[id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	if !slices.Contains(from, appt.Status) {
		return model.Appointment{}, model.ErrInvalidTransition
	}

	appt.Status = to
	l.appts[id] = appt
	if to.Terminal() {
		l.claims.Delete(appt.ClaimKey())
	}
	return appt, nil
}

func (l *Ledger) HeldSlots(_ context.Context, businessID, providerID string, date model.Date) ([]model.TimeOfDay, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var held []model.TimeOfDay
	for _, appt := range l.appts {
		if appt.BusinessID == businessID && appt.ProviderID == providerID && appt.Date == date && appt.Status.Holds() {
			held = append(held, appt.Slot)
		}
	}
	return held, nil
}

func (l *Ledger) ListByBusiness(_ context.Context, businessID string, limit int) ([]model.Appointment, error) {
	return l.list(limit, func(a model.Appointment) bool { return a.BusinessID == businessID })
}

func (l *Ledger) ListByCustomer(_ context.Context, customerID string, limit int) ([]model.Appointment, error) {
	return l.list(limit, func(a model.Appointment) bool { return a.CustomerID == customerID })
}

func (l *Ledger) list(limit int, keep func(model.Appointment) bool) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	l.mu.RLock()
	var out []model.Appointment
	for _, appt := range l.appts {
		if keep(appt) {
			out = append(out, appt)
		}
	}
	l.mu.RUnlock()

	// Newest first, matching the durable ledger's ordering.
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].Date.At(out[i].Slot), out[j].Date.At(out[j].Slot)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
