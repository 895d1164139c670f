package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
)

type availKey struct {
	businessID string
	providerID string
	date       model.Date
}

// Availability stores declared-open slot sets. Each Set replaces the whole
// value for its key, so concurrent owner writes resolve last-write-wins.
type Availability struct {
	mu   sync.RWMutex
	sets map[availKey][]model.TimeOfDay
}

func NewAvailability() *Availability {
	return &Availability{sets: make(map[availKey][]model.TimeOfDay)}
}

func (a *Availability) Set(_ context.Context, businessID, providerID string, date model.Date, slots []model.TimeOfDay) error {
	cp := make([]model.TimeOfDay, len(slots))
	copy(cp, slots)
	slices.Sort(cp)
	cp = slices.Compact(cp)

	a.mu.Lock()
	a.sets[availKey{businessID, providerID, date}] = cp
	a.mu.Unlock()
	return nil
}

func (a *Availability) Get(_ context.Context, businessID, providerID string, date model.Date) ([]model.TimeOfDay, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stored, ok := a.sets[availKey{businessID, providerID, date}]
	if !ok {
		return nil, nil
	}
	out := make([]model.TimeOfDay, len(stored))
	copy(out, stored)
	return out, nil
}
