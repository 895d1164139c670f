package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
)

// Catalog is the in-memory business/service/staff directory. It also serves
// the catalog-management handlers in dev mode.
type Catalog struct {
	mu         sync.RWMutex
	businesses map[string]model.Business
	services   map[string]model.Service
	staff      map[string]model.Staff
}

func NewCatalog() *Catalog {
	return &Catalog{
		businesses: make(map[string]model.Business),
		services:   make(map[string]model.Service),
		staff:      make(map[string]model.Staff),
	}
}

func (c *Catalog) Business(_ context.Context, id string) (model.Business, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.businesses[id]
	if !ok {
		return model.Business{}, model.ErrNotFound
	}
	return b, nil
}

func (c *Catalog) Service(_ context.Context, businessID, serviceID string) (model.Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.services[serviceID]
	if !ok || s.BusinessID != businessID {
		return model.Service{}, model.ErrNotFound
	}
	return s, nil
}

func (c *Catalog) Staff(_ context.Context, businessID, staffID string) (model.Staff, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.staff[staffID]
	if !ok || st.BusinessID != businessID {
		return model.Staff{}, model.ErrNotFound
	}
	return st, nil
}

func (c *Catalog) ListStaff(_ context.Context, businessID string) ([]model.Staff, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.Staff
	for _, st := range c.staff {
		if st.BusinessID == businessID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListBusinesses returns the approved businesses, sorted by name for stable
// listings.
func (c *Catalog) ListBusinesses(_ context.Context) ([]model.Business, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.Business
	for _, b := range c.businesses {
		if b.Approved {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *Catalog) PutBusiness(_ context.Context, b model.Business) error {
	c.mu.Lock()
	c.businesses[b.ID] = b
	c.mu.Unlock()
	return nil
}

func (c *Catalog) SetApproved(_ context.Context, businessID string, approved bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.businesses[businessID]
	if !ok {
		return model.ErrNotFound
	}
	b.Approved = approved
	c.businesses[businessID] = b
	return nil
}

func (c *Catalog) PutService(_ context.Context, s model.Service) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.businesses[s.BusinessID]; !ok {
		return model.ErrNotFound
	}
	c.services[s.ID] = s
	return nil
}

func (c *Catalog) PutStaff(_ context.Context, st model.Staff) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.businesses[st.BusinessID]; !ok {
		return model.ErrNotFound
	}
	c.staff[st.ID] = st
	return nil
}
