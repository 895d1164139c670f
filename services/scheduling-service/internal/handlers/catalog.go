package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/engine"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
)

// CatalogAdmin is the write side of the catalog, implemented by both the
// in-memory and the Postgres catalog.
type CatalogAdmin interface {
	engine.Catalog
	ListBusinesses(ctx context.Context) ([]model.Business, error)
	PutBusiness(ctx context.Context, b model.Business) error
	SetApproved(ctx context.Context, businessID string, approved bool) error
	PutService(ctx context.Context, s model.Service) error
	PutStaff(ctx context.Context, st model.Staff) error
}

type CatalogHandler struct {
	catalog CatalogAdmin
	logger  *slog.Logger
}

func NewCatalogHandler(catalog CatalogAdmin, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

type createBusinessRequest struct {
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

type businessResponse struct {
	BusinessID string `json:"business_id"`
	Name       string `json:"name"`
	OwnerID    string `json:"owner_id"`
	Approved   bool   `json:"approved"`
}

// CreateBusiness registers a business. New businesses start unapproved and
// cannot take bookings until approved.
func (h *CatalogHandler) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.OwnerID = strings.TrimSpace(req.OwnerID)
	if req.Name == "" || req.OwnerID == "" {
		http.Error(w, "name and owner_id are required", http.StatusBadRequest)
		return
	}

	b := model.Business{
		ID:        uuid.NewString(),
		Name:      req.Name,
		OwnerID:   req.OwnerID,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.catalog.PutBusiness(r.Context(), b); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, businessResponse{
		BusinessID: b.ID,
		Name:       b.Name,
		OwnerID:    b.OwnerID,
		Approved:   b.Approved,
	})
}

type approveBusinessRequest struct {
	BusinessID string `json:"business_id"`
	Approved   *bool  `json:"approved"`
}

func (h *CatalogHandler) ApproveBusiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req approveBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	if req.BusinessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}
	approved := true
	if req.Approved != nil {
		approved = *req.Approved
	}

	if err := h.catalog.SetApproved(r.Context(), req.BusinessID, approved); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) GetBusiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	if businessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}
	b, err := h.catalog.Business(r.Context(), businessID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, businessResponse{
		BusinessID: b.ID,
		Name:       b.Name,
		OwnerID:    b.OwnerID,
		Approved:   b.Approved,
	})
}

// ListBusinesses is the public discovery listing. Only approved businesses
// appear; pending ones stay hidden until moderation clears them.
func (h *CatalogHandler) ListBusinesses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businesses, err := h.catalog.ListBusinesses(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	items := make([]businessResponse, 0, len(businesses))
	for _, b := range businesses {
		items = append(items, businessResponse{
			BusinessID: b.ID,
			Name:       b.Name,
			OwnerID:    b.OwnerID,
			Approved:   b.Approved,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type createServiceRequest struct {
	BusinessID   string `json:"business_id"`
	Name         string `json:"name"`
	DurationMins int    `json:"duration_minutes"`
	PriceCents   int64  `json:"price_cents"`
}

type serviceResponse struct {
	ServiceID    string `json:"service_id"`
	BusinessID   string `json:"business_id"`
	Name         string `json:"name"`
	DurationMins int    `json:"duration_minutes"`
	PriceCents   int64  `json:"price_cents"`
	Active       bool   `json:"active"`
}

func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.Name = strings.TrimSpace(req.Name)
	if req.BusinessID == "" || req.Name == "" {
		http.Error(w, "business_id and name are required", http.StatusBadRequest)
		return
	}
	if req.DurationMins <= 0 {
		req.DurationMins = int(model.SlotGranularity)
	}

	actor := actorFrom(r)
	if actor.BusinessID == "" || actor.BusinessID != req.BusinessID {
		http.Error(w, "not allowed", http.StatusForbidden)
		return
	}

	s := model.Service{
		ID:           uuid.NewString(),
		BusinessID:   req.BusinessID,
		Name:         req.Name,
		DurationMins: req.DurationMins,
		PriceCents:   req.PriceCents,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.catalog.PutService(r.Context(), s); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, serviceResponse{
		ServiceID:    s.ID,
		BusinessID:   s.BusinessID,
		Name:         s.Name,
		DurationMins: s.DurationMins,
		PriceCents:   s.PriceCents,
		Active:       s.Active,
	})
}

type createStaffRequest struct {
	BusinessID string   `json:"business_id"`
	Name       string   `json:"name"`
	ServiceIDs []string `json:"service_ids"`
}

type staffResponse struct {
	StaffID    string   `json:"staff_id"`
	BusinessID string   `json:"business_id"`
	Name       string   `json:"name"`
	ServiceIDs []string `json:"service_ids"`
}

func (h *CatalogHandler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.Name = strings.TrimSpace(req.Name)
	if req.BusinessID == "" || req.Name == "" {
		http.Error(w, "business_id and name are required", http.StatusBadRequest)
		return
	}

	actor := actorFrom(r)
	if actor.BusinessID == "" || actor.BusinessID != req.BusinessID {
		http.Error(w, "not allowed", http.StatusForbidden)
		return
	}

	st := model.Staff{
		ID:         uuid.NewString(),
		BusinessID: req.BusinessID,
		Name:       req.Name,
		ServiceIDs: req.ServiceIDs,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.catalog.PutStaff(r.Context(), st); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, staffResponse{
		StaffID:    st.ID,
		BusinessID: st.BusinessID,
		Name:       st.Name,
		ServiceIDs: st.ServiceIDs,
	})
}

func (h *CatalogHandler) ListStaff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	if businessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}
	staff, err := h.catalog.ListStaff(r.Context(), businessID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	items := make([]staffResponse, 0, len(staff))
	for _, st := range staff {
		items = append(items, staffResponse{
			StaffID:    st.ID,
			BusinessID: st.BusinessID,
			Name:       st.Name,
			ServiceIDs: st.ServiceIDs,
		})
	}
	writeJSON(w, http.StatusOK, items)
}
