package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/engine"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
)

type AvailabilityHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewAvailabilityHandler(eng *engine.Engine, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{engine: eng, logger: logger}
}

type setAvailabilityRequest struct {
	BusinessID string   `json:"business_id"`
	StaffID    string   `json:"staff_id"`
	Date       string   `json:"date"`
	Slots      []string `json:"slots"`
}

// Set replaces the declared-open set for one business/staff/date key. The
// whole set is replaced; there is no per-slot merge.
func (h *AvailabilityHandler) Set(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req setAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.StaffID = strings.TrimSpace(req.StaffID)
	if req.BusinessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}

	actor := actorFrom(r)
	if actor.BusinessID == "" || actor.BusinessID != req.BusinessID {
		http.Error(w, "not allowed", http.StatusForbidden)
		return
	}

	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	slots := make([]model.TimeOfDay, 0, len(req.Slots))
	for _, raw := range req.Slots {
		s, err := model.ParseTimeOfDay(strings.TrimSpace(raw))
		if err != nil {
			http.Error(w, "invalid slot "+raw, http.StatusBadRequest)
			return
		}
		slots = append(slots, s)
	}

	if err := h.engine.SetAvailability(r.Context(), req.BusinessID, req.StaffID, date, slots); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type availabilityResponse struct {
	BusinessID string   `json:"business_id"`
	StaffID    string   `json:"staff_id,omitempty"`
	Date       string   `json:"date"`
	Slots      []string `json:"slots"`
}

// Get returns the declared set for a key. Never-declared keys come back as an
// empty list, indistinguishable from an explicitly empty declaration.
func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	businessID := strings.TrimSpace(q.Get("business_id"))
	staffID := strings.TrimSpace(q.Get("staff_id"))
	dateStr := strings.TrimSpace(q.Get("date"))
	if businessID == "" || dateStr == "" {
		http.Error(w, "business_id and date are required", http.StatusBadRequest)
		return
	}
	date, err := model.ParseDate(dateStr)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	declared, err := h.engine.Availability(r.Context(), businessID, staffID, date)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	slots := make([]string, 0, len(declared))
	for _, s := range declared {
		slots = append(slots, s.String())
	}
	writeJSON(w, http.StatusOK, availabilityResponse{
		BusinessID: businessID,
		StaffID:    staffID,
		Date:       dateStr,
		Slots:      slots,
	})
}
