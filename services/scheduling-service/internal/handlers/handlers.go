// Package handlers is the HTTP surface of the scheduling service. Handlers
// parse and validate, delegate to the engine, and translate the engine's
// error taxonomy to status codes; no scheduling rules live here.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/engine"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeEngineError maps the engine's typed errors onto HTTP statuses. Unknown
// errors become opaque 500s; the detail stays in the logs.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrSlotConflict):
		http.Error(w, "slot already taken", http.StatusConflict)
	case errors.Is(err, model.ErrInvalidTransition):
		http.Error(w, "appointment is not in a state that allows this action", http.StatusConflict)
	case errors.Is(err, model.ErrOutOfRange):
		http.Error(w, "date is outside the booking window", http.StatusUnprocessableEntity)
	case errors.Is(err, model.ErrSlotNotOffered):
		http.Error(w, "slot is not offered", http.StatusUnprocessableEntity)
	case errors.Is(err, model.ErrNotQualified):
		http.Error(w, "staff member does not offer this service", http.StatusUnprocessableEntity)
	case errors.Is(err, model.ErrStaffRequired):
		http.Error(w, "staff_id required to disambiguate", http.StatusUnprocessableEntity)
	case errors.Is(err, model.ErrServiceInactive):
		http.Error(w, "service is not active", http.StatusUnprocessableEntity)
	case errors.Is(err, model.ErrBusinessNotApproved):
		http.Error(w, "business is not accepting bookings", http.StatusUnprocessableEntity)
	case errors.Is(err, model.ErrNotAllowed):
		http.Error(w, "not allowed", http.StatusForbidden)
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// actorFrom derives the transition actor from identity headers set by the
// gateway. Authentication itself is upstream; these are trusted values.
func actorFrom(r *http.Request) engine.Actor {
	return engine.Actor{
		BusinessID: strings.TrimSpace(r.Header.Get("X-Business-Id")),
		CustomerID: strings.TrimSpace(r.Header.Get("X-Customer-Id")),
	}
}

func queryLimit(r *http.Request, def, max int) int {
	limit := def
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= max {
			limit = n
		}
	}
	return limit
}

// appointmentItem is the wire shape for appointments. Status is the display
// status: confirmed appointments whose slot has passed read as completed.
type appointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	BusinessID    string `json:"business_id"`
	ServiceID     string `json:"service_id"`
	StaffID       string `json:"staff_id,omitempty"`
	CustomerID    string `json:"customer_id,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	Date          string `json:"date"`
	Slot          string `json:"slot"`
	Status        string `json:"status"`
	PaymentRef    string `json:"payment_ref,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toItem(appt model.Appointment, e *engine.Engine) appointmentItem {
	return appointmentItem{
		AppointmentID: appt.ID,
		BusinessID:    appt.BusinessID,
		ServiceID:     appt.ServiceID,
		StaffID:       appt.StaffID,
		CustomerID:    appt.CustomerID,
		CustomerName:  appt.CustomerName,
		Date:          appt.Date.String(),
		Slot:          appt.Slot.String(),
		Status:        string(appt.DisplayStatus(e.Now())),
		PaymentRef:    appt.PaymentRef,
		CreatedAt:     appt.CreatedAt.UTC().Format(time.RFC3339),
	}
}
