package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/directory"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/engine"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/payments"
)

type BookingHandler struct {
	engine    *engine.Engine
	payments  payments.Collaborator
	directory directory.Provider
	logger    *slog.Logger
}

func NewBookingHandler(eng *engine.Engine, pay payments.Collaborator, dir directory.Provider, logger *slog.Logger) *BookingHandler {
	if pay == nil {
		pay = payments.Disabled{}
	}
	return &BookingHandler{engine: eng, payments: pay, directory: dir, logger: logger}
}

type slotsResponse struct {
	Slots  []string `json:"slots"`
	Closed bool     `json:"closed"`
}

// Slots serves the open-slot list for a business/service/date. An empty list
// with closed=true means nothing was declared; closed=false means declared
// but fully booked (or past).
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	businessID := strings.TrimSpace(q.Get("business_id"))
	serviceID := strings.TrimSpace(q.Get("service_id"))
	staffID := strings.TrimSpace(q.Get("staff_id"))
	dateStr := strings.TrimSpace(q.Get("date"))
	if businessID == "" || serviceID == "" || dateStr == "" {
		http.Error(w, "business_id, service_id and date are required", http.StatusBadRequest)
		return
	}
	date, err := model.ParseDate(dateStr)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	res, err := h.engine.Slots(r.Context(), engine.SlotsQuery{
		BusinessID: businessID,
		ServiceID:  serviceID,
		StaffID:    staffID,
		Date:       date,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	slots := make([]string, 0, len(res.Slots))
	for _, s := range res.Slots {
		slots = append(slots, s.String())
	}
	writeJSON(w, http.StatusOK, slotsResponse{Slots: slots, Closed: res.Closed()})
}

type bookRequest struct {
	BusinessID   string `json:"business_id"`
	ServiceID    string `json:"service_id"`
	StaffID      string `json:"staff_id"`
	Date         string `json:"date"`
	Slot         string `json:"slot"`
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
}

// Book claims a slot and creates a PENDING appointment.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.StaffID = strings.TrimSpace(req.StaffID)
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.BusinessID == "" || req.ServiceID == "" || req.CustomerID == "" {
		http.Error(w, "business_id, service_id and customer_id are required", http.StatusBadRequest)
		return
	}

	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	slot, err := model.ParseTimeOfDay(strings.TrimSpace(req.Slot))
	if err != nil {
		http.Error(w, "invalid slot", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	customerName := req.CustomerName
	if customerName == "" && h.directory != nil {
		if profile, err := h.directory.Profile(ctx, req.CustomerID); err == nil {
			customerName = profile.DisplayName
		} else {
			h.logger.Warn("directory profile fetch failed", "err", err, "customer_id", req.CustomerID)
		}
	}

	paymentRef, err := h.preparePayment(r, req)
	if err != nil {
		h.logger.Error("payment preparation failed", "err", err, "business_id", req.BusinessID)
		http.Error(w, "payment setup failed", http.StatusBadGateway)
		return
	}

	appt, err := h.engine.RequestBooking(ctx, engine.BookingRequest{
		BusinessID:   req.BusinessID,
		ServiceID:    req.ServiceID,
		StaffID:      req.StaffID,
		Date:         date,
		Slot:         slot,
		CustomerID:   req.CustomerID,
		CustomerName: customerName,
		PaymentRef:   paymentRef,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toItem(appt, h.engine))
}

// preparePayment asks the collaborator for a payment reference up front. The
// slot is not held during this call; a conflict afterwards leaves an
// uncaptured intent behind, which expires on its own.
func (h *BookingHandler) preparePayment(r *http.Request, req bookRequest) (string, error) {
	svc, err := h.engine.CatalogService(r.Context(), req.BusinessID, req.ServiceID)
	if err != nil {
		// The engine re-checks the catalog; let booking surface the real error.
		return "", nil
	}
	if svc.PriceCents <= 0 {
		return "", nil
	}
	return h.payments.Reference(r.Context(), payments.Charge{
		BusinessID:  req.BusinessID,
		ServiceID:   req.ServiceID,
		CustomerID:  req.CustomerID,
		AmountCents: svc.PriceCents,
		Description: svc.Name,
	})
}

type statusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Action        string `json:"action"`
}

// Status applies an owner action (approve/decline) or cancel to an
// appointment.
func (h *BookingHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	action, ok := model.ParseAction(strings.TrimSpace(req.Action))
	if !ok {
		http.Error(w, "action must be approve, decline or cancel", http.StatusBadRequest)
		return
	}

	appt, err := h.engine.Transition(r.Context(), req.AppointmentID, action, actorFrom(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItem(appt, h.engine))
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
}

// Cancel is sugar for Status with action=cancel, kept as its own endpoint
// because customers only ever cancel.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	appt, err := h.engine.Transition(r.Context(), req.AppointmentID, model.ActionCancel, actorFrom(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItem(appt, h.engine))
}

// List returns appointments for a business or a customer, newest first.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	businessID := strings.TrimSpace(q.Get("business_id"))
	customerID := strings.TrimSpace(q.Get("customer_id"))
	limit := queryLimit(r, 50, 200)

	var (
		appts []model.Appointment
		err   error
	)
	switch {
	case businessID != "":
		appts, err = h.engine.AppointmentsByBusiness(r.Context(), businessID, limit)
	case customerID != "":
		appts, err = h.engine.AppointmentsByCustomer(r.Context(), customerID, limit)
	default:
		http.Error(w, "business_id or customer_id required", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		items = append(items, toItem(appt, h.engine))
	}
	writeJSON(w, http.StatusOK, items)
}
