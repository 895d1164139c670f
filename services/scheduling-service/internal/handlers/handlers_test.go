package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/clock"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/engine"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/memstore"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
)

var testNow = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	catalog := memstore.NewCatalog()
	avail := memstore.NewAvailability()
	ledger := memstore.NewLedger()
	eng := engine.New(engine.Config{
		Catalog:      catalog,
		Availability: avail,
		Ledger:       ledger,
		Clock:        clock.NewFixed(testNow),
		Logger:       logger,
	})

	ctx := context.Background()
	if err := catalog.PutBusiness(ctx, model.Business{
		ID: "biz-1", Name: "Studio One", OwnerID: "owner-1", Approved: true,
	}); err != nil {
		t.Fatal(err)
	}
	if err := catalog.PutService(ctx, model.Service{
		ID: "svc-1", BusinessID: "biz-1", Name: "Cut", DurationMins: 30, Active: true,
	}); err != nil {
		t.Fatal(err)
	}
	if err := avail.Set(ctx, "biz-1", model.ImplicitProviderID,
		model.Date{Year: 2026, Month: time.March, Day: 10},
		[]model.TimeOfDay{9 * 60, 9*60 + 15}); err != nil {
		t.Fatal(err)
	}

	bookingHandler := NewBookingHandler(eng, nil, nil, logger)
	availabilityHandler := NewAvailabilityHandler(eng, logger)
	calendarHandler := NewCalendarHandler(eng)
	catalogHandler := NewCatalogHandler(catalog, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/businesses", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if r.URL.Query().Get("business_id") != "" {
				catalogHandler.GetBusiness(w, r)
				return
			}
			catalogHandler.ListBusinesses(w, r)
			return
		}
		catalogHandler.CreateBusiness(w, r)
	})
	mux.HandleFunc("/api/v1/businesses/approve", catalogHandler.ApproveBusiness)
	mux.HandleFunc("/api/v1/public/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/public/calendar", calendarHandler.Month)
	mux.HandleFunc("/api/v1/public/book", bookingHandler.Book)
	mux.HandleFunc("/api/v1/availability", availabilityHandler.Get)
	mux.HandleFunc("/api/v1/appointments", bookingHandler.List)
	mux.HandleFunc("/api/v1/appointments/status", bookingHandler.Status)
	mux.HandleFunc("/api/v1/appointments/cancel", bookingHandler.Cancel)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, headers map[string]string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestSlotsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/public/slots?business_id=biz-1&service_id=svc-1&date=2026-03-10")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[slotsResponse](t, resp)
	if len(body.Slots) != 2 || body.Closed {
		t.Fatalf("body = %+v", body)
	}

	// Undeclared day comes back closed.
	resp, err = http.Get(srv.URL + "/api/v1/public/slots?business_id=biz-1&service_id=svc-1&date=2026-03-11")
	if err != nil {
		t.Fatal(err)
	}
	body = decode[slotsResponse](t, resp)
	if len(body.Slots) != 0 || !body.Closed {
		t.Fatalf("body = %+v", body)
	}
}

func TestBookEndpoint(t *testing.T) {
	srv := newTestServer(t)

	book := map[string]any{
		"business_id": "biz-1",
		"service_id":  "svc-1",
		"date":        "2026-03-10",
		"slot":        "09:00",
		"customer_id": "cust-1",
	}
	resp := postJSON(t, srv.URL+"/api/v1/public/book", nil, book)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	created := decode[appointmentItem](t, resp)
	if created.Status != "pending" || created.AppointmentID == "" {
		t.Fatalf("created = %+v", created)
	}

	// Same slot again conflicts.
	book["customer_id"] = "cust-2"
	resp = postJSON(t, srv.URL+"/api/v1/public/book", nil, book)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	// Undeclared slot is unprocessable.
	book["slot"] = "11:00"
	resp = postJSON(t, srv.URL+"/api/v1/public/book", nil, book)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/public/book", nil, map[string]any{
		"business_id": "biz-1",
		"service_id":  "svc-1",
		"date":        "2026-03-10",
		"slot":        "09:00",
		"customer_id": "cust-1",
	})
	created := decode[appointmentItem](t, resp)

	// Approve without owner identity is forbidden.
	resp = postJSON(t, srv.URL+"/api/v1/appointments/status", nil, map[string]any{
		"appointment_id": created.AppointmentID,
		"action":         "approve",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	owner := map[string]string{"X-Business-Id": "biz-1"}
	resp = postJSON(t, srv.URL+"/api/v1/appointments/status", owner, map[string]any{
		"appointment_id": created.AppointmentID,
		"action":         "approve",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	updated := decode[appointmentItem](t, resp)
	if updated.Status != "confirmed" {
		t.Fatalf("status = %s", updated.Status)
	}

	// Approving twice loses the CAS.
	resp = postJSON(t, srv.URL+"/api/v1/appointments/status", owner, map[string]any{
		"appointment_id": created.AppointmentID,
		"action":         "approve",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	// Unknown action is a 400.
	resp = postJSON(t, srv.URL+"/api/v1/appointments/status", owner, map[string]any{
		"appointment_id": created.AppointmentID,
		"action":         "complete",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCancelEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/public/book", nil, map[string]any{
		"business_id": "biz-1",
		"service_id":  "svc-1",
		"date":        "2026-03-10",
		"slot":        "09:00",
		"customer_id": "cust-1",
	})
	created := decode[appointmentItem](t, resp)

	resp = postJSON(t, srv.URL+"/api/v1/appointments/cancel",
		map[string]string{"X-Customer-Id": "cust-1"},
		map[string]any{"appointment_id": created.AppointmentID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	cancelled := decode[appointmentItem](t, resp)
	if cancelled.Status != "cancelled" {
		t.Fatalf("status = %s", cancelled.Status)
	}

	resp = postJSON(t, srv.URL+"/api/v1/appointments/cancel",
		map[string]string{"X-Customer-Id": "cust-1"},
		map[string]any{"appointment_id": "missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestListEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/public/book", nil, map[string]any{
		"business_id": "biz-1",
		"service_id":  "svc-1",
		"date":        "2026-03-10",
		"slot":        "09:15",
		"customer_id": "cust-9",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	listResp, err := http.Get(srv.URL + "/api/v1/appointments?customer_id=cust-9")
	if err != nil {
		t.Fatal(err)
	}
	items := decode[[]appointmentItem](t, listResp)
	if len(items) != 1 || items[0].Status != "pending" {
		t.Fatalf("items = %+v", items)
	}
}

func TestBusinessListEndpoint(t *testing.T) {
	srv := newTestServer(t)

	listIDs := func() []string {
		t.Helper()
		resp, err := http.Get(srv.URL + "/api/v1/businesses")
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		items := decode[[]businessResponse](t, resp)
		ids := make([]string, 0, len(items))
		for _, b := range items {
			ids = append(ids, b.BusinessID)
		}
		return ids
	}

	// Only the approved seed business is discoverable.
	if ids := listIDs(); len(ids) != 1 || ids[0] != "biz-1" {
		t.Fatalf("ids = %v", ids)
	}

	resp := postJSON(t, srv.URL+"/api/v1/businesses", nil, map[string]any{
		"name":     "Barber Two",
		"owner_id": "owner-2",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	created := decode[businessResponse](t, resp)
	if created.Approved {
		t.Fatal("new businesses must start unapproved")
	}

	// Still hidden until approved.
	if ids := listIDs(); len(ids) != 1 {
		t.Fatalf("ids = %v", ids)
	}

	resp = postJSON(t, srv.URL+"/api/v1/businesses/approve", nil, map[string]any{
		"business_id": created.BusinessID,
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	ids := listIDs()
	if len(ids) != 2 {
		t.Fatalf("ids = %v", ids)
	}
	// Sorted by name: "Barber Two" before "Studio One".
	if ids[0] != created.BusinessID || ids[1] != "biz-1" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestCalendarEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/public/calendar?business_id=biz-1&month=2026-03")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[calendarResponse](t, resp)
	if body.Month != "2026-03" {
		t.Fatalf("month = %s", body.Month)
	}
	if len(body.Cells) == 0 {
		t.Fatal("no cells")
	}

	resp, err = http.Get(srv.URL + "/api/v1/public/calendar?month=March")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}
