package notify

import (
	"strings"
	"testing"
)

func baseEvent(status string) AppointmentEvent {
	return AppointmentEvent{
		AppointmentID: "appt-1",
		BusinessID:    "biz-1",
		BusinessName:  "Studio One",
		OwnerID:       "owner-1",
		CustomerID:    "cust-1",
		CustomerName:  "Dana",
		Date:          "2026-03-10",
		Slot:          "09:00",
		Status:        status,
	}
}

func TestBuildPendingNotifiesOwner(t *testing.T) {
	n, ok := Build(baseEvent("pending"))
	if !ok {
		t.Fatal("expected a notification")
	}
	if n.UserID != "owner-1" {
		t.Fatalf("user = %s, want owner-1", n.UserID)
	}
	if n.Title != "New Booking Request" {
		t.Fatalf("title = %q", n.Title)
	}
	if !strings.Contains(n.Message, "Dana") || !strings.Contains(n.Message, "2026-03-10 09:00") {
		t.Fatalf("message = %q", n.Message)
	}
	if n.AppointmentID != "appt-1" || n.BusinessID != "biz-1" {
		t.Fatalf("notification = %+v", n)
	}
}

func TestBuildTransitionsNotifyCustomer(t *testing.T) {
	cases := []struct {
		status string
		title  string
	}{
		{"confirmed", "Booking Confirmed"},
		{"declined", "Booking Declined"},
		{"cancelled", "Booking Cancelled"},
	}
	for _, c := range cases {
		n, ok := Build(baseEvent(c.status))
		if !ok {
			t.Fatalf("%s: expected a notification", c.status)
		}
		if n.UserID != "cust-1" {
			t.Fatalf("%s: user = %s, want cust-1", c.status, n.UserID)
		}
		if n.Title != c.title {
			t.Fatalf("%s: title = %q", c.status, n.Title)
		}
		if !strings.Contains(n.Message, "Studio One") {
			t.Fatalf("%s: message = %q", c.status, n.Message)
		}
	}
}

func TestBuildNoRecipient(t *testing.T) {
	evt := baseEvent("pending")
	evt.OwnerID = ""
	if _, ok := Build(evt); ok {
		t.Fatal("pending without owner should produce nothing")
	}

	evt = baseEvent("confirmed")
	evt.CustomerID = ""
	if _, ok := Build(evt); ok {
		t.Fatal("confirmed without customer should produce nothing")
	}

	if _, ok := Build(baseEvent("completed")); ok {
		t.Fatal("derived statuses should produce nothing")
	}
}
