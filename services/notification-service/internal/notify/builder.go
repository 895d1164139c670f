// Package notify turns appointment lifecycle events into user-facing
// notification rows.
package notify

import (
	"fmt"
	"time"

	"github.com/greygj/Calendrax1.3-sub000/services/notification-service/internal/storage"
)

// AppointmentEvent mirrors the scheduling lifecycle payload. Only the fields
// used for routing and rendering are decoded.
type AppointmentEvent struct {
	AppointmentID string    `json:"appointment_id"`
	BusinessID    string    `json:"business_id"`
	BusinessName  string    `json:"business_name"`
	OwnerID       string    `json:"owner_id"`
	CustomerID    string    `json:"customer_id"`
	CustomerName  string    `json:"customer_name"`
	ServiceID     string    `json:"service_id"`
	Date          string    `json:"date"`
	Slot          string    `json:"slot"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Build maps an event onto the notification to store. A pending booking
// notifies the business owner; every other transition notifies the customer.
// ok is false when the event has nobody to notify.
func Build(evt AppointmentEvent) (n storage.Notification, ok bool) {
	when := evt.Date + " " + evt.Slot
	business := evt.BusinessName
	if business == "" {
		business = "the business"
	}

	switch evt.Status {
	case "pending":
		if evt.OwnerID == "" {
			return storage.Notification{}, false
		}
		who := evt.CustomerName
		if who == "" {
			who = "A customer"
		}
		n = storage.Notification{
			UserID:  evt.OwnerID,
			Type:    "booking_request",
			Title:   "New Booking Request",
			Message: fmt.Sprintf("%s requested an appointment on %s.", who, when),
		}
	case "confirmed":
		n = storage.Notification{
			UserID:  evt.CustomerID,
			Type:    "booking_confirmed",
			Title:   "Booking Confirmed",
			Message: fmt.Sprintf("Your appointment with %s on %s is confirmed.", business, when),
		}
	case "declined":
		n = storage.Notification{
			UserID:  evt.CustomerID,
			Type:    "booking_declined",
			Title:   "Booking Declined",
			Message: fmt.Sprintf("Your appointment request with %s on %s was declined.", business, when),
		}
	case "cancelled":
		n = storage.Notification{
			UserID:  evt.CustomerID,
			Type:    "booking_cancelled",
			Title:   "Booking Cancelled",
			Message: fmt.Sprintf("Your appointment with %s on %s was cancelled.", business, when),
		}
	default:
		return storage.Notification{}, false
	}

	if n.UserID == "" {
		return storage.Notification{}, false
	}
	n.AppointmentID = evt.AppointmentID
	n.BusinessID = evt.BusinessID
	return n, true
}
