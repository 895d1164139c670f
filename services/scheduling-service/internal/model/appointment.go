package model

import "time"

// ImplicitProviderID is the sentinel provider used when a business has no
// staff records, so the claim key shape stays uniform.
const ImplicitProviderID = "@solo"

// ProviderID normalizes an optional staff id into a provider key component.
func ProviderID(staffID string) string {
	if staffID == "" {
		return ImplicitProviderID
	}
	return staffID
}

// ClaimKey identifies the one concurrent resource of the engine: a single
// bookable slot for a provider on a date.
type ClaimKey struct {
	BusinessID string
	ProviderID string
	Date       Date
	Slot       TimeOfDay
}

type Appointment struct {
	ID           string    `json:"appointment_id"`
	BusinessID   string    `json:"business_id"`
	ServiceID    string    `json:"service_id"`
	StaffID      string    `json:"staff_id,omitempty"`
	ProviderID   string    `json:"-"`
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name,omitempty"`
	Date         Date      `json:"date"`
	Slot         TimeOfDay `json:"slot"`
	Status       Status    `json:"status"`
	PaymentRef   string    `json:"payment_ref,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (a Appointment) ClaimKey() ClaimKey {
	return ClaimKey{
		BusinessID: a.BusinessID,
		ProviderID: a.ProviderID,
		Date:       a.Date,
		Slot:       a.Slot,
	}
}

// DisplayStatus projects the stored status for reads: a held appointment whose
// slot start is strictly in the past renders as completed. Nothing is ever
// written back.
func (a Appointment) DisplayStatus(now time.Time) Status {
	if a.Status.Holds() && a.Date.At(a.Slot).Before(now) {
		return StatusCompleted
	}
	return a.Status
}

// LifecycleEvent is emitted once per successful book/approve/decline/cancel.
type LifecycleEvent struct {
	AppointmentID string    `json:"appointment_id"`
	BusinessID    string    `json:"business_id"`
	BusinessName  string    `json:"business_name,omitempty"`
	// OwnerID routes owner-facing notifications; best-effort, may be empty.
	OwnerID      string    `json:"owner_id,omitempty"`
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name,omitempty"`
	ServiceID    string    `json:"service_id"`
	Date         Date      `json:"date"`
	Slot         TimeOfDay `json:"slot"`
	Status       Status    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}
