package model

import "time"

// Business is immutable to the engine except for its approval flag, which an
// external moderation flow toggles.
type Business struct {
	ID        string    `json:"business_id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id,omitempty"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

type Staff struct {
	ID         string    `json:"staff_id"`
	BusinessID string    `json:"business_id"`
	Name       string    `json:"name"`
	ServiceIDs []string  `json:"service_ids"`
	CreatedAt  time.Time `json:"created_at"`
}

// Qualified reports whether the staff member may perform the service.
func (s Staff) Qualified(serviceID string) bool {
	for _, id := range s.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

type Service struct {
	ID           string    `json:"service_id"`
	BusinessID   string    `json:"business_id"`
	Name         string    `json:"name"`
	DurationMins int       `json:"duration_minutes"`
	PriceCents   int64     `json:"price_cents"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}
