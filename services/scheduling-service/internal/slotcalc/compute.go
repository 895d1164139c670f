// Package slotcalc computes bookable slots from declared availability and
// existing claims. Pure functions only; the engine supplies both inputs.
package slotcalc

import (
	"slices"

	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
)

// Result carries the open slots plus the counts a caller needs to tell
// "closed" (nothing declared) from "fully booked" (everything claimed).
type Result struct {
	Open     []model.TimeOfDay
	Declared int
	Booked   int
}

// Compute returns declared minus booked, ascending. Duplicate declared slots
// collapse to one. The result never contains a slot held by a pending or
// confirmed appointment.
func Compute(declared, booked []model.TimeOfDay) Result {
	held := make(map[model.TimeOfDay]struct{}, len(booked))
	for _, s := range booked {
		held[s] = struct{}{}
	}

	seen := make(map[model.TimeOfDay]struct{}, len(declared))
	open := make([]model.TimeOfDay, 0, len(declared))
	for _, s := range declared {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if _, taken := held[s]; taken {
			continue
		}
		open = append(open, s)
	}
	slices.Sort(open)

	return Result{
		Open:     open,
		Declared: len(seen),
		Booked:   len(held),
	}
}
