package slotcalc

import (
	"testing"

	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
)

func tod(t *testing.T, s string) model.TimeOfDay {
	t.Helper()
	v, err := model.ParseTimeOfDay(s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestComputeSubtractsBooked(t *testing.T) {
	declared := []model.TimeOfDay{tod(t, "09:00"), tod(t, "09:15"), tod(t, "09:30")}
	booked := []model.TimeOfDay{tod(t, "09:15")}

	res := Compute(declared, booked)
	if len(res.Open) != 2 {
		t.Fatalf("expected 2 open slots, got %v", res.Open)
	}
	if res.Open[0] != tod(t, "09:00") || res.Open[1] != tod(t, "09:30") {
		t.Fatalf("wrong open slots: %v", res.Open)
	}
	if res.Declared != 3 || res.Booked != 1 {
		t.Fatalf("counts: declared=%d booked=%d", res.Declared, res.Booked)
	}
}

func TestComputeNothingDeclared(t *testing.T) {
	res := Compute(nil, []model.TimeOfDay{tod(t, "10:00")})
	if len(res.Open) != 0 {
		t.Fatalf("expected no open slots, got %v", res.Open)
	}
	if res.Declared != 0 {
		t.Fatalf("declared = %d, want 0", res.Declared)
	}
}

func TestComputeFullyBooked(t *testing.T) {
	declared := []model.TimeOfDay{tod(t, "09:00"), tod(t, "09:15")}
	res := Compute(declared, declared)
	if len(res.Open) != 0 {
		t.Fatalf("expected no open slots, got %v", res.Open)
	}
	if res.Declared != 2 {
		t.Fatalf("declared = %d, want 2", res.Declared)
	}
}

func TestComputeDedupesAndSorts(t *testing.T) {
	declared := []model.TimeOfDay{tod(t, "10:00"), tod(t, "09:00"), tod(t, "10:00")}
	res := Compute(declared, nil)
	if len(res.Open) != 2 {
		t.Fatalf("expected 2 open slots, got %v", res.Open)
	}
	if res.Open[0] != tod(t, "09:00") || res.Open[1] != tod(t, "10:00") {
		t.Fatalf("not sorted: %v", res.Open)
	}
	if res.Declared != 2 {
		t.Fatalf("duplicates should collapse: declared=%d", res.Declared)
	}
}

// Booked slots that were never declared (availability narrowed after booking)
// must not produce phantom open slots.
func TestComputeBookedOutsideDeclared(t *testing.T) {
	declared := []model.TimeOfDay{tod(t, "09:00")}
	booked := []model.TimeOfDay{tod(t, "14:00")}
	res := Compute(declared, booked)
	if len(res.Open) != 1 || res.Open[0] != tod(t, "09:00") {
		t.Fatalf("open = %v", res.Open)
	}
}
