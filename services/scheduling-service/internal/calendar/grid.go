// Package calendar renders a month into booking-calendar cells. It is pure:
// "today" is always an input, never read from the clock.
package calendar

import (
	"iter"
	"time"

	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
)

// CellState classifies a day cell for the booking UI.
type CellState string

const (
	// StateBlank pads the first week so weekday columns line up.
	StateBlank CellState = "blank"
	StatePast  CellState = "past"
	// StateBeyondHorizon marks days later than the bookable horizon.
	StateBeyondHorizon CellState = "beyond_horizon"
	StateBookable      CellState = "bookable"
)

type DayCell struct {
	Day     int        `json:"day,omitempty"` // 0 for blank padding cells
	Date    model.Date `json:"date,omitzero"`
	Weekday string     `json:"weekday,omitempty"`
	State   CellState  `json:"state"`
	Today   bool       `json:"today,omitempty"`
}

// DefaultHorizonMonths is the maximum lookahead for bookable cells.
const DefaultHorizonMonths = 6

// MonthCells yields the cells for year/month in order: leading blanks
// (weeks start on Monday), then one cell per day. The sequence is lazy and can
// be ranged over any number of times.
func MonthCells(year int, month time.Month, today model.Date, horizonMonths int) iter.Seq[DayCell] {
	if horizonMonths <= 0 {
		horizonMonths = DefaultHorizonMonths
	}
	return func(yield func(DayCell) bool) {
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		horizon := today.AddMonths(horizonMonths)

		for i := 0; i < leadingBlanks(first.Weekday()); i++ {
			if !yield(DayCell{State: StateBlank}) {
				return
			}
		}

		daysInMonth := first.AddDate(0, 1, -1).Day()
		for day := 1; day <= daysInMonth; day++ {
			date := model.Date{Year: year, Month: month, Day: day}
			cell := DayCell{
				Day:     day,
				Date:    date,
				Weekday: date.Time().Weekday().String(),
				Today:   date == today,
			}
			switch {
			case date.Before(today):
				cell.State = StatePast
			case date.After(horizon):
				cell.State = StateBeyondHorizon
			default:
				cell.State = StateBookable
			}
			if !yield(cell) {
				return
			}
		}
	}
}

// leadingBlanks maps a weekday onto the number of pad cells for a
// Monday-first week.
func leadingBlanks(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
