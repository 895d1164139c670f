package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/calendar"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/engine"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
)

type CalendarHandler struct {
	engine *engine.Engine
}

func NewCalendarHandler(eng *engine.Engine) *CalendarHandler {
	return &CalendarHandler{engine: eng}
}

type calendarResponse struct {
	Month string             `json:"month"`
	Cells []calendar.DayCell `json:"cells"`
}

// Month serves the booking-page month grid: Monday-first leading blanks, then
// one cell per day flagged past, beyond the booking window, or bookable.
func (h *CalendarHandler) Month(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	monthStr := strings.TrimSpace(r.URL.Query().Get("month"))
	if monthStr == "" {
		http.Error(w, "month required (YYYY-MM)", http.StatusBadRequest)
		return
	}
	parsed, err := time.Parse("2006-01", monthStr)
	if err != nil {
		http.Error(w, "invalid month (YYYY-MM)", http.StatusBadRequest)
		return
	}

	today := model.DateOf(h.engine.Now())
	cells := make([]calendar.DayCell, 0, 42)
	for cell := range calendar.MonthCells(parsed.Year(), parsed.Month(), today, h.engine.HorizonMonths()) {
		cells = append(cells, cell)
	}

	writeJSON(w, http.StatusOK, calendarResponse{Month: monthStr, Cells: cells})
}
