package model

import (
	"encoding/json"
	"fmt"
)

// TimeOfDay is a slot start expressed as minutes since midnight. Slots sit on
// fixed SlotGranularity boundaries, so the value is comparable and sortable
// without any timezone baggage.
type TimeOfDay int

// SlotGranularity is the fixed slot step in minutes.
const SlotGranularity = 15

const minutesPerDay = 24 * 60

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return TimeOfDay(hh*60 + mm), nil
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

// OnBoundary reports whether the slot sits on the fixed granularity grid.
func (t TimeOfDay) OnBoundary() bool {
	return t.Valid() && int(t)%SlotGranularity == 0
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
