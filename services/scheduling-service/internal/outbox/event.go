package outbox

import (
	"encoding/json"

	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
)

// Event is the envelope written to the outbox table. The Kafka topic name
// equals EventType (one topic per event type).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Topic returns the lifecycle topic for an appointment status.
func Topic(status string) string {
	return "scheduling.appointment." + status + ".v1"
}

// EventFrom wraps a lifecycle event in the outbox envelope.
func EventFrom(evt model.LifecycleEvent) (Event, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   evt.AppointmentID,
		EventType:     Topic(string(evt.Status)),
		Payload:       payload,
	}, nil
}
