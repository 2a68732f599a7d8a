package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Event routing keys as constants
const (
	EventMindMapGenerated = "mindmap.generated"
	EventMindMapFallback  = "mindmap.fallback"
)

// ServiceName is stamped on every event this service emits
const ServiceName = "mindmap-service"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// MindMapGeneratedEvent is emitted whenever a patient mind map was built from
// backend records. It doubles as an access trail for clinical record views.
type MindMapGeneratedEvent struct {
	BaseEvent
	Data MindMapGeneratedData `json:"data"`
}

type MindMapGeneratedData struct {
	PatientID      string    `json:"patient_id"`
	OrganizationID string    `json:"organization_id,omitempty"`
	RequestedBy    string    `json:"requested_by,omitempty"`
	Conditions     int       `json:"conditions"`
	Encounters     int       `json:"encounters"`
	Medications    int       `json:"medications"`
	Alerts         int       `json:"alerts"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// MindMapFallbackEvent is emitted when the backend could not supply the
// records and an empty mind map was served instead.
type MindMapFallbackEvent struct {
	BaseEvent
	Data MindMapFallbackData `json:"data"`
}

type MindMapFallbackData struct {
	PatientID   string    `json:"patient_id"`
	RequestedBy string    `json:"requested_by,omitempty"`
	Reason      string    `json:"reason"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: ServiceName,
	}
}
