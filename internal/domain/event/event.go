package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/medialert/reportflow/internal/domain/entity"
)

// Payload keys used by report events
const (
	PayloadPreviousStatus = "previous_status"
	PayloadNewStatus      = "new_status"
	PayloadActorID        = "actor_id"
	PayloadAction         = "action"
)

// Event represents a domain event
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	ReportID      int64                  `json:"report_id"`
	Report        *entity.Report         `json:"report,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp.
// The report is copied so handlers never observe later mutations.
func NewEvent(eventType Type, report *entity.Report, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, report, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, report *entity.Report, payload map[string]interface{}, correlationID string) *Event {
	var reportID int64
	if report != nil {
		reportID = report.ID
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		ReportID:      reportID,
		Report:        report.Clone(),
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
