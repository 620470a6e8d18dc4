package meeting

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ResponseStatus is a participant's reply to a meeting invitation.
// Valid transitions: pending -> {accepted, declined, tentative}, and back to
// pending when the organizer reschedules.
type ResponseStatus string

const (
	ResponsePending   ResponseStatus = "pending"
	ResponseAccepted  ResponseStatus = "accepted"
	ResponseDeclined  ResponseStatus = "declined"
	ResponseTentative ResponseStatus = "tentative"
)

// FromProvider maps a Google Calendar attendee responseStatus onto the local
// vocabulary. Unknown values map to pending.
func FromProvider(status string) ResponseStatus {
	switch status {
	case "accepted":
		return ResponseAccepted
	case "declined":
		return ResponseDeclined
	case "tentative":
		return ResponseTentative
	default: // "needsAction" and anything unrecognized
		return ResponsePending
	}
}

// ToProvider maps a local response status onto Google Calendar's vocabulary.
func (s ResponseStatus) ToProvider() string {
	if s == ResponsePending {
		return "needsAction"
	}
	return string(s)
}

func (s ResponseStatus) Valid() bool {
	switch s {
	case ResponsePending, ResponseAccepted, ResponseDeclined, ResponseTentative:
		return true
	}
	return false
}

type Meeting struct {
	ID          uuid.UUID
	OrganizerID uuid.UUID
	Title       string
	StartTime   time.Time
	EndTime     time.Time
	// EventRefs holds external calendar event references, one per
	// participant/provider pair, stored as jsonb.
	EventRefs []EventRef
	CreatedAt time.Time
	UpdatedAt time.Time
}

type EventRef struct {
	EventID string    `json:"eventId"`
	UserID  uuid.UUID `json:"userId"`
}

// UnmarshalJSON accepts both the object form and the legacy bare-string form
// still present in older meeting rows.
func (r *EventRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		r.EventID = id
		return nil
	}
	type eventRef EventRef
	var ref eventRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return err
	}
	*r = EventRef(ref)
	return nil
}

type Participant struct {
	MeetingID      uuid.UUID
	UserID         uuid.UUID
	Email          string
	ResponseStatus ResponseStatus
	RespondedAt    *time.Time
}

type RescheduleInput struct {
	StartTime time.Time
	EndTime   time.Time
}

// ReminderCandidate is one participant of an upcoming meeting who has not
// been reminded about it yet.
type ReminderCandidate struct {
	MeetingID uuid.UUID
	UserID    uuid.UUID
	Email     string
	FullName  string
	Title     string
	StartTime time.Time
}
