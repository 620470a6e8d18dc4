package calendar

import (
	"time"

	"github.com/google/uuid"
)

const ProviderGoogle = "google"

// Connection links a user to an external calendar account. Watch fields are
// set on watch registration and cleared on teardown; inbound webhooks are
// routed back to a connection by the (WatchChannelID, WatchResourceID) pair.
type Connection struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Provider        string
	ProviderEmail   string
	CalendarList    []Entry
	SyncEnabled     bool
	AccessToken     string
	RefreshToken    string
	TokenExpiresAt  *time.Time
	WatchChannelID  *string
	WatchResourceID *string
	WatchExpiration *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Entry is one calendar in the connection's selectable calendar list,
// stored as jsonb.
type Entry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Primary  bool   `json:"primary"`
	Selected bool   `json:"selected"`
}

// WatchCalendarID picks the calendar the watch channel should observe:
// the primary calendar, else the first selected one, else "primary".
func (c *Connection) WatchCalendarID() string {
	for _, entry := range c.CalendarList {
		if entry.Primary {
			return entry.ID
		}
	}
	for _, entry := range c.CalendarList {
		if entry.Selected {
			return entry.ID
		}
	}
	return "primary"
}

type UpdateWatchInput struct {
	ChannelID  string
	ResourceID string
	Expiration time.Time
}

type UpdateTokensInput struct {
	AccessToken    string
	RefreshToken   *string
	TokenExpiresAt time.Time
}
