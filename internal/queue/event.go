// Package queue defines the message payloads exchanged over the broker and
// the background consumer that turns them into notification log entries.
package queue

// EventsQueueName is the durable queue carrying all meeting lifecycle
// events.
const EventsQueueName = "meeting.events"

// Event kinds carried in the envelope.
const (
	KindScheduled     = "scheduled"
	KindStatusChanged = "status_changed"
	KindArchived      = "archived"
)

// MeetingEvent is published after a meeting write commits. It carries
// enough for downstream consumers (notification mailers, analytics) to act
// without querying the primary database. OldStatus is empty for scheduled
// and archived events.
type MeetingEvent struct {
	Kind        string `json:"kind"`
	MeetingID   string `json:"meeting_id"`
	UserID      uint64 `json:"user_id"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	Subject     string `json:"subject"`
	MeetingDate string `json:"meeting_date"`
	URL         string `json:"url,omitempty"`
	OldStatus   string `json:"old_status,omitempty"`
	NewStatus   string `json:"new_status"`
	OccurredAt  string `json:"occurred_at"`
}
