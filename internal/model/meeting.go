package model

import (
	"encoding/json"
	"time"
)

// Meeting mirrors a row of the `meetings` table. Each meeting belongs to
// exactly one user (the account responsible for it); clients are external
// contacts identified only by name and email.
//
// Minutes holds optional structured note data serialized as JSON. It is
// never part of the creation form and is only surfaced on reads and admin
// edits. DeletedAt implements soft deletion: an archived meeting keeps its
// row but is excluded from every query that does not explicitly opt in.
type Meeting struct {
	ID          string          // meetings.id (UUID)
	UserID      uint64          // meetings.user_id (owner)
	ClientName  string          // meetings.client_name
	ClientEmail string          // meetings.client_email
	MeetingDate time.Time       // meetings.meeting_date
	Subject     string          // meetings.subject
	Details     string          // meetings.details
	URL         string          // meetings.url
	Status      Status          // meetings.meeting_status
	Minutes     json.RawMessage // meetings.minutes (nullable JSON)
	DeletedAt   *time.Time      // meetings.deleted_at (nullable, soft delete)
	CreatedAt   time.Time       // meetings.created_at
	UpdatedAt   time.Time       // meetings.updated_at
}

// Archived reports whether the meeting has been soft-deleted.
func (m *Meeting) Archived() bool { return m.DeletedAt != nil }
