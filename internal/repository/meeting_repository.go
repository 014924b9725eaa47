package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/meeting-admin/internal/model"
)

// MeetingRepo provides CRUD operations for meeting records. Every read and
// write that targets existing rows takes a Scope so the ownership rule is
// enforced in the query itself rather than filtered after the fact.
type MeetingRepo struct {
	DB *sql.DB
}

// NewMeetingRepo returns a MeetingRepo bound to the given database.
func NewMeetingRepo(db *sql.DB) *MeetingRepo { return &MeetingRepo{DB: db} }

// MeetingWithOwner pairs a meeting with its owner's display name, which the
// list and detail views render alongside the record.
type MeetingWithOwner struct {
	model.Meeting
	OwnerName string
}

const meetingCols = `m.id, m.user_id, m.client_name, m.client_email, m.meeting_date,
	m.subject, m.details, m.url, m.meeting_status, m.minutes, m.deleted_at,
	m.created_at, m.updated_at, u.full_name`

func scanMeeting(row interface{ Scan(...any) error }) (MeetingWithOwner, error) {
	var (
		mw        MeetingWithOwner
		rawStatus string
		minutes   sql.NullString
		deletedAt sql.NullTime
	)
	err := row.Scan(
		&mw.ID, &mw.UserID, &mw.ClientName, &mw.ClientEmail, &mw.MeetingDate,
		&mw.Subject, &mw.Details, &mw.URL, &rawStatus, &minutes, &deletedAt,
		&mw.CreatedAt, &mw.UpdatedAt, &mw.OwnerName,
	)
	if err != nil {
		return MeetingWithOwner{}, err
	}
	st, err := model.ParseStatus(rawStatus)
	if err != nil {
		// A value outside the vocabulary in storage is corruption, not
		// something to render with a fallback.
		return MeetingWithOwner{}, fmt.Errorf("meeting %s: %w", mw.ID, err)
	}
	mw.Status = st
	if minutes.Valid {
		mw.Minutes = json.RawMessage(minutes.String)
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		mw.DeletedAt = &t
	}
	return mw, nil
}

// Create inserts a new meeting row. The caller is responsible for having
// assigned the id, owner and status; nothing else is written on success.
func (r *MeetingRepo) Create(ctx context.Context, m *model.Meeting) error {
	var minutes any
	if len(m.Minutes) > 0 {
		minutes = string(m.Minutes)
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO meetings
		   (id, user_id, client_name, client_email, meeting_date, subject, details, url, meeting_status, minutes)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.UserID, m.ClientName, m.ClientEmail, m.MeetingDate.UTC(),
		m.Subject, m.Details, m.URL, string(m.Status), minutes)
	return err
}

// GetByID fetches a single meeting within the caller's scope. A meeting that
// exists but is owned by someone else (or archived without opt-in) comes
// back as ErrMeetingNotFound.
func (r *MeetingRepo) GetByID(ctx context.Context, id string, sc Scope) (MeetingWithOwner, error) {
	conds := []string{"m.id = ?"}
	args := []any{id}
	conds, args = sc.apply("m", conds, args)

	q := `SELECT ` + meetingCols + `
	      FROM meetings m JOIN users u ON u.id = m.user_id
	      WHERE ` + strings.Join(conds, " AND ") + ` LIMIT 1`
	mw, err := scanMeeting(r.DB.QueryRowContext(ctx, q, args...))
	if err == sql.ErrNoRows {
		return MeetingWithOwner{}, ErrMeetingNotFound
	}
	return mw, err
}

// List returns the meetings visible to the caller, newest meeting date
// first.
func (r *MeetingRepo) List(ctx context.Context, sc Scope) ([]MeetingWithOwner, error) {
	conds, args := sc.apply("m", nil, nil)
	q := `SELECT ` + meetingCols + `
	      FROM meetings m JOIN users u ON u.id = m.user_id`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY m.meeting_date DESC`

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MeetingWithOwner, 0)
	for rows.Next() {
		mw, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, mw)
	}
	return out, rows.Err()
}

// Update rewrites the mutable columns of a meeting the caller already
// fetched within scope. The scope is applied again in the WHERE clause so a
// concurrent reassignment cannot widen a restricted actor's reach.
func (r *MeetingRepo) Update(ctx context.Context, m *model.Meeting, sc Scope) error {
	var minutes any
	if len(m.Minutes) > 0 {
		minutes = string(m.Minutes)
	}
	conds := []string{"m.id = ?"}
	args := []any{
		m.UserID, m.ClientName, m.ClientEmail, m.MeetingDate.UTC(),
		m.Subject, m.Details, m.URL, string(m.Status), minutes,
		m.ID,
	}
	conds, args = sc.apply("m", conds, args)

	q := `UPDATE meetings m
	      SET m.user_id=?, m.client_name=?, m.client_email=?, m.meeting_date=?,
	          m.subject=?, m.details=?, m.url=?, m.meeting_status=?, m.minutes=?,
	          m.updated_at=NOW()
	      WHERE ` + strings.Join(conds, " AND ")
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrMeetingNotFound
	}
	return nil
}

// SoftDelete archives a single meeting within scope by stamping deleted_at.
// Already-archived rows and rows outside the scope report ErrMeetingNotFound.
func (r *MeetingRepo) SoftDelete(ctx context.Context, id string, sc Scope) error {
	conds := []string{"m.id = ?"}
	args := []any{time.Now().UTC(), id}
	conds, args = sc.apply("m", conds, args)

	q := `UPDATE meetings m SET m.deleted_at=? WHERE ` + strings.Join(conds, " AND ")
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrMeetingNotFound
	}
	return nil
}

// BulkResult reports the outcome of a bulk archive: which ids were archived
// and which were skipped because they were not visible to the caller.
type BulkResult struct {
	Archived []string `json:"archived"`
	Skipped  []string `json:"skipped"`
}

// SoftDeleteMany archives each selected id independently. A selection that
// includes ids outside the caller's scope leaves those rows untouched;
// partial completion across the set is expected and not rolled back.
func (r *MeetingRepo) SoftDeleteMany(ctx context.Context, ids []string, sc Scope) (BulkResult, error) {
	res := BulkResult{Archived: []string{}, Skipped: []string{}}
	for _, id := range ids {
		err := r.SoftDelete(ctx, id, sc)
		switch err {
		case nil:
			res.Archived = append(res.Archived, id)
		case ErrMeetingNotFound:
			res.Skipped = append(res.Skipped, id)
		default:
			return res, err
		}
	}
	return res, nil
}

// CountByStatus returns the number of visible meetings in each of the four
// lifecycle states. All four keys are always present, zero-valued when no
// rows match, and the same scope as every other query applies.
func (r *MeetingRepo) CountByStatus(ctx context.Context, sc Scope) (map[model.Status]int64, error) {
	conds, args := sc.apply("m", nil, nil)
	q := `SELECT m.meeting_status, COUNT(*) FROM meetings m`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` GROUP BY m.meeting_status`

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.Status]int64, len(model.AllStatuses))
	for _, s := range model.AllStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var (
			raw string
			n   int64
		)
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, err
		}
		st, err := model.ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		counts[st] = n
	}
	return counts, rows.Err()
}
