package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-admin/internal/auth"
	"github.com/iliyamo/meeting-admin/internal/middleware"
	"github.com/iliyamo/meeting-admin/internal/model"
	"github.com/iliyamo/meeting-admin/internal/queue"
	"github.com/iliyamo/meeting-admin/internal/repository"
	"github.com/iliyamo/meeting-admin/internal/validate"
)

// MeetingStore is the persistence surface the meeting endpoints need. The
// concrete implementation is repository.MeetingRepo; tests substitute an
// in-memory fake.
type MeetingStore interface {
	Create(ctx context.Context, m *model.Meeting) error
	GetByID(ctx context.Context, id string, sc repository.Scope) (repository.MeetingWithOwner, error)
	List(ctx context.Context, sc repository.Scope) ([]repository.MeetingWithOwner, error)
	Update(ctx context.Context, m *model.Meeting, sc repository.Scope) error
	SoftDeleteMany(ctx context.Context, ids []string, sc repository.Scope) (repository.BulkResult, error)
	CountByStatus(ctx context.Context, sc repository.Scope) (map[model.Status]int64, error)
}

// UserDirectory answers the role queries behind owner assignment: the
// referential check and the selector options.
type UserDirectory interface {
	HoldsRole(ctx context.Context, id uint64, role string) (bool, error)
	ListOptionsByRole(ctx context.Context, role string) ([]model.UserOption, error)
}

// EventSink receives lifecycle events after successful writes. Publishing
// is best-effort and never fails the request.
type EventSink interface {
	Publish(ctx context.Context, event queue.MeetingEvent) error
}

// MeetingHandler implements the meeting CRUD surface. All methods assume
// JWTAuth ran and an identity is present in the context.
type MeetingHandler struct {
	Meetings MeetingStore
	Users    UserDirectory
	Events   EventSink
}

func NewMeetingHandler(meetings MeetingStore, users UserDirectory, events EventSink) *MeetingHandler {
	return &MeetingHandler{Meetings: meetings, Users: users, Events: events}
}

// ----- DTOs -----

type createMeetingReq struct {
	UserID      *uint64   `json:"user_id"`
	ClientName  string    `json:"client_name"`
	ClientEmail string    `json:"client_email"`
	MeetingDate time.Time `json:"meeting_date"`
	Subject     string    `json:"subject"`
	Details     string    `json:"details"`
	URL         string    `json:"url"`
	// meeting_status and minutes are deliberately absent: creation always
	// starts at requested and minutes are not part of the form.
}

type updateMeetingReq struct {
	UserID      *uint64         `json:"user_id"`
	ClientName  string          `json:"client_name"`
	ClientEmail string          `json:"client_email"`
	MeetingDate time.Time       `json:"meeting_date"`
	Subject     string          `json:"subject"`
	Details     string          `json:"details"`
	URL         string          `json:"url"`
	Status      string          `json:"meeting_status"`
	Minutes     json.RawMessage `json:"minutes"`
}

type meetingResp struct {
	ID            string              `json:"id"`
	UserID        uint64              `json:"user_id"`
	OwnerName     string              `json:"owner_name"`
	ClientName    string              `json:"client_name"`
	ClientEmail   string              `json:"client_email"`
	MeetingDate   time.Time           `json:"meeting_date"`
	Subject       string              `json:"subject"`
	Details       string              `json:"details"`
	URL           string              `json:"url"`
	Status        string              `json:"meeting_status"`
	StatusDisplay model.StatusDisplay `json:"status_display"`
	Minutes       json.RawMessage     `json:"minutes,omitempty"`
	DeletedAt     *time.Time          `json:"deleted_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func toMeetingResp(mw repository.MeetingWithOwner) (meetingResp, error) {
	disp, err := mw.Status.Display()
	if err != nil {
		return meetingResp{}, err
	}
	return meetingResp{
		ID:            mw.ID,
		UserID:        mw.UserID,
		OwnerName:     mw.OwnerName,
		ClientName:    mw.ClientName,
		ClientEmail:   mw.ClientEmail,
		MeetingDate:   mw.MeetingDate,
		Subject:       mw.Subject,
		Details:       mw.Details,
		URL:           mw.URL,
		Status:        string(mw.Status),
		StatusDisplay: disp,
		Minutes:       mw.Minutes,
		DeletedAt:     mw.DeletedAt,
		CreatedAt:     mw.CreatedAt,
		UpdatedAt:     mw.UpdatedAt,
	}, nil
}

func meetingInput(clientName, clientEmail, subject, details, url string) validate.MeetingInput {
	return validate.MeetingInput{
		ClientName:  clientName,
		ClientEmail: clientEmail,
		Subject:     subject,
		Details:     details,
		URL:         url,
	}
}

// resolveOwner decides who a meeting belongs to. A restricted actor always
// owns their own meetings regardless of what they submitted. A privileged
// actor may pick any account holding the USER role; an unset field falls
// back to the actor themselves.
func (h *MeetingHandler) resolveOwner(ctx context.Context, id auth.Identity, submitted *uint64) (uint64, string, error) {
	if auth.HasRole(id, auth.RoleUser) || submitted == nil {
		return id.ID, "", nil
	}
	if *submitted != id.ID {
		ok, err := h.Users.HoldsRole(ctx, *submitted, auth.RoleUser)
		if err != nil {
			return 0, "", err
		}
		if !ok {
			return 0, "user_id must reference an active regular user", nil
		}
	}
	return *submitted, "", nil
}

func (h *MeetingHandler) publish(ev queue.MeetingEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.Events.Publish(ctx, ev)
	}()
}

// Create handles POST /v1/meetings. A valid submission inserts exactly one
// row with status requested; a rejected one writes nothing.
func (h *MeetingHandler) Create(c echo.Context) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createMeetingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	in := meetingInput(req.ClientName, req.ClientEmail, req.Subject, req.Details, req.URL)
	errs := validate.CreateMeeting(in, req.MeetingDate, time.Now())

	ctx := c.Request().Context()
	owner, fieldErr, err := h.resolveOwner(ctx, identity, req.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if fieldErr != "" {
		errs["user_id"] = fieldErr
	}
	if !errs.OK() {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": errs})
	}

	m := &model.Meeting{
		ID:          uuid.NewString(),
		UserID:      owner,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		MeetingDate: req.MeetingDate.UTC(),
		Subject:     req.Subject,
		Details:     req.Details,
		URL:         req.URL,
		Status:      model.StatusRequested,
	}
	if err := h.Meetings.Create(ctx, m); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}

	mw, err := h.Meetings.GetByID(ctx, m.ID, repository.ScopeFor(identity))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load failed"})
	}
	resp, err := toMeetingResp(mw)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	h.publish(queue.MeetingEvent{
		Kind:        queue.KindScheduled,
		MeetingID:   m.ID,
		UserID:      m.UserID,
		ClientName:  m.ClientName,
		ClientEmail: m.ClientEmail,
		Subject:     m.Subject,
		MeetingDate: m.MeetingDate.Format(time.RFC3339),
		URL:         m.URL,
		NewStatus:   string(m.Status),
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	})
	return c.JSON(http.StatusCreated, resp)
}

// List handles GET /v1/meetings. Results are scoped to the caller; archived
// rows appear only with ?include_archived=true.
func (h *MeetingHandler) List(c echo.Context) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sc := repository.ScopeFor(identity)
	if c.QueryParam("include_archived") == "true" {
		sc = sc.WithArchived()
	}

	items, err := h.Meetings.List(c.Request().Context(), sc)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]meetingResp, 0, len(items))
	for _, mw := range items {
		resp, err := toMeetingResp(mw)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
		out = append(out, resp)
	}
	return c.JSON(http.StatusOK, echo.Map{"meetings": out})
}

// Get handles GET /v1/meetings/:id. A meeting outside the caller's scope is
// indistinguishable from a missing one.
func (h *MeetingHandler) Get(c echo.Context) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sc := repository.ScopeFor(identity)
	if c.QueryParam("include_archived") == "true" {
		sc = sc.WithArchived()
	}

	mw, err := h.Meetings.GetByID(c.Request().Context(), c.Param("id"), sc)
	if err != nil {
		if err == repository.ErrMeetingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "meeting not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	resp, err := toMeetingResp(mw)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Update handles PUT /v1/meetings/:id. Ownership reassignment and minutes
// edits are privileged-only; a restricted actor's submission of either is
// ignored rather than rejected, mirroring a hidden form field. The meeting
// date is not re-checked against the clock on edit.
func (h *MeetingHandler) Update(c echo.Context) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateMeetingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx := c.Request().Context()
	sc := repository.ScopeFor(identity)
	existing, err := h.Meetings.GetByID(ctx, c.Param("id"), sc)
	if err != nil {
		if err == repository.ErrMeetingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "meeting not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	in := meetingInput(req.ClientName, req.ClientEmail, req.Subject, req.Details, req.URL)
	errs := validate.EditMeeting(in, req.MeetingDate)

	status := existing.Status
	if req.Status != "" {
		parsed, err := model.ParseStatus(req.Status)
		if err != nil {
			errs["meeting_status"] = "must be one of requested, accepted, finished, cancelled"
		} else {
			status = parsed
		}
	}

	owner := existing.UserID
	if identity.Privileged() && req.UserID != nil && *req.UserID != existing.UserID {
		ok, err := h.Users.HoldsRole(ctx, *req.UserID, auth.RoleUser)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if !ok {
			errs["user_id"] = "user_id must reference an active regular user"
		} else {
			owner = *req.UserID
		}
	}
	if !errs.OK() {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": errs})
	}

	minutes := existing.Minutes
	if identity.Privileged() && req.Minutes != nil {
		minutes = req.Minutes
	}

	m := &model.Meeting{
		ID:          existing.ID,
		UserID:      owner,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		MeetingDate: req.MeetingDate.UTC(),
		Subject:     req.Subject,
		Details:     req.Details,
		URL:         req.URL,
		Status:      status,
		Minutes:     minutes,
	}
	if err := h.Meetings.Update(ctx, m, sc); err != nil {
		if err == repository.ErrMeetingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "meeting not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	mw, err := h.Meetings.GetByID(ctx, m.ID, sc)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load failed"})
	}
	resp, err := toMeetingResp(mw)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	if status != existing.Status {
		h.publish(queue.MeetingEvent{
			Kind:        queue.KindStatusChanged,
			MeetingID:   m.ID,
			UserID:      m.UserID,
			ClientName:  m.ClientName,
			ClientEmail: m.ClientEmail,
			Subject:     m.Subject,
			MeetingDate: m.MeetingDate.Format(time.RFC3339),
			OldStatus:   string(existing.Status),
			NewStatus:   string(status),
			OccurredAt:  time.Now().UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, resp)
}
