package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meeting-admin/internal/auth"
	"github.com/iliyamo/meeting-admin/internal/middleware"
	"github.com/iliyamo/meeting-admin/internal/model"
	"github.com/iliyamo/meeting-admin/internal/queue"
	"github.com/iliyamo/meeting-admin/internal/repository"
)

// ----- in-memory fakes -----

type fakeStore struct {
	mu       sync.Mutex
	meetings map[string]*model.Meeting
	owners   map[uint64]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		meetings: make(map[string]*model.Meeting),
		owners:   map[uint64]string{1: "Admin One", 7: "Uma User", 8: "Otto Other"},
	}
}

func (s *fakeStore) visible(m *model.Meeting, sc repository.Scope) bool {
	if m.DeletedAt != nil && !sc.IncludeArchived {
		return false
	}
	if sc.Restricted && m.UserID != sc.ActorID {
		return false
	}
	return true
}

func (s *fakeStore) withOwner(m *model.Meeting) repository.MeetingWithOwner {
	return repository.MeetingWithOwner{Meeting: *m, OwnerName: s.owners[m.UserID]}
}

func (s *fakeStore) Create(_ context.Context, m *model.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	s.meetings[m.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id string, sc repository.Scope) (repository.MeetingWithOwner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok || !s.visible(m, sc) {
		return repository.MeetingWithOwner{}, repository.ErrMeetingNotFound
	}
	return s.withOwner(m), nil
}

func (s *fakeStore) List(_ context.Context, sc repository.Scope) ([]repository.MeetingWithOwner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.MeetingWithOwner
	for _, m := range s.meetings {
		if s.visible(m, sc) {
			out = append(out, s.withOwner(m))
		}
	}
	return out, nil
}

func (s *fakeStore) Update(_ context.Context, m *model.Meeting, sc repository.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.meetings[m.ID]
	if !ok || !s.visible(cur, sc) {
		return repository.ErrMeetingNotFound
	}
	cur.UserID = m.UserID
	cur.ClientName = m.ClientName
	cur.ClientEmail = m.ClientEmail
	cur.MeetingDate = m.MeetingDate
	cur.Subject = m.Subject
	cur.Details = m.Details
	cur.URL = m.URL
	cur.Status = m.Status
	cur.Minutes = m.Minutes
	cur.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *fakeStore) SoftDeleteMany(_ context.Context, ids []string, sc repository.Scope) (repository.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := repository.BulkResult{Archived: []string{}, Skipped: []string{}}
	for _, id := range ids {
		m, ok := s.meetings[id]
		if !ok || !s.visible(m, sc) {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		now := time.Now().UTC()
		m.DeletedAt = &now
		result.Archived = append(result.Archived, id)
	}
	return result, nil
}

func (s *fakeStore) CountByStatus(_ context.Context, sc repository.Scope) (map[model.Status]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[model.Status]int64, len(model.AllStatuses))
	for _, st := range model.AllStatuses {
		counts[st] = 0
	}
	for _, m := range s.meetings {
		if s.visible(m, sc) {
			counts[m.Status]++
		}
	}
	return counts, nil
}

func (s *fakeStore) get(id string) model.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.meetings[id]
}

func (s *fakeStore) seed(id string, owner uint64, status model.Status, archived bool) {
	m := &model.Meeting{
		ID:          id,
		UserID:      owner,
		ClientName:  "Acme",
		ClientEmail: "a@acme.com",
		MeetingDate: time.Now().UTC().Add(24 * time.Hour),
		Subject:     "Kickoff",
		Details:     "Project kickoff call",
		URL:         "https://acme.com/meet",
		Status:      status,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if archived {
		now := time.Now().UTC()
		m.DeletedAt = &now
	}
	s.mu.Lock()
	s.meetings[id] = m
	s.mu.Unlock()
}

type fakeDirectory struct {
	roles map[uint64]string
	names map[uint64]string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		roles: map[uint64]string{1: auth.RoleAdmin, 7: auth.RoleUser, 8: auth.RoleUser},
		names: map[uint64]string{1: "Admin One", 7: "Uma User", 8: "Otto Other"},
	}
}

func (d *fakeDirectory) HoldsRole(_ context.Context, id uint64, role string) (bool, error) {
	return d.roles[id] == role, nil
}

func (d *fakeDirectory) ListOptionsByRole(_ context.Context, role string) ([]model.UserOption, error) {
	var out []model.UserOption
	for id, r := range d.roles {
		if r == role {
			out = append(out, model.UserOption{ID: id, Name: d.names[id]})
		}
	}
	return out, nil
}

type fakeSink struct {
	mu     sync.Mutex
	events []queue.MeetingEvent
}

func (s *fakeSink) Publish(_ context.Context, ev queue.MeetingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *fakeSink) snapshot() []queue.MeetingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]queue.MeetingEvent, len(s.events))
	copy(out, s.events)
	return out
}

// ----- harness -----

type env struct {
	e       *echo.Echo
	handler *MeetingHandler
	store   *fakeStore
	users   *fakeDirectory
	sink    *fakeSink
}

func newEnv() *env {
	store := newFakeStore()
	users := newFakeDirectory()
	sink := &fakeSink{}
	return &env{
		e:       echo.New(),
		handler: NewMeetingHandler(store, users, sink),
		store:   store,
		users:   users,
		sink:    sink,
	}
}

var (
	asAdmin = auth.Identity{ID: 1, Role: auth.RoleAdmin}
	asUser  = auth.Identity{ID: 7, Role: auth.RoleUser}
)

func (ev *env) request(method, target, body string, id auth.Identity) (echo.Context, *httptest.ResponseRecorder) {
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := ev.e.NewContext(req, rec)
	middleware.SetIdentity(c, id)
	return c, rec
}

func createBody(userID string) string {
	date := time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339)
	base := fmt.Sprintf(`"client_name":"Acme","client_email":"a@acme.com","meeting_date":%q,"subject":"Kickoff","details":"Project kickoff call","url":"https://acme.com/meet"`, date)
	if userID != "" {
		return fmt.Sprintf(`{"user_id":%s,%s}`, userID, base)
	}
	return "{" + base + "}"
}

func waitEvents(t *testing.T, sink *fakeSink, n int) []queue.MeetingEvent {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(sink.snapshot()) >= n
	}, 2*time.Second, 10*time.Millisecond)
	return sink.snapshot()
}

// ----- create -----

func TestCreate_RegularUserAlwaysOwnsTheirMeeting(t *testing.T) {
	ev := newEnv()
	// The submitted user_id is ignored for regular users, mirroring a form
	// field they never see.
	c, rec := ev.request(http.MethodPost, "/v1/meetings", createBody("99"), asUser)
	require.NoError(t, ev.handler.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID            string              `json:"id"`
		UserID        uint64              `json:"user_id"`
		Status        string              `json:"meeting_status"`
		StatusDisplay model.StatusDisplay `json:"status_display"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, uint64(7), resp.UserID)
	require.Equal(t, "requested", resp.Status)
	require.Equal(t, "Solicitada", resp.StatusDisplay.Label)

	stored := ev.store.get(resp.ID)
	require.Equal(t, uint64(7), stored.UserID)
	require.Equal(t, model.StatusRequested, stored.Status)

	events := waitEvents(t, ev.sink, 1)
	require.Equal(t, queue.KindScheduled, events[0].Kind)
	require.Equal(t, resp.ID, events[0].MeetingID)
}

func TestCreate_AdminAssignsRegularUser(t *testing.T) {
	ev := newEnv()
	c, rec := ev.request(http.MethodPost, "/v1/meetings", createBody("7"), asAdmin)
	require.NoError(t, ev.handler.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID        string `json:"id"`
		UserID    uint64 `json:"user_id"`
		OwnerName string `json:"owner_name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, uint64(7), resp.UserID)
	require.Equal(t, "Uma User", resp.OwnerName)
}

func TestCreate_AdminCannotAssignNonUser(t *testing.T) {
	ev := newEnv()
	c, rec := ev.request(http.MethodPost, "/v1/meetings", createBody("99"), asAdmin)
	require.NoError(t, ev.handler.Create(c))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Errors, "user_id")
	require.Empty(t, ev.store.meetings)
}

func TestCreate_InvalidSubmissionWritesNothing(t *testing.T) {
	ev := newEnv()
	date := time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339)
	body := fmt.Sprintf(`{"client_name":"Acme","client_email":"not-an-email","meeting_date":%q,"subject":"Kickoff","details":"d","url":"https://acme.com"}`, date)
	c, rec := ev.request(http.MethodPost, "/v1/meetings", body, asUser)
	require.NoError(t, ev.handler.Create(c))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Errors, "client_email")
	require.Empty(t, ev.store.meetings)
	require.Empty(t, ev.sink.snapshot())
}

func TestCreate_PastDateRejected(t *testing.T) {
	ev := newEnv()
	date := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	body := fmt.Sprintf(`{"client_name":"Acme","client_email":"a@acme.com","meeting_date":%q,"subject":"Kickoff","details":"d","url":"https://acme.com"}`, date)
	c, rec := ev.request(http.MethodPost, "/v1/meetings", body, asUser)
	require.NoError(t, ev.handler.Create(c))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Errors, "meeting_date")
}

// ----- get -----

func TestGet_OtherOwnersMeetingLooksMissing(t *testing.T) {
	ev := newEnv()
	ev.store.seed("m-other", 8, model.StatusRequested, false)

	c, rec := ev.request(http.MethodGet, "/v1/meetings/m-other", "", asUser)
	c.SetParamNames("id")
	c.SetParamValues("m-other")
	require.NoError(t, ev.handler.Get(c))
	require.Equal(t, http.StatusNotFound, rec.Code)

	// The same record is plainly visible to an admin.
	c, rec = ev.request(http.MethodGet, "/v1/meetings/m-other", "", asAdmin)
	c.SetParamNames("id")
	c.SetParamValues("m-other")
	require.NoError(t, ev.handler.Get(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGet_ArchivedHiddenByDefault(t *testing.T) {
	ev := newEnv()
	ev.store.seed("m-arch", 7, model.StatusCancelled, true)

	c, rec := ev.request(http.MethodGet, "/v1/meetings/m-arch", "", asUser)
	c.SetParamNames("id")
	c.SetParamValues("m-arch")
	require.NoError(t, ev.handler.Get(c))
	require.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = ev.request(http.MethodGet, "/v1/meetings/m-arch?include_archived=true", "", asUser)
	c.SetParamNames("id")
	c.SetParamValues("m-arch")
	require.NoError(t, ev.handler.Get(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

// ----- list -----

func TestList_ScopedToCaller(t *testing.T) {
	ev := newEnv()
	ev.store.seed("m-mine", 7, model.StatusRequested, false)
	ev.store.seed("m-mine-arch", 7, model.StatusCancelled, true)
	ev.store.seed("m-other", 8, model.StatusAccepted, false)

	list := func(target string, id auth.Identity) []string {
		c, rec := ev.request(http.MethodGet, target, "", id)
		require.NoError(t, ev.handler.List(c))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Meetings []struct {
				ID string `json:"id"`
			} `json:"meetings"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		ids := make([]string, 0, len(resp.Meetings))
		for _, m := range resp.Meetings {
			ids = append(ids, m.ID)
		}
		return ids
	}

	require.ElementsMatch(t, []string{"m-mine"}, list("/v1/meetings", asUser))
	require.ElementsMatch(t, []string{"m-mine", "m-mine-arch"}, list("/v1/meetings?include_archived=true", asUser))
	require.ElementsMatch(t, []string{"m-mine", "m-other"}, list("/v1/meetings", asAdmin))
	require.ElementsMatch(t, []string{"m-mine", "m-mine-arch", "m-other"}, list("/v1/meetings?include_archived=true", asAdmin))
}

// ----- update -----

func updateBody(extra string) string {
	date := time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)
	base := fmt.Sprintf(`"client_name":"Acme","client_email":"a@acme.com","meeting_date":%q,"subject":"Kickoff","details":"Project kickoff call","url":"https://acme.com/meet"`, date)
	if extra != "" {
		return fmt.Sprintf(`{%s,%s}`, base, extra)
	}
	return "{" + base + "}"
}

func TestUpdate_StatusChangePublishesEvent(t *testing.T) {
	ev := newEnv()
	ev.store.seed("m-1", 7, model.StatusRequested, false)

	c, rec := ev.request(http.MethodPut, "/v1/meetings/m-1", updateBody(`"meeting_status":"accepted"`), asAdmin)
	c.SetParamNames("id")
	c.SetParamValues("m-1")
	require.NoError(t, ev.handler.Update(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status        string              `json:"meeting_status"`
		StatusDisplay model.StatusDisplay `json:"status_display"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "accepted", resp.Status)
	require.Equal(t, "Aceptada", resp.StatusDisplay.Label)

	events := waitEvents(t, ev.sink, 1)
	require.Equal(t, queue.KindStatusChanged, events[0].Kind)
	require.Equal(t, "requested", events[0].OldStatus)
	require.Equal(t, "accepted", events[0].NewStatus)
}

func TestUpdate_UnchangedStatusPublishesNothing(t *testing.T) {
	ev := newEnv()
	ev.store.seed("m-1", 7, model.StatusAccepted, false)

	c, rec := ev.request(http.MethodPut, "/v1/meetings/m-1", updateBody(`"meeting_status":"accepted"`), asUser)
	c.SetParamNames("id")
	c.SetParamValues("m-1")
	require.NoError(t, ev.handler.Update(c))
	require.Equal(t, http.StatusOK, rec.Code)

	time.Sleep(50 * time.Millisecond)
	require.Empty(t, ev.sink.snapshot())
}

func TestUpdate_UnknownStatusRejected(t *testing.T) {
	ev := newEnv()
	ev.store.seed("m-1", 7, model.StatusRequested, false)

	c, rec := ev.request(http.MethodPut, "/v1/meetings/m-1", updateBody(`"meeting_status":"deleted"`), asUser)
	c.SetParamNames("id")
	c.SetParamValues("m-1")
	require.NoError(t, ev.handler.Update(c))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, model.StatusRequested, ev.store.get("m-1").Status)
}

func TestUpdate_RestrictedActorCannotReassignOrEditMinutes(t *testing.T) {
	ev := newEnv()
	ev.store.seed("m-1", 7, model.StatusRequested, false)

	c, rec := ev.request(http.MethodPut, "/v1/meetings/m-1", updateBody(`"user_id":8,"minutes":{"notes":"x"}`), asUser)
	c.SetParamNames("id")
	c.SetParamValues("m-1")
	require.NoError(t, ev.handler.Update(c))
	require.Equal(t, http.StatusOK, rec.Code)

	stored := ev.store.get("m-1")
	require.Equal(t, uint64(7), stored.UserID)
	require.Nil(t, stored.Minutes)
}

func TestUpdate_PrivilegedReassignAndMinutes(t *testing.T) {
	ev := newEnv()
	ev.store.seed("m-1", 7, model.StatusRequested, false)

	c, rec := ev.request(http.MethodPut, "/v1/meetings/m-1", updateBody(`"user_id":8,"minutes":{"notes":"follow up"}`), asAdmin)
	c.SetParamNames("id")
	c.SetParamValues("m-1")
	require.NoError(t, ev.handler.Update(c))
	require.Equal(t, http.StatusOK, rec.Code)

	stored := ev.store.get("m-1")
	require.Equal(t, uint64(8), stored.UserID)
	require.JSONEq(t, `{"notes":"follow up"}`, string(stored.Minutes))
}

func TestUpdate_OtherOwnersMeetingLooksMissing(t *testing.T) {
	ev := newEnv()
	ev.store.seed("m-other", 8, model.StatusRequested, false)

	c, rec := ev.request(http.MethodPut, "/v1/meetings/m-other", updateBody(""), asUser)
	c.SetParamNames("id")
	c.SetParamValues("m-other")
	require.NoError(t, ev.handler.Update(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, uint64(8), ev.store.get("m-other").UserID)
}

func TestUpdate_PastDateAllowedOnEdit(t *testing.T) {
	ev := newEnv()
	ev.store.seed("m-1", 7, model.StatusFinished, false)

	date := time.Now().UTC().Add(-72 * time.Hour).Format(time.RFC3339)
	body := fmt.Sprintf(`{"client_name":"Acme","client_email":"a@acme.com","meeting_date":%q,"subject":"Kickoff","details":"d","url":"https://acme.com"}`, date)
	c, rec := ev.request(http.MethodPut, "/v1/meetings/m-1", body, asUser)
	c.SetParamNames("id")
	c.SetParamValues("m-1")
	require.NoError(t, ev.handler.Update(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

// ----- bulk delete -----

func TestBulkDelete_EachIDStandsAlone(t *testing.T) {
	ev := newEnv()
	ev.store.seed("m-mine", 7, model.StatusRequested, false)
	ev.store.seed("m-other", 8, model.StatusRequested, false)
	ev.store.seed("m-gone", 7, model.StatusCancelled, true)

	body := `{"ids":["m-mine","m-other","m-missing","m-gone","m-mine"]}`
	c, rec := ev.request(http.MethodPost, "/v1/meetings/bulk-delete", body, asUser)
	require.NoError(t, ev.handler.BulkDelete(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var result repository.BulkResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, []string{"m-mine"}, result.Archived)
	require.ElementsMatch(t, []string{"m-other", "m-missing", "m-gone"}, result.Skipped)

	require.NotNil(t, ev.store.get("m-mine").DeletedAt)
	require.Nil(t, ev.store.get("m-other").DeletedAt)

	events := waitEvents(t, ev.sink, 1)
	require.Equal(t, queue.KindArchived, events[0].Kind)
	require.Equal(t, "m-mine", events[0].MeetingID)
}

func TestBulkDelete_EmptySelectionRejected(t *testing.T) {
	ev := newEnv()
	c, rec := ev.request(http.MethodPost, "/v1/meetings/bulk-delete", `{"ids":[]}`, asUser)
	require.NoError(t, ev.handler.BulkDelete(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// ----- stats -----

func TestStats_ScopedCountsCoverEveryStatus(t *testing.T) {
	ev := newEnv()
	ev.store.seed("m-1", 7, model.StatusRequested, false)
	ev.store.seed("m-2", 7, model.StatusAccepted, false)
	ev.store.seed("m-3", 8, model.StatusRequested, false)
	ev.store.seed("m-4", 7, model.StatusCancelled, true) // archived rows never count

	stats := func(id auth.Identity) map[string]int64 {
		c, rec := ev.request(http.MethodGet, "/v1/meetings/stats", "", id)
		require.NoError(t, ev.handler.Stats(c))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Stats []statEntry `json:"stats"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Stats, 4)
		require.Equal(t, "Solicitada", resp.Stats[0].Label)
		out := make(map[string]int64, len(resp.Stats))
		for _, s := range resp.Stats {
			out[s.Status] = s.Count
		}
		return out
	}

	// A regular user's overview reflects only their own meetings; an admin
	// sees totals across every account.
	mine := stats(asUser)
	require.Equal(t, int64(1), mine["requested"])
	require.Equal(t, int64(1), mine["accepted"])
	require.Equal(t, int64(0), mine["finished"])
	require.Equal(t, int64(0), mine["cancelled"])

	global := stats(asAdmin)
	require.Equal(t, int64(2), global["requested"])
	require.Equal(t, int64(1), global["accepted"])
	require.Equal(t, int64(0), global["cancelled"])
}

// ----- assignable users -----

func TestAssignableUsers_RegularRoleOnly(t *testing.T) {
	ev := newEnv()
	c, rec := ev.request(http.MethodGet, "/v1/meetings/assignable-users", "", asAdmin)
	require.NoError(t, ev.handler.AssignableUsers(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Users []model.UserOption `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.ElementsMatch(t, []model.UserOption{
		{ID: 7, Name: "Uma User"},
		{ID: 8, Name: "Otto Other"},
	}, resp.Users)
}
