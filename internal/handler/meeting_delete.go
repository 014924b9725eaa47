package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-admin/internal/middleware"
	"github.com/iliyamo/meeting-admin/internal/queue"
	"github.com/iliyamo/meeting-admin/internal/repository"
)

// BulkDelete handles POST /v1/meetings/bulk-delete. Each selected id is
// archived independently within the caller's scope: ids that are missing,
// already archived, or owned by someone else are reported as skipped and
// left untouched. Nothing is hard-deleted.
func (h *MeetingHandler) BulkDelete(c echo.Context) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(body.IDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ids is required"})
	}

	// Deduplicate while keeping selection order.
	seen := make(map[string]struct{}, len(body.IDs))
	ids := make([]string, 0, len(body.IDs))
	for _, id := range body.IDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no valid ids provided"})
	}

	ctx := c.Request().Context()
	sc := repository.ScopeFor(identity)

	// Snapshot the visible selection first so archive events can carry the
	// meeting data after the rows are stamped.
	visible := make(map[string]repository.MeetingWithOwner, len(ids))
	if items, err := h.Meetings.List(ctx, sc); err == nil {
		for _, mw := range items {
			if _, selected := seen[mw.ID]; selected {
				visible[mw.ID] = mw
			}
		}
	}

	result, err := h.Meetings.SoftDeleteMany(ctx, ids, sc)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	for _, id := range result.Archived {
		mw, ok := visible[id]
		if !ok {
			continue
		}
		h.publish(queue.MeetingEvent{
			Kind:        queue.KindArchived,
			MeetingID:   mw.ID,
			UserID:      mw.UserID,
			ClientName:  mw.ClientName,
			ClientEmail: mw.ClientEmail,
			Subject:     mw.Subject,
			MeetingDate: mw.MeetingDate.Format(time.RFC3339),
			NewStatus:   string(mw.Status),
			OccurredAt:  time.Now().UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, result)
}
