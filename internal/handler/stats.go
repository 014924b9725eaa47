package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-admin/internal/auth"
	"github.com/iliyamo/meeting-admin/internal/middleware"
	"github.com/iliyamo/meeting-admin/internal/model"
	"github.com/iliyamo/meeting-admin/internal/repository"
)

// statEntry is one row of the per-status overview: the status, its display
// triple and the number of visible meetings in that state.
type statEntry struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	Color  string `json:"color"`
	Icon   string `json:"icon"`
	Count  int64  `json:"count"`
}

// Stats handles GET /v1/meetings/stats. Counts are computed over the same
// scoped record set as every other query: a regular user sees only their
// own meetings reflected, an admin sees global totals.
func (h *MeetingHandler) Stats(c echo.Context) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	counts, err := h.Meetings.CountByStatus(c.Request().Context(), repository.ScopeFor(identity))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stats failed"})
	}

	out := make([]statEntry, 0, len(model.AllStatuses))
	for _, s := range model.AllStatuses {
		disp, err := s.Display()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
		out = append(out, statEntry{
			Status: string(s),
			Label:  disp.Label,
			Color:  disp.Color,
			Icon:   disp.Icon,
			Count:  counts[s],
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"stats": out})
}

// AssignableUsers handles GET /v1/meetings/assignable-users. It backs the
// owner selector admins see on the meeting form: only accounts holding the
// regular USER role are assignable. The route sits behind RequirePrivileged.
func (h *MeetingHandler) AssignableUsers(c echo.Context) error {
	options, err := h.Users.ListOptionsByRole(c.Request().Context(), auth.RoleUser)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": options})
}
