package model

import "fmt"

// Status enumerates the lifecycle states a meeting can be in. The set is
// closed: nothing outside these four values is ever persisted, and an
// unrecognized value coming back from storage is treated as corruption
// rather than rendered with a fallback.
type Status string

const (
	StatusRequested Status = "requested" // initial state of every meeting
	StatusAccepted  Status = "accepted"  // confirmed by the assigned user
	StatusFinished  Status = "finished"  // meeting took place
	StatusCancelled Status = "cancelled" // called off
)

// AllStatuses lists the vocabulary in lifecycle order. Used by the stats
// endpoint and by tests that pin the display table.
var AllStatuses = []Status{StatusRequested, StatusAccepted, StatusFinished, StatusCancelled}

// StatusDisplay is the presentation triple derived from a status. Labels are
// Spanish to match the admin UI; color and icon are semantic names the
// client maps to its theme.
type StatusDisplay struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var statusDisplays = map[Status]StatusDisplay{
	StatusRequested: {Label: "Solicitada", Color: "warning", Icon: "clock"},
	StatusAccepted:  {Label: "Aceptada", Color: "success", Icon: "clock"},
	StatusFinished:  {Label: "Finalizada", Color: "success", Icon: "check-circle"},
	StatusCancelled: {Label: "Cancelada", Color: "danger", Icon: "x-circle"},
}

// ParseStatus validates a raw string against the vocabulary. It is the only
// way a Status should be constructed from external input.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := statusDisplays[s]; !ok {
		return "", fmt.Errorf("unknown meeting status %q", raw)
	}
	return s, nil
}

// Display returns the presentation triple for a status. There is no default
// branch: a status outside the vocabulary is an error condition.
func (s Status) Display() (StatusDisplay, error) {
	d, ok := statusDisplays[s]
	if !ok {
		return StatusDisplay{}, fmt.Errorf("unknown meeting status %q", string(s))
	}
	return d, nil
}

// Valid reports whether s belongs to the vocabulary.
func (s Status) Valid() bool {
	_, ok := statusDisplays[s]
	return ok
}
