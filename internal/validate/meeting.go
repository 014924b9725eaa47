// Package validate holds the submission rules for meeting records. It knows
// nothing about HTTP or rendering: handlers feed it field values and get
// back a field-keyed error map, so a rejected submission never reaches the
// repository layer.
package validate

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Errors maps a field name to a human-readable message. An empty map means
// the submission passed.
type Errors map[string]string

// OK reports whether validation produced no errors.
func (e Errors) OK() bool { return len(e) == 0 }

// MeetingInput carries the user-submitted fields of a meeting form. The
// json tags double as the field names reported back to the client.
type MeetingInput struct {
	ClientName  string `json:"client_name" validate:"required"`
	ClientEmail string `json:"client_email" validate:"required,email"`
	Subject     string `json:"subject" validate:"required"`
	Details     string `json:"details" validate:"required"`
	URL         string `json:"url" validate:"required,url"`
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// Report errors under the json field name, not the Go field name.
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return val
}

// Fields checks the free-form text fields of a submission.
func Fields(in MeetingInput) Errors {
	errs := Errors{}
	if err := v.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs[fe.Field()] = messageFor(fe)
			}
		} else {
			errs["_"] = "invalid submission"
		}
	}
	return errs
}

// CreateMeeting validates a creation submission. On create the meeting date
// must be set and must not lie in the past relative to now; edits do not
// re-check the date (the rule is an input-time constraint only).
func CreateMeeting(in MeetingInput, date time.Time, now time.Time) Errors {
	errs := Fields(in)
	switch {
	case date.IsZero():
		errs["meeting_date"] = "meeting date is required"
	case date.Before(now):
		errs["meeting_date"] = "meeting date must not be in the past"
	}
	return errs
}

// EditMeeting validates an edit submission. The date only has to be present.
func EditMeeting(in MeetingInput, date time.Time) Errors {
	errs := Fields(in)
	if date.IsZero() {
		errs["meeting_date"] = "meeting date is required"
	}
	return errs
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	default:
		return "invalid value"
	}
}
