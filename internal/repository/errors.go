// Package repository implements MySQL persistence for meetings, users and
// refresh tokens. Sentinel errors defined here let handlers translate
// storage outcomes into HTTP codes without inspecting driver errors.
//
// Ownership misses deliberately surface as ErrMeetingNotFound rather than a
// forbidden error: a restricted actor must not be able to learn that a
// meeting outside their scope exists.
package repository

import "errors"

// ErrMeetingNotFound is returned when no meeting matches the id within the
// caller's scope (missing, archived without opt-in, or owned by someone
// else).
var ErrMeetingNotFound = errors.New("meeting not found")

// ErrEmailExists is returned when registering a user with a taken email.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when a referenced user id does not exist.
var ErrUserNotFound = errors.New("user not found")
