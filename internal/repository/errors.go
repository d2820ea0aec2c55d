// Package repository defines error values shared across repositories.
// These sentinels let handlers map failure scenarios onto HTTP status
// codes without inspecting driver errors: absent entities become 404,
// ownership violations 403 and seat conflicts 409.
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMovieNotFound indicates that a movie id has no local copy yet.
var ErrMovieNotFound = errors.New("movie not found")

// ErrShowNotFound indicates that a show was not located in the DB.
var ErrShowNotFound = errors.New("show not found")

// ErrBookingNotFound indicates that a booking does not (or no longer) exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrUserNotFound indicates that no local user row matches the id.
var ErrUserNotFound = errors.New("user not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// SeatUnavailableError reports a reservation that lost to existing
// occupancy. Seats lists the conflicting labels so the client can show
// which picks to change. The reservation is all-or-nothing: when this
// error is returned, no seat was written and no booking was created.
type SeatUnavailableError struct {
	Seats []string
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %s", strings.Join(e.Seats, ", "))
}
