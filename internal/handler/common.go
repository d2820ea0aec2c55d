// Package handler contains the Echo HTTP handlers. Handlers stay thin:
// they decode requests, call repositories or services, and translate
// domain errors into the JSON envelope the client expects.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// userID returns the authenticated user's id stored by the JWT
// middleware, or "" on unauthenticated routes.
func userID(c echo.Context) string {
	id, _ := c.Get("user_id").(string)
	return id
}

// fail writes the error envelope.
func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}

// failFrom maps common repository errors onto HTTP statuses; anything
// unrecognized becomes a 500 with a generic message.
func failFrom(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrMovieNotFound),
		errors.Is(err, repository.ErrShowNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrForbidden):
		return fail(c, http.StatusForbidden, "not authorized")
	default:
		return fail(c, http.StatusInternalServerError, "internal error")
	}
}
