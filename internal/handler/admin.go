package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// AdminHandler serves the admin dashboard and listings. All routes are
// behind RequireAdmin.
type AdminHandler struct {
	bookings *repository.BookingRepo
	shows    *repository.ShowRepo
	users    *repository.UserRepo
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(bookings *repository.BookingRepo, shows *repository.ShowRepo, users *repository.UserRepo) *AdminHandler {
	return &AdminHandler{bookings: bookings, shows: shows, users: users}
}

// IsAdmin confirms the caller passed the admin gate. The client uses it
// to decide whether to render the admin layout.
func (h *AdminHandler) IsAdmin(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "is_admin": true})
}

// Dashboard aggregates paid-booking revenue, upcoming shows and the
// user count.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	paidCount, revenueCents, err := h.bookings.PaidStats(ctx)
	if err != nil {
		return failFrom(c, err)
	}
	upcoming, err := h.shows.ListUpcoming(ctx, time.Now())
	if err != nil {
		return failFrom(c, err)
	}
	userCount, err := h.users.Count(ctx)
	if err != nil {
		return failFrom(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"dashboard": echo.Map{
			"total_bookings": paidCount,
			"total_revenue":  revenueCents,
			"active_shows":   upcoming,
			"total_users":    userCount,
		},
	})
}

// AllShows lists every upcoming show with its movie.
func (h *AdminHandler) AllShows(c echo.Context) error {
	shows, err := h.shows.ListUpcoming(c.Request().Context(), time.Now())
	if err != nil {
		return failFrom(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "shows": shows})
}

// AllBookings lists every booking with buyer, show and movie attached,
// newest first.
func (h *AdminHandler) AllBookings(c echo.Context) error {
	bookings, err := h.bookings.ListAll(c.Request().Context())
	if err != nil {
		return failFrom(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "bookings": bookings})
}
