package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/repository"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

// BookingHandler serves seat reservation and payment reconciliation
// endpoints. All routes require authentication.
type BookingHandler struct {
	svc   *service.BookingService
	shows *repository.ShowRepo
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc *service.BookingService, shows *repository.ShowRepo) *BookingHandler {
	return &BookingHandler{svc: svc, shows: shows}
}

type createBookingRequest struct {
	ShowID string   `json:"show_id"`
	Seats  []string `json:"seats"`
}

// Create reserves seats and returns the booking with its payment link.
// A seat conflict answers 409 listing the seats that were taken.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingRequest
	if err := c.Bind(&req); err != nil || req.ShowID == "" {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	booking, err := h.svc.Create(c.Request().Context(), userID(c), req.ShowID, req.Seats)
	if err != nil {
		var taken *repository.SeatUnavailableError
		switch {
		case errors.Is(err, service.ErrInvalidSeats):
			return fail(c, http.StatusBadRequest, "invalid seat selection")
		case errors.As(err, &taken):
			return c.JSON(http.StatusConflict, echo.Map{
				"success": false,
				"message": "selected seats are not available",
				"seats":   taken.Seats,
			})
		default:
			return failFrom(c, err)
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"booking": booking,
		"url":     booking.PaymentLink,
	})
}

// OccupiedSeats returns the seat labels currently held for a show.
func (h *BookingHandler) OccupiedSeats(c echo.Context) error {
	labels, err := h.shows.OccupiedLabels(c.Request().Context(), c.Param("showId"))
	if err != nil {
		return failFrom(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "occupied_seats": labels})
}

type confirmRequest struct {
	SessionID string `json:"session_id"`
}

// Confirm is the client-side fallback after returning from the hosted
// checkout page: the session is re-verified with the provider before
// the booking is marked paid.
func (h *BookingHandler) Confirm(c echo.Context) error {
	var req confirmRequest
	if err := c.Bind(&req); err != nil || req.SessionID == "" {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.ConfirmBySession(c.Request().Context(), req.SessionID); err != nil {
		if errors.Is(err, service.ErrSessionUnpaid) {
			return fail(c, http.StatusBadRequest, "session not paid")
		}
		return failFrom(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "payment confirmed"})
}

// Refresh opens a new checkout session for an unpaid booking.
func (h *BookingHandler) Refresh(c echo.Context) error {
	booking, err := h.svc.Refresh(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrAlreadyPaid) {
			return fail(c, http.StatusConflict, "booking already paid")
		}
		return failFrom(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "url": booking.PaymentLink})
}
