package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// UserHandler serves the signed-in user's bookings and favorites.
type UserHandler struct {
	bookings *repository.BookingRepo
	users    *repository.UserRepo
	movies   *repository.MovieRepo
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(bookings *repository.BookingRepo, users *repository.UserRepo, movies *repository.MovieRepo) *UserHandler {
	return &UserHandler{bookings: bookings, users: users, movies: movies}
}

// Bookings returns the caller's bookings, newest first, each with its
// show and movie attached.
func (h *UserHandler) Bookings(c echo.Context) error {
	list, err := h.bookings.ListByUser(c.Request().Context(), userID(c))
	if err != nil {
		return failFrom(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "bookings": list})
}

type favoriteRequest struct {
	MovieID string `json:"movie_id"`
}

// ToggleFavorite adds the movie to the caller's favorites, or removes
// it if already present.
func (h *UserHandler) ToggleFavorite(c echo.Context) error {
	var req favoriteRequest
	if err := c.Bind(&req); err != nil || req.MovieID == "" {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	nowFavorite, err := h.users.ToggleFavorite(c.Request().Context(), userID(c), req.MovieID)
	if err != nil {
		return failFrom(c, err)
	}
	msg := "removed from favorites"
	if nowFavorite {
		msg = "added to favorites"
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": msg})
}

// Favorites returns the caller's favorite movies.
func (h *UserHandler) Favorites(c echo.Context) error {
	ctx := c.Request().Context()
	ids, err := h.users.FavoriteMovieIDs(ctx, userID(c))
	if err != nil {
		return failFrom(c, err)
	}
	movies := make([]model.Movie, 0, len(ids))
	if len(ids) > 0 {
		movies, err = h.movies.ListByIDs(ctx, ids)
		if err != nil {
			return failFrom(c, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "movies": movies})
}
