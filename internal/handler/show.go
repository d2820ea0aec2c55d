package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/catalog"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

// ShowHandler serves the public movie/show pages and the admin
// scheduling endpoint.
type ShowHandler struct {
	shows   *repository.ShowRepo
	movies  *repository.MovieRepo
	remote  *catalog.Client
	catalog *service.CatalogService
}

// NewShowHandler constructs a ShowHandler.
func NewShowHandler(shows *repository.ShowRepo, movies *repository.MovieRepo, remote *catalog.Client, cat *service.CatalogService) *ShowHandler {
	return &ShowHandler{shows: shows, movies: movies, remote: remote, catalog: cat}
}

// NowPlaying proxies the upstream catalog's currently-running list so
// admins can pick titles to schedule. Admin-only.
func (h *ShowHandler) NowPlaying(c echo.Context) error {
	movies, err := h.remote.NowPlaying(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusBadGateway, "catalog unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "movies": movies})
}

type addShowRequest struct {
	MovieID    string              `json:"movie_id"`
	Shows      []service.ShowInput `json:"shows"`
	PriceCents uint32              `json:"price_cents"`
}

// Add schedules screenings for a movie, ingesting it from the catalog
// on first use. Admin-only.
func (h *ShowHandler) Add(c echo.Context) error {
	var req addShowRequest
	if err := c.Bind(&req); err != nil || req.MovieID == "" {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	shows, err := h.catalog.AddShows(c.Request().Context(), req.MovieID, req.Shows, req.PriceCents)
	if err != nil {
		switch err {
		case service.ErrInvalidShowInput:
			return fail(c, http.StatusBadRequest, "invalid show input")
		default:
			return failFrom(c, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "shows added",
		"count":   len(shows),
	})
}

// ListAll returns the distinct movies that have at least one upcoming
// show. This backs the public browse page.
func (h *ShowHandler) ListAll(c echo.Context) error {
	upcoming, err := h.shows.ListUpcoming(c.Request().Context(), time.Now())
	if err != nil {
		return failFrom(c, err)
	}
	seen := make(map[string]bool, len(upcoming))
	movies := make([]model.Movie, 0, len(upcoming))
	for _, sm := range upcoming {
		if seen[sm.Movie.ID] {
			continue
		}
		seen[sm.Movie.ID] = true
		movies = append(movies, sm.Movie)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "shows": movies})
}

// Get returns one movie together with its upcoming screenings grouped
// by calendar date, the shape the seat-selection page renders.
func (h *ShowHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	movieID := c.Param("movieId")

	movie, err := h.movies.GetByID(ctx, movieID)
	if err != nil {
		return failFrom(c, err)
	}
	shows, err := h.shows.ListUpcomingByMovie(ctx, movieID, time.Now())
	if err != nil {
		return failFrom(c, err)
	}

	type showTime struct {
		Time   time.Time `json:"time"`
		ShowID string    `json:"show_id"`
	}
	byDate := make(map[string][]showTime)
	for _, s := range shows {
		date := s.StartsAt.UTC().Format("2006-01-02")
		byDate[date] = append(byDate[date], showTime{Time: s.StartsAt.UTC(), ShowID: s.ID})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"movie":     movie,
		"date_time": byDate,
	})
}
