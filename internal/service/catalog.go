package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/catalog"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/queue"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// ErrInvalidShowInput is returned when an AddShows request carries no
// parseable screening times or a zero price.
var ErrInvalidShowInput = errors.New("invalid show input")

// maxCast bounds how many cast members are stored per movie. Entries
// without a portrait are skipped first.
const maxCast = 12

// MovieCatalogStore is the movie persistence slice the ingestion flow
// needs.
type MovieCatalogStore interface {
	GetByID(ctx context.Context, id string) (*model.Movie, error)
	Create(ctx context.Context, m *model.Movie) error
}

// ShowWriter persists new screenings.
type ShowWriter interface {
	CreateBulk(ctx context.Context, shows []model.Show) error
}

// CatalogProvider is the slice of the upstream catalog client used
// during ingestion.
type CatalogProvider interface {
	MovieByID(ctx context.Context, id string) (*catalog.MovieDetails, error)
	CreditsByID(ctx context.Context, id string) (*catalog.Credits, error)
}

// AnnouncePublisher publishes the new-show announcement event.
type AnnouncePublisher interface {
	PublishShowAdded(ctx context.Context, ev queue.ShowAddedEvent) error
}

// CatalogService ingests movies from the upstream catalog on demand and
// schedules screenings for them.
type CatalogService struct {
	movies MovieCatalogStore
	shows  ShowWriter
	remote CatalogProvider
	events AnnouncePublisher
	log    *zap.Logger
}

// NewCatalogService wires a CatalogService.
func NewCatalogService(movies MovieCatalogStore, shows ShowWriter, remote CatalogProvider, events AnnouncePublisher, log *zap.Logger) *CatalogService {
	return &CatalogService{movies: movies, shows: shows, remote: remote, events: events, log: log}
}

// ShowInput is one scheduling line: a calendar date with one or more
// wall-clock times on it.
type ShowInput struct {
	Date  string   `json:"date"`  // "2006-01-02"
	Times []string `json:"times"` // "15:04"
}

// AddShows creates screenings for a movie, ingesting the movie from the
// upstream catalog on first use. Ingestion is all-or-nothing: when
// either the details or the credits fetch fails the movie is not
// stored and no shows are created.
func (s *CatalogService) AddShows(ctx context.Context, movieID string, inputs []ShowInput, priceCents uint32) ([]model.Show, error) {
	if priceCents == 0 {
		return nil, ErrInvalidShowInput
	}
	startTimes, err := parseShowTimes(inputs)
	if err != nil {
		return nil, err
	}

	movie, err := s.movies.GetByID(ctx, movieID)
	if errors.Is(err, repository.ErrMovieNotFound) {
		movie, err = s.ingest(ctx, movieID)
	}
	if err != nil {
		return nil, err
	}

	shows := make([]model.Show, 0, len(startTimes))
	for _, at := range startTimes {
		shows = append(shows, model.Show{
			ID:         uuid.NewString(),
			MovieID:    movie.ID,
			StartsAt:   at,
			PriceCents: priceCents,
		})
	}
	if err := s.shows.CreateBulk(ctx, shows); err != nil {
		return nil, err
	}

	if err := s.events.PublishShowAdded(ctx, queue.ShowAddedEvent{MovieID: movie.ID}); err != nil {
		s.log.Warn("show-added event publish failed", zap.String("movie_id", movie.ID), zap.Error(err))
	}
	return shows, nil
}

// ingest fetches a movie's details and credits from the upstream
// catalog and stores a local copy.
func (s *CatalogService) ingest(ctx context.Context, movieID string) (*model.Movie, error) {
	details, err := s.remote.MovieByID(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("catalog details: %w", err)
	}
	credits, err := s.remote.CreditsByID(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("catalog credits: %w", err)
	}

	movie := &model.Movie{
		ID:               strconv.FormatInt(details.ID, 10),
		Title:            details.Title,
		Overview:         details.Overview,
		PosterPath:       details.PosterPath,
		BackdropPath:     details.BackdropPath,
		ReleaseDate:      details.ReleaseDate,
		OriginalLanguage: details.OriginalLanguage,
		Tagline:          details.Tagline,
		VoteAverage:      details.VoteAverage,
		Runtime:          details.Runtime,
	}
	for _, g := range details.Genres {
		movie.Genres = append(movie.Genres, model.Genre{ID: g.ID, Name: g.Name})
	}
	movie.Casts = selectCast(credits.Cast)

	if err := s.movies.Create(ctx, movie); err != nil {
		return nil, err
	}
	s.log.Info("movie ingested", zap.String("movie_id", movie.ID), zap.String("title", movie.Title))
	return movie, nil
}

// selectCast keeps the first maxCast credited members that have a
// portrait image.
func selectCast(cast []catalog.CastMember) []model.CastMember {
	out := make([]model.CastMember, 0, maxCast)
	for _, c := range cast {
		if c.ProfilePath == "" {
			continue
		}
		out = append(out, model.CastMember{Name: c.Name, ProfilePath: c.ProfilePath})
		if len(out) == maxCast {
			break
		}
	}
	return out
}

// parseShowTimes flattens the date/times grid into UTC start times.
func parseShowTimes(inputs []ShowInput) ([]time.Time, error) {
	var out []time.Time
	for _, in := range inputs {
		for _, t := range in.Times {
			at, err := time.ParseInLocation("2006-01-02 15:04", in.Date+" "+t, time.UTC)
			if err != nil {
				return nil, ErrInvalidShowInput
			}
			out = append(out, at)
		}
	}
	if len(out) == 0 {
		return nil, ErrInvalidShowInput
	}
	return out, nil
}
