package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/catalog"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/queue"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// memMovies is an in-memory MovieCatalogStore.
type memMovies struct {
	mu     sync.Mutex
	movies map[string]*model.Movie
}

func newMemMovies() *memMovies { return &memMovies{movies: make(map[string]*model.Movie)} }

func (m *memMovies) GetByID(_ context.Context, id string) (*model.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mv, ok := m.movies[id]
	if !ok {
		return nil, repository.ErrMovieNotFound
	}
	return mv, nil
}

func (m *memMovies) Create(_ context.Context, mv *model.Movie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movies[mv.ID] = mv
	return nil
}

// memShows records bulk show writes.
type memShows struct {
	mu    sync.Mutex
	shows []model.Show
}

func (m *memShows) CreateBulk(_ context.Context, shows []model.Show) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shows = append(m.shows, shows...)
	return nil
}

// fakeRemote serves canned catalog payloads.
type fakeRemote struct {
	details       *catalog.MovieDetails
	credits       *catalog.Credits
	detailsErr    error
	creditsErr    error
	detailsCalled int
}

func (f *fakeRemote) MovieByID(_ context.Context, _ string) (*catalog.MovieDetails, error) {
	f.detailsCalled++
	return f.details, f.detailsErr
}

func (f *fakeRemote) CreditsByID(_ context.Context, _ string) (*catalog.Credits, error) {
	return f.credits, f.creditsErr
}

type fakeAnnouncer struct {
	events []queue.ShowAddedEvent
}

func (f *fakeAnnouncer) PublishShowAdded(_ context.Context, ev queue.ShowAddedEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func sampleRemote() *fakeRemote {
	return &fakeRemote{
		details: &catalog.MovieDetails{
			ID:          550,
			Title:       "Fight Club",
			Overview:    "An insomniac office worker...",
			ReleaseDate: "1999-10-15",
			Genres:      []model.Genre{{ID: 18, Name: "Drama"}},
			VoteAverage: 8.4,
			Runtime:     139,
		},
		credits: &catalog.Credits{Cast: []catalog.CastMember{
			{Name: "Edward Norton", ProfilePath: "/norton.jpg"},
			{Name: "Uncredited Extra", ProfilePath: ""},
			{Name: "Brad Pitt", ProfilePath: "/pitt.jpg"},
		}},
	}
}

func TestAddShowsIngestsMovieOnFirstUse(t *testing.T) {
	movies := newMemMovies()
	shows := &memShows{}
	remote := sampleRemote()
	announcer := &fakeAnnouncer{}
	svc := NewCatalogService(movies, shows, remote, announcer, zap.NewNop())

	inputs := []ShowInput{
		{Date: "2026-09-10", Times: []string{"18:00", "21:30"}},
		{Date: "2026-09-11", Times: []string{"20:00"}},
	}
	created, err := svc.AddShows(context.Background(), "550", inputs, 1500)
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Len(t, shows.shows, 3)
	for _, s := range created {
		assert.Equal(t, "550", s.MovieID)
		assert.Equal(t, uint32(1500), s.PriceCents)
		assert.NotEmpty(t, s.ID)
	}
	assert.Equal(t, "2026-09-10 18:00", created[0].StartsAt.UTC().Format("2006-01-02 15:04"))

	stored, err := movies.GetByID(context.Background(), "550")
	require.NoError(t, err)
	assert.Equal(t, "Fight Club", stored.Title)
	// The member without a portrait is skipped.
	require.Len(t, stored.Casts, 2)
	assert.Equal(t, "Edward Norton", stored.Casts[0].Name)
	assert.Equal(t, "Brad Pitt", stored.Casts[1].Name)

	require.Len(t, announcer.events, 1)
	assert.Equal(t, "550", announcer.events[0].MovieID)
}

func TestAddShowsSkipsIngestionForKnownMovie(t *testing.T) {
	movies := newMemMovies()
	require.NoError(t, movies.Create(context.Background(), &model.Movie{ID: "550", Title: "Fight Club"}))
	remote := sampleRemote()
	svc := NewCatalogService(movies, &memShows{}, remote, &fakeAnnouncer{}, zap.NewNop())

	_, err := svc.AddShows(context.Background(), "550", []ShowInput{{Date: "2026-09-10", Times: []string{"18:00"}}}, 1000)
	require.NoError(t, err)
	assert.Zero(t, remote.detailsCalled)
}

func TestAddShowsAbortsWhenCreditsFail(t *testing.T) {
	movies := newMemMovies()
	shows := &memShows{}
	remote := sampleRemote()
	remote.creditsErr = errors.New("upstream 500")
	svc := NewCatalogService(movies, shows, remote, &fakeAnnouncer{}, zap.NewNop())

	_, err := svc.AddShows(context.Background(), "550", []ShowInput{{Date: "2026-09-10", Times: []string{"18:00"}}}, 1000)
	require.Error(t, err)
	// Nothing persisted on a partial ingestion failure.
	_, err = movies.GetByID(context.Background(), "550")
	assert.ErrorIs(t, err, repository.ErrMovieNotFound)
	assert.Empty(t, shows.shows)
}

func TestAddShowsValidatesInput(t *testing.T) {
	movies := newMemMovies()
	require.NoError(t, movies.Create(context.Background(), &model.Movie{ID: "550"}))
	svc := NewCatalogService(movies, &memShows{}, sampleRemote(), &fakeAnnouncer{}, zap.NewNop())
	ctx := context.Background()

	_, err := svc.AddShows(ctx, "550", nil, 1000)
	assert.ErrorIs(t, err, ErrInvalidShowInput)

	_, err = svc.AddShows(ctx, "550", []ShowInput{{Date: "2026-09-10", Times: []string{"18:00"}}}, 0)
	assert.ErrorIs(t, err, ErrInvalidShowInput)

	_, err = svc.AddShows(ctx, "550", []ShowInput{{Date: "not-a-date", Times: []string{"18:00"}}}, 1000)
	assert.ErrorIs(t, err, ErrInvalidShowInput)
}

func TestSelectCastCapsLength(t *testing.T) {
	var cast []catalog.CastMember
	for i := 0; i < 30; i++ {
		cast = append(cast, catalog.CastMember{Name: "Actor", ProfilePath: "/p.jpg"})
	}
	assert.Len(t, selectCast(cast), maxCast)
}
