package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// MovieRepo provides data access to the movies table. Genre and cast
// lists are stored as JSON columns and (un)marshalled at the boundary.
// Movies are written once by catalog ingestion and read-only afterwards.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo returns a MovieRepo bound to the given database.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// movieColumns is table-qualified so it stays unambiguous inside the
// booking and show join queries.
const movieColumns = `movies.id, movies.title, movies.overview, movies.poster_path,
	movies.backdrop_path, movies.release_date, movies.original_language, movies.tagline,
	movies.genres, movies.casts, movies.vote_average, movies.runtime, movies.created_at`

// Create inserts a local movie copy. The caller supplies the external
// catalog id as the primary key; inserting an id twice is a caller bug
// and surfaces as a duplicate-key error.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	genres, err := json.Marshal(m.Genres)
	if err != nil {
		return err
	}
	casts, err := json.Marshal(m.Casts)
	if err != nil {
		return err
	}
	const q = `INSERT INTO movies
		(id, title, overview, poster_path, backdrop_path, release_date,
		 original_language, tagline, genres, casts, vote_average, runtime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, q,
		m.ID, m.Title, m.Overview, m.PosterPath, m.BackdropPath, m.ReleaseDate,
		m.OriginalLanguage, m.Tagline, genres, casts, m.VoteAverage, m.Runtime,
	)
	return err
}

// GetByID returns a movie by its catalog id, or ErrMovieNotFound.
func (r *MovieRepo) GetByID(ctx context.Context, id string) (*model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE id = ?`
	m, err := scanMovie(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrMovieNotFound
	}
	return m, err
}

// ListByIDs returns the movies matching the given ids, in no particular
// order. Unknown ids are silently skipped; an empty input yields an
// empty slice.
func (r *MovieRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Movie, error) {
	movies := make([]model.Movie, 0, len(ids))
	if len(ids) == 0 {
		return movies, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	q := `SELECT ` + movieColumns + ` FROM movies WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, *m)
	}
	return movies, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMovie(s scanner) (*model.Movie, error) {
	var m model.Movie
	var genres, casts []byte
	if err := s.Scan(
		&m.ID, &m.Title, &m.Overview, &m.PosterPath, &m.BackdropPath, &m.ReleaseDate,
		&m.OriginalLanguage, &m.Tagline, &genres, &casts, &m.VoteAverage, &m.Runtime, &m.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalMovieLists(genres, casts, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func unmarshalMovieLists(genres, casts []byte, m *model.Movie) error {
	if err := json.Unmarshal(genres, &m.Genres); err != nil {
		return err
	}
	return json.Unmarshal(casts, &m.Casts)
}
