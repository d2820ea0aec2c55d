package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// ShowRepo manages persistence for shows. All timestamps are stored
// and compared in UTC.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo { return &ShowRepo{db: db} }

// DB exposes the underlying sql.DB. It allows callers to begin
// transactions spanning multiple repositories.
func (r *ShowRepo) DB() *sql.DB { return r.db }

// ShowWithMovie pairs a show with its full movie record for listing
// endpoints, mirroring the populated documents the API exposes.
type ShowWithMovie struct {
	model.Show
	Movie model.Movie `json:"movie"`
}

// CreateBulk inserts all given shows in a single statement so a batch
// of screenings is either fully created or not at all. Passing an
// empty slice has no effect and returns nil.
func (r *ShowRepo) CreateBulk(ctx context.Context, shows []model.Show) error {
	if len(shows) == 0 {
		return nil
	}
	query := `INSERT INTO shows (id, movie_id, starts_at, price_cents) VALUES `
	args := make([]interface{}, 0, len(shows)*4)
	for i, s := range shows {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, s.ID, s.MovieID, s.StartsAt.UTC(), s.PriceCents)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// GetByID returns a show by id, or ErrShowNotFound.
func (r *ShowRepo) GetByID(ctx context.Context, id string) (*model.Show, error) {
	const q = `SELECT id, movie_id, starts_at, price_cents, created_at FROM shows WHERE id = ?`
	var s model.Show
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.MovieID, &s.StartsAt, &s.PriceCents, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrShowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListUpcoming returns all shows starting at or after now, joined with
// their movies and ordered by start time ascending.
func (r *ShowRepo) ListUpcoming(ctx context.Context, now time.Time) ([]ShowWithMovie, error) {
	const q = `SELECT s.id, s.movie_id, s.starts_at, s.price_cents, s.created_at, ` + movieColumns + `
		FROM shows s
		JOIN movies ON movies.id = s.movie_id
		WHERE s.starts_at >= ?
		ORDER BY s.starts_at ASC`
	rows, err := r.db.QueryContext(ctx, q, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanShowsWithMovie(rows)
}

// ListUpcomingByMovie returns upcoming shows for one movie, ordered by
// start time. Handlers fold the result into the date -> times grid the
// seat-selection page renders.
func (r *ShowRepo) ListUpcomingByMovie(ctx context.Context, movieID string, now time.Time) ([]model.Show, error) {
	const q = `SELECT id, movie_id, starts_at, price_cents, created_at
		FROM shows WHERE movie_id = ? AND starts_at >= ? ORDER BY starts_at ASC`
	rows, err := r.db.QueryContext(ctx, q, movieID, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	shows := make([]model.Show, 0)
	for rows.Next() {
		var s model.Show
		if err := rows.Scan(&s.ID, &s.MovieID, &s.StartsAt, &s.PriceCents, &s.CreatedAt); err != nil {
			return nil, err
		}
		shows = append(shows, s)
	}
	return shows, rows.Err()
}

// OccupiedLabels returns the seat labels currently present in the
// show's occupancy map, ordered for deterministic output.
func (r *ShowRepo) OccupiedLabels(ctx context.Context, showID string) ([]string, error) {
	const q = `SELECT seat_label FROM show_seats WHERE show_id = ? ORDER BY seat_label`
	rows, err := r.db.QueryContext(ctx, q, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	labels := make([]string, 0)
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// CountUpcoming returns the number of shows starting at or after now.
func (r *ShowRepo) CountUpcoming(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shows WHERE starts_at >= ?`, now.UTC()).Scan(&n)
	return n, err
}

// DeleteStartedBefore removes shows whose start time predates the
// cutoff, together with their occupancy rows. Used by retention
// cleanup only; live shows are never deleted.
func (r *ShowRepo) DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM show_seats WHERE show_id IN (SELECT id FROM shows WHERE starts_at < ?)`,
		cutoff.UTC(),
	); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM shows WHERE starts_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return n, nil
}

func scanShowsWithMovie(rows *sql.Rows) ([]ShowWithMovie, error) {
	out := make([]ShowWithMovie, 0)
	for rows.Next() {
		var sm ShowWithMovie
		var genres, casts []byte
		if err := rows.Scan(
			&sm.ID, &sm.MovieID, &sm.StartsAt, &sm.PriceCents, &sm.CreatedAt,
			&sm.Movie.ID, &sm.Movie.Title, &sm.Movie.Overview, &sm.Movie.PosterPath,
			&sm.Movie.BackdropPath, &sm.Movie.ReleaseDate, &sm.Movie.OriginalLanguage,
			&sm.Movie.Tagline, &genres, &casts, &sm.Movie.VoteAverage, &sm.Movie.Runtime,
			&sm.Movie.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := unmarshalMovieLists(genres, casts, &sm.Movie); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}
