package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// mysqlDupEntry is the server error code for duplicate-key violations.
const mysqlDupEntry = 1062

// BookingRepo provides data access to bookings and the show_seats
// occupancy rows they own. Seat occupancy is only ever mutated through
// Reserve and Release so both sides of a booking's lifecycle stay
// atomic with the booking row itself.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Reserve creates the booking and writes its seats into the occupancy
// map in one transaction. The show row is locked first so concurrent
// reservations for the same show serialize, then the requested labels
// are checked against existing occupancy and bulk-inserted. The
// composite primary key on show_seats backs the check: even if the
// pre-check were raced, the insert itself fails on a duplicate seat and
// the whole transaction rolls back. On conflict a *SeatUnavailableError
// naming the occupied labels is returned and nothing is persisted.
func (r *BookingRepo) Reserve(ctx context.Context, b *model.Booking) error {
	if len(b.Seats) == 0 {
		return errors.New("reserve: empty seat list")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Per-show serialization point.
	var showID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM shows WHERE id = ? FOR UPDATE`, b.ShowID).Scan(&showID)
	if err == sql.ErrNoRows {
		return ErrShowNotFound
	}
	if err != nil {
		return err
	}

	taken, err := occupiedAmongTx(ctx, tx, b.ShowID, b.Seats)
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return &SeatUnavailableError{Seats: taken}
	}

	seats, err := json.Marshal(b.Seats)
	if err != nil {
		return err
	}
	const ins = `INSERT INTO bookings (id, user_id, show_id, seats, amount_cents) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, ins, b.ID, b.UserID, b.ShowID, seats, b.AmountCents); err != nil {
		return err
	}

	query := `INSERT INTO show_seats (show_id, seat_label, user_id, booking_id) VALUES `
	args := make([]interface{}, 0, len(b.Seats)*4)
	for i, label := range b.Seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, b.ShowID, label, b.UserID, b.ID)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDupEntry {
			return &SeatUnavailableError{Seats: b.Seats}
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	// Populate the DB-assigned creation time for the caller.
	return r.db.QueryRowContext(ctx, `SELECT created_at FROM bookings WHERE id = ?`, b.ID).Scan(&b.CreatedAt)
}

// Release removes an unpaid booking together with all of its occupancy
// rows. It reports whether anything was reclaimed: false means the
// booking was already paid or already gone, which callers treat as an
// ordinary no-op. Safe to invoke repeatedly for the same id.
func (r *BookingRepo) Release(ctx context.Context, bookingID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ? AND is_paid = 0`, bookingID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM show_seats WHERE booking_id = ?`, bookingID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}

// MarkPaid flips is_paid to true and clears the stored session data.
// The WHERE clause makes the transition idempotent: the first caller
// gets transitioned=true, every later one false with no error, so the
// webhook and the client confirmation fallback can race freely.
func (r *BookingRepo) MarkPaid(ctx context.Context, bookingID string) (bool, error) {
	const q = `UPDATE bookings SET is_paid = 1, payment_link = '', session_id = '' WHERE id = ? AND is_paid = 0`
	res, err := r.db.ExecContext(ctx, q, bookingID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetPaymentSession persists the hosted checkout URL and session id of
// an unpaid booking so the client can resume payment later.
func (r *BookingRepo) SetPaymentSession(ctx context.Context, bookingID, link, sessionID string) error {
	const q = `UPDATE bookings SET payment_link = ?, session_id = ? WHERE id = ? AND is_paid = 0`
	_, err := r.db.ExecContext(ctx, q, link, sessionID, bookingID)
	return err
}

// GetByID returns a booking by id, or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	const q = `SELECT id, user_id, show_id, seats, amount_cents, is_paid, payment_link, session_id, created_at
		FROM bookings WHERE id = ?`
	var b model.Booking
	var seats []byte
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.UserID, &b.ShowID, &seats, &b.AmountCents, &b.IsPaid, &b.PaymentLink, &b.SessionID, &b.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(seats, &b.Seats); err != nil {
		return nil, err
	}
	return &b, nil
}

// BookingDetail is a booking joined with its show and movie for the
// listing endpoints.
type BookingDetail struct {
	model.Booking
	Show  model.Show  `json:"show"`
	Movie model.Movie `json:"movie"`
	// UserName and UserEmail are only populated by ListAll for the
	// admin view; the customer listing already knows its caller.
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

const bookingDetailColumns = `b.id, b.user_id, b.show_id, b.seats, b.amount_cents, b.is_paid,
	b.payment_link, b.session_id, b.created_at,
	s.id, s.movie_id, s.starts_at, s.price_cents, s.created_at, ` + movieColumns

const bookingDetailJoins = ` FROM bookings b
	JOIN shows s ON s.id = b.show_id
	JOIN movies ON movies.id = s.movie_id`

// ListByUser returns the caller's bookings, newest first, with the
// associated show and movie populated.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]BookingDetail, error) {
	q := `SELECT ` + bookingDetailColumns + bookingDetailJoins + `
		WHERE b.user_id = ? ORDER BY b.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookingDetails(rows, false)
}

// ListAll returns every booking with user, show and movie details,
// newest first. Admin-only.
func (r *BookingRepo) ListAll(ctx context.Context) ([]BookingDetail, error) {
	q := `SELECT ` + bookingDetailColumns + `, u.name, u.email` + bookingDetailJoins + `
		LEFT JOIN users u ON u.id = b.user_id
		ORDER BY b.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookingDetails(rows, true)
}

// PaidStats returns the count of paid bookings and their summed amount
// in cents, for the admin dashboard.
func (r *BookingRepo) PaidStats(ctx context.Context) (count int64, revenueCents int64, err error) {
	const q = `SELECT COUNT(*), COALESCE(SUM(amount_cents), 0) FROM bookings WHERE is_paid = 1`
	err = r.db.QueryRowContext(ctx, q).Scan(&count, &revenueCents)
	return count, revenueCents, err
}

// DeleteCreatedBefore removes bookings created before the cutoff. Seat
// rows belonging to deleted bookings go with them. Retention cleanup only.
func (r *BookingRepo) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
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
		`DELETE FROM show_seats WHERE booking_id IN (SELECT id FROM bookings WHERE created_at < ?)`,
		cutoff.UTC(),
	); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE created_at < ?`, cutoff.UTC())
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

// occupiedAmongTx returns which of the requested labels already appear
// in the show's occupancy map, inside the caller's transaction.
func occupiedAmongTx(ctx context.Context, tx *sql.Tx, showID string, labels []string) ([]string, error) {
	placeholders := make([]string, len(labels))
	args := make([]interface{}, 0, len(labels)+1)
	args = append(args, showID)
	for i, l := range labels {
		placeholders[i] = "?"
		args = append(args, l)
	}
	q := `SELECT seat_label FROM show_seats WHERE show_id = ? AND seat_label IN (` +
		strings.Join(placeholders, ",") + `)`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var taken []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		taken = append(taken, l)
	}
	return taken, rows.Err()
}

func scanBookingDetails(rows *sql.Rows, withUser bool) ([]BookingDetail, error) {
	out := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		var seats, genres, casts []byte
		dest := []interface{}{
			&d.ID, &d.UserID, &d.ShowID, &seats, &d.AmountCents, &d.IsPaid,
			&d.PaymentLink, &d.SessionID, &d.CreatedAt,
			&d.Show.ID, &d.Show.MovieID, &d.Show.StartsAt, &d.Show.PriceCents, &d.Show.CreatedAt,
			&d.Movie.ID, &d.Movie.Title, &d.Movie.Overview, &d.Movie.PosterPath,
			&d.Movie.BackdropPath, &d.Movie.ReleaseDate, &d.Movie.OriginalLanguage,
			&d.Movie.Tagline, &genres, &casts, &d.Movie.VoteAverage, &d.Movie.Runtime,
			&d.Movie.CreatedAt,
		}
		var name, email sql.NullString
		if withUser {
			dest = append(dest, &name, &email)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(seats, &d.Seats); err != nil {
			return nil, err
		}
		if err := unmarshalMovieLists(genres, casts, &d.Movie); err != nil {
			return nil, err
		}
		d.UserName = name.String
		d.UserEmail = email.String
		out = append(out, d)
	}
	return out, rows.Err()
}
