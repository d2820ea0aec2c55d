package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// UserRepo provides data access to the users and user_favorites tables.
// User rows mirror identity-provider accounts and are written by the
// identity sync webhook; favorites belong to the user surface.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Upsert creates or refreshes a local user row from a provider event.
// The role column is preserved on update so a provider profile change
// cannot strip admin rights granted locally.
func (r *UserRepo) Upsert(ctx context.Context, u *model.User) error {
	role := u.Role
	if role == "" {
		role = model.RoleUser
	}
	const q = `INSERT INTO users (id, name, email, image, role) VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), email = VALUES(email), image = VALUES(image)`
	_, err := r.db.ExecContext(ctx, q, u.ID, u.Name, u.Email, u.Image, role)
	return err
}

// Delete removes a user row and their favorites. Bookings are kept;
// they reference the provider id, not the local row.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_favorites WHERE user_id = ?`, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

// GetByID returns a user by provider id, or ErrUserNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	const q = `SELECT id, name, email, image, role, created_at, updated_at FROM users WHERE id = ?`
	var u model.User
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.Image, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Count returns the total number of local users.
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// ListAll returns every user, for the new-show announcement mail.
func (r *UserRepo) ListAll(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, image, role, created_at, updated_at FROM users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Image, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ToggleFavorite adds the movie to the user's favorites if absent, or
// removes it if present, and reports whether it is now a favorite.
func (r *UserRepo) ToggleFavorite(ctx context.Context, userID, movieID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM user_favorites WHERE user_id = ? AND movie_id = ?`, userID, movieID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil // was a favorite, now removed
	}
	// INSERT IGNORE: two concurrent toggles can both miss the delete and
	// race to insert; the loser must land on "favorited", not a 1062.
	_, err = r.db.ExecContext(ctx,
		`INSERT IGNORE INTO user_favorites (user_id, movie_id) VALUES (?, ?)`, userID, movieID)
	return true, err
}

// FavoriteMovieIDs returns the ids of the user's favorite movies.
func (r *UserRepo) FavoriteMovieIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT movie_id FROM user_favorites WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
