package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the application tables when they do not exist yet.
// The composite primary key on show_seats is what makes seat writes an
// atomic conditional insert: a second booking touching an occupied seat
// fails the whole statement with a duplicate-key error.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS movies (
			id                VARCHAR(32)  NOT NULL,
			title             VARCHAR(255) NOT NULL,
			overview          TEXT         NOT NULL,
			poster_path       VARCHAR(255) NOT NULL DEFAULT '',
			backdrop_path     VARCHAR(255) NOT NULL DEFAULT '',
			release_date      VARCHAR(32)  NOT NULL DEFAULT '',
			original_language VARCHAR(16)  NOT NULL DEFAULT '',
			tagline           VARCHAR(255) NOT NULL DEFAULT '',
			genres            JSON         NOT NULL,
			casts             JSON         NOT NULL,
			vote_average      DOUBLE       NOT NULL DEFAULT 0,
			runtime           INT UNSIGNED NOT NULL DEFAULT 0,
			created_at        DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS shows (
			id          CHAR(36)     NOT NULL,
			movie_id    VARCHAR(32)  NOT NULL,
			starts_at   DATETIME     NOT NULL,
			price_cents INT UNSIGNED NOT NULL,
			created_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			KEY idx_shows_movie (movie_id),
			KEY idx_shows_starts_at (starts_at),
			CONSTRAINT fk_shows_movie FOREIGN KEY (movie_id) REFERENCES movies (id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS show_seats (
			show_id    CHAR(36)    NOT NULL,
			seat_label VARCHAR(8)  NOT NULL,
			user_id    VARCHAR(64) NOT NULL,
			booking_id CHAR(36)    NOT NULL,
			created_at DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (show_id, seat_label),
			KEY idx_show_seats_booking (booking_id),
			CONSTRAINT fk_show_seats_show FOREIGN KEY (show_id) REFERENCES shows (id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id           CHAR(36)     NOT NULL,
			user_id      VARCHAR(64)  NOT NULL,
			show_id      CHAR(36)     NOT NULL,
			seats        JSON         NOT NULL,
			amount_cents INT UNSIGNED NOT NULL,
			is_paid      TINYINT(1)   NOT NULL DEFAULT 0,
			payment_link VARCHAR(512) NOT NULL DEFAULT '',
			session_id   VARCHAR(128) NOT NULL DEFAULT '',
			created_at   DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			KEY idx_bookings_user (user_id),
			KEY idx_bookings_show (show_id),
			CONSTRAINT fk_bookings_show FOREIGN KEY (show_id) REFERENCES shows (id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS users (
			id         VARCHAR(64)  NOT NULL,
			name       VARCHAR(255) NOT NULL,
			email      VARCHAR(255) NOT NULL,
			image      VARCHAR(512) NOT NULL DEFAULT '',
			role       VARCHAR(16)  NOT NULL DEFAULT 'user',
			created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			PRIMARY KEY (id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS user_favorites (
			user_id  VARCHAR(64) NOT NULL,
			movie_id VARCHAR(32) NOT NULL,
			PRIMARY KEY (user_id, movie_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
