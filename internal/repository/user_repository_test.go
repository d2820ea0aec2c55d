package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRepoMock(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(db), mock
}

func TestToggleFavoriteRemovesExisting(t *testing.T) {
	repo, mock := newUserRepoMock(t)
	mock.ExpectExec(`DELETE FROM user_favorites`).
		WithArgs("user_1", "movie_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	fav, err := repo.ToggleFavorite(context.Background(), "user_1", "movie_1")
	require.NoError(t, err)
	assert.False(t, fav)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleFavoriteAddsMissing(t *testing.T) {
	repo, mock := newUserRepoMock(t)
	mock.ExpectExec(`DELETE FROM user_favorites`).
		WithArgs("user_1", "movie_1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT IGNORE INTO user_favorites`).
		WithArgs("user_1", "movie_1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	fav, err := repo.ToggleFavorite(context.Background(), "user_1", "movie_1")
	require.NoError(t, err)
	assert.True(t, fav)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Two toggles can interleave so both see zero deleted rows and both
// insert. IGNORE makes the second insert a no-op instead of a
// duplicate-key error, and the toggle still reports favorited.
func TestToggleFavoriteLosingRacerStillFavorites(t *testing.T) {
	repo, mock := newUserRepoMock(t)
	mock.ExpectExec(`DELETE FROM user_favorites`).
		WithArgs("user_1", "movie_1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT IGNORE INTO user_favorites`).
		WithArgs("user_1", "movie_1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	fav, err := repo.ToggleFavorite(context.Background(), "user_1", "movie_1")
	require.NoError(t, err)
	assert.True(t, fav)
	assert.NoError(t, mock.ExpectationsWereMet())
}
