package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

type stubRoleReader map[string]string

func (s stubRoleReader) GetByID(_ context.Context, id string) (*model.User, error) {
	role, ok := s[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &model.User{ID: id, Role: role}, nil
}

func runAdminGate(t *testing.T, users stubRoleReader, userID string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set("user_id", userID)
	}
	h := RequireAdmin(users)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	rec := runAdminGate(t, stubRoleReader{"u1": model.RoleAdmin}, "u1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdminRejectsRegularUser(t *testing.T) {
	rec := runAdminGate(t, stubRoleReader{"u1": model.RoleUser}, "u1")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdminRejectsUnknownUser(t *testing.T) {
	rec := runAdminGate(t, stubRoleReader{}, "ghost")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdminRejectsMissingIdentity(t *testing.T) {
	rec := runAdminGate(t, stubRoleReader{}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
