package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// RoleReader resolves a user's stored profile. The role lives in the
// database rather than the token so a promotion takes effect without
// reissuing credentials.
type RoleReader interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAdmin returns a middleware that allows only users whose stored
// role is admin. It must run after JWTAuth, which puts the caller's id
// into the context.
func RequireAdmin(users RoleReader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, _ := c.Get("user_id").(string)
			if id == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "missing bearer token"})
			}
			u, err := users.GetByID(c.Request().Context(), id)
			if err != nil || u.Role != model.RoleAdmin {
				return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "not authorized"})
			}
			return next(c)
		}
	}
}
