package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports liveness.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "status": "ok"})
}
