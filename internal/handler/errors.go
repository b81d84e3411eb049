package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-refresh/internal/service"
)

// respondError is the single place where domain errors become HTTP. A
// DomainError carries its own status hint and safe message; anything else is
// an internal failure and leaks no detail.
func respondError(c echo.Context, err error) error {
	var de *service.DomainError
	if errors.As(err, &de) {
		return c.JSON(de.Status, echo.Map{"error": de.Message})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
