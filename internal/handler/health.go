package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-refresh/internal/cache"
)

// Health reports liveness plus which cache provider currently serves the
// fast path. Running on the fallback is degraded but functional, so the
// status stays 200.
func Health(gw *cache.Gateway) echo.HandlerFunc {
	return func(c echo.Context) error {
		cacheMode := "distributed"
		if gw.UsingFallback() {
			cacheMode = "local"
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "cache": cacheMode})
	}
}
