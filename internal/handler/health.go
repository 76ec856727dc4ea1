package handler // declare the package name; contains HTTP handlers

import (
	"context"  // context bounds the readiness ping
	"net/http" // net/http provides status codes and response helpers
	"time"     // time sets the ping timeout

	"github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// Ready reports 503 while the database cannot be reached.
func Ready(db pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "database unavailable"})
		}
		return c.String(http.StatusOK, "ready")
	}
}
