package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/service"
)

// RequireCapability aborts with 403 unless the role stored by JWTAuth
// grants the capability selected by allow.  Roles are turned into
// capabilities by service.CapabilitiesFor and never compared here.
func RequireCapability(allow func(service.Capabilities) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || !allow(service.CapabilitiesFor(role)) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// CanBook selects the booking capability (cart, checkout, own reservations).
func CanBook(c service.Capabilities) bool { return c.Book }

// CanManageVenues selects the venue management capability.
func CanManageVenues(c service.Capabilities) bool { return c.ManageVenues }
