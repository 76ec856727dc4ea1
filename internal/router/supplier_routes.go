package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/handler"
	"github.com/iliyamo/slot-reservation/internal/middleware"
)

// RegisterSupplier registers venue management under /v1/supplier.  All
// routes require a valid JWT and the venue management capability
// (suppliers and admins).
func RegisterSupplier(e *echo.Echo, v *handler.VenueHandler, jwtSecret string) {
	g := e.Group(
		"/v1/supplier",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireCapability(middleware.CanManageVenues),
	)

	g.POST("/venues", v.Create)
	g.GET("/venues", v.List)
	g.PUT("/venues/:id", v.Update)
	g.PATCH("/venues/:id", v.Update) // partial updates use the same handler
	g.DELETE("/venues/:id", v.Delete)
	g.POST("/venues/:id/extend", v.Extend)
	g.GET("/venues/:id/slots", v.Slots)
	g.GET("/venues/:id/reservations", v.Reservations)
}
