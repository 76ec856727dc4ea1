package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/handler"
	"github.com/iliyamo/slot-reservation/internal/middleware"
)

// CustomerHandlers groups the handlers behind the booking capability.
type CustomerHandlers struct {
	Cart         *handler.CartHandler
	Checkout     *handler.CheckoutHandler
	Reservations *handler.ReservationHandler
}

// RegisterCustomer registers booking endpoints.  All routes require a valid
// JWT; cart, checkout and cancellation also require the booking capability
// and pass through limit (which may be nil).  The invoice route is open to
// every authenticated role because its access rule depends on the
// reservation.
func RegisterCustomer(e *echo.Echo, h CustomerHandlers, jwtSecret string, limit echo.MiddlewareFunc) {
	auth := middleware.JWTAuth(jwtSecret)
	book := []echo.MiddlewareFunc{auth, middleware.RequireCapability(middleware.CanBook)}
	if limit != nil {
		book = append(book, limit)
	}

	cart := e.Group("/v1/cart", book...)
	cart.GET("", h.Cart.Get)
	cart.DELETE("", h.Cart.Clear)
	cart.POST("/holds", h.Cart.AddHold)
	cart.DELETE("/holds/:id", h.Cart.RemoveHold)

	checkout := e.Group("/v1/checkout", book...)
	checkout.POST("/intent", h.Checkout.CreateIntent)
	checkout.POST("/confirm", h.Checkout.Confirm)

	e.GET("/v1/my-reservations", h.Reservations.ListMine, book...)
	e.POST("/v1/reservations/:id/cancel", h.Reservations.Cancel, book...)
	e.GET("/v1/reservations/:id/invoice", h.Reservations.Invoice, auth)
}
