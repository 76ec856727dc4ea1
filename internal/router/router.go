package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/slot-reservation/internal/handler"    // HTTP handlers
	"github.com/iliyamo/slot-reservation/internal/middleware" // JWT authentication and capability checks
)

// RegisterRoutes registers the unauthenticated operational endpoints.  The
// readiness handler is optional.
func RegisterRoutes(e *echo.Echo, ready echo.HandlerFunc) {
	e.GET("/healthz", handler.Health)
	if ready != nil {
		e.GET("/readyz", ready)
	}
}

// RegisterAuth registers authentication routes.  Register, login, refresh
// and logout live under /v1/auth and need no session; /v1/me requires a
// valid access token of any role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh) // rotates the refresh token
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the guest slot search.  cache may be nil.
func RegisterPublic(e *echo.Echo, s *handler.SlotHandler, cache echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if cache != nil {
		mw = append(mw, cache)
	}
	e.GET("/v1/slots", s.Search, mw...)
	e.GET("/v1/slots/:id", s.Get)
}
