package handler // handler defines http handlers

import (
	"errors"   // errors provides sentinel comparisons
	"net/http" // net/http provides status codes
	"strconv"  // strconv converts path parameters
	"time"     // time formats dates in responses

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/iliyamo/slot-reservation/internal/middleware" // context keys set by JWTAuth
	"github.com/iliyamo/slot-reservation/internal/model"      // clock formatting helpers
	"github.com/iliyamo/slot-reservation/internal/service"    // service sentinels and principal
)

const dateLayout = "2006-01-02"

var errNoUser = errors.New("invalid user_id in context")

// getUserID extracts the user_id stored by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := c.Get(middleware.CtxUserID).(uint64); ok && id != 0 {
		return id, nil
	}
	return 0, errNoUser
}

// principal builds the authenticated caller from the token claims.
func principal(c echo.Context) (service.Principal, error) {
	uid, err := getUserID(c)
	if err != nil {
		return service.Principal{}, err
	}
	role, _ := c.Get(middleware.CtxRole).(string)
	return service.NewPrincipal(uid, role), nil
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrIntentNotFound):
		return http.StatusNotFound
	case service.IsConflict(err):
		return http.StatusConflict
	case service.IsPolicyViolation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrPaymentNotConfirmed):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrExternalFailure):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrEmptyCart), errors.Is(err, service.ErrInvalidFilter),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error": "..."}.  Internal errors are logged
// and their text is not sent to the client.
func writeError(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

func formatDate(t time.Time) string { return t.Format(dateLayout) }

func cents(v int64) float64 { return float64(v) / 100 }

// slotTimes renders the wall-clock fields shared by slot-based responses.
type slotTimes struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func newSlotTimes(date time.Time, start, end time.Duration) slotTimes {
	return slotTimes{Date: formatDate(date), StartTime: model.FormatClock(start), EndTime: model.FormatClock(end)}
}
