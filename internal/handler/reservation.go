package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/service"
)

type reservationService interface {
	ListMine(ctx context.Context, userID uint64) ([]service.ReservationSummary, error)
	Cancel(ctx context.Context, userID, reservationID uint64) (*model.Reservation, error)
}

type invoiceService interface {
	Get(ctx context.Context, p service.Principal, reservationID uint64) (*model.Invoice, error)
}

// ReservationHandler serves reservation listings, cancellation and
// invoices.
type ReservationHandler struct {
	Reservations reservationService
	Invoices     invoiceService
}

func NewReservationHandler(r reservationService, inv invoiceService) *ReservationHandler {
	return &ReservationHandler{Reservations: r, Invoices: inv}
}

// ListMine handles GET /v1/my-reservations.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Reservations.ListMine(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Cancel handles POST /v1/reservations/:id/cancel.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.Reservations.Cancel(c.Request().Context(), uid, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Invoice handles GET /v1/reservations/:id/invoice for any authenticated
// role; the access predicate lives in the invoice service.
func (h *ReservationHandler) Invoice(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	inv, err := h.Invoices.Get(c.Request().Context(), p, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, inv)
}
