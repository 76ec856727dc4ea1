package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/service"
)

type venueService interface {
	Create(ctx context.Context, p service.Principal, in service.VenueInput) (*model.Venue, int, error)
	Update(ctx context.Context, p service.Principal, id uint64, in service.VenueInput) (*model.Venue, error)
	Delete(ctx context.Context, p service.Principal, id uint64) error
	ListMine(ctx context.Context, p service.Principal) ([]model.Venue, error)
	Slots(ctx context.Context, p service.Principal, id uint64) ([]model.Slot, error)
	Reservations(ctx context.Context, p service.Principal, id uint64) ([]model.ReservationView, error)
	ExtendSchedule(ctx context.Context, p service.Principal, id uint64) (int, error)
}

// VenueHandler lets suppliers (and admins) manage venues.  Ownership is
// enforced by the venue service; venues of other suppliers answer 404.
type VenueHandler struct {
	Venues venueService
}

func NewVenueHandler(v venueService) *VenueHandler { return &VenueHandler{Venues: v} }

type supplierSlotResp struct {
	ID uint64 `json:"id"`
	slotTimes
	PriceCents int64   `json:"price_cents"`
	Price      float64 `json:"price"`
	Available  bool    `json:"available"`
}

type venueReservationResp struct {
	ID     uint64 `json:"id"`
	UserID uint64 `json:"user_id"`
	SlotID uint64 `json:"slot_id"`
	slotTimes
	Status           string  `json:"status"`
	TotalAmountCents int64   `json:"total_amount_cents"`
	InvoiceNumber    *string `json:"invoice_number,omitempty"`
}

// Create handles POST /v1/supplier/venues.
func (h *VenueHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	var in service.VenueInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	v, n, err := h.Venues.Create(c.Request().Context(), p, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"venue": v, "generated_slots": n})
}

// List handles GET /v1/supplier/venues.
func (h *VenueHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Venues.ListMine(c.Request().Context(), p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Update handles PUT and PATCH /v1/supplier/venues/:id.  Omitted fields
// keep their value.
func (h *VenueHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid venue id")
	}
	var in service.VenueInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	v, err := h.Venues.Update(c.Request().Context(), p, id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Delete handles DELETE /v1/supplier/venues/:id.
func (h *VenueHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid venue id")
	}
	if err := h.Venues.Delete(c.Request().Context(), p, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Extend handles POST /v1/supplier/venues/:id/extend.
func (h *VenueHandler) Extend(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid venue id")
	}
	n, err := h.Venues.ExtendSchedule(c.Request().Context(), p, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"venue_id": id, "window_slots": n})
}

// Slots handles GET /v1/supplier/venues/:id/slots.
func (h *VenueHandler) Slots(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid venue id")
	}
	slots, err := h.Venues.Slots(c.Request().Context(), p, id)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]supplierSlotResp, 0, len(slots))
	for _, s := range slots {
		out = append(out, supplierSlotResp{
			ID: s.ID, slotTimes: newSlotTimes(s.Date, s.StartTime, s.EndTime),
			PriceCents: s.PriceCents, Price: cents(s.PriceCents), Available: s.Available,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Reservations handles GET /v1/supplier/venues/:id/reservations.
func (h *VenueHandler) Reservations(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid venue id")
	}
	list, err := h.Venues.Reservations(c.Request().Context(), p, id)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]venueReservationResp, 0, len(list))
	for _, r := range list {
		out = append(out, venueReservationResp{
			ID: r.ID, UserID: r.UserID, SlotID: r.SlotID, slotTimes: newSlotTimes(r.Date, r.StartTime, r.EndTime),
			Status: r.Status, TotalAmountCents: r.TotalAmountCents, InvoiceNumber: r.InvoiceNumber,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
