package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/service"
)

type cartService interface {
	AddHold(ctx context.Context, userID, slotID uint64) (*model.CartHold, error)
	Remove(ctx context.Context, userID, holdID uint64) error
	Clear(ctx context.Context, userID uint64) error
	View(ctx context.Context, userID uint64) (service.CartView, error)
}

// CartHandler exposes the customer cart.  JWT and capability checks are
// done by middleware.
type CartHandler struct {
	Cart cartService
}

func NewCartHandler(cart cartService) *CartHandler { return &CartHandler{Cart: cart} }

type cartLineResp struct {
	HoldID    uint64 `json:"hold_id"`
	SlotID    uint64 `json:"slot_id"`
	VenueID   uint64 `json:"venue_id"`
	VenueName string `json:"venue_name"`
	slotTimes
	PriceCents int64   `json:"price_cents"`
	Price      float64 `json:"price"`
}

type cartResp struct {
	Lines      []cartLineResp `json:"lines"`
	Count      int            `json:"count"`
	TotalCents int64          `json:"total_cents"`
	Total      float64        `json:"total"`
}

func (h *CartHandler) render(c echo.Context, status int, userID uint64) error {
	v, err := h.Cart.View(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	out := cartResp{Lines: make([]cartLineResp, 0, len(v.Lines)), Count: len(v.Lines), TotalCents: v.TotalCents, Total: cents(v.TotalCents)}
	for _, l := range v.Lines {
		out.Lines = append(out.Lines, cartLineResp{
			HoldID: l.HoldID, SlotID: l.SlotID, VenueID: l.VenueID, VenueName: l.VenueName,
			slotTimes:  newSlotTimes(l.Date, l.StartTime, l.EndTime),
			PriceCents: l.PriceCents, Price: cents(l.PriceCents),
		})
	}
	return c.JSON(status, out)
}

// Get handles GET /v1/cart.
func (h *CartHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	return h.render(c, http.StatusOK, uid)
}

// AddHold handles POST /v1/cart/holds with {"slot_id": N} and returns the
// updated cart.
func (h *CartHandler) AddHold(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body struct {
		SlotID uint64 `json:"slot_id"`
	}
	if err := c.Bind(&body); err != nil || body.SlotID == 0 {
		return badRequest(c, "slot_id is required")
	}
	if _, err := h.Cart.AddHold(c.Request().Context(), uid, body.SlotID); err != nil {
		return writeError(c, err)
	}
	return h.render(c, http.StatusCreated, uid)
}

// RemoveHold handles DELETE /v1/cart/holds/:id.
func (h *CartHandler) RemoveHold(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid hold id")
	}
	if err := h.Cart.Remove(c.Request().Context(), uid, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Clear handles DELETE /v1/cart.
func (h *CartHandler) Clear(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	if err := h.Cart.Clear(c.Request().Context(), uid); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
