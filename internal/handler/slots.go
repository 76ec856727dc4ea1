package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/service"
)

type slotQuerier interface {
	Query(ctx context.Context, f service.SlotFilter) (service.SlotPage, error)
	Get(ctx context.Context, slotID uint64) (*model.SlotListing, error)
}

// SlotHandler serves the public slot search.
type SlotHandler struct {
	Inventory slotQuerier
}

func NewSlotHandler(inv slotQuerier) *SlotHandler { return &SlotHandler{Inventory: inv} }

// Search handles GET /v1/slots.
//
//	date         YYYY-MM-DD, a single day (default: every day from today)
//	category     small | medium | large
//	location     substring of the venue location
//	venue        exact venue name
//	q            substring of the venue name or description
//	time_of_day  morning | afternoon | evening
//	page, page_size
func (h *SlotHandler) Search(c echo.Context) error {
	f := service.SlotFilter{
		Category:  strings.TrimSpace(c.QueryParam("category")),
		Location:  strings.TrimSpace(c.QueryParam("location")),
		VenueName: strings.TrimSpace(c.QueryParam("venue")),
		Search:    strings.TrimSpace(c.QueryParam("q")),
		TimeOfDay: strings.TrimSpace(c.QueryParam("time_of_day")),
	}
	if raw := strings.TrimSpace(c.QueryParam("date")); raw != "" {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		f.Date = &d
	}
	f.Page, _ = strconv.Atoi(c.QueryParam("page"))
	f.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))

	page, err := h.Inventory.Query(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles GET /v1/slots/:id.
func (h *SlotHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid slot id")
	}
	s, err := h.Inventory.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}
