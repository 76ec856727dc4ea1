package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/payment"
	"github.com/iliyamo/slot-reservation/internal/service"
)

type checkoutService interface {
	CreateIntent(ctx context.Context, userID uint64) (payment.Intent, error)
	ConfirmAndFinalize(ctx context.Context, userID uint64, intentID string) (*service.CheckoutResult, error)
}

// CheckoutHandler turns the cart into paid reservations in two calls: the
// client first opens a payment intent, pays it with the provider, then
// confirms it.
type CheckoutHandler struct {
	Checkout checkoutService
}

func NewCheckoutHandler(s checkoutService) *CheckoutHandler { return &CheckoutHandler{Checkout: s} }

// CreateIntent handles POST /v1/checkout/intent.
func (h *CheckoutHandler) CreateIntent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	in, err := h.Checkout.CreateIntent(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"client_secret":     in.ClientSecret,
		"payment_intent_id": in.IntentID,
	})
}

// Confirm handles POST /v1/checkout/confirm with {"payment_intent_id": "..."}.
func (h *CheckoutHandler) Confirm(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body struct {
		PaymentIntentID string `json:"payment_intent_id"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.PaymentIntentID) == "" {
		return badRequest(c, "payment_intent_id is required")
	}
	res, err := h.Checkout.ConfirmAndFinalize(c.Request().Context(), uid, strings.TrimSpace(body.PaymentIntentID))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
