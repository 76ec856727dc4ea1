package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/slot-reservation/internal/middleware"
	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/payment"
	"github.com/iliyamo/slot-reservation/internal/service"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrIntentNotFound, http.StatusNotFound},
		{service.ErrSlotUnavailable, http.StatusConflict},
		{fmt.Errorf("hold: %w", service.ErrAlreadyInCart), http.StatusConflict},
		{service.ErrVenueHasReservations, http.StatusConflict},
		{service.ErrCartChanged, http.StatusConflict},
		{service.ErrWindowExpired, http.StatusUnprocessableEntity},
		{service.ErrTooCloseToSlot, http.StatusUnprocessableEntity},
		{service.ErrNotPaid, http.StatusUnprocessableEntity},
		{service.ErrPaymentNotConfirmed, http.StatusPaymentRequired},
		{service.ErrExternalFailure, http.StatusBadGateway},
		{service.ErrEmptyCart, http.StatusBadRequest},
		{service.ErrInvalidFilter, http.StatusBadRequest},
		{service.ErrInvalidInput, http.StatusBadRequest},
		{service.ErrForbidden, http.StatusForbidden},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.err), tt.err.Error())
	}
}

// serve runs h with the caller identity JWTAuth would have set.
func serve(h echo.HandlerFunc, method, route, target, body string, userID uint64, role string) *httptest.ResponseRecorder {
	e := echo.New()
	e.Add(method, route, h, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if userID != 0 {
				c.Set(middleware.CtxUserID, userID)
				c.Set(middleware.CtxRole, role)
			}
			return next(c)
		}
	})
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type stubSlots struct {
	got service.SlotFilter
	err error
}

func (s *stubSlots) Query(_ context.Context, f service.SlotFilter) (service.SlotPage, error) {
	s.got = f
	if s.err != nil {
		return service.SlotPage{}, s.err
	}
	return service.SlotPage{Items: []model.SlotListing{{ID: 1, VenueName: "Five Park"}}, Total: 1, Page: 1, PageSize: 20}, nil
}

func (s *stubSlots) Get(context.Context, uint64) (*model.SlotListing, error) {
	return nil, service.ErrNotFound
}

func TestSlotSearch(t *testing.T) {
	st := &stubSlots{}
	h := NewSlotHandler(st)

	rec := serve(h.Search, http.MethodGet, "/v1/slots", "/v1/slots?date=2026-05-03&category=small&q=park&time_of_day=morning&page=2", "", 0, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, st.got.Date)
	assert.Equal(t, "2026-05-03", st.got.Date.Format(dateLayout))
	assert.Equal(t, "small", st.got.Category)
	assert.Equal(t, "park", st.got.Search)
	assert.Equal(t, "morning", st.got.TimeOfDay)
	assert.Equal(t, 2, st.got.Page)
	assert.Contains(t, rec.Body.String(), `"venue_name":"Five Park"`)

	rec = serve(h.Search, http.MethodGet, "/v1/slots", "/v1/slots?date=03/05/2026", "", 0, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	st.err = service.ErrInvalidFilter
	rec = serve(h.Search, http.MethodGet, "/v1/slots", "/v1/slots?venue=Five+Park&q=park", "", 0, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"`+service.ErrInvalidFilter.Error()+`"}`, rec.Body.String())

	rec = serve(h.Get, http.MethodGet, "/v1/slots/:id", "/v1/slots/9", "", 0, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = serve(h.Get, http.MethodGet, "/v1/slots/:id", "/v1/slots/abc", "", 0, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type stubCart struct {
	addErr error
	lines  []model.CartLine
}

func (s *stubCart) AddHold(_ context.Context, userID, slotID uint64) (*model.CartHold, error) {
	if s.addErr != nil {
		return nil, s.addErr
	}
	s.lines = append(s.lines, model.CartLine{
		HoldID: 10, SlotID: slotID, VenueName: "Five Park",
		Date: time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC), StartTime: 10 * time.Hour, EndTime: 11*time.Hour + 30*time.Minute,
		PriceCents: 3500,
	})
	return &model.CartHold{ID: 10, UserID: userID, SlotID: slotID}, nil
}

func (s *stubCart) Remove(context.Context, uint64, uint64) error { return service.ErrNotFound }
func (s *stubCart) Clear(context.Context, uint64) error          { return nil }

func (s *stubCart) View(context.Context, uint64) (service.CartView, error) {
	var total int64
	for _, l := range s.lines {
		total += l.PriceCents
	}
	return service.CartView{Lines: s.lines, TotalCents: total}, nil
}

func TestCartHandler(t *testing.T) {
	st := &stubCart{}
	h := NewCartHandler(st)

	rec := serve(h.AddHold, http.MethodPost, "/v1/cart/holds", "/v1/cart/holds", `{"slot_id":5}`, 7, model.RoleCustomer)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{
		"lines":[{"hold_id":10,"slot_id":5,"venue_id":0,"venue_name":"Five Park","date":"2026-05-03",
		"start_time":"10:00","end_time":"11:30","price_cents":3500,"price":35}],
		"count":1,"total_cents":3500,"total":35}`, rec.Body.String())

	st.addErr = fmt.Errorf("add: %w", service.ErrSlotUnavailable)
	rec = serve(h.AddHold, http.MethodPost, "/v1/cart/holds", "/v1/cart/holds", `{"slot_id":6}`, 7, model.RoleCustomer)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(h.AddHold, http.MethodPost, "/v1/cart/holds", "/v1/cart/holds", `{}`, 7, model.RoleCustomer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h.Get, http.MethodGet, "/v1/cart", "/v1/cart", "", 0, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h.RemoveHold, http.MethodDelete, "/v1/cart/holds/:id", "/v1/cart/holds/99", "", 7, model.RoleCustomer)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h.Clear, http.MethodDelete, "/v1/cart", "/v1/cart", "", 7, model.RoleCustomer)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

type stubCheckout struct {
	confirmErr error
	gotIntent  string
}

func (s *stubCheckout) CreateIntent(context.Context, uint64) (payment.Intent, error) {
	return payment.Intent{ClientSecret: "secret", IntentID: "pi_1"}, nil
}

func (s *stubCheckout) ConfirmAndFinalize(_ context.Context, _ uint64, id string) (*service.CheckoutResult, error) {
	s.gotIntent = id
	if s.confirmErr != nil {
		return nil, s.confirmErr
	}
	return &service.CheckoutResult{Count: 2, TotalCents: 9000, PaymentIntentID: id}, nil
}

func TestCheckoutHandler(t *testing.T) {
	st := &stubCheckout{}
	h := NewCheckoutHandler(st)

	rec := serve(h.CreateIntent, http.MethodPost, "/v1/checkout/intent", "/v1/checkout/intent", "", 7, model.RoleCustomer)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"client_secret":"secret","payment_intent_id":"pi_1"}`, rec.Body.String())

	rec = serve(h.Confirm, http.MethodPost, "/v1/checkout/confirm", "/v1/checkout/confirm", `{"payment_intent_id":" pi_1 "}`, 7, model.RoleCustomer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pi_1", st.gotIntent)
	assert.Contains(t, rec.Body.String(), `"total_cents":9000`)

	rec = serve(h.Confirm, http.MethodPost, "/v1/checkout/confirm", "/v1/checkout/confirm", `{}`, 7, model.RoleCustomer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	st.confirmErr = service.ErrPaymentNotConfirmed
	rec = serve(h.Confirm, http.MethodPost, "/v1/checkout/confirm", "/v1/checkout/confirm", `{"payment_intent_id":"pi_1"}`, 7, model.RoleCustomer)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	st.confirmErr = errors.New("deadlock")
	rec = serve(h.Confirm, http.MethodPost, "/v1/checkout/confirm", "/v1/checkout/confirm", `{"payment_intent_id":"pi_1"}`, 7, model.RoleCustomer)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

type stubReservations struct{ cancelErr error }

func (s *stubReservations) ListMine(context.Context, uint64) ([]service.ReservationSummary, error) {
	return []service.ReservationSummary{{SlotDate: "2026-05-03", Cancellable: true}}, nil
}

func (s *stubReservations) Cancel(_ context.Context, userID, id uint64) (*model.Reservation, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &model.Reservation{ID: id, UserID: userID, Status: model.StatusCancelled}, nil
}

type stubInvoices struct{ got service.Principal }

func (s *stubInvoices) Get(_ context.Context, p service.Principal, id uint64) (*model.Invoice, error) {
	s.got = p
	if !p.Caps.SeeAll {
		return nil, service.ErrNotFound
	}
	return &model.Invoice{ReservationID: id, Number: "FAC-20260501-000001"}, nil
}

func TestReservationHandler(t *testing.T) {
	res, inv := &stubReservations{}, &stubInvoices{}
	h := NewReservationHandler(res, inv)

	rec := serve(h.ListMine, http.MethodGet, "/v1/my-reservations", "/v1/my-reservations", "", 7, model.RoleCustomer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cancellable":true`)

	rec = serve(h.Cancel, http.MethodPost, "/v1/reservations/:id/cancel", "/v1/reservations/3/cancel", "", 7, model.RoleCustomer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"CANCELLED"`)

	res.cancelErr = service.ErrTooCloseToSlot
	rec = serve(h.Cancel, http.MethodPost, "/v1/reservations/:id/cancel", "/v1/reservations/3/cancel", "", 7, model.RoleCustomer)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(h.Invoice, http.MethodGet, "/v1/reservations/:id/invoice", "/v1/reservations/3/invoice", "", 1, model.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(1), inv.got.UserID)
	assert.True(t, inv.got.Caps.SeeAll)

	rec = serve(h.Invoice, http.MethodGet, "/v1/reservations/:id/invoice", "/v1/reservations/3/invoice", "", 8, model.RoleCustomer)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := serve(Health, http.MethodGet, "/healthz", "/healthz", "", 0, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
