package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/slot-reservation/internal/logger"
	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/payment"
	"github.com/iliyamo/slot-reservation/internal/queue"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

// memDB is an in-memory stand-in for the MySQL schema.  InTx serializes
// transactions and restores a snapshot when fn fails.
type memDB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID       uint64
	venues       map[uint64]model.Venue
	slots        map[uint64]model.Slot
	holds        map[uint64]model.CartHold
	reservations map[uint64]model.Reservation
	payments     map[uint64]model.Payment
	invoices     map[uint64]model.Invoice

	failInsertHold bool
	failInvoice    bool
}

func newMemDB() *memDB {
	return &memDB{
		venues:       map[uint64]model.Venue{},
		slots:        map[uint64]model.Slot{},
		holds:        map[uint64]model.CartHold{},
		reservations: map[uint64]model.Reservation{},
		payments:     map[uint64]model.Payment{},
		invoices:     map[uint64]model.Invoice{},
	}
}

func (db *memDB) id() uint64 {
	db.nextID++
	return db.nextID
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *memDB) InTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	snap := memDB{
		nextID:       db.nextID,
		venues:       copyMap(db.venues),
		slots:        copyMap(db.slots),
		holds:        copyMap(db.holds),
		reservations: copyMap(db.reservations),
		payments:     copyMap(db.payments),
		invoices:     copyMap(db.invoices),
	}
	db.mu.Unlock()

	if err := fn(nil); err != nil {
		db.mu.Lock()
		db.venues, db.slots, db.holds = snap.venues, snap.slots, snap.holds
		db.reservations, db.payments, db.invoices = snap.reservations, snap.payments, snap.invoices
		db.mu.Unlock()
		return err
	}
	return nil
}

func (db *memDB) slot(id uint64) model.Slot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.slots[id]
}

func (db *memDB) count(what string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	switch what {
	case "holds":
		return len(db.holds)
	case "reservations":
		return len(db.reservations)
	case "payments":
		return len(db.payments)
	case "invoices":
		return len(db.invoices)
	case "slots":
		return len(db.slots)
	}
	return -1
}

// ---- slots ----

type fakeSlots struct{ *memDB }

func (f fakeSlots) GetByID(_ context.Context, id uint64) (*model.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (f fakeSlots) GetByIDTx(ctx context.Context, _ *sql.Tx, id uint64) (*model.Slot, error) {
	return f.GetByID(ctx, id)
}

func (f fakeSlots) HoldIfAvailable(_ context.Context, id uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok || !s.Available {
		return false, nil
	}
	s.Available = false
	f.slots[id] = s
	return true, nil
}

func (f fakeSlots) Release(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.Available = true
	f.slots[id] = s
	return nil
}

func (f fakeSlots) ReleaseTx(ctx context.Context, _ *sql.Tx, id uint64) error {
	return f.Release(ctx, id)
}

func (f fakeSlots) listing(s model.Slot) model.SlotListing {
	v := f.venues[s.VenueID]
	return model.SlotListing{
		ID: s.ID, VenueID: s.VenueID, VenueName: v.Name, VenueCategory: v.Category, Location: v.Location,
		Date: s.Date.Format("2006-01-02"), StartTime: model.FormatClock(s.StartTime), EndTime: model.FormatClock(s.EndTime),
		PriceCents: s.PriceCents, Price: float64(s.PriceCents) / 100, Available: s.Available,
	}
}

var todBounds = map[string][2]time.Duration{
	repository.TimeOfDayMorning:   {6 * time.Hour, 12 * time.Hour},
	repository.TimeOfDayAfternoon: {12 * time.Hour, 18 * time.Hour},
	repository.TimeOfDayEvening:   {18 * time.Hour, 23 * time.Hour},
}

func (f fakeSlots) SearchAvailable(_ context.Context, q repository.SlotSearchQuery) ([]model.SlotListing, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var match []model.Slot
	for _, s := range f.slots {
		v := f.venues[s.VenueID]
		switch {
		case !s.Available, s.Date.Before(q.Today):
			continue
		case q.Date != nil && !s.Date.Equal(*q.Date):
			continue
		case q.Category != "" && v.Category != q.Category:
			continue
		case q.Location != "" && !strings.Contains(strings.ToLower(v.Location), strings.ToLower(q.Location)):
			continue
		case q.VenueName != "" && v.Name != q.VenueName:
			continue
		case q.VenueName == "" && q.Search != "" &&
			!strings.Contains(strings.ToLower(v.Name+"\x00"+v.Description), strings.ToLower(q.Search)):
			continue
		}
		if b, ok := todBounds[q.TimeOfDay]; ok && (s.StartTime < b[0] || s.StartTime >= b[1]) {
			continue
		}
		match = append(match, s)
	}
	sort.Slice(match, func(i, j int) bool {
		a, b := match[i], match[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
	total := int64(len(match))
	if q.PageSize > 0 {
		from := (q.Page - 1) * q.PageSize
		if from > len(match) {
			from = len(match)
		}
		to := from + q.PageSize
		if to > len(match) {
			to = len(match)
		}
		match = match[from:to]
	}
	out := make([]model.SlotListing, 0, len(match))
	for _, s := range match {
		out = append(out, f.listing(s))
	}
	return out, total, nil
}

func (f fakeSlots) GetListing(_ context.Context, id uint64) (*model.SlotListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	l := f.listing(s)
	return &l, nil
}

func (f fakeSlots) ListByVenue(_ context.Context, venueID uint64, from time.Time) ([]model.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Slot
	for _, s := range f.slots {
		if s.VenueID == venueID && !s.Date.Before(from) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (f fakeSlots) CreateBulkTx(_ context.Context, _ *sql.Tx, slots []model.Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range slots {
		dup := false
		for _, e := range f.slots {
			if e.VenueID == s.VenueID && e.Date.Equal(s.Date) && e.StartTime == s.StartTime {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		s.ID = f.id()
		f.slots[s.ID] = s
	}
	return nil
}

func (f fakeSlots) RepriceAvailableTx(_ context.Context, _ *sql.Tx, venueID uint64, price int64, from time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.slots {
		if s.VenueID == venueID && s.Available && !s.Date.Before(from) {
			s.PriceCents = price
			f.slots[id] = s
		}
	}
	return nil
}

func (f fakeSlots) ReleaseStuck(context.Context, time.Duration) (int64, error) { return 0, nil }

// ---- cart ----

type fakeCarts struct{ *memDB }

var errInsertFailed = errors.New("insert failed")

func (f fakeCarts) Insert(_ context.Context, userID, slotID uint64) (*model.CartHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertHold {
		return nil, errInsertFailed
	}
	for _, h := range f.holds {
		if h.UserID == userID && h.SlotID == slotID {
			return nil, repository.ErrDuplicate
		}
	}
	h := model.CartHold{ID: f.id(), UserID: userID, SlotID: slotID, CreatedAt: time.Now()}
	f.holds[h.ID] = h
	return &h, nil
}

func (f fakeCarts) Exists(_ context.Context, userID, slotID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.holds {
		if h.UserID == userID && h.SlotID == slotID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeCarts) GetForUser(_ context.Context, holdID, userID uint64) (*model.CartHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.holds[holdID]
	if !ok || h.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &h, nil
}

func (f fakeCarts) ListByUser(_ context.Context, userID uint64) ([]model.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.CartLine, 0)
	for _, h := range f.holds {
		if h.UserID != userID {
			continue
		}
		s := f.slots[h.SlotID]
		out = append(out, model.CartLine{
			HoldID: h.ID, SlotID: s.ID, VenueID: s.VenueID, VenueName: f.venues[s.VenueID].Name,
			Date: s.Date, StartTime: s.StartTime, EndTime: s.EndTime, PriceCents: s.PriceCents,
			SlotAvailable: s.Available, AddedAt: h.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HoldID < out[j].HoldID })
	return out, nil
}

func (f fakeCarts) Delete(_ context.Context, holdID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.holds, holdID)
	return nil
}

func (f fakeCarts) DeleteAllByUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, h := range f.holds {
		if h.UserID == userID {
			delete(f.holds, id)
		}
	}
	return nil
}

func (f fakeCarts) DeleteAllByUserTx(ctx context.Context, _ *sql.Tx, userID uint64) error {
	return f.DeleteAllByUser(ctx, userID)
}

// ---- reservations, payments, invoices ----

type fakeReservations struct{ *memDB }

func (f fakeReservations) CreateTx(_ context.Context, _ *sql.Tx, res *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	res.ID = f.id()
	f.reservations[res.ID] = *res
	return nil
}

func (f fakeReservations) HasActiveForSlotTx(_ context.Context, _ *sql.Tx, slotID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reservations {
		if r.SlotID == slotID && r.Status != model.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeReservations) GetForUserTx(_ context.Context, _ *sql.Tx, id, userID uint64) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok || r.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (f fakeReservations) UpdateStatusTx(_ context.Context, _ *sql.Tx, id uint64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.Status = status
	f.reservations[id] = r
	return nil
}

func (f fakeReservations) GetOwnership(_ context.Context, id uint64) (*model.ReservationOwnership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v := f.venues[f.slots[r.SlotID].VenueID]
	return &model.ReservationOwnership{ReservationID: r.ID, UserID: r.UserID, VenueOwnerID: v.OwnerID}, nil
}

func (f fakeReservations) views(keep func(model.Reservation, model.Slot) bool) []model.ReservationView {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ReservationView, 0)
	for _, r := range f.reservations {
		s := f.slots[r.SlotID]
		if !keep(r, s) {
			continue
		}
		v := model.ReservationView{
			ID: r.ID, UserID: r.UserID, SlotID: r.SlotID, VenueID: s.VenueID, VenueName: f.venues[s.VenueID].Name,
			Date: s.Date, StartTime: s.StartTime, EndTime: s.EndTime, Status: r.Status,
			TotalAmountCents: r.TotalAmountCents, CreatedAt: r.CreatedAt,
		}
		for _, inv := range f.invoices {
			if inv.ReservationID == r.ID {
				n := inv.Number
				v.InvoiceNumber = &n
			}
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f fakeReservations) ListByUser(_ context.Context, userID uint64) ([]model.ReservationView, error) {
	return f.views(func(r model.Reservation, _ model.Slot) bool { return r.UserID == userID }), nil
}

func (f fakeReservations) ListByVenue(_ context.Context, venueID uint64) ([]model.ReservationView, error) {
	return f.views(func(_ model.Reservation, s model.Slot) bool { return s.VenueID == venueID }), nil
}

func (f fakeReservations) ListPaidWithoutInvoice(_ context.Context, limit int) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reservation
	for _, r := range f.reservations {
		if r.Status != model.StatusPaid {
			continue
		}
		has := false
		for _, inv := range f.invoices {
			has = has || inv.ReservationID == r.ID
		}
		if !has {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakePayments struct{ *memDB }

func (f fakePayments) CreateTx(_ context.Context, _ *sql.Tx, p *model.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.payments {
		if e.IntentID == p.IntentID || e.ReservationID == p.ReservationID {
			return repository.ErrDuplicate
		}
	}
	p.ID = f.id()
	f.payments[p.ID] = *p
	return nil
}

type fakeInvoices struct{ *memDB }

var errInvoiceFailed = errors.New("invoice insert failed")

func (f fakeInvoices) CreateTx(_ context.Context, _ *sql.Tx, inv *model.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInvoice {
		return errInvoiceFailed
	}
	for _, e := range f.invoices {
		if e.ReservationID == inv.ReservationID {
			return repository.ErrDuplicate
		}
	}
	inv.ID = f.id()
	f.invoices[inv.ID] = *inv
	return nil
}

func (f fakeInvoices) GetByReservationID(_ context.Context, reservationID uint64) (*model.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invoices {
		if inv.ReservationID == reservationID {
			return &inv, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ---- venues ----

type fakeVenues struct{ *memDB }

func (f fakeVenues) CreateTx(_ context.Context, _ *sql.Tx, v *model.Venue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.ID = f.id()
	f.venues[v.ID] = *v
	return nil
}

func (f fakeVenues) GetByID(_ context.Context, id uint64) (*model.Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.venues[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (f fakeVenues) ListByOwner(_ context.Context, ownerID uint64) ([]model.Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Venue, 0)
	for _, v := range f.venues {
		if v.OwnerID == ownerID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f fakeVenues) UpdateTx(_ context.Context, _ *sql.Tx, v *model.Venue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.venues[v.ID]; !ok {
		return repository.ErrNotFound
	}
	f.venues[v.ID] = *v
	return nil
}

func (f fakeVenues) HasReservations(_ context.Context, venueID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reservations {
		if f.slots[r.SlotID].VenueID == venueID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeVenues) Delete(ctx context.Context, venueID uint64) error {
	if has, _ := f.HasReservations(ctx, venueID); has {
		return repository.ErrConflict
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.venues[venueID]; !ok {
		return repository.ErrNotFound
	}
	delete(f.venues, venueID)
	for id, s := range f.slots {
		if s.VenueID == venueID {
			delete(f.slots, id)
		}
	}
	return nil
}

// ---- collaborators ----

type fakeGateway struct {
	mu          sync.Mutex
	amount      int64
	description string
	currency    string
	confirm     bool
	err         error
	n           int
}

func (g *fakeGateway) CreateIntent(_ context.Context, amount int64, description, currency string) (payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return payment.Intent{}, g.err
	}
	g.n++
	g.amount, g.description, g.currency = amount, description, currency
	id := "pi_" + strconv.Itoa(g.n)
	return payment.Intent{ClientSecret: id + "_secret", IntentID: id}, nil
}

func (g *fakeGateway) ConfirmIntent(context.Context, string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.confirm, g.err
}

type fakeEvents struct {
	mu        sync.Mutex
	confirmed []queue.ReservationConfirmedEvent
	cancelled []queue.ReservationCancelledEvent
}

func (e *fakeEvents) ReservationConfirmed(_ context.Context, ev queue.ReservationConfirmedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.confirmed = append(e.confirmed, ev)
	return nil
}

func (e *fakeEvents) ReservationCancelled(_ context.Context, ev queue.ReservationCancelledEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelled = append(e.cancelled, ev)
	return nil
}

// ---- fixture ----

type fixture struct {
	t      *testing.T
	db     *memDB
	now    time.Time
	gw     *fakeGateway
	events *fakeEvents

	inv      *InventoryService
	cart     *CartService
	checkout *CheckoutService
	res      *ReservationService
	venues   *VenueService
	invoices *InvoiceService
}

// fixtureStart is 09:00 UTC on a Friday.
var fixtureStart = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newMemDB()
	f := &fixture{t: t, db: db, now: fixtureStart, gw: &fakeGateway{confirm: true}, events: &fakeEvents{}}
	clock := func() time.Time { return f.now }
	log := logger.Nop()
	slots := fakeSlots{db}

	f.inv = NewInventoryService(slots, time.UTC, log, nil)
	f.inv.now = clock
	f.cart = NewCartService(f.inv, slots, fakeCarts{db}, log)
	f.checkout = NewCheckoutService(CheckoutDeps{
		Tx:           db,
		Cart:         f.cart,
		Carts:        fakeCarts{db},
		Slots:        slots,
		Reservations: fakeReservations{db},
		Payments:     fakePayments{db},
		Invoices:     fakeInvoices{db},
		Intents:      repository.NewIntentStore(nil, time.Hour),
		Gateway:      f.gw,
		Events:       f.events,
		Currency:     "thb",
		Location:     time.UTC,
		Log:          log,
	})
	f.checkout.now = clock
	f.res = NewReservationService(db, fakeReservations{db}, slots, f.events, DefaultCancellationPolicy, time.UTC, log, nil)
	f.res.now = clock
	f.venues = NewVenueService(db, fakeVenues{db}, slots, fakeReservations{db}, 14, time.UTC, log)
	f.venues.now = clock
	f.invoices = NewInvoiceService(db, fakeReservations{db}, fakeInvoices{db}, time.UTC, log)
	f.invoices.now = clock
	return f
}

// addVenue inserts a venue without slots.
func (f *fixture) addVenue(ownerID uint64, name, category string) model.Venue {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	v := model.Venue{ID: f.db.id(), OwnerID: ownerID, Name: name, Category: category, Location: "Lyon"}
	f.db.venues[v.ID] = v
	return v
}

// addSlot inserts one available slot starting at the given instant.
func (f *fixture) addSlot(venueID uint64, startsAt time.Time, priceCents int64) model.Slot {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	y, m, d := startsAt.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	start := startsAt.Sub(day)
	s := model.Slot{ID: f.db.id(), VenueID: venueID, Date: day, StartTime: start, EndTime: start + SlotLength,
		PriceCents: priceCents, Available: true}
	f.db.slots[s.ID] = s
	return s
}

// addPaidReservation books a slot directly, bypassing checkout.
func (f *fixture) addPaidReservation(userID uint64, slot model.Slot, createdAt time.Time) model.Reservation {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s := f.db.slots[slot.ID]
	s.Available = false
	f.db.slots[slot.ID] = s
	r := model.Reservation{ID: f.db.id(), UserID: userID, SlotID: slot.ID, TotalAmountCents: slot.PriceCents,
		Status: model.StatusPaid, CreatedAt: createdAt}
	f.db.reservations[r.ID] = r
	return r
}
