package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/slot-reservation/internal/logger"
	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

// VenueService lets suppliers manage their venues and slot inventory.
type VenueService struct {
	tx           Transactor
	venues       VenueRepository
	slots        SlotRepository
	reservations ReservationRepository
	horizonDays  int
	loc          *time.Location
	now          func() time.Time
	log          logger.Logger
}

func NewVenueService(tx Transactor, venues VenueRepository, slots SlotRepository, reservations ReservationRepository,
	horizonDays int, loc *time.Location, log logger.Logger) *VenueService {
	if horizonDays < 1 {
		horizonDays = 14
	}
	if loc == nil {
		loc = time.UTC
	}
	return &VenueService{
		tx: tx, venues: venues, slots: slots, reservations: reservations,
		horizonDays: horizonDays, loc: loc, now: time.Now, log: log,
	}
}

// VenueInput carries the editable venue fields.  Nil fields are left
// unchanged on update; Create requires Name, Category and Location.
type VenueInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Location    *string `json:"location"`
}

func (s *VenueService) today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func apply(v *model.Venue, in VenueInput) error {
	if in.Name != nil {
		v.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		v.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		v.Category = strings.ToLower(strings.TrimSpace(*in.Category))
	}
	if in.Location != nil {
		v.Location = strings.TrimSpace(*in.Location)
	}
	switch {
	case v.Name == "":
		return invalid("name is required")
	case len(v.Name) > 150:
		return invalid("name is too long")
	case v.Location == "":
		return invalid("location is required")
	case !model.ValidCategory(v.Category):
		return invalid("category must be small, medium or large")
	}
	return nil
}

// Create inserts the venue and its slot schedule in one transaction.  It
// returns the venue and the number of generated slots.
func (s *VenueService) Create(ctx context.Context, p Principal, in VenueInput) (*model.Venue, int, error) {
	if !p.Caps.ManageVenues {
		return nil, 0, ErrForbidden
	}
	v := &model.Venue{OwnerID: p.UserID}
	if err := apply(v, in); err != nil {
		return nil, 0, err
	}
	var generated int
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		if err := s.venues.CreateTx(ctx, tx, v); err != nil {
			return fmt.Errorf("create venue: %w", err)
		}
		slots := GenerateSlots(v.ID, v.Category, s.today(), s.horizonDays)
		generated = len(slots)
		if err := s.slots.CreateBulkTx(ctx, tx, slots); err != nil {
			return fmt.Errorf("generate slots: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	s.log.Info("venue: user %d created venue %d with %d slots", p.UserID, v.ID, generated)
	return v, generated, nil
}

// owned loads a venue the principal may manage.  Venues of someone else
// are reported as not found.
func (s *VenueService) owned(ctx context.Context, p Principal, id uint64) (*model.Venue, error) {
	if !p.Caps.ManageVenues {
		return nil, ErrForbidden
	}
	v, err := s.venues.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if !p.CanManageVenue(*v) {
		return nil, ErrNotFound
	}
	return v, nil
}

// Update changes the given fields.  A category change reprices the
// venue's available slots from today on.
func (s *VenueService) Update(ctx context.Context, p Principal, id uint64, in VenueInput) (*model.Venue, error) {
	v, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	oldCategory := v.Category
	if err := apply(v, in); err != nil {
		return nil, err
	}
	err = s.tx.InTx(ctx, func(tx *sql.Tx) error {
		if err := s.venues.UpdateTx(ctx, tx, v); err != nil {
			return mapRepoErr(err)
		}
		if v.Category != oldCategory {
			price, _ := PriceFor(v.Category)
			if err := s.slots.RepriceAvailableTx(ctx, tx, v.ID, price, s.today()); err != nil {
				return fmt.Errorf("reprice slots: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Delete removes the venue and its slots unless any slot has a
// reservation.
func (s *VenueService) Delete(ctx context.Context, p Principal, id uint64) error {
	if _, err := s.owned(ctx, p, id); err != nil {
		return err
	}
	has, err := s.venues.HasReservations(ctx, id)
	if err != nil {
		return fmt.Errorf("check reservations: %w", err)
	}
	if has {
		return ErrVenueHasReservations
	}
	if err := s.venues.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrVenueHasReservations
		}
		return mapRepoErr(err)
	}
	s.log.Info("venue: user %d deleted venue %d", p.UserID, id)
	return nil
}

// ListMine returns the venues owned by the principal.
func (s *VenueService) ListMine(ctx context.Context, p Principal) ([]model.Venue, error) {
	if !p.Caps.ManageVenues {
		return nil, ErrForbidden
	}
	return s.venues.ListByOwner(ctx, p.UserID)
}

// Slots returns the venue's slots from today on, whatever their state.
func (s *VenueService) Slots(ctx context.Context, p Principal, id uint64) ([]model.Slot, error) {
	if _, err := s.owned(ctx, p, id); err != nil {
		return nil, err
	}
	return s.slots.ListByVenue(ctx, id, s.today())
}

// Reservations returns the reservations made on the venue's slots.
func (s *VenueService) Reservations(ctx context.Context, p Principal, id uint64) ([]model.ReservationView, error) {
	if _, err := s.owned(ctx, p, id); err != nil {
		return nil, err
	}
	return s.reservations.ListByVenue(ctx, id)
}

// ExtendSchedule generates the schedule up to the horizon from today and
// returns the size of that window.  Slots that already exist are kept as
// they are.
func (s *VenueService) ExtendSchedule(ctx context.Context, p Principal, id uint64) (int, error) {
	v, err := s.owned(ctx, p, id)
	if err != nil {
		return 0, err
	}
	slots := GenerateSlots(v.ID, v.Category, s.today(), s.horizonDays)
	err = s.tx.InTx(ctx, func(tx *sql.Tx) error {
		return s.slots.CreateBulkTx(ctx, tx, slots)
	})
	if err != nil {
		return 0, fmt.Errorf("extend schedule: %w", err)
	}
	return len(slots), nil
}
