package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/slot-reservation/internal/logger"
	"github.com/iliyamo/slot-reservation/internal/metrics"
	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// InventoryService is the only writer of slot availability outside the
// cancellation and checkout transactions.
type InventoryService struct {
	slots   SlotRepository
	loc     *time.Location
	now     func() time.Time
	log     logger.Logger
	metrics *metrics.Metrics
}

func NewInventoryService(slots SlotRepository, loc *time.Location, log logger.Logger, m *metrics.Metrics) *InventoryService {
	if loc == nil {
		loc = time.UTC
	}
	return &InventoryService{slots: slots, loc: loc, now: time.Now, log: log, metrics: m}
}

// Hold marks the slot unavailable if it is available.  Under concurrent
// callers exactly one succeeds; the others get ErrSlotUnavailable.  An
// unknown id yields ErrNotFound.
func (s *InventoryService) Hold(ctx context.Context, slotID uint64) error {
	won, err := s.slots.HoldIfAvailable(ctx, slotID)
	if err != nil {
		s.metrics.Hold(metrics.OutcomeError)
		return fmt.Errorf("hold slot %d: %w", slotID, err)
	}
	if won {
		s.metrics.Hold(metrics.OutcomeOK)
		return nil
	}
	s.metrics.Hold(metrics.OutcomeRejected)
	if _, err := s.slots.GetByID(ctx, slotID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load slot %d: %w", slotID, err)
	}
	return ErrSlotUnavailable
}

// Release makes the slot available again.  Releasing an available slot
// succeeds.
func (s *InventoryService) Release(ctx context.Context, slotID uint64) error {
	if err := s.slots.Release(ctx, slotID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("release slot %d: %w", slotID, err)
	}
	s.metrics.Released(1)
	return nil
}

// SlotFilter is the caller-facing search input.  VenueName selects exact
// matching, Search selects substring matching; setting both is rejected.
type SlotFilter struct {
	Date      *time.Time
	Category  string
	Location  string
	VenueName string
	Search    string
	TimeOfDay string
	Page      int
	PageSize  int
}

// SlotPage is one page of search results.
type SlotPage struct {
	Items    []model.SlotListing `json:"items"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// Today returns the current calendar day in the service time zone.
func (s *InventoryService) Today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Query returns available slots dated today or later, ordered by date and
// start time.
func (s *InventoryService) Query(ctx context.Context, f SlotFilter) (SlotPage, error) {
	f.VenueName = strings.TrimSpace(f.VenueName)
	f.Search = strings.TrimSpace(f.Search)
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	f.TimeOfDay = strings.ToLower(strings.TrimSpace(f.TimeOfDay))
	if f.VenueName != "" && f.Search != "" {
		return SlotPage{}, ErrInvalidFilter
	}
	if f.Category != "" && !model.ValidCategory(f.Category) {
		return SlotPage{}, fmt.Errorf("%w: unknown venue category %q", ErrInvalidInput, f.Category)
	}
	if f.TimeOfDay != "" && !repository.ValidTimeOfDay(f.TimeOfDay) {
		return SlotPage{}, fmt.Errorf("%w: unknown time of day %q", ErrInvalidInput, f.TimeOfDay)
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}

	items, total, err := s.slots.SearchAvailable(ctx, repository.SlotSearchQuery{
		Today:     s.Today(),
		Date:      f.Date,
		Category:  f.Category,
		Location:  strings.TrimSpace(f.Location),
		VenueName: f.VenueName,
		Search:    f.Search,
		TimeOfDay: f.TimeOfDay,
		Page:      f.Page,
		PageSize:  f.PageSize,
	})
	if err != nil {
		return SlotPage{}, fmt.Errorf("search slots: %w", err)
	}
	return SlotPage{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// Get returns one slot with its venue, whatever its availability.
func (s *InventoryService) Get(ctx context.Context, slotID uint64) (*model.SlotListing, error) {
	l, err := s.slots.GetListing(ctx, slotID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return l, nil
}

// ReleaseStuck returns to inventory the slots that are unavailable with no
// cart hold and no active reservation, untouched for at least grace.
func (s *InventoryService) ReleaseStuck(ctx context.Context, grace time.Duration) (int64, error) {
	n, err := s.slots.ReleaseStuck(ctx, grace)
	if err != nil {
		return 0, fmt.Errorf("release stuck slots: %w", err)
	}
	if n > 0 {
		s.log.Warn("inventory: released %d stuck slots", n)
		s.metrics.Released(int(n))
	}
	return n, nil
}
