package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/slot-reservation/internal/logger"
	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

// CartService keeps a user's held slots.  Every hold in a cart corresponds
// to a slot marked unavailable by the inventory.
type CartService struct {
	inv   *InventoryService
	slots SlotRepository
	carts CartRepository
	log   logger.Logger
}

func NewCartService(inv *InventoryService, slots SlotRepository, carts CartRepository, log logger.Logger) *CartService {
	return &CartService{inv: inv, slots: slots, carts: carts, log: log}
}

// CartView is the cart with its total.
type CartView struct {
	Lines      []model.CartLine `json:"lines"`
	TotalCents int64            `json:"total_cents"`
}

// AddHold holds the slot for the user and records it in the cart.
func (s *CartService) AddHold(ctx context.Context, userID, slotID uint64) (*model.CartHold, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	inCart, err := s.carts.Exists(ctx, userID, slotID)
	if err != nil {
		return nil, fmt.Errorf("check cart: %w", err)
	}
	if inCart {
		return nil, ErrAlreadyInCart
	}
	if !slot.Available {
		return nil, ErrSlotUnavailable
	}

	// A lost race surfaces here as ErrSlotUnavailable with no cart row.
	if err := s.inv.Hold(ctx, slotID); err != nil {
		return nil, err
	}

	hold, err := s.carts.Insert(ctx, userID, slotID)
	if err != nil {
		if rerr := s.inv.Release(ctx, slotID); rerr != nil {
			s.log.Error("cart: compensate release of slot %d failed: %v", slotID, rerr)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyInCart
		}
		return nil, fmt.Errorf("insert cart hold: %w", err)
	}
	s.log.Info("cart: user %d holds slot %d", userID, slotID)
	return hold, nil
}

// Remove releases the held slot, then deletes the hold.  The order leaves
// an orphan hold (purged on the next read) rather than a stuck slot if
// the process dies in between.
func (s *CartService) Remove(ctx context.Context, userID, holdID uint64) error {
	hold, err := s.carts.GetForUser(ctx, holdID, userID)
	if err != nil {
		return mapRepoErr(err)
	}
	if err := s.inv.Release(ctx, hold.SlotID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := s.carts.Delete(ctx, hold.ID); err != nil {
		return fmt.Errorf("delete cart hold: %w", err)
	}
	return nil
}

// Clear releases every held slot, then deletes all of the user's holds.
func (s *CartService) Clear(ctx context.Context, userID uint64) error {
	lines, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list cart: %w", err)
	}
	for _, l := range lines {
		if err := s.inv.Release(ctx, l.SlotID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	if err := s.carts.DeleteAllByUser(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Lines returns the user's live holds.  Holds whose slot is available
// again are orphans left by an interrupted removal; they are deleted and
// not returned.
func (s *CartService) Lines(ctx context.Context, userID uint64) ([]model.CartLine, error) {
	lines, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	live := lines[:0]
	for _, l := range lines {
		if l.SlotAvailable {
			s.log.Warn("cart: purging orphan hold %d on available slot %d", l.HoldID, l.SlotID)
			if err := s.carts.Delete(ctx, l.HoldID); err != nil {
				return nil, fmt.Errorf("purge orphan hold: %w", err)
			}
			continue
		}
		live = append(live, l)
	}
	return live, nil
}

// Total is the sum of slot prices over the user's current holds.
func (s *CartService) Total(ctx context.Context, userID uint64) (int64, error) {
	lines, err := s.Lines(ctx, userID)
	if err != nil {
		return 0, err
	}
	return sumLines(lines), nil
}

// View returns the lines and their total.
func (s *CartService) View(ctx context.Context, userID uint64) (CartView, error) {
	lines, err := s.Lines(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	return CartView{Lines: lines, TotalCents: sumLines(lines)}, nil
}

func sumLines(lines []model.CartLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.PriceCents
	}
	return total
}
