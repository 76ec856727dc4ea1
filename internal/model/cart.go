package model

import "time"

// CartHold records that a user holds a slot in their cart.  While the hold
// exists the slot is unavailable to everyone else.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – cart owner.
//	SlotID    – held slot.
//	CreatedAt – when the slot was added.
type CartHold struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	SlotID    uint64    `json:"slot_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CartLine is a hold joined with the slot and venue it refers to.
// SlotAvailable is true only for orphan holds whose slot was released.
type CartLine struct {
	HoldID        uint64        `json:"hold_id"`
	SlotID        uint64        `json:"slot_id"`
	VenueID       uint64        `json:"venue_id"`
	VenueName     string        `json:"venue_name"`
	Date          time.Time     `json:"-"`
	StartTime     time.Duration `json:"-"`
	EndTime       time.Duration `json:"-"`
	PriceCents    int64         `json:"price_cents"`
	SlotAvailable bool          `json:"-"`
	AddedAt       time.Time     `json:"added_at"`
}
