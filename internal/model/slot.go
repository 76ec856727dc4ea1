package model

import (
	"fmt"
	"strings"
	"time"
)

// Slot is a fixed-duration bookable window of one venue.  Date carries only
// the calendar day; StartTime and EndTime are offsets from midnight in the
// application time zone.
//
// Fields:
//
//	ID         – primary key identifier.
//	VenueID    – owning venue.
//	Date       – calendar day (midnight UTC as scanned from DATE).
//	StartTime  – start offset from midnight.
//	EndTime    – end offset from midnight.
//	PriceCents – price in minor units.
//	Available  – false while held by a cart or consumed by a reservation.
type Slot struct {
	ID         uint64
	VenueID    uint64
	Date       time.Time
	StartTime  time.Duration
	EndTime    time.Duration
	PriceCents int64
	Available  bool
}

// StartsAt returns the absolute start instant of the slot in loc.
func (s Slot) StartsAt(loc *time.Location) time.Time {
	y, m, d := s.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(s.StartTime)
}

// SlotListing is a slot joined with its venue, as returned by searches and
// cart reads.
type SlotListing struct {
	ID            uint64  `json:"id"`
	VenueID       uint64  `json:"venue_id"`
	VenueName     string  `json:"venue_name"`
	VenueCategory string  `json:"venue_category"`
	Location      string  `json:"location"`
	Date          string  `json:"date"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	PriceCents    int64   `json:"price_cents"`
	Price         float64 `json:"price"`
	Available     bool    `json:"available"`
}

// FormatClock renders an offset from midnight as HH:MM.
func FormatClock(d time.Duration) string {
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%02d:%02d", h, m)
}

// ParseClock parses HH:MM or HH:MM:SS (the MySQL TIME text form) into an
// offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var h, m, sec int
	var err error
	switch strings.Count(s, ":") {
	case 1:
		_, err = fmt.Sscanf(s, "%d:%d", &h, &m)
	case 2:
		_, err = fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec)
	default:
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("clock value out of range %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}

// SQLClock renders an offset as the HH:MM:SS literal MySQL expects.
func SQLClock(d time.Duration) string {
	return FormatClock(d) + fmt.Sprintf(":%02d", int((d%time.Minute)/time.Second))
}
