package service

import (
	"time"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// SlotLength is the duration of every generated slot.
const SlotLength = 90 * time.Minute

// DailyStarts is the fixed daily schedule of slot start times.
var DailyStarts = []time.Duration{
	8 * time.Hour, 10 * time.Hour, 12 * time.Hour, 14 * time.Hour,
	16 * time.Hour, 18 * time.Hour, 20 * time.Hour,
}

var categoryPrice = map[string]int64{
	model.CategorySmall:  3500,
	model.CategoryMedium: 5500,
	model.CategoryLarge:  9000,
}

// PriceFor returns the slot price in cents for a venue category.
func PriceFor(category string) (int64, bool) {
	p, ok := categoryPrice[category]
	return p, ok
}

// GenerateSlots builds days × len(DailyStarts) available slots for the
// venue starting on the calendar day of from, priced by category.
func GenerateSlots(venueID uint64, category string, from time.Time, days int) []model.Slot {
	price, ok := PriceFor(category)
	if !ok || days <= 0 {
		return nil
	}
	y, m, d := from.Date()
	first := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	out := make([]model.Slot, 0, days*len(DailyStarts))
	for i := 0; i < days; i++ {
		day := first.AddDate(0, 0, i)
		for _, start := range DailyStarts {
			out = append(out, model.Slot{
				VenueID:    venueID,
				Date:       day,
				StartTime:  start,
				EndTime:    start + SlotLength,
				PriceCents: price,
				Available:  true,
			})
		}
	}
	return out
}
