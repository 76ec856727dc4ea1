package repository

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// Time-of-day buckets accepted by SlotSearchQuery.TimeOfDay.
const (
	TimeOfDayMorning   = "morning"   // [06:00, 12:00)
	TimeOfDayAfternoon = "afternoon" // [12:00, 18:00)
	TimeOfDayEvening   = "evening"   // [18:00, 23:00)
)

var timeOfDayBounds = map[string][2]string{
	TimeOfDayMorning:   {"06:00:00", "12:00:00"},
	TimeOfDayAfternoon: {"12:00:00", "18:00:00"},
	TimeOfDayEvening:   {"18:00:00", "23:00:00"},
}

// ValidTimeOfDay reports whether v is a known bucket name.
func ValidTimeOfDay(v string) bool {
	_, ok := timeOfDayBounds[v]
	return ok
}

// SlotSearchQuery defines filters and pagination for the public slot
// search.  VenueName (exact) and Search (substring over name and
// description) are exclusive modes; the service rejects both at once.
// Today is the first bookable day in the application time zone.
type SlotSearchQuery struct {
	Today     time.Time
	Date      *time.Time
	Category  string
	Location  string
	VenueName string
	Search    string
	TimeOfDay string
	Page      int
	PageSize  int
}

func slotListingSelect(columns ...string) sq.SelectBuilder {
	return sq.Select(columns...).
		From("slots s").
		Join("venues v ON v.id = s.venue_id")
}

var listingColumns = []string{
	"s.id", "s.venue_id", "v.name", "v.category", "v.location",
	"s.slot_date", "s.start_time", "s.end_time", "s.price_cents", "s.available",
}

func (q SlotSearchQuery) apply(b sq.SelectBuilder) sq.SelectBuilder {
	b = b.Where(sq.Eq{"s.available": true}).
		Where(sq.GtOrEq{"s.slot_date": q.Today.Format("2006-01-02")})
	if q.Date != nil {
		b = b.Where(sq.Eq{"s.slot_date": q.Date.Format("2006-01-02")})
	}
	if q.Category != "" {
		b = b.Where(sq.Eq{"v.category": q.Category})
	}
	if q.Location != "" {
		b = b.Where(sq.Like{"LOWER(v.location)": "%" + strings.ToLower(q.Location) + "%"})
	}
	switch {
	case q.VenueName != "":
		b = b.Where(sq.Eq{"v.name": q.VenueName})
	case q.Search != "":
		pattern := "%" + strings.ToLower(q.Search) + "%"
		b = b.Where(sq.Or{
			sq.Like{"LOWER(v.name)": pattern},
			sq.Like{"LOWER(COALESCE(v.description, ''))": pattern},
		})
	}
	if bounds, ok := timeOfDayBounds[q.TimeOfDay]; ok {
		b = b.Where(sq.GtOrEq{"s.start_time": bounds[0]}).Where(sq.Lt{"s.start_time": bounds[1]})
	}
	return b
}

func scanListing(row interface{ Scan(...any) error }) (model.SlotListing, error) {
	var d model.SlotListing
	var date time.Time
	var start, end string
	if err := row.Scan(&d.ID, &d.VenueID, &d.VenueName, &d.VenueCategory, &d.Location,
		&date, &start, &end, &d.PriceCents, &d.Available); err != nil {
		return d, notFound(err)
	}
	d.Date = date.Format("2006-01-02")
	if st, err := model.ParseClock(start); err == nil {
		d.StartTime = model.FormatClock(st)
	}
	if et, err := model.ParseClock(end); err == nil {
		d.EndTime = model.FormatClock(et)
	}
	d.Price = float64(d.PriceCents) / 100.0
	return d, nil
}

// SearchAvailable returns bookable slots ordered by date then start time,
// together with the total count ignoring pagination.  A PageSize of zero
// returns every match.
func (r *SlotRepo) SearchAvailable(ctx context.Context, q SlotSearchQuery) ([]model.SlotListing, int64, error) {
	countSQL, countArgs, err := q.apply(slotListingSelect("COUNT(*)")).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	b := q.apply(slotListingSelect(listingColumns...)).
		OrderBy("s.slot_date ASC", "s.start_time ASC", "s.id ASC")
	if q.PageSize > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		b = b.Limit(uint64(q.PageSize)).Offset(uint64((page - 1) * q.PageSize))
	}
	dataSQL, args, err := b.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.SlotListing, 0)
	for rows.Next() {
		d, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetListing returns one slot with its venue, whatever its availability.
func (r *SlotRepo) GetListing(ctx context.Context, id uint64) (*model.SlotListing, error) {
	query, args, err := slotListingSelect(listingColumns...).Where(sq.Eq{"s.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	d, err := scanListing(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	return &d, nil
}
