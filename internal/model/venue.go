package model

import "time"

// Venue categories.  The category decides the price of every slot
// generated for the venue.
const (
	CategorySmall  = "small"
	CategoryMedium = "medium"
	CategoryLarge  = "large"
)

// Venue is a bookable physical location owned by a supplier.
//
// Fields:
//
//	ID          – primary key identifier.
//	OwnerID     – supplier user that manages the venue.
//	Name        – display name, also the exact-match search key.
//	Description – free text, searched together with the name.
//	Category    – small | medium | large.
//	Location    – address or city, matched with "contains".
//	CreatedAt   – creation timestamp.
//	UpdatedAt   – last update timestamp.
type Venue struct {
	ID          uint64    `json:"id"`
	OwnerID     uint64    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c string) bool {
	switch c {
	case CategorySmall, CategoryMedium, CategoryLarge:
		return true
	}
	return false
}
