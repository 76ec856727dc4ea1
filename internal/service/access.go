package service

import "github.com/iliyamo/slot-reservation/internal/model"

// Capabilities is what a principal may do, derived once from the role.
// Authorization predicates read capabilities and never compare roles.
type Capabilities struct {
	Book         bool // use the cart, check out, cancel own reservations
	ManageVenues bool // create venues and manage the ones it owns
	SeeAll       bool // read and manage every venue and invoice
}

// CapabilitiesFor is the single place where roles turn into capabilities.
func CapabilitiesFor(role string) Capabilities {
	switch role {
	case model.RoleCustomer:
		return Capabilities{Book: true}
	case model.RoleSupplier:
		return Capabilities{ManageVenues: true}
	case model.RoleAdmin:
		return Capabilities{ManageVenues: true, SeeAll: true}
	}
	return Capabilities{}
}

// Principal is the authenticated caller.
type Principal struct {
	UserID uint64
	Role   string
	Caps   Capabilities
}

func NewPrincipal(userID uint64, role string) Principal {
	return Principal{UserID: userID, Role: role, Caps: CapabilitiesFor(role)}
}

// CanReadInvoice allows the reservation owner, the supplier owning the
// slot's venue, and any principal that sees everything.
func (p Principal) CanReadInvoice(o model.ReservationOwnership) bool {
	return p.Caps.SeeAll || o.UserID == p.UserID || o.VenueOwnerID == p.UserID
}

// CanManageVenue allows the venue owner and any principal that sees
// everything, provided it can manage venues at all.
func (p Principal) CanManageVenue(v model.Venue) bool {
	if !p.Caps.ManageVenues {
		return false
	}
	return p.Caps.SeeAll || v.OwnerID == p.UserID
}
