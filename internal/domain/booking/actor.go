package booking

import "stayengine/internal/domain/listings"

type Role string

const (
	RoleGuest  Role = "guest"
	RoleHost   Role = "host"
	RoleSystem Role = "system"
)

type Actor struct {
	ID   string `json:"id" bson:"id"`
	Role Role   `json:"role" bson:"role"`
}

// System acts for schedulers and payment callbacks.
var System = Actor{ID: "system", Role: RoleSystem}

func (a Actor) Valid() bool {
	switch a.Role {
	case RoleGuest, RoleHost:
		return a.ID != ""
	case RoleSystem:
		return true
	}
	return false
}

// MayCancel allows guests on their own bookings, hosts on their own properties
// and the system always.
func (b *Booking) MayCancel(a Actor, host listings.HostID) bool {
	switch a.Role {
	case RoleSystem:
		return true
	case RoleGuest:
		return a.ID != "" && a.ID == b.GuestID
	case RoleHost:
		return a.ID != "" && a.ID == string(host)
	}
	return false
}

func (b *Booking) MayConfirm(a Actor, host listings.HostID) bool {
	switch a.Role {
	case RoleSystem:
		return true
	case RoleHost:
		return a.ID != "" && a.ID == string(host)
	}
	return false
}

// MayView follows the cancellation rule: the guest, the host and the system.
func (b *Booking) MayView(a Actor, host listings.HostID) bool {
	return b.MayCancel(a, host)
}
