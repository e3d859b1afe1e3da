package authz

import (
	"fmt"

	"careteam-chat-backend/pkg/apperr"
)

// Role is the closed set of user roles. The zero value is invalid on
// purpose: a Principal must always be built from verified claims.
type Role string

const (
	RoleGlobalAdmin   Role = "global_admin"
	RoleHospitalAdmin Role = "hospital_admin"
	RoleClinician     Role = "clinician"
	RoleReceptionist  Role = "receptionist"
)

// AllRoles lists every role once; tests assert the policy tables below
// stay exhaustive against it.
var AllRoles = []Role{RoleGlobalAdmin, RoleHospitalAdmin, RoleClinician, RoleReceptionist}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleGlobalAdmin, RoleHospitalAdmin, RoleClinician, RoleReceptionist:
		return true
	}
	return false
}

// Principal is the authenticated identity bound to a connection or
// request. HospitalID is nil only for the global admin role.
type Principal struct {
	UserID     uint
	HospitalID *uint
	Role       Role
}

// roomParticipants maps each role to whether it may participate in rooms
// at all. The global admin manages hospitals and users but is fully
// excluded from room membership, reading and sending.
var roomParticipants = map[Role]bool{
	RoleGlobalAdmin:   false,
	RoleHospitalAdmin: true,
	RoleClinician:     true,
	RoleReceptionist:  true,
}

// CanActInRoomScope decides whether p may act on rooms of the given
// hospital. It covers role exclusion and tenancy only; membership and
// room-admin checks belong to the services that hold store state.
func CanActInRoomScope(p Principal, roomHospitalID uint) error {
	if !roomParticipants[p.Role] {
		return apperr.Forbidden("role is not allowed to participate in rooms")
	}
	if p.HospitalID == nil || *p.HospitalID != roomHospitalID {
		return apperr.Forbidden("user does not belong to this room's hospital")
	}
	return nil
}

// CanManageHospitals decides whether p may create, update or delete
// hospitals. Only the global admin may.
func CanManageHospitals(p Principal) error {
	if p.Role != RoleGlobalAdmin {
		return apperr.Forbidden("only the global administrator can manage hospitals")
	}
	return nil
}

// CanCreateUser decides whether p may create a user with the given role
// in the given hospital. Global admins may create anyone anywhere; a
// hospital admin may create non-global users in their own hospital only.
func CanCreateUser(p Principal, newRole Role, targetHospitalID *uint) error {
	switch p.Role {
	case RoleGlobalAdmin:
		if newRole == RoleGlobalAdmin && targetHospitalID != nil {
			return apperr.InvalidInput("global administrators must not be bound to a hospital")
		}
		if newRole != RoleGlobalAdmin && targetHospitalID == nil {
			return apperr.InvalidInput(fmt.Sprintf("role %s requires a hospital", newRole))
		}
		return nil
	case RoleHospitalAdmin:
		if newRole == RoleGlobalAdmin {
			return apperr.Forbidden("hospital administrators cannot create global administrators")
		}
		if targetHospitalID == nil || p.HospitalID == nil || *targetHospitalID != *p.HospitalID {
			return apperr.Forbidden("hospital administrators can only create users for their own hospital")
		}
		return nil
	case RoleClinician, RoleReceptionist:
		return apperr.Forbidden("only administrators can create users")
	}
	return apperr.Forbidden("unknown role")
}

// CanListHospitalRooms decides whether p may list every room of a
// hospital regardless of membership. Room contents stay
// membership-scoped; the listing is a hospital-admin view of their own
// hospital only.
func CanListHospitalRooms(p Principal, hospitalID uint) error {
	if p.Role != RoleHospitalAdmin || p.HospitalID == nil || *p.HospitalID != hospitalID {
		return apperr.Forbidden("only the hospital's administrator can list its rooms")
	}
	return nil
}

// CanListUsers decides whether p may list users of the given hospital.
func CanListUsers(p Principal, hospitalID uint) error {
	switch p.Role {
	case RoleGlobalAdmin:
		return nil
	case RoleHospitalAdmin, RoleClinician, RoleReceptionist:
		if p.HospitalID != nil && *p.HospitalID == hospitalID {
			return nil
		}
		return apperr.Forbidden("user does not belong to this hospital")
	}
	return apperr.Forbidden("unknown role")
}
