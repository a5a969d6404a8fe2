package auth

import "strings"

// Role is the closed set of user roles. Parsing is case-insensitive; anything
// unrecognized degrades to RoleUser so a malformed claim never grants access.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

func ParseRole(s string) Role {
	if strings.EqualFold(s, string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// CanManage reports whether a caller with this role may mutate a term created
// by ownerID. Admins manage everything; users manage only their own terms.
func (r Role) CanManage(callerID string, ownerID *string) bool {
	if r.IsAdmin() {
		return true
	}
	return ownerID != nil && *ownerID == callerID
}

// Principal is the caller identity resolved once at the HTTP boundary and
// passed explicitly into service calls.
type Principal struct {
	UserID string
	Role   Role
}
