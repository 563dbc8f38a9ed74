package model

import "strings"

// Role is the coarse permission level of an actor.
type Role string

const (
	RoleAdministrative Role = "administrative"
	RoleManager        Role = "manager"
	RoleStandard       Role = "standard"
	RoleNone           Role = ""
)

// ParseRole maps a role string to a Role. Unknown values yield RoleNone.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdministrative, "admin":
		return RoleAdministrative
	case RoleManager:
		return RoleManager
	case RoleStandard, "user":
		return RoleStandard
	default:
		return RoleNone
	}
}

// Actor is the identity issuing a command, supplied by the caller.
type Actor struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Role       Role   `json:"role"`
}
