package auth

import (
	"errors"
	"regexp"
	"slices"
)

// usernamePattern: alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Role represents an authorisation tier.
type Role string

const (
	// RoleViewer can read Home Assistant data through the admin routes.
	RoleViewer Role = "viewer"

	// RoleAdmin can also read the runtime summary of the service.
	RoleAdmin Role = "admin"

	// RoleOwner holds every permission.
	RoleOwner Role = "owner"
)

// ValidRoles is the set of roles an operator may hold.
var ValidRoles = []Role{RoleViewer, RoleAdmin, RoleOwner}

// IsValidRole returns true if r is one of ValidRoles.
func IsValidRole(r Role) bool {
	return slices.Contains(ValidRoles, r)
}

// User is an operator allowed to log in.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // never serialised
	Role         Role   `json:"role"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidUser        = errors.New("invalid user")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrInvalidHash        = errors.New("invalid password hash")
	ErrForbidden          = errors.New("insufficient permissions")
)
