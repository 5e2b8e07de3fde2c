package auth

import (
	"fmt"

	"github.com/nerrad567/gray-logic-hass/internal/infrastructure/config"
)

// dummyHash is verified against when a username is unknown, so a failed
// login takes the same time whether or not the user exists.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=1$c29tZXNhbHRzb21lc2FsdA$ZGVhZGJlZWZkZWFkYmVlZmRlYWRiZWVmZGVhZGJlZWY"

// Users is the fixed set of operators loaded from the config.
// It is read-only after construction and safe for concurrent use.
type Users struct {
	byName map[string]User
}

// NewUsers builds the operator set. Every entry must have a valid username,
// a known role and a well-formed Argon2id hash; usernames must be unique.
func NewUsers(entries []config.UserConfig) (*Users, error) {
	u := &Users{byName: make(map[string]User, len(entries))}

	for i, e := range entries {
		if !IsValidUsername(e.Username) {
			return nil, fmt.Errorf("%w: users[%d]: bad username %q", ErrInvalidUser, i, e.Username)
		}
		role := Role(e.Role)
		if !IsValidRole(role) {
			return nil, fmt.Errorf("%w: %s: unknown role %q", ErrInvalidUser, e.Username, e.Role)
		}
		if _, err := decodePHC(e.PasswordHash); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidUser, e.Username, err)
		}
		if _, dup := u.byName[e.Username]; dup {
			return nil, fmt.Errorf("%w: duplicate username %q", ErrInvalidUser, e.Username)
		}
		u.byName[e.Username] = User{Username: e.Username, PasswordHash: e.PasswordHash, Role: role}
	}
	return u, nil
}

// Len returns the number of operators.
func (u *Users) Len() int {
	return len(u.byName)
}

// Authenticate checks a username and password. Any mismatch, including an
// unknown username, is ErrInvalidCredentials.
func (u *Users) Authenticate(username, password string) (*User, error) {
	user, ok := u.byName[username]
	hash := user.PasswordHash
	if !ok {
		hash = dummyHash
	}

	match, err := VerifyPassword(password, hash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok || !match {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}
