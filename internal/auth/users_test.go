package auth

import (
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-hass/internal/infrastructure/config"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	return h
}

func TestNewUsers(t *testing.T) {
	hash := mustHash(t, "secret")

	tests := []struct {
		name    string
		entries []config.UserConfig
		wantErr bool
	}{
		{"empty", nil, false},
		{"valid", []config.UserConfig{{Username: "ops", PasswordHash: hash, Role: "viewer"}}, false},
		{"bad username", []config.UserConfig{{Username: "has space", PasswordHash: hash, Role: "viewer"}}, true},
		{"unknown role", []config.UserConfig{{Username: "ops", PasswordHash: hash, Role: "root"}}, true},
		{"bad hash", []config.UserConfig{{Username: "ops", PasswordHash: "plain", Role: "viewer"}}, true},
		{
			name: "duplicate",
			entries: []config.UserConfig{
				{Username: "ops", PasswordHash: hash, Role: "viewer"},
				{Username: "ops", PasswordHash: hash, Role: "admin"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := NewUsers(tt.entries)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidUser) {
					t.Errorf("NewUsers() error = %v, want ErrInvalidUser", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewUsers() error = %v", err)
			}
			if users.Len() != len(tt.entries) {
				t.Errorf("Len() = %d, want %d", users.Len(), len(tt.entries))
			}
		})
	}
}

func TestUsers_Authenticate(t *testing.T) {
	users, err := NewUsers([]config.UserConfig{
		{Username: "ops", PasswordHash: mustHash(t, "secret"), Role: "admin"},
	})
	if err != nil {
		t.Fatal(err)
	}

	user, err := users.Authenticate("ops", "secret")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user.Username != "ops" || user.Role != RoleAdmin {
		t.Errorf("Authenticate() = %+v", user)
	}

	if _, err := users.Authenticate("ops", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := users.Authenticate("ghost", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", err)
	}
}
