package keyrunes

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestUserRegistration_Valid(t *testing.T) {
	reg := UserRegistration{
		Username: "johndoe",
		Email:    "john@example.com",
		Password: "securepass123",
		Attributes: map[string]string{
			"department": "Engineering",
			"role":       "Developer",
		},
	}
	if err := reg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestUserRegistration_Invalid(t *testing.T) {
	cases := []struct {
		name string
		reg  UserRegistration
	}{
		{"username too short", UserRegistration{Username: "ab", Email: "a@example.com", Password: "password123"}},
		{"username too long", UserRegistration{Username: strings.Repeat("a", 51), Email: "a@example.com", Password: "password123"}},
		{"password too short", UserRegistration{Username: "testuser", Email: "a@example.com", Password: "short"}},
		{"malformed email", UserRegistration{Username: "testuser", Email: "invalid-email", Password: "password123"}},
		{"missing email", UserRegistration{Username: "testuser", Password: "password123"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.reg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestAdminRegistration_RequiresKey(t *testing.T) {
	reg := AdminRegistration{
		UserRegistration: UserRegistration{
			Username: "adminuser",
			Email:    "admin@example.com",
			Password: "password123",
		},
	}
	if err := reg.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing admin key, got %v", err)
	}

	reg.AdminKey = "secret-key"
	if err := reg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestLoginCredentials_Required(t *testing.T) {
	creds := LoginCredentials{}
	if err := creds.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty credentials, got %v", err)
	}

	creds = LoginCredentials{Identity: "user@example.com", Password: "secret123"}
	if err := creds.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestNewGroupCheck_DefaultTimestamp(t *testing.T) {
	before := time.Now().UTC()
	check := NewGroupCheck("user123", "admins", true)

	if check.UserID != "user123" || check.GroupID != "admins" || !check.HasAccess {
		t.Fatalf("unexpected check: %+v", check)
	}
	if check.CheckedAt.Before(before) || check.CheckedAt.After(time.Now().UTC()) {
		t.Fatalf("CheckedAt not stamped at construction: %v", check.CheckedAt)
	}
}

func TestUser_HasGroup(t *testing.T) {
	user := User{
		ID:       "user123",
		Username: "testuser",
		Email:    "testuser@example.com",
		Groups:   []string{"users", "developers"},
	}

	if !user.HasGroup("developers") {
		t.Fatalf("expected membership in developers")
	}
	if user.HasGroup("admins") {
		t.Fatalf("unexpected membership in admins")
	}
}
