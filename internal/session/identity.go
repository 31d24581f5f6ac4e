package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Ginzoh/bill-app-MK/internal/bill"
)

const userKey = "user"

// User types
const (
	TypeEmployee = "Employee"
	TypeAdmin    = "Admin"
)

// User is the session entry written at login
type User struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

// Identity reads the logged-in user from a Storage
type Identity struct {
	storage Storage
}

// NewIdentity creates an Identity backed by storage
func NewIdentity(storage Storage) *Identity {
	return &Identity{storage: storage}
}

// CurrentUser returns the logged-in user
func (i *Identity) CurrentUser() (*User, error) {
	raw, err := i.storage.GetItem(userKey)
	if errors.Is(err, ErrNoItem) {
		return nil, bill.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("decoding session user: %w", err)
	}
	return &u, nil
}

// CurrentEmail returns the logged-in user's email
func (i *Identity) CurrentEmail() (string, error) {
	u, err := i.CurrentUser()
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

// Login stores u as the logged-in user
func (i *Identity) Login(u User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding session user: %w", err)
	}
	return i.storage.SetItem(userKey, string(data))
}

// Logout forgets the logged-in user
func (i *Identity) Logout() error {
	return i.storage.RemoveItem(userKey)
}
