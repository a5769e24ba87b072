package contacts

import (
	"errors"
	"time"
)

// ErrContactNotFound indicates the requested contact does not exist.
var ErrContactNotFound = errors.New("contact not found")

// Contact is an external party reachable through the channel, unique by phone.
type Contact struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateInput carries the fields for a new contact.
type CreateInput struct {
	Phone     string `json:"phone" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	CreatedBy string `json:"-"`
}
