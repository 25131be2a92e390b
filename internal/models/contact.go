package models

import (
	"time"

	"github.com/google/uuid"
)

// ContactType categorizes a contact.
type ContactType string

const (
	ContactPersonal     ContactType = "personal"
	ContactProfessional ContactType = "professional"
)

// Valid reports whether t is one of the known contact types.
func (t ContactType) Valid() bool {
	return t == ContactPersonal || t == ContactProfessional
}

type Contact struct {
	ID        uuid.UUID   `json:"_id"`
	UserID    uuid.UUID   `json:"user"`
	Name      string      `json:"name"`
	Email     string      `json:"email,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	Type      ContactType `json:"type"`
	CreatedAt time.Time   `json:"date"`
}

// ContactPatch carries a partial update. Nil fields are left untouched.
type ContactPatch struct {
	Name  *string
	Email *string
	Phone *string
	Type  *ContactType
}

// Empty reports whether the patch changes nothing.
func (p ContactPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Type == nil
}

// Apply copies the supplied fields onto c.
func (p ContactPatch) Apply(c *Contact) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
}
