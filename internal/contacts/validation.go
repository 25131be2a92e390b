package contacts

import (
	"strings"

	"github.com/contactkeeper/backend/internal/models"
	"github.com/contactkeeper/backend/internal/validate"
)

// ContactRequest is the body of create and update requests. Update treats
// absent and empty fields alike: neither changes the stored value.
type ContactRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
	Type  *string `json:"type"`
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func (r *ContactRequest) validate(requireName bool) error {
	var v validate.Errors
	if requireName {
		v.Check(value(r.Name) != "", "name", "Name is required")
	}
	if email := value(r.Email); email != "" {
		v.Check(validate.IsEmail(email), "email", "Please include a valid email")
	}
	if typ := value(r.Type); typ != "" {
		v.Check(models.ContactType(typ).Valid(), "type", "Type must be personal or professional")
	}
	return v.Err()
}

// fields returns the new contact built from r.
func (r *ContactRequest) fields() models.Contact {
	c := models.Contact{
		Name:  validate.NormalizeText(value(r.Name)),
		Email: validate.NormalizeEmail(value(r.Email)),
		Phone: value(r.Phone),
		Type:  models.ContactPersonal,
	}
	if typ := value(r.Type); typ != "" {
		c.Type = models.ContactType(typ)
	}
	return c
}

// patch returns the non-empty fields of r.
func (r *ContactRequest) patch() models.ContactPatch {
	var p models.ContactPatch
	if name := value(r.Name); name != "" {
		name = validate.NormalizeText(name)
		p.Name = &name
	}
	if email := value(r.Email); email != "" {
		email = validate.NormalizeEmail(email)
		p.Email = &email
	}
	if phone := value(r.Phone); phone != "" {
		p.Phone = &phone
	}
	if typ := value(r.Type); typ != "" {
		t := models.ContactType(typ)
		p.Type = &t
	}
	return p
}
