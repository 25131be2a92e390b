package models

import (
	"testing"
)

func TestContactType_Valid(t *testing.T) {
	tests := []struct {
		typ  ContactType
		want bool
	}{
		{ContactPersonal, true},
		{ContactProfessional, true},
		{"", false},
		{"family", false},
		{"Personal", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := tt.typ.Valid(); got != tt.want {
				t.Errorf("ContactType(%q).Valid() = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestContactPatch_Apply(t *testing.T) {
	c := &Contact{Name: "Jill", Email: "jill@example.com", Phone: "111", Type: ContactPersonal}

	phone := "222"
	typ := ContactProfessional
	patch := ContactPatch{Phone: &phone, Type: &typ}
	patch.Apply(c)

	if c.Name != "Jill" || c.Email != "jill@example.com" {
		t.Errorf("untouched fields changed: %+v", c)
	}
	if c.Phone != "222" {
		t.Errorf("expected phone 222, got %s", c.Phone)
	}
	if c.Type != ContactProfessional {
		t.Errorf("expected type professional, got %s", c.Type)
	}
}

func TestContactPatch_Empty(t *testing.T) {
	if !(ContactPatch{}).Empty() {
		t.Error("zero patch should be empty")
	}
	name := "x"
	if (ContactPatch{Name: &name}).Empty() {
		t.Error("patch with name should not be empty")
	}
}
