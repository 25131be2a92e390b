// Package validate holds the request-field checks shared by the auth and
// contacts handlers.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	apperrors "github.com/contactkeeper/backend/internal/errors"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var folder = cases.Fold()

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// NormalizeEmail trims and case-folds an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return folder.String(strings.TrimSpace(email))
}

// NormalizeText trims s and puts it in Unicode NFC form, so visually equal
// names compare equal.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Length returns the number of characters in s.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// Errors collects field-level failures in the order they are found.
type Errors struct {
	fields []apperrors.FieldError
}

// Add records a failure for field.
func (e *Errors) Add(field, message string) {
	e.fields = append(e.fields, apperrors.FieldError{Field: field, Message: message})
}

// Check records message for field when ok is false.
func (e *Errors) Check(ok bool, field, message string) {
	if !ok {
		e.Add(field, message)
	}
}

// Fields returns the collected failures.
func (e *Errors) Fields() []apperrors.FieldError {
	return e.fields
}

// Err returns a validation AppError, or nil when nothing failed.
func (e *Errors) Err() error {
	if len(e.fields) == 0 {
		return nil
	}
	return apperrors.ValidationFields(e.fields)
}
