// Package validation checks form input before it is sent to the API.
package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"kindergarten/internal/models"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	textRegex  = regexp.MustCompile(`^[\p{L}\s'.,-]+$`)
	dateRegex  = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[1-2][0-9]|3[0-1])$`)
)

// Child form messages
const (
	MsgName          = "Name must contain only letters, spaces, and symbols."
	MsgSurname       = "Surname must contain only letters, spaces, and symbols."
	MsgDOBRequired   = "Date of birth is required."
	MsgDOBFormat     = "Date of birth must be in the format yyyy-MM-dd (e.g., 2025-01-01)."
	MsgDOBInvalid    = "Date of birth must be a valid date in the format yyyy-MM-dd."
	MsgDOBFuture     = "Date of birth cannot be in the future."
	MsgAllRequired   = "All fields are required"
	MsgPasswordMatch = "Passwords do not match"
	MsgGroupName     = "Group name is required"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldErrors maps form field names to their error message
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = field + ": " + fe[field]
	}
	return strings.Join(parts, "; ")
}

// Err returns fe as an error, or nil when there are no errors
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateRegistration checks the register form
func ValidateRegistration(reg models.Registration) error {
	if reg.Email == "" || reg.Password == "" || reg.ConfirmPassword == "" {
		return ValidationError{Field: "form", Message: MsgAllRequired}
	}
	if reg.Password != reg.ConfirmPassword {
		return ValidationError{Field: "confirmPassword", Message: MsgPasswordMatch}
	}
	return ValidateEmail(reg.Email)
}

// ValidateChild checks the child form. today decides which dates are in the future.
func ValidateChild(name, surname, dateOfBirth string, today time.Time) FieldErrors {
	errs := FieldErrors{}

	if !textRegex.MatchString(name) {
		errs["name"] = MsgName
	}
	if !textRegex.MatchString(surname) {
		errs["surname"] = MsgSurname
	}
	if msg := checkDateOfBirth(dateOfBirth, today); msg != "" {
		errs["dateOfBirth"] = msg
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func checkDateOfBirth(value string, today time.Time) string {
	if value == "" {
		return MsgDOBRequired
	}
	if !dateRegex.MatchString(value) {
		return MsgDOBFormat
	}
	dob, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return MsgDOBInvalid
	}
	y, m, d := today.Date()
	if dob.After(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) {
		return MsgDOBFuture
	}
	return ""
}

// ValidateGroupName checks the group form
func ValidateGroupName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ValidationError{Field: "name", Message: MsgGroupName}
	}
	return nil
}
