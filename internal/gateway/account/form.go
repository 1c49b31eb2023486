package account

import (
	"fmt"
	"net/url"
	"strings"

	"observe/internal/domain"
)

// BulkLogin selects every account except the reserved ones in a permission update.
const BulkLogin = "all"

// UserForm is a submitted user create or update request.
type UserForm struct {
	Login           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	Email           string
	Permission      string
}

// FormFromValues reads a UserForm from posted form values.
func FormFromValues(v url.Values) UserForm {
	get := func(k string) string { return strings.TrimSpace(v.Get(k)) }
	return UserForm{
		Login:           get("login"),
		Password:        v.Get("password"),
		ConfirmPassword: v.Get("confirm_password"),
		FirstName:       get("first_name"),
		LastName:        get("last_name"),
		Email:           get("email"),
		Permission:      get("permission"),
	}
}

// ValidationError reports an incomplete form.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Please fill out the form below. Key '%s' is empty.", e.Field)
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrBadRequest
}

// validate checks required fields. Passwords are optional on update and the
// permission is optional when the caller edits their own record.
func (f UserForm) validate(update, self bool) error {
	if f.Password != f.ConfirmPassword {
		return domain.ErrPasswordMismatch
	}
	fields := []struct {
		name, value string
		required    bool
	}{
		{"login", f.Login, true},
		{"password", f.Password, !update},
		{"first_name", f.FirstName, true},
		{"last_name", f.LastName, true},
		{"email", f.Email, true},
		{"permission", f.Permission, !self},
	}
	for _, fld := range fields {
		if fld.required && fld.value == "" {
			return &ValidationError{Field: fld.name}
		}
	}
	if f.Permission != "" {
		return checkPermission(f.Permission)
	}
	return nil
}

// checkPermission requires p to name one of the four roles.
func checkPermission(p string) error {
	if p == "" {
		return &ValidationError{Field: "permission"}
	}
	if !knownPermission(p) {
		return fmt.Errorf("%w: unknown permission %q", domain.ErrBadRequest, p)
	}
	return nil
}

func knownPermission(p string) bool {
	switch domain.Role(p) {
	case domain.RoleAdmin, domain.RoleControl, domain.RoleUser, domain.RoleNone:
		return true
	}
	return false
}
