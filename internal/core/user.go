package core

import (
	"net/mail"
	"strings"
	"time"
)

// Role is the only authorization attribute of a user.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
	RoleElder      Role = "mzee_wa_kanisa"
	RolePastor     Role = "pastor"
)

// MinPasswordLength applies to every password set through the application.
const MinPasswordLength = 6

// Roles returns every role in display order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleAccountant, RoleElder, RolePastor}
}

// ParseRole accepts the stored role names, including the legacy
// "jumuiya_leader" which became mzee_wa_kanisa.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.TrimSpace(s)); r {
	case RoleAdmin, RoleAccountant, RoleElder, RolePastor:
		return r, nil
	case "jumuiya_leader":
		return RoleElder, nil
	}
	return "", ErrInvalidRole
}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAccountant, RoleElder, RolePastor:
		return true
	}
	return false
}

// Label is the Swahili title shown next to the user's name.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Msimamizi Mkuu"
	case RoleAccountant:
		return "Mhasibu"
	case RoleElder:
		return "Mzee wa Kanisa"
	case RolePastor:
		return "Mchungaji"
	}
	return string(r)
}

type User struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	FullName           string    `json:"full_name"`
	Role               Role      `json:"role"`
	MustChangePassword bool      `json:"must_change_password"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewUser is the provisioning request for a user account.
type NewUser struct {
	Email    string
	FullName string
	Role     Role
	Password string
}

func (u NewUser) Validate() error {
	v := NewValidation()
	if _, err := mail.ParseAddress(strings.TrimSpace(u.Email)); err != nil {
		v.Add("email", ErrInvalidEmail)
	}
	if strings.TrimSpace(u.FullName) == "" {
		v.Add("full_name", ErrEmptyName)
	}
	if !u.Role.IsValid() {
		v.Add("role", ErrInvalidRole)
	}
	if len(u.Password) < MinPasswordLength {
		v.Add("password", ErrPasswordTooShort)
	}
	return v.Err()
}

// ValidatePasswordChange checks a new password and its confirmation.
func ValidatePasswordChange(password, confirm string) error {
	v := NewValidation()
	if len(password) < MinPasswordLength {
		v.Add("password", ErrPasswordTooShort)
	} else if password != confirm {
		v.Add("confirm", ErrPasswordMismatch)
	}
	return v.Err()
}
