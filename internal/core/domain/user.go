package domain

import (
	"net/mail"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxFullNameLength = 255
	MaxEmailLength    = 255
)

// Role identifies what a user is allowed to do and which role room
// their realtime sessions subscribe to.
type Role string

const (
	RoleMember            Role = "member"
	RoleTechnician        Role = "technician"
	RoleTechnicalDirector Role = "technical_director"
	RoleAdmin             Role = "admin"
)

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleMember, RoleTechnician, RoleTechnicalDirector, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role belongs to helpdesk staff
// (anyone who works tickets rather than submitting them).
func (r Role) IsStaff() bool {
	return r == RoleTechnician || r == RoleTechnicalDirector || r == RoleAdmin
}

type User struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	FullName       string
	Email          string
	HashedPassword string
	Role           Role
	CreatedAt      time.Time
	IsActive       bool
	LastActiveAt   *time.Time
}

// UserRegistrationParams is the validated input for account creation.
type UserRegistrationParams struct {
	FullName string
	Email    string
	Password string
}

// Validate collects every field problem so the caller can report them
// all at once.
func (p *UserRegistrationParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	if p.FullName == "" {
		errs.Add("fullName", "Full name is required")
	} else if len(p.FullName) > MaxFullNameLength {
		errs.Add("fullName", "Full name must be 255 characters or less")
	}

	if p.Email == "" {
		errs.Add("email", "Email is required")
	} else if len(p.Email) > MaxEmailLength {
		errs.Add("email", "Email must be 255 characters or less")
	} else if _, err := mail.ParseAddress(p.Email); err != nil {
		errs.Add("email", "Invalid email format")
	}

	for _, msg := range ValidatePassword(p.Password) {
		errs.Add("password", msg)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// ValidatePassword returns one message per unmet strength rule. An
// empty slice means the password is acceptable.
func ValidatePassword(password string) []string {
	var msgs []string

	if len(password) < MinPasswordLength {
		msgs = append(msgs, "Password must be at least 8 characters long")
	}
	if len(password) > MaxPasswordLength {
		msgs = append(msgs, "Password must be 128 characters or less")
	}

	var hasUpper, hasLower, hasNumber bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsNumber(c):
			hasNumber = true
		}
	}

	if !hasUpper {
		msgs = append(msgs, "Password must contain at least one uppercase letter")
	}
	if !hasLower {
		msgs = append(msgs, "Password must contain at least one lowercase letter")
	}
	if !hasNumber {
		msgs = append(msgs, "Password must contain at least one number")
	}
	return msgs
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)) == nil
}

// HashPassword bcrypt-hashes a password after enforcing the strength
// rules.
func HashPassword(password string) (string, error) {
	if msgs := ValidatePassword(password); len(msgs) > 0 {
		return "", apperrors.ErrPasswordTooWeak
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// NewUser creates an account from validated parameters. New accounts
// always start as members; staff roles are granted by an administrator.
func NewUser(params UserRegistrationParams, orgID uuid.UUID) (*User, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	hashed, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	return &User{
		ID:             uuid.New(),
		OrganizationID: orgID,
		FullName:       params.FullName,
		Email:          params.Email,
		HashedPassword: hashed,
		Role:           RoleMember,
		CreatedAt:      time.Now().UTC(),
		IsActive:       true,
	}, nil
}
