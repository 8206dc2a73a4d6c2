package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SecurityQuestion identifies one of the fixed password-recovery questions.
type SecurityQuestion string

const (
	SecurityQuestionPet    SecurityQuestion = "pet"
	SecurityQuestionCity   SecurityQuestion = "city"
	SecurityQuestionSchool SecurityQuestion = "school"
	SecurityQuestionMother SecurityQuestion = "mother"
	SecurityQuestionCar    SecurityQuestion = "car"
)

var securityQuestionText = map[SecurityQuestion]string{
	SecurityQuestionPet:    "What is your pet name?",
	SecurityQuestionCity:   "What city were you born in?",
	SecurityQuestionSchool: "What is your first school name?",
	SecurityQuestionMother: "What is your mother's maiden name?",
	SecurityQuestionCar:    "What was your first car?",
}

// Valid reports whether q is one of the known questions.
func (q SecurityQuestion) Valid() bool {
	_, ok := securityQuestionText[q]
	return ok
}

// Text returns the human-readable question, or "" when q is unknown.
func (q SecurityQuestion) Text() string {
	return securityQuestionText[q]
}

// Account represents a registered user.
// Email is the login identifier; there is no separate username.
type Account struct {
	// ID is the opaque identifier assigned at creation.
	ID uuid.UUID `json:"id" db:"id"`

	// Email is stored normalized and is unique across accounts.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Phone     string `json:"phone" db:"phone"`
	Address   string `json:"address" db:"address"`

	// SecurityQuestion is empty when the user has not configured recovery.
	SecurityQuestion SecurityQuestion `json:"-" db:"security_question"`

	// SecurityAnswer is compared case-insensitively during password reset.
	SecurityAnswer string `json:"-" db:"security_answer"`

	IsStaff     bool `json:"-" db:"is_staff"`
	IsSuperuser bool `json:"-" db:"is_superuser"`
	IsActive    bool `json:"-" db:"is_active"`

	// CreatedAt is set once when the account is inserted.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is refreshed on every mutation.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FullName returns the first name plus the last name, with a space in between.
func (a Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// AccountView is the public projection of an Account returned by the API.
type AccountView struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// View projects the account into its public representation.
func (a Account) View() AccountView {
	return AccountView{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		Address:   a.Address,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
