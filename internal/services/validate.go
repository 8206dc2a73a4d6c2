package services

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLength = 6
	maxPasswordBytes  = 72 // bcrypt ignores input past 72 bytes
	maxPhoneLength    = 15
	maxAnswerLength   = 100
	maxNameLength     = 150
	maxEmailLength    = 254

	msgRequired         = "This field is required."
	msgInvalidEmail     = "Enter a valid email address."
	msgEmailTaken       = "A user with this email already exists."
	msgPasswordMismatch = "Passwords do not match."
	msgNewPasswordMatch = "New passwords do not match."
)

func msgMinLength(n int) string {
	return fmt.Sprintf("Ensure this field has at least %d characters.", n)
}

func msgMaxLength(n int) string {
	return fmt.Sprintf("Ensure this field has no more than %d characters.", n)
}

func msgInvalidChoice(value string) string {
	return fmt.Sprintf("%q is not a valid choice.", value)
}

// NormalizeEmail trims surrounding whitespace and lowercases the address so
// case variants map to the same account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" || len(email) > maxEmailLength {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

func validateEmail(verr *ValidationError, field, email string) {
	switch {
	case strings.TrimSpace(email) == "":
		verr.Add(field, msgRequired)
	case !validEmail(NormalizeEmail(email)):
		verr.Add(field, msgInvalidEmail)
	}
}

func validateRequired(verr *ValidationError, field, value string) {
	if strings.TrimSpace(value) == "" {
		verr.Add(field, msgRequired)
	}
}

func validateMaxLength(verr *ValidationError, field, value string, limit int) {
	if utf8.RuneCountInString(value) > limit {
		verr.Add(field, msgMaxLength(limit))
	}
}

func validatePassword(verr *ValidationError, field, password string) {
	switch {
	case password == "":
		verr.Add(field, msgRequired)
	case utf8.RuneCountInString(password) < minPasswordLength:
		verr.Add(field, msgMinLength(minPasswordLength))
	case len(password) > maxPasswordBytes:
		verr.Add(field, msgMaxLength(maxPasswordBytes))
	}
}

// validatePasswordPair checks both password fields and, when each is
// individually valid, that they match. The mismatch is reported on mismatchField.
func validatePasswordPair(verr *ValidationError, field, confirmField, mismatchField, mismatchMsg, password, confirm string) {
	validatePassword(verr, field, password)
	validatePassword(verr, confirmField, confirm)
	if verr.Has(field) || verr.Has(confirmField) {
		return
	}
	if password != confirm {
		verr.Add(mismatchField, mismatchMsg)
	}
}

func validateRegister(in RegisterInput) error {
	verr := newValidationError()
	validateEmail(verr, "email", in.Email)
	validatePasswordPair(verr, "password", "password2", "password", msgPasswordMismatch, in.Password, in.Password2)
	validateRequired(verr, "first_name", in.FirstName)
	validateMaxLength(verr, "first_name", in.FirstName, maxNameLength)
	validateRequired(verr, "last_name", in.LastName)
	validateMaxLength(verr, "last_name", in.LastName, maxNameLength)
	validateMaxLength(verr, "phone", in.Phone, maxPhoneLength)
	if q := in.SecurityQuestion; q != "" && !q.Valid() {
		verr.Add("security_question", msgInvalidChoice(string(q)))
	}
	validateMaxLength(verr, "security_answer", in.SecurityAnswer, maxAnswerLength)
	return verr.orNil()
}

func validateLogin(email, password string) error {
	verr := newValidationError()
	validateEmail(verr, "email", email)
	if password == "" {
		verr.Add("password", msgRequired)
	}
	return verr.orNil()
}

func validateProfilePatch(patch ProfilePatch) error {
	verr := newValidationError()
	if patch.FirstName != nil {
		validateMaxLength(verr, "first_name", *patch.FirstName, maxNameLength)
	}
	if patch.LastName != nil {
		validateMaxLength(verr, "last_name", *patch.LastName, maxNameLength)
	}
	if patch.Phone != nil {
		validateMaxLength(verr, "phone", *patch.Phone, maxPhoneLength)
	}
	return verr.orNil()
}

func validateChangePassword(in ChangePasswordInput) error {
	verr := newValidationError()
	if in.OldPassword == "" {
		verr.Add("old_password", msgRequired)
	}
	validatePasswordPair(verr, "new_password", "new_password2", "new_password", msgNewPasswordMatch, in.NewPassword, in.NewPassword2)
	return verr.orNil()
}

func validateForgotPassword(email string) error {
	verr := newValidationError()
	validateEmail(verr, "email", email)
	return verr.orNil()
}

func validateResetPassword(in ResetPasswordInput) error {
	verr := newValidationError()
	validateEmail(verr, "email", in.Email)
	validateRequired(verr, "security_answer", in.SecurityAnswer)
	validatePasswordPair(verr, "new_password", "new_password2", "new_password", msgPasswordMismatch, in.NewPassword, in.NewPassword2)
	return verr.orNil()
}
