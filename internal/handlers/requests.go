package handlers

import "github.com/jjudge-oj/accountsvc/types"

type RegisterRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	Password2        string `json:"password2"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Phone            string `json:"phone"`
	SecurityQuestion string `json:"security_question"`
	SecurityAnswer   string `json:"security_answer"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// UpdateProfileRequest uses pointers so omitted fields stay untouched.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
}

type ChangePasswordRequest struct {
	OldPassword  string `json:"old_password"`
	NewPassword  string `json:"new_password"`
	NewPassword2 string `json:"new_password2"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email          string `json:"email"`
	SecurityAnswer string `json:"security_answer"`
	NewPassword    string `json:"new_password"`
	NewPassword2   string `json:"new_password2"`
}

type AccountResponse struct {
	Message string            `json:"message"`
	User    types.AccountView `json:"user"`
}

type LoginResponse struct {
	Message string            `json:"message"`
	Access  string            `json:"access"`
	Refresh string            `json:"refresh"`
	User    types.AccountView `json:"user"`
}

type RefreshResponse struct {
	Access string `json:"access"`
}

type ForgotPasswordResponse struct {
	Email            string `json:"email"`
	SecurityQuestion string `json:"security_question"`
}
