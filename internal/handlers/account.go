package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jjudge-oj/accountsvc/internal/services"
	"github.com/jjudge-oj/accountsvc/internal/token"
	"github.com/jjudge-oj/accountsvc/types"
	"go.uber.org/zap"
)

// AccountHandler provides the account management endpoints.
type AccountHandler struct {
	accounts *services.AccountService
	tokens   *token.Issuer
	logger   *zap.Logger
}

// NewAccountHandler constructs an AccountHandler with the provided dependencies.
func NewAccountHandler(accounts *services.AccountService, tokens *token.Issuer, logger *zap.Logger) *AccountHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountHandler{
		accounts: accounts,
		tokens:   tokens,
		logger:   logger,
	}
}

// AccountRouter registers account routes on the given router.
func AccountRouter(r chi.Router, accounts *services.AccountService, tokens *token.Issuer, logger *zap.Logger) {
	handler := NewAccountHandler(accounts, tokens, logger)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/token/refresh", handler.RefreshToken)
	r.Post("/forgot-password", handler.ForgotPassword)
	r.Post("/reset-password", handler.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(handler.RequireAuth)
		r.Get("/profile", handler.GetProfile)
		r.Put("/profile/update", handler.UpdateProfile)
		r.Patch("/profile/update", handler.UpdateProfile)
		r.Post("/change-password", handler.ChangePassword)
	})
}

// RequireAuth resolves the bearer access token to an active account and
// injects it into the request context.
func (h *AccountHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		accountID, err := h.tokens.Authenticate(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		account, err := h.accounts.GetByID(r.Context(), accountID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			writeInternalError(w, h.logger, err)
			return
		}
		if !account.IsActive {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), account)))
	})
}

// Register creates a new account.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	account, err := h.accounts.Register(r.Context(), services.RegisterInput{
		Email:            req.Email,
		Password:         req.Password,
		Password2:        req.Password2,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		SecurityQuestion: types.SecurityQuestion(strings.TrimSpace(req.SecurityQuestion)),
		SecurityAnswer:   req.SecurityAnswer,
	})
	if err != nil {
		writeValidationError(w, h.logger, err)
		return
	}

	h.logger.Info("account registered", zap.String("account_id", account.ID.String()))
	writeJSON(w, http.StatusCreated, AccountResponse{
		Message: "User registered successfully",
		User:    account.View(),
	})
}

// Login verifies credentials and returns an access/refresh token pair.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	account, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		writeValidationError(w, h.logger, err)
		return
	}

	pair, err := h.tokens.Issue(account.ID)
	if err != nil {
		writeInternalError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Message: "Login successful",
		Access:  pair.Access,
		Refresh: pair.Refresh,
		User:    account.View(),
	})
}

// RefreshToken exchanges a refresh token for a new access token.
func (h *AccountHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Refresh) == "" {
		writeJSON(w, http.StatusBadRequest, services.FieldErrors{"refresh": {"This field is required."}})
		return
	}

	access, err := h.tokens.Refresh(req.Refresh)
	if err != nil {
		if errors.Is(err, token.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "Token is invalid or expired")
			return
		}
		writeInternalError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{Access: access})
}

// GetProfile returns the authenticated account.
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	account, err := accountFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, account.View())
}

// UpdateProfile applies a partial update to the authenticated account.
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	account, err := accountFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.accounts.UpdateProfile(r.Context(), account.ID, services.ProfilePatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeValidationError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AccountResponse{
		Message: "Profile updated successfully",
		User:    updated.View(),
	})
}

// ChangePassword replaces the password of the authenticated account.
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	account, err := accountFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	err = h.accounts.ChangePassword(r.Context(), account.ID, services.ChangePasswordInput{
		OldPassword:  req.OldPassword,
		NewPassword:  req.NewPassword,
		NewPassword2: req.NewPassword2,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
	case errors.Is(err, services.ErrIncorrectOldPassword):
		writeError(w, http.StatusBadRequest, "Old password is incorrect")
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		writeValidationError(w, h.logger, err)
	}
}

// ForgotPassword returns the security question configured for an email.
func (h *AccountHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	question, err := h.accounts.SecurityQuestion(r.Context(), req.Email)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ForgotPasswordResponse{
			Email:            services.NormalizeEmail(req.Email),
			SecurityQuestion: question.Text(),
		})
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "No user found with this email")
	case errors.Is(err, services.ErrNoSecurityQuestion):
		writeError(w, http.StatusBadRequest, "No security question set for this account")
	default:
		writeValidationError(w, h.logger, err)
	}
}

// ResetPassword sets a new password after the security answer is verified.
func (h *AccountHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	err := h.accounts.ResetPassword(r.Context(), services.ResetPasswordInput{
		Email:          req.Email,
		SecurityAnswer: req.SecurityAnswer,
		NewPassword:    req.NewPassword,
		NewPassword2:   req.NewPassword2,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Password reset successfully"})
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, services.ErrIncorrectAnswer):
		writeError(w, http.StatusBadRequest, "Incorrect security answer")
	default:
		writeValidationError(w, h.logger, err)
	}
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", errors.New("invalid authorization")
	}
	return tokenString, nil
}
