package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jjudge-oj/accountsvc/internal/services"
	"github.com/jjudge-oj/accountsvc/internal/testutil"
	"github.com/jjudge-oj/accountsvc/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testAPI struct {
	t      *testing.T
	router http.Handler
	repo   *testutil.AccountRepository
	tokens *token.Issuer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	repo := testutil.NewAccountRepository()
	svc := services.NewAccountService(repo, services.WithHashCost(bcrypt.MinCost))
	tokens, err := token.NewIssuer("test-secret", time.Minute, time.Hour)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Get("/healthz", Healthz)
	router.Route("/api", func(r chi.Router) {
		AccountRouter(r, svc, tokens, nil)
	})
	return &testAPI{t: t, router: router, repo: repo, tokens: tokens}
}

func (a *testAPI) do(method, path, bearer string, body any) (int, map[string]any) {
	a.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func registerBody() map[string]any {
	return map[string]any{
		"email":             "u@test.local",
		"password":          "Pass123",
		"password2":         "Pass123",
		"first_name":        "A",
		"last_name":         "B",
		"security_question": "pet",
		"security_answer":   "Rex",
	}
}

func (a *testAPI) registerAndLogin() (string, string) {
	a.t.Helper()
	code, _ := a.do(http.MethodPost, "/api/register/", "", registerBody())
	require.Equal(a.t, http.StatusCreated, code)

	code, body := a.do(http.MethodPost, "/api/login/", "", map[string]any{"email": "u@test.local", "password": "Pass123"})
	require.Equal(a.t, http.StatusOK, code)
	return body["access"].(string), body["refresh"].(string)
}

func fieldMessages(t *testing.T, body map[string]any, field string) []string {
	t.Helper()
	raw, ok := body[field].([]any)
	require.True(t, ok, "expected field errors for %q in %v", field, body)
	messages := make([]string, 0, len(raw))
	for _, m := range raw {
		messages = append(messages, m.(string))
	}
	return messages
}

func TestRegisterLoginProfile(t *testing.T) {
	api := newTestAPI(t)

	code, body := api.do(http.MethodPost, "/api/register/", "", registerBody())
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "User registered successfully", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "u@test.local", user["email"])
	assert.NotEmpty(t, user["id"])
	assert.NotContains(t, user, "password_hash")
	assert.NotContains(t, user, "security_answer")
	assert.NotContains(t, user, "password")

	code, body = api.do(http.MethodPost, "/api/login/", "", map[string]any{"email": "u@test.local", "password": "Pass123"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Login successful", body["message"])
	access := body["access"].(string)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, body["refresh"])

	code, body = api.do(http.MethodGet, "/api/profile/", access, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "u@test.local", body["email"])
	assert.Equal(t, "A", body["first_name"])
	assert.Equal(t, "B", body["last_name"])
	assert.NotContains(t, body, "security_question")
}

func TestRegister_Duplicate(t *testing.T) {
	api := newTestAPI(t)

	code, _ := api.do(http.MethodPost, "/api/register/", "", registerBody())
	require.Equal(t, http.StatusCreated, code)

	second := registerBody()
	second["email"] = "U@TEST.local"
	code, body := api.do(http.MethodPost, "/api/register/", "", second)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, fieldMessages(t, body, "email"), "A user with this email already exists.")
	assert.Equal(t, 1, api.repo.Len())
}

func TestRegister_PasswordMismatch(t *testing.T) {
	api := newTestAPI(t)

	req := registerBody()
	req["password2"] = "Pass124"
	code, body := api.do(http.MethodPost, "/api/register/", "", req)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []string{"Passwords do not match."}, fieldMessages(t, body, "password"))
	assert.Equal(t, 0, api.repo.Writes())
}

func TestRegister_MissingNames(t *testing.T) {
	api := newTestAPI(t)

	req := registerBody()
	delete(req, "first_name")
	delete(req, "last_name")
	code, body := api.do(http.MethodPost, "/api/register/", "", req)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []string{"This field is required."}, fieldMessages(t, body, "first_name"))
	assert.Equal(t, []string{"This field is required."}, fieldMessages(t, body, "last_name"))
}

func TestMalformedBody(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/api/register/", "/api/login/", "/api/token/refresh/", "/api/forgot-password/", "/api/reset-password/"} {
		code, body := api.do(http.MethodPost, path, "", "{not json")
		assert.Equal(t, http.StatusBadRequest, code, path)
		assert.Equal(t, "invalid request", body["error"], path)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	api.registerAndLogin()

	code, body := api.do(http.MethodPost, "/api/login/", "", map[string]any{"email": "u@test.local", "password": "nope123"})
	require.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid email or password", body["error"])

	code, _ = api.do(http.MethodPost, "/api/login/", "", map[string]any{"email": "ghost@test.local", "password": "Pass123"})
	require.Equal(t, http.StatusUnauthorized, code)

	code, body = api.do(http.MethodPost, "/api/login/", "", map[string]any{"email": "u@test.local"})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []string{"This field is required."}, fieldMessages(t, body, "password"))
}

func TestTokenRefresh(t *testing.T) {
	api := newTestAPI(t)
	access, refresh := api.registerAndLogin()

	code, body := api.do(http.MethodPost, "/api/token/refresh/", "", map[string]any{"refresh": refresh})
	require.Equal(t, http.StatusOK, code)
	newAccess := body["access"].(string)
	assert.NotEmpty(t, newAccess)

	code, _ = api.do(http.MethodGet, "/api/profile/", newAccess, nil)
	assert.Equal(t, http.StatusOK, code)

	code, body = api.do(http.MethodPost, "/api/token/refresh/", "", map[string]any{"refresh": access})
	require.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Token is invalid or expired", body["error"])

	code, body = api.do(http.MethodPost, "/api/token/refresh/", "", map[string]any{})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []string{"This field is required."}, fieldMessages(t, body, "refresh"))
}

func TestProfile_RequiresValidToken(t *testing.T) {
	api := newTestAPI(t)
	access, refresh := api.registerAndLogin()

	code, body := api.do(http.MethodGet, "/api/profile/", "", nil)
	require.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", body["error"])

	code, _ = api.do(http.MethodGet, "/api/profile/", access+"x", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = api.do(http.MethodGet, "/api/profile/", refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	accounts, _, err := api.repo.List(context.Background(), 0, 1)
	require.NoError(t, err)
	past := time.Now().Add(-time.Hour)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accounts[0].ID.String(),
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Minute)),
		},
		TokenType: "access",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	code, _ = api.do(http.MethodGet, "/api/profile/", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestProfile_InactiveAccountRejected(t *testing.T) {
	api := newTestAPI(t)
	access, _ := api.registerAndLogin()

	accounts, _, err := api.repo.List(context.Background(), 0, 1)
	require.NoError(t, err)
	account := accounts[0]
	account.IsActive = false
	_, err = api.repo.Update(context.Background(), account)
	require.NoError(t, err)

	code, _ := api.do(http.MethodGet, "/api/profile/", access, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestUpdateProfile_Partial(t *testing.T) {
	api := newTestAPI(t)
	access, _ := api.registerAndLogin()

	_, before := api.do(http.MethodGet, "/api/profile/", access, nil)

	code, body := api.do(http.MethodPatch, "/api/profile/update/", access, map[string]any{"phone": "555-0100"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Profile updated successfully", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "555-0100", user["phone"])
	assert.Equal(t, before["first_name"], user["first_name"])
	assert.Equal(t, before["last_name"], user["last_name"])
	assert.Equal(t, before["address"], user["address"])
	assert.Equal(t, before["created_at"], user["created_at"])

	beforeUpdated, err := time.Parse(time.RFC3339Nano, before["updated_at"].(string))
	require.NoError(t, err)
	afterUpdated, err := time.Parse(time.RFC3339Nano, user["updated_at"].(string))
	require.NoError(t, err)
	assert.True(t, afterUpdated.After(beforeUpdated))

	code, body = api.do(http.MethodPut, "/api/profile/update/", access, map[string]any{"first_name": "Ada", "address": "1 Main St"})
	require.Equal(t, http.StatusOK, code)
	user = body["user"].(map[string]any)
	assert.Equal(t, "Ada", user["first_name"])
	assert.Equal(t, "1 Main St", user["address"])
	assert.Equal(t, "555-0100", user["phone"])

	code, body = api.do(http.MethodPatch, "/api/profile/update/", access, map[string]any{"phone": strings.Repeat("1", 16)})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []string{"Ensure this field has no more than 15 characters."}, fieldMessages(t, body, "phone"))
}

func TestUpdateProfile_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	code, _ := api.do(http.MethodPatch, "/api/profile/update/", "", map[string]any{"phone": "1"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestChangePassword(t *testing.T) {
	api := newTestAPI(t)
	access, _ := api.registerAndLogin()

	code, body := api.do(http.MethodPost, "/api/change-password/", access, map[string]any{
		"old_password": "wrong1", "new_password": "NewPass1", "new_password2": "NewPass1",
	})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Old password is incorrect", body["error"])

	code, body = api.do(http.MethodPost, "/api/change-password/", access, map[string]any{
		"old_password": "Pass123", "new_password": "NewPass1", "new_password2": "NewPass2",
	})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []string{"New passwords do not match."}, fieldMessages(t, body, "new_password"))

	code, body = api.do(http.MethodPost, "/api/change-password/", access, map[string]any{
		"old_password": "Pass123", "new_password": "NewPass1", "new_password2": "NewPass1",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Password changed successfully", body["message"])

	code, _ = api.do(http.MethodPost, "/api/login/", "", map[string]any{"email": "u@test.local", "password": "NewPass1"})
	assert.Equal(t, http.StatusOK, code)
	code, _ = api.do(http.MethodPost, "/api/login/", "", map[string]any{"email": "u@test.local", "password": "Pass123"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestForgotPassword(t *testing.T) {
	api := newTestAPI(t)
	api.registerAndLogin()

	plain := registerBody()
	plain["email"] = "plain@test.local"
	delete(plain, "security_question")
	delete(plain, "security_answer")
	code, _ := api.do(http.MethodPost, "/api/register/", "", plain)
	require.Equal(t, http.StatusCreated, code)

	code, body := api.do(http.MethodPost, "/api/forgot-password/", "", map[string]any{"email": "u@test.local"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "u@test.local", body["email"])
	assert.Equal(t, "What is your pet name?", body["security_question"])

	code, body = api.do(http.MethodPost, "/api/forgot-password/", "", map[string]any{"email": "plain@test.local"})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No security question set for this account", body["error"])

	code, body = api.do(http.MethodPost, "/api/forgot-password/", "", map[string]any{"email": "ghost@test.local"})
	require.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "No user found with this email", body["error"])

	code, body = api.do(http.MethodPost, "/api/forgot-password/", "", map[string]any{"email": "bogus"})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []string{"Enter a valid email address."}, fieldMessages(t, body, "email"))
}

func TestResetPassword(t *testing.T) {
	api := newTestAPI(t)
	api.registerAndLogin()

	code, body := api.do(http.MethodPost, "/api/reset-password/", "", map[string]any{
		"email": "u@test.local", "security_answer": "Fido", "new_password": "Reset123", "new_password2": "Reset123",
	})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Incorrect security answer", body["error"])

	code, _ = api.do(http.MethodPost, "/api/login/", "", map[string]any{"email": "u@test.local", "password": "Pass123"})
	require.Equal(t, http.StatusOK, code)

	code, body = api.do(http.MethodPost, "/api/reset-password/", "", map[string]any{
		"email": "ghost@test.local", "security_answer": "rex", "new_password": "Reset123", "new_password2": "Reset123",
	})
	require.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found", body["error"])

	code, body = api.do(http.MethodPost, "/api/reset-password/", "", map[string]any{
		"email": "u@test.local", "security_answer": "rex", "new_password": "Reset123", "new_password2": "Reset999",
	})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []string{"Passwords do not match."}, fieldMessages(t, body, "new_password"))

	code, body = api.do(http.MethodPost, "/api/reset-password/", "", map[string]any{
		"email": "u@test.local", "security_answer": "rEx", "new_password": "Reset123", "new_password2": "Reset123",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Password reset successfully", body["message"])

	code, _ = api.do(http.MethodPost, "/api/login/", "", map[string]any{"email": "u@test.local", "password": "Reset123"})
	assert.Equal(t, http.StatusOK, code)
	code, _ = api.do(http.MethodPost, "/api/login/", "", map[string]any{"email": "u@test.local", "password": "Pass123"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)

	code, body := api.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer   abc  ", "abc", true},
		{"", "", false},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"Bearer", "", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, err := bearerToken(req)
		if !tt.ok {
			assert.Error(t, err, tt.header)
			continue
		}
		require.NoError(t, err, tt.header)
		assert.Equal(t, tt.want, got)
	}
}
