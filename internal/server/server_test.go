package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jjudge-oj/accountsvc/internal/services"
	"github.com/jjudge-oj/accountsvc/internal/testutil"
	"github.com/jjudge-oj/accountsvc/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T, logger *zap.Logger) http.Handler {
	t.Helper()
	svc := services.NewAccountService(testutil.NewAccountRepository(), services.WithHashCost(bcrypt.MinCost))
	tokens, err := token.NewIssuer("test-secret", time.Minute, time.Hour)
	require.NoError(t, err)
	return NewRouter(svc, tokens, logger)
}

func TestNewRouter_Healthz(t *testing.T) {
	router := newTestRouter(t, zap.NewNop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestNewRouter_TrailingSlashOptional(t *testing.T) {
	router := newTestRouter(t, zap.NewNop())

	body, err := json.Marshal(map[string]string{
		"email":      "u@test.local",
		"password":   "Pass123",
		"password2":  "Pass123",
		"first_name": "A",
		"last_name":  "B",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	login, err := json.Marshal(map[string]string{"email": "u@test.local", "password": "Pass123"})
	require.NoError(t, err)
	for _, path := range []string{"/api/login", "/api/login/"} {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(login)))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestNewRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(t, zap.NewNop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestLogger_LevelsByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	router := newTestRouter(t, zap.New(core))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/profile", nil))

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
	assert.Equal(t, "/healthz", entries[0].ContextMap()["path"])
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusUnauthorized), entries[1].ContextMap()["status"])
}

func TestRequestLogger_ServerError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}
