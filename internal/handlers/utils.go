package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jjudge-oj/accountsvc/internal/services"
	"github.com/jjudge-oj/accountsvc/types"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type contextKey string

const contextAccountKey contextKey = "account"

func withAccount(ctx context.Context, account types.Account) context.Context {
	return context.WithValue(ctx, contextAccountKey, account)
}

func accountFromContext(ctx context.Context) (types.Account, error) {
	account, ok := ctx.Value(contextAccountKey).(types.Account)
	if !ok {
		return types.Account{}, errors.New("missing account")
	}
	return account, nil
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is returned by operations that have nothing else to report.
type MessageResponse struct {
	Message string `json:"message"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeValidationError reports field-keyed messages, or a generic error when
// err is not a validation failure.
func writeValidationError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, verr.Fields)
		return
	}
	writeInternalError(w, logger, err)
}

func writeInternalError(w http.ResponseWriter, logger *zap.Logger, err error) {
	logger.Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}
