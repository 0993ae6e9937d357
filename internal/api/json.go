package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes returned in errResponse.Code.
const (
	codeBadRequest     = "bad_request"
	codeUnauthorized   = "unauthorized"
	codeNotFound       = "not_found"
	codeNoVault        = "no_vault"
	codePeriodDisabled = "period_disabled"
	codeInternal       = "internal"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

type errResponse struct {
	Code  string `json:"code"`
	Error string `json:"error" validate:"required"`
}

func errorBody(code, msg string) errResponse {
	return errResponse{Code: code, Error: msg}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody(codeBadRequest, msg))
}
