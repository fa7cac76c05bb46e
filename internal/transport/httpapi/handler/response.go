package handler

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/mkuiper/bankboard/internal/shared/errors"
)

// envelope is the standard response shape: {"success": ..., "data": ...}
// with an optional element count for list payloads.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`

	// Incomplete marks a partial result (some accounts failed mid-fetch);
	// Failed names the accounts that could not be fetched.
	Incomplete bool `json:"incomplete,omitempty"`
	Failed     any  `json:"failed,omitempty"`
}

func respondJSON(w http.ResponseWriter, statusCode int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func respondList(w http.ResponseWriter, data any, count int) {
	respondJSON(w, http.StatusOK, envelope{Success: true, Data: data, Count: &count})
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	if appErr := apperrors.GetAppError(err); appErr != nil {
		message = appErr.Message
		switch appErr.Code {
		case apperrors.ErrCodeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrCodeBadRequest, apperrors.ErrCodeValidation:
			status = http.StatusBadRequest
		case apperrors.ErrCodeProviderUnavailable:
			status = http.StatusBadGateway
		case apperrors.ErrCodeConfiguration:
			status = http.StatusNotImplemented
		}
	}

	respondJSON(w, status, envelope{Success: false, Error: message})
}
