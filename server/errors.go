package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wfunc/trexbooth/genie"
	"github.com/wfunc/trexbooth/logger"
	"github.com/wfunc/trexbooth/persistence"
	"github.com/wfunc/trexbooth/services"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodePlayerNotFound = "PLAYER_NOT_FOUND"
	CodeInternalError  = "INTERNAL_ERROR"
)

type httpError struct {
	status   int
	apiError APIError
}

func (e *httpError) Error() string {
	return e.apiError.Message
}

func newInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

func writeError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	if he.status >= http.StatusInternalServerError {
		logger.Log.Errorw("request failed", "error", err)
	}
	writeJSON(w, he.status, ErrorResponse{Error: he.apiError})
}

func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, services.ErrInvalidRequest),
		errors.Is(err, persistence.ErrInvalidScore),
		errors.Is(err, persistence.ErrInconsistentOutcome),
		errors.Is(err, genie.ErrEmptyQuestion):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}
	case errors.Is(err, persistence.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
