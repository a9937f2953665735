package service

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Detail string `json:"detail"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func decodeJSON(w http.ResponseWriter, req *http.Request, dest any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return &ValidationError{Reason: "request body is empty"}
		}
		return &ValidationError{Reason: "invalid request body"}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

/* Error messages are fixed per class: nothing from the request body
 * or the Authorization header ends up in a response or a log line. */
func writeError(logger *zap.Logger, w http.ResponseWriter, req *http.Request, err error) {
	status, detail := classifyError(err)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err),
			zap.String("ip", req.RemoteAddr),
			zap.String("path", req.URL.Path))
	} else {
		logger.Debug("Request rejected",
			zap.Int("status", status),
			zap.String("reason", detail),
			zap.String("ip", req.RemoteAddr),
			zap.String("path", req.URL.Path))
	}
	writeJSON(w, status, errorResponse{Detail: detail})
}

func classifyError(err error) (int, string) {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity, validationErr.Error()
	case errors.Is(err, ErrDuplicateEmail):
		return http.StatusBadRequest, "Email already registered"
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, ErrMissingToken):
		return http.StatusUnauthorized, "Not authenticated"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "Access Forbidden: Only clinical staff can manage notes."
	case errors.Is(err, ErrNotAuthor):
		return http.StatusForbidden, "Access Denied: You can only modify notes you created."
	case errors.Is(err, ErrNoteNotFound):
		return http.StatusNotFound, "Clinical note not found"
	case errors.Is(err, ErrPatientNotFound):
		return http.StatusNotFound, "Patient ID not found"
	case errors.Is(err, ErrNotAPatient):
		return http.StatusBadRequest, "Target user is not a patient"
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}
