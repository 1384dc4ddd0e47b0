package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	domainerrors "github.com/crossfield/investigation-engine/internal/domain/errors"
)

// errorBody is the JSON error envelope
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps domain errors onto HTTP status codes and writes the
// error envelope.
func writeError(w http.ResponseWriter, err error) {
	status := domainerrors.GetStatusCode(err)
	code := "INTERNAL_ERROR"
	message := "An internal error occurred"

	var appErr *domainerrors.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message
	}

	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
