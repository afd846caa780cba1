package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"sdbridge/pkg/types"
)

// HTTPError lets a service error choose its status code.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps a service error to a status. Everything without an explicit
// code is reported as 500 with the error message as detail.
func statusFor(err error) int {
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes the {"detail": msg} error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Detail: msg})
}
