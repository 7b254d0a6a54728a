// internal/interfaces/http/handlers/common.go
//
// Shared response plumbing. Every endpoint answers with the APIResponse
// envelope; error codes map to HTTP statuses centrally so handlers only
// return domain errors.

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeData wraps payload in a success envelope.
func writeData(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeJSON(w, status, common.APIResponse[interface{}]{
		Success:   true,
		Data:      data,
		RequestID: chimw.GetReqID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

// writeError maps the error code to a status. 5xx causes are masked; the
// envelope carries the code so clients can still distinguish failures.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := code.HTTPStatus()

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, status, common.APIResponse[interface{}]{
		Success: false,
		Error: &common.ErrorDetail{
			Code:    code.String(),
			Message: message,
		},
		RequestID: chimw.GetReqID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

// decodeBody strictly decodes a JSON request body.
func decodeBody(r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "malformed request body")
	}
	return nil
}

// queryInt reads an integer query parameter, falling back on absence or junk.
func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
