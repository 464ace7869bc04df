package httperr

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Body is the JSON shape of every error response.
type Body struct {
	Status      string              `json:"status"`
	Code        int                 `json:"code"`
	Error       string              `json:"error"`
	Message     string              `json:"message"`
	Description string              `json:"description"`
	Errors      map[string][]string `json:"errors"`
}

// Format converts err into a status, the headers it needs and its body.
// Errors that are not an [*Error] become a 500; their text is exposed in the
// description only when debug is set.
func Format(err error, debug bool) (int, http.Header, Body) {
	header := make(http.Header)

	var e *Error
	if !errors.As(err, &e) {
		body := Body{
			Status:  "error",
			Code:    http.StatusInternalServerError,
			Error:   SlugInternal,
			Message: "Internal Server Error",
			Errors:  map[string][]string{},
		}
		if debug {
			body.Description = err.Error()
		}
		return http.StatusInternalServerError, header, body
	}

	if len(e.Allowed) > 0 {
		header.Set("Allow", strings.Join(e.Allowed, ", "))
	}
	fields := e.Fields
	if fields == nil {
		fields = map[string][]string{}
	}
	body := Body{
		Status:      "error",
		Code:        e.Status,
		Error:       e.Slug,
		Message:     e.Message,
		Description: e.Description,
		Errors:      fields,
	}
	if debug && body.Description == "" && e.Err != nil {
		body.Description = e.Err.Error()
	}
	return e.Status, header, body
}

// Write renders err as a JSON error response.
func Write(w http.ResponseWriter, err error, debug bool) {
	status, header, body := Format(err, debug)
	for k, v := range header {
		w.Header()[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
