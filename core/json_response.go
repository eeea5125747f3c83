package core

import (
	"encoding/json"
	"errors"
	"net/http"
)

// jsonResponse implements Response for JSON rendering.
type jsonResponse struct {
	status int
	body   any
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSON creates a 200 response with v encoded as the body.
func JSON(v any) Response {
	return jsonResponse{status: http.StatusOK, body: v}
}

// JSONStatus creates a JSON response with an explicit status code.
func JSONStatus(status int, v any) Response {
	return jsonResponse{status: status, body: v}
}

// errorBody is the envelope for every error response.
type errorBody struct {
	Error string `json:"error"`
}

// JSONError maps err to an error response. HTTPError values keep their
// status code and key; anything else becomes an opaque 500 so internal
// details never leak to the client.
func JSONError(err error) Response {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return jsonResponse{
			status: httpErr.Code,
			body:   errorBody{Error: httpErr.Key},
		}
	}

	return jsonResponse{
		status: http.StatusInternalServerError,
		body:   errorBody{Error: ErrInternalServerError.Key},
	}
}
