// Package respond writes JSON responses in the API's wire shape.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

var ErrEmptyBody = errors.New("empty request body")

type messageBody struct {
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, r *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// Message writes {"message": msg}; errors and plain acknowledgements share this shape.
func Message(w http.ResponseWriter, r *http.Request, code int, msg string) {
	JSON(w, r, code, messageBody{Message: msg})
}

func Error(w http.ResponseWriter, r *http.Request, code int, msg string) {
	Message(w, r, code, msg)
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return ErrEmptyBody
	}
	return err
}
