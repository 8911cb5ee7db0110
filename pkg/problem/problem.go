// Package problem writes RFC 7807 problem details.
package problem

import (
	"encoding/json"
	"net/http"
)

type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// Errors lists per-field failures for validation problems.
	Errors any `json:"errors,omitempty"`
}

func New(status int, title, detail string) Problem {
	return Problem{Type: "about:blank", Title: title, Status: status, Detail: detail}
}

func Write(w http.ResponseWriter, status int, title, detail string) {
	Render(w, status, New(status, title, detail))
}

// Render writes any body that embeds Problem, so callers can add members.
func Render(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
