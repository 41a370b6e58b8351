// Package responders writes the JSON response bodies shared by every handler.
package responders

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// JSON writes payload as an application/json response. The payload is encoded
// before any byte hits the wire, so an encoding failure becomes a clean 500
// instead of a truncated body under an already-committed 2xx status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")

	if payload == nil {
		w.WriteHeader(status)
		return
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"internal_error","message":"Internal server error"}}`))
		return
	}

	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
