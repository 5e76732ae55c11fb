// Package httputil provides the response helpers shared by the server routes.
package httputil

import (
	"encoding/json"
	"net/http"
)

// Content types used by the server. The charset suffix matches what script
// collections written for older releases expect to see.
const (
	ContentTypeHTML  = "text/html; charset=UTF-8"
	ContentTypePlain = "text/plain; charset=UTF-8"
	ContentTypeCSS   = "text/css; charset=UTF-8"
	ContentTypeJS    = "text/javascript; charset=UTF-8"
	ContentTypeSVG   = "image/svg+xml; charset=UTF-8"
	ContentTypeJSON  = "application/json"
)

// WriteJSON writes data as a compact JSON document with the given status code.
// A nil data value writes only the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", ContentTypeJSON)
	if data == nil {
		w.WriteHeader(status)
		return
	}
	body, err := json.Marshal(data)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"could not encode response"}`))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// WriteError writes {"error": message} with the given status code.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteSuccess writes {"success": true} with 200 OK.
func WriteSuccess(w http.ResponseWriter) {
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// WriteBody writes a raw body with the given content type and status.
// An empty contentType leaves the header untouched.
func WriteBody(w http.ResponseWriter, status int, contentType string, body []byte) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(status)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

// WriteText writes a short plain-text message, used for error pages.
func WriteText(w http.ResponseWriter, status int, message string) {
	WriteBody(w, status, ContentTypePlain, []byte(message))
}

// WriteForbidden writes an empty-body 403.
func WriteForbidden(w http.ResponseWriter) {
	w.WriteHeader(http.StatusForbidden)
}

// WriteMethodNotAllowed writes a 405 listing the allowed methods.
func WriteMethodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	WriteText(w, http.StatusMethodNotAllowed, "Method not allowed")
}
