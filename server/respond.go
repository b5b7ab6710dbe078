package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

// apiError is the REST error envelope.
type apiError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Data    map[string]int `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{
		Code:    code,
		Message: message,
		Data:    map[string]int{"status": status},
	})
}

// decodeJSONBody decodes the request body into v. It writes the error
// response and returns false on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "rest_too_large",
				"Request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes.")
			return false
		}
		writeError(w, http.StatusBadRequest, "rest_invalid_json", "Invalid JSON body.")
		return false
	}
	return true
}
