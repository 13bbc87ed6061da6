package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured JSON error response. EngineError codes map
// to HTTP statuses; everything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	var engineErr *schema.EngineError
	if !errors.As(err, &engineErr) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": map[string]any{"code": schema.ErrCodeExecution, "message": err.Error()},
		})
		return
	}

	body := map[string]any{"error": engineErr}
	writeJSON(w, statusForCode(engineErr.Code), body)
}

func statusForCode(code string) int {
	switch code {
	case schema.ErrCodeNotFound:
		return http.StatusNotFound
	case schema.ErrCodeInactive, schema.ErrCodeConflict:
		return http.StatusConflict
	case schema.ErrCodeValidation, schema.ErrCodeInterpolation:
		return http.StatusUnprocessableEntity
	case schema.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "invalid request body: %s", err.Error())
	}
	return nil
}

// queryInt extracts an integer query param with a default value.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
