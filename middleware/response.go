package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// writeErr sends the API error envelope for failures raised before a handler runs.
func writeErr(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    fmt.Sprintf("HTTP_%d", status),
			"message": message,
		},
	})
}
