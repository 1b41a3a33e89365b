// Package handlers provides HTTP handlers for the web API.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// dateParam returns the "date" query parameter, defaulting to today.
func dateParam(r *http.Request) (string, bool) {
	date := r.URL.Query().Get("date")
	if date == "" {
		return database.AttendanceDate(time.Now()), true
	}
	if _, err := time.Parse(database.DateLayout, date); err != nil {
		return "", false
	}
	return date, true
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": database.BackendName(),
	})
}
