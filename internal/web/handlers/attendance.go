package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceHandler serves stored attendance events and the daily sheet.
type AttendanceHandler struct {
	enrollments database.EnrollmentReader
	store       database.AttendanceStore
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler() *AttendanceHandler {
	h := &AttendanceHandler{}
	if reader, err := database.GetEnrollmentStore(context.Background()); err == nil {
		h.enrollments = reader
	}
	if store, err := database.GetAttendanceStore(context.Background()); err == nil {
		h.store = store
	}
	return h
}

// List returns the events of ?date=YYYY-MM-DD (default today).
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "storage backend not available")
		return
	}
	date, ok := dateParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	records, err := h.store.ListAttendance(r.Context(), date)
	if err != nil {
		log.Printf("[attendance] list %s failed: %v", date, err)
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}
	if records == nil {
		records = []database.AttendanceRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":    date,
		"records": records,
	})
}

// Export writes the attendance sheet of ?date= as CSV.
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h.store == nil || h.enrollments == nil {
		respondError(w, http.StatusServiceUnavailable, "storage backend not available")
		return
	}
	date, ok := dateParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	rows, err := attendance.Sheet(r.Context(), h.enrollments, h.store, date)
	if err != nil {
		log.Printf("[attendance] export %s failed: %v", date, err)
		respondError(w, http.StatusInternalServerError, "failed to build attendance sheet")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="attendance_`+date+`.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := attendance.WriteCSV(w, rows); err != nil {
		log.Printf("[attendance] writing CSV failed: %v", err)
	}
}
