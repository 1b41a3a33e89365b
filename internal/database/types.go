package database

import (
	"time"
)

// DateLayout is the format of attendance dates.
const DateLayout = "2006-01-02"

// EnrollmentRow is one stored reference embedding of an identity.
// Embedding holds little-endian float32 values.
type EnrollmentRow struct {
	IdentityID  string
	DisplayName string
	Angle       string
	Embedding   []byte
	CreatedAt   time.Time
}

// IdentitySummary describes an enrolled identity.
type IdentitySummary struct {
	IdentityID  string    `json:"identity_id"`
	DisplayName string    `json:"display_name"`
	Angles      []string  `json:"angles"`
	EnrolledAt  time.Time `json:"enrolled_at"`
}

// AttendanceRecord is a stored attendance event.
type AttendanceRecord struct {
	ID          int64     `json:"id"`
	IdentityID  string    `json:"identity_id"`
	DisplayName string    `json:"display_name"`
	Date        string    `json:"date"`
	Timestamp   time.Time `json:"timestamp"`
}

// RecordStatus is the result of a successful attendance write.
type RecordStatus string

const (
	StatusRecorded        RecordStatus = "recorded"
	StatusAlreadyRecorded RecordStatus = "already_recorded"
)

// AttendanceDate returns the day an event at ts belongs to, in ts's location.
func AttendanceDate(ts time.Time) string {
	return ts.Format(DateLayout)
}
