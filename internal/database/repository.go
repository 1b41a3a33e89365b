package database

import (
	"context"
	"time"
)

// EnrollmentReader provides read-only access to enrolled embeddings
type EnrollmentReader interface {
	// LoadEnrollments returns all enrolled embeddings of all identities
	LoadEnrollments(ctx context.Context) ([]EnrollmentRow, error)
	// ListIdentities returns one summary per enrolled identity, ordered by ID
	ListIdentities(ctx context.Context) ([]IdentitySummary, error)
}

// EnrollmentStore provides write access to enrolled embeddings
type EnrollmentStore interface {
	EnrollmentReader

	// SaveEnrollment replaces all embeddings of an identity with rows
	SaveEnrollment(ctx context.Context, identityID, displayName string, rows []EnrollmentRow) error
	// DeleteIdentity removes all embeddings of an identity, returns false if none existed
	DeleteIdentity(ctx context.Context, identityID string) (bool, error)
}

// AttendanceStore records and lists attendance events
type AttendanceStore interface {
	// RecordAttendance writes an event unless the identity already has one for
	// the day of ts. Both outcomes are successes.
	RecordAttendance(ctx context.Context, identityID, displayName string, ts time.Time) (RecordStatus, error)
	// ListAttendance returns the events of one day (YYYY-MM-DD), ordered by time
	ListAttendance(ctx context.Context, date string) ([]AttendanceRecord, error)
}
