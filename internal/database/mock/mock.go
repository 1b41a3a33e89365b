// Package mock provides in-memory implementations of database interfaces for
// testing and for running without a database.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MockEnrollmentStore is an in-memory implementation of database.EnrollmentStore
type MockEnrollmentStore struct {
	mu   sync.RWMutex
	rows []database.EnrollmentRow

	// Error injection
	LoadError   error
	ListError   error
	SaveError   error
	DeleteError error
}

// NewMockEnrollmentStore creates a new empty enrollment store
func NewMockEnrollmentStore() *MockEnrollmentStore {
	return &MockEnrollmentStore{}
}

// AddEmbedding appends a single embedding, replacing an existing one for the same angle
func (m *MockEnrollmentStore) AddEmbedding(identityID, displayName, angle string, vector []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].IdentityID == identityID && m.rows[i].Angle == angle {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			break
		}
	}
	m.rows = append(m.rows, database.EnrollmentRow{
		IdentityID:  identityID,
		DisplayName: displayName,
		Angle:       angle,
		Embedding:   database.EncodeEmbedding(vector),
		CreatedAt:   time.Now(),
	})
}

// LoadEnrollments returns a copy of all stored embeddings in insertion order
func (m *MockEnrollmentStore) LoadEnrollments(ctx context.Context) ([]database.EnrollmentRow, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.EnrollmentRow, len(m.rows))
	copy(result, m.rows)
	return result, nil
}

// ListIdentities returns one summary per identity, ordered by ID
func (m *MockEnrollmentStore) ListIdentities(ctx context.Context) ([]database.IdentitySummary, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	byID := make(map[string]*database.IdentitySummary)
	var ids []string
	for _, row := range m.rows {
		s, ok := byID[row.IdentityID]
		if !ok {
			s = &database.IdentitySummary{
				IdentityID:  row.IdentityID,
				DisplayName: row.DisplayName,
				EnrolledAt:  row.CreatedAt,
			}
			byID[row.IdentityID] = s
			ids = append(ids, row.IdentityID)
		}
		s.Angles = append(s.Angles, row.Angle)
		if row.CreatedAt.Before(s.EnrolledAt) {
			s.EnrolledAt = row.CreatedAt
		}
	}
	sort.Strings(ids)

	result := make([]database.IdentitySummary, 0, len(ids))
	for _, id := range ids {
		s := byID[id]
		sort.Strings(s.Angles)
		result = append(result, *s)
	}
	return result, nil
}

// SaveEnrollment replaces all embeddings of an identity
func (m *MockEnrollmentStore) SaveEnrollment(
	ctx context.Context, identityID, displayName string, rows []database.EnrollmentRow,
) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	if identityID == "" {
		return fmt.Errorf("identity ID is required")
	}
	for _, row := range rows {
		if _, err := database.DecodeEmbedding(row.Embedding); err != nil {
			return fmt.Errorf("angle %s: %w", row.Angle, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, row := range m.rows {
		if row.IdentityID != identityID {
			kept = append(kept, row)
		}
	}
	m.rows = kept

	now := time.Now()
	for _, row := range rows {
		row.IdentityID = identityID
		row.DisplayName = displayName
		row.CreatedAt = now
		m.rows = append(m.rows, row)
	}
	return nil
}

// DeleteIdentity removes all embeddings of an identity
func (m *MockEnrollmentStore) DeleteIdentity(ctx context.Context, identityID string) (bool, error) {
	if m.DeleteError != nil {
		return false, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	found := false
	for _, row := range m.rows {
		if row.IdentityID == identityID {
			found = true
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return found, nil
}

// MockAttendanceStore is an in-memory implementation of database.AttendanceStore
type MockAttendanceStore struct {
	mu      sync.Mutex
	records []database.AttendanceRecord
	nextID  int64
	calls   int

	// Error injection
	RecordError error
	ListError   error
}

// NewMockAttendanceStore creates a new empty attendance store
func NewMockAttendanceStore() *MockAttendanceStore {
	return &MockAttendanceStore{nextID: 1}
}

// RecordAttendance stores an event unless the identity already has one that day
func (m *MockAttendanceStore) RecordAttendance(
	ctx context.Context, identityID, displayName string, ts time.Time,
) (database.RecordStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.RecordError != nil {
		return "", m.RecordError
	}

	date := database.AttendanceDate(ts)
	for _, rec := range m.records {
		if rec.IdentityID == identityID && rec.Date == date {
			return database.StatusAlreadyRecorded, nil
		}
	}
	m.records = append(m.records, database.AttendanceRecord{
		ID:          m.nextID,
		IdentityID:  identityID,
		DisplayName: displayName,
		Date:        date,
		Timestamp:   ts,
	})
	m.nextID++
	return database.StatusRecorded, nil
}

// ListAttendance returns the events of one day ordered by time
func (m *MockAttendanceStore) ListAttendance(ctx context.Context, date string) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []database.AttendanceRecord
	for _, rec := range m.records {
		if rec.Date == date {
			result = append(result, rec)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// Records returns a copy of all stored events
func (m *MockAttendanceStore) Records() []database.AttendanceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]database.AttendanceRecord, len(m.records))
	copy(result, m.records)
	return result
}

// Calls returns how many times RecordAttendance was invoked
func (m *MockAttendanceStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Register installs fresh in-memory stores as the active storage backend and
// returns them.
func Register() (*MockEnrollmentStore, *MockAttendanceStore) {
	enrollments := NewMockEnrollmentStore()
	attendance := NewMockAttendanceStore()
	database.RegisterBackend(database.BackendMemory,
		func() database.EnrollmentStore { return enrollments },
		func() database.AttendanceStore { return attendance },
	)
	return enrollments, attendance
}
