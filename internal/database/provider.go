package database

import (
	"context"
	"errors"
	"fmt"
)

// Supported backend names.
const (
	BackendPostgres = "postgres"
	BackendMariaDB  = "mariadb"
	BackendMemory   = "memory"
)

var (
	backendEnrollmentStore func() EnrollmentStore
	backendAttendanceStore func() AttendanceStore
	backendName            string
	backendInitialized     bool
)

// RegisterBackend registers the repository constructors of a storage backend.
// This is called by the backend packages to avoid import cycles.
func RegisterBackend(name string, enrollments func() EnrollmentStore, attendance func() AttendanceStore) {
	backendEnrollmentStore = enrollments
	backendAttendanceStore = attendance
	backendName = name
	backendInitialized = true
}

// IsInitialized returns whether a storage backend has been registered.
func IsInitialized() bool {
	return backendInitialized
}

// BackendName returns the name of the registered backend.
func BackendName() string {
	return backendName
}

// GetEnrollmentStore returns the EnrollmentStore of the registered backend
func GetEnrollmentStore(ctx context.Context) (EnrollmentStore, error) {
	if !backendInitialized {
		return nil, errors.New("storage backend not initialized: DATABASE_URL is required")
	}
	if backendEnrollmentStore == nil {
		return nil, fmt.Errorf("%s enrollment store not registered", backendName)
	}
	return backendEnrollmentStore(), nil
}

// GetAttendanceStore returns the AttendanceStore of the registered backend
func GetAttendanceStore(ctx context.Context) (AttendanceStore, error) {
	if !backendInitialized {
		return nil, errors.New("storage backend not initialized: DATABASE_URL is required")
	}
	if backendAttendanceStore == nil {
		return nil, fmt.Errorf("%s attendance store not registered", backendName)
	}
	return backendAttendanceStore(), nil
}
