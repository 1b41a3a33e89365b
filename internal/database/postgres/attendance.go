package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceRepository stores attendance events, at most one per identity per day.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// RecordAttendance inserts an event unless one already exists for the day.
func (r *AttendanceRepository) RecordAttendance(
	ctx context.Context, identityID, displayName string, ts time.Time,
) (database.RecordStatus, error) {
	res, err := r.pool.Exec(ctx, `
		INSERT INTO attendance_logs (identity_id, display_name, attendance_date, recorded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity_id, attendance_date) DO NOTHING
	`, identityID, displayName, database.AttendanceDate(ts), ts)
	if err != nil {
		return "", fmt.Errorf("insert attendance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return database.StatusAlreadyRecorded, nil
	}
	return database.StatusRecorded, nil
}

// ListAttendance returns the events of one day ordered by time.
func (r *AttendanceRepository) ListAttendance(ctx context.Context, date string) ([]database.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, identity_id, display_name, to_char(attendance_date, 'YYYY-MM-DD'), recorded_at
		FROM attendance_logs
		WHERE attendance_date = $1
		ORDER BY recorded_at, id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var result []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.IdentityID, &rec.DisplayName, &rec.Date, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return result, nil
}
