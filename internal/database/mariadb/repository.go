package mariadb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Repository implements the enrollment and attendance stores on MariaDB/MySQL.
// Embeddings are stored as little-endian float32 BLOBs.
type Repository struct {
	pool *Pool
}

// NewRepository creates a new MariaDB repository.
func NewRepository(pool *Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadEnrollments returns all enrolled embeddings ordered by insertion.
func (r *Repository) LoadEnrollments(ctx context.Context) ([]database.EnrollmentRow, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT identity_id, display_name, angle, embedding, created_at
		FROM user_embeddings
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	var result []database.EnrollmentRow
	for rows.Next() {
		var row database.EnrollmentRow
		if err := rows.Scan(&row.IdentityID, &row.DisplayName, &row.Angle, &row.Embedding, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return result, nil
}

// ListIdentities returns one summary per enrolled identity.
func (r *Repository) ListIdentities(ctx context.Context) ([]database.IdentitySummary, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT identity_id, MIN(display_name), GROUP_CONCAT(angle ORDER BY angle SEPARATOR ','), MIN(created_at)
		FROM user_embeddings
		GROUP BY identity_id
		ORDER BY identity_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var result []database.IdentitySummary
	for rows.Next() {
		var s database.IdentitySummary
		var angles string
		if err := rows.Scan(&s.IdentityID, &s.DisplayName, &angles, &s.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		s.Angles = strings.Split(angles, ",")
		sort.Strings(s.Angles)
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return result, nil
}

// SaveEnrollment replaces all embeddings of an identity in one transaction.
func (r *Repository) SaveEnrollment(
	ctx context.Context, identityID, displayName string, rows []database.EnrollmentRow,
) error {
	if identityID == "" {
		return errors.New("identity ID is required")
	}

	tx, err := r.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_embeddings WHERE identity_id = ?", identityID); err != nil {
		return fmt.Errorf("delete old enrollment: %w", err)
	}

	now := time.Now()
	for _, row := range rows {
		if _, err := database.DecodeEmbedding(row.Embedding); err != nil {
			return fmt.Errorf("angle %s: %w", row.Angle, err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_embeddings (identity_id, display_name, angle, embedding, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, identityID, displayName, row.Angle, row.Embedding, now)
		if err != nil {
			return fmt.Errorf("insert enrollment %s: %w", row.Angle, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment: %w", err)
	}
	return nil
}

// DeleteIdentity removes all embeddings of an identity.
func (r *Repository) DeleteIdentity(ctx context.Context, identityID string) (bool, error) {
	res, err := r.pool.db.ExecContext(ctx, "DELETE FROM user_embeddings WHERE identity_id = ?", identityID)
	if err != nil {
		return false, fmt.Errorf("delete identity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// RecordAttendance inserts an event unless one already exists for the day.
func (r *Repository) RecordAttendance(
	ctx context.Context, identityID, displayName string, ts time.Time,
) (database.RecordStatus, error) {
	res, err := r.pool.db.ExecContext(ctx, `
		INSERT IGNORE INTO attendance_logs (identity_id, display_name, attendance_date, recorded_at)
		VALUES (?, ?, ?, ?)
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
func (r *Repository) ListAttendance(ctx context.Context, date string) ([]database.AttendanceRecord, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, identity_id, display_name, DATE_FORMAT(attendance_date, '%Y-%m-%d'), recorded_at
		FROM attendance_logs
		WHERE attendance_date = ?
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
