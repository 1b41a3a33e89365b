package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// EnrollmentRepository stores enrolled embeddings as pgvector columns.
type EnrollmentRepository struct {
	pool *Pool
}

// NewEnrollmentRepository creates a new PostgreSQL enrollment repository.
func NewEnrollmentRepository(pool *Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// LoadEnrollments returns all enrolled embeddings ordered by insertion.
func (r *EnrollmentRepository) LoadEnrollments(ctx context.Context) ([]database.EnrollmentRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT identity_id, display_name, angle, embedding, created_at
		FROM enrollments
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	var result []database.EnrollmentRow
	for rows.Next() {
		var row database.EnrollmentRow
		var vec pgvector.Vector
		if err := rows.Scan(&row.IdentityID, &row.DisplayName, &row.Angle, &vec, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		row.Embedding = database.EncodeEmbedding(vec.Slice())
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return result, nil
}

// ListIdentities returns one summary per enrolled identity.
func (r *EnrollmentRepository) ListIdentities(ctx context.Context) ([]database.IdentitySummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT identity_id, MIN(display_name), array_agg(angle ORDER BY angle), MIN(created_at)
		FROM enrollments
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
		var angles []string
		if err := rows.Scan(&s.IdentityID, &s.DisplayName, pq.Array(&angles), &s.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		s.Angles = angles
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return result, nil
}

// SaveEnrollment replaces all embeddings of an identity in one transaction.
func (r *EnrollmentRepository) SaveEnrollment(
	ctx context.Context, identityID, displayName string, rows []database.EnrollmentRow,
) error {
	if identityID == "" {
		return errors.New("identity ID is required")
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM enrollments WHERE identity_id = $1", identityID); err != nil {
		return fmt.Errorf("delete old enrollment: %w", err)
	}

	now := time.Now()
	for _, row := range rows {
		vec, err := database.DecodeEmbedding(row.Embedding)
		if err != nil {
			return fmt.Errorf("angle %s: %w", row.Angle, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO enrollments (identity_id, display_name, angle, embedding, dim, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, identityID, displayName, row.Angle, pgvector.NewVector(vec), len(vec), now)
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
func (r *EnrollmentRepository) DeleteIdentity(ctx context.Context, identityID string) (bool, error) {
	res, err := r.pool.Exec(ctx, "DELETE FROM enrollments WHERE identity_id = $1", identityID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
