package postgres

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationLockKey is the advisory lock held while migrating, so a server and
// a CLI command starting against the same database do not race.
const migrationLockKey int64 = 7_264_121_001

// ErrMigrationChanged is returned when an applied migration file was edited
// after it ran.
var ErrMigrationChanged = errors.New("applied migration was modified")

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS attendance_schema_versions (
		version    TEXT        PRIMARY KEY,
		checksum   CHAR(64)    NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

type migration struct {
	version  string
	sql      string
	checksum string
}

// loadMigrations reads the embedded SQL files in version order.
func loadMigrations() ([]migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var out []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		sum := sha256.Sum256(content)
		out = append(out, migration{
			version:  strings.TrimSuffix(e.Name(), ".sql"),
			sql:      string(content),
			checksum: hex.EncodeToString(sum[:]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// pendingMigrations returns the migrations missing from applied, which maps
// version to checksum. An applied version whose checksum no longer matches
// its file fails with ErrMigrationChanged.
func pendingMigrations(all []migration, applied map[string]string) ([]migration, error) {
	var pending []migration
	for _, m := range all {
		sum, ok := applied[m.version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if sum != m.checksum {
			return nil, fmt.Errorf("%w: %s", ErrMigrationChanged, m.version)
		}
	}
	return pending, nil
}

// Migrate brings the schema up to date. It runs on startup of every command
// that opens the database.
func (p *Pool) Migrate(ctx context.Context) error {
	all, err := loadMigrations()
	if err != nil {
		return err
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	// Session-level advisory locks belong to one connection.
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockKey) //nolint:errcheck // released with the connection anyway

	if _, err := conn.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("create schema versions table: %w", err)
	}

	applied := make(map[string]string)
	rows, err := conn.QueryContext(ctx, "SELECT version, checksum FROM attendance_schema_versions")
	if err != nil {
		return fmt.Errorf("query schema versions: %w", err)
	}
	for rows.Next() {
		var version, sum string
		if err := rows.Scan(&version, &sum); err != nil {
			rows.Close()
			return fmt.Errorf("scan schema version: %w", err)
		}
		applied[version] = sum
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate schema versions: %w", err)
	}

	pending, err := pendingMigrations(all, applied)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		log.Printf("[postgres] schema up to date at %s", all[len(all)-1].version)
		return nil
	}

	for _, m := range pending {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply schema %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO attendance_schema_versions (version, checksum) VALUES ($1, $2)",
			m.version, m.checksum); err != nil {
			tx.Rollback()
			return fmt.Errorf("record schema %s: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit schema %s: %w", m.version, err)
		}
		log.Printf("[postgres] schema %s applied (%s)", m.version, m.checksum[:12])
	}
	return nil
}

// SchemaVersions returns the applied schema versions in order.
func (p *Pool) SchemaVersions(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT version FROM attendance_schema_versions ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("query schema versions: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan schema version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema versions: %w", err)
	}
	return versions, nil
}
