package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS job_mirror (
	organization_id TEXT NOT NULL,
	remote_job_id   TEXT NOT NULL,
	scheduled_date  TEXT NOT NULL DEFAULT '',
	scheduled_start TEXT NOT NULL DEFAULT '',
	scheduled_end   TEXT NOT NULL DEFAULT '',
	technician_id   TEXT NOT NULL DEFAULT '',
	technician_name TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT '',
	synced_at       TIMESTAMP NOT NULL,
	PRIMARY KEY (organization_id, remote_job_id)
)`

// Store persists the local job mirror in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the mirror database at the given path. WAL mode
// keeps reads available while the orchestrator reconciles.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate mirror schema: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStore wraps an existing database handle. Used by tests.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get loads the mirrored record for a job. Returns nil if no record exists.
func (s *Store) Get(ctx context.Context, organizationID, remoteJobID string) (*JobRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT organization_id, remote_job_id, scheduled_date, scheduled_start,
		       scheduled_end, technician_id, technician_name, status, synced_at
		FROM job_mirror
		WHERE organization_id = ? AND remote_job_id = ?`,
		organizationID, remoteJobID)

	var record JobRecord
	var status string
	err := row.Scan(
		&record.OrganizationID,
		&record.RemoteJobID,
		&record.ScheduledDate,
		&record.ScheduledStart,
		&record.ScheduledEnd,
		&record.TechnicianID,
		&record.TechnicianName,
		&status,
		&record.SyncedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job mirror: %w", err)
	}
	record.Status = JobStatus(status)
	return &record, nil
}

// Upsert writes the changed fields of one job into the mirror and stamps
// synced_at. Fields left nil in the update keep their existing mirrored
// value (or the column default on first insert).
func (s *Store) Upsert(ctx context.Context, update JobUpdate) error {
	if update.OrganizationID == "" || update.RemoteJobID == "" {
		return fmt.Errorf("job update requires organization_id and remote_job_id")
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_mirror (
			organization_id, remote_job_id, scheduled_date, scheduled_start,
			scheduled_end, technician_id, technician_name, status, synced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (organization_id, remote_job_id) DO UPDATE SET
			scheduled_date  = COALESCE(?, scheduled_date),
			scheduled_start = COALESCE(?, scheduled_start),
			scheduled_end   = COALESCE(?, scheduled_end),
			technician_id   = COALESCE(?, technician_id),
			technician_name = COALESCE(?, technician_name),
			status          = COALESCE(?, status),
			synced_at       = ?`,
		update.OrganizationID,
		update.RemoteJobID,
		stringOrEmpty(update.ScheduledDate),
		stringOrEmpty(update.ScheduledStart),
		stringOrEmpty(update.ScheduledEnd),
		stringOrEmpty(update.TechnicianID),
		stringOrEmpty(update.TechnicianName),
		statusOrEmpty(update.Status),
		now,
		update.ScheduledDate,
		update.ScheduledStart,
		update.ScheduledEnd,
		update.TechnicianID,
		update.TechnicianName,
		statusPtr(update.Status),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert job mirror: %w", err)
	}
	return nil
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func statusOrEmpty(v *JobStatus) string {
	if v == nil {
		return ""
	}
	return string(*v)
}

func statusPtr(v *JobStatus) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
