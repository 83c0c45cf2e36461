package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domainerrors "github.com/listenupapp/liveplan/internal/errors"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

// RunStatus constants.
const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunDegraded  RunStatus = "degraded"
	RunFailed    RunStatus = "failed"
)

// Run is one pipeline invocation.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Status       RunStatus
	Seed         uint64
	FallbackMode string
	// Sample is true when the run used the demo dataset.
	Sample       bool
	Sessions     int
	Degradations int
	ReportPath   string
	BundlePath   string
	BundleSHA256 string
	Error        string
}

const runColumns = `id, started_at, finished_at, status, seed, fallback_mode, sample,
	sessions, degradations, report_path, bundle_path, bundle_sha256, error`

// CreateRun records the start of a run.
func (s *Store) CreateRun(ctx context.Context, r *Run) error {
	if r.Status == "" {
		r.Status = RunRunning
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		formatTime(r.StartedAt),
		nullTimeString(r.FinishedAt),
		string(r.Status),
		int64(r.Seed), //nolint:gosec // seeds are stored bit for bit
		r.FallbackMode,
		boolToInt(r.Sample),
		r.Sessions,
		r.Degradations,
		nullString(r.ReportPath),
		nullString(r.BundlePath),
		nullString(r.BundleSHA256),
		nullString(r.Error),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// FinishRun records the final state of a run.
func (s *Store) FinishRun(ctx context.Context, r *Run) error {
	if r.FinishedAt == nil {
		now := time.Now().UTC()
		r.FinishedAt = &now
	}
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET
			finished_at = ?, status = ?, sessions = ?, degradations = ?,
			report_path = ?, bundle_path = ?, bundle_sha256 = ?, error = ?
		WHERE id = ?`,
		nullTimeString(r.FinishedAt),
		string(r.Status),
		r.Sessions,
		r.Degradations,
		nullString(r.ReportPath),
		nullString(r.BundlePath),
		nullString(r.BundleSHA256),
		nullString(r.Error),
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainerrors.NotFoundf("run %s", r.ID)
	}
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("run %s", id)
	}
	return r, err
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and everything recorded for it.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainerrors.NotFoundf("run %s", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		r          Run
		startedAt  string
		finishedAt sql.NullString
		status     string
		seed       int64
		sample     int
		reportPath sql.NullString
		bundlePath sql.NullString
		bundleSum  sql.NullString
		runErr     sql.NullString
	)
	err := sc.Scan(&r.ID, &startedAt, &finishedAt, &status, &seed, &r.FallbackMode, &sample,
		&r.Sessions, &r.Degradations, &reportPath, &bundlePath, &bundleSum, &runErr)
	if err != nil {
		return nil, err
	}

	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if r.FinishedAt, err = parseNullableTime(finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	r.Status = RunStatus(status)
	r.Seed = uint64(seed) //nolint:gosec // seeds are stored bit for bit
	r.Sample = sample != 0
	r.ReportPath = reportPath.String
	r.BundlePath = bundlePath.String
	r.BundleSHA256 = bundleSum.String
	r.Error = runErr.String
	return &r, nil
}
