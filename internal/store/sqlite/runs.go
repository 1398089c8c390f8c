package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tableread/internal/store"
)

func (c *Client) CreateRun(ctx context.Context, run store.RunRecord) error {
	reviewers, err := json.Marshal(run.Reviewers)
	if err != nil {
		return fmt.Errorf("marshaling reviewers: %w", err)
	}

	query := `
	INSERT INTO runs (id, title, reviewers, scene_count, started_at)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err = c.db.ExecContext(ctx, query,
		run.ID, run.Title, reviewers, run.SceneCount, run.StartedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

func (c *Client) FinishRun(ctx context.Context, runID string, finishedAt time.Time, reportJSON []byte) error {
	query := `UPDATE runs SET finished_at = ?, report = ? WHERE id = ?`
	res, err := c.db.ExecContext(ctx, query, finishedAt.UTC().Format(time.RFC3339), string(reportJSON), runID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrRunNotFound
	}
	return nil
}

func (c *Client) GetRun(ctx context.Context, runID string) (*store.RunRecord, error) {
	query := `
	SELECT id, title, reviewers, scene_count, started_at, finished_at, report
	FROM runs WHERE id = ?
	`
	run, err := scanRun(c.db.QueryRowContext(ctx, query, runID))
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", runID, err)
	}
	return run, nil
}

func (c *Client) LatestRun(ctx context.Context) (*store.RunRecord, error) {
	query := `
	SELECT id, title, reviewers, scene_count, started_at, finished_at, report
	FROM runs ORDER BY started_at DESC LIMIT 1
	`
	run, err := scanRun(c.db.QueryRowContext(ctx, query))
	if err != nil {
		return nil, fmt.Errorf("getting latest run: %w", err)
	}
	return run, nil
}

func (c *Client) ListRuns(ctx context.Context) ([]store.RunRecord, error) {
	query := `
	SELECT id, title, reviewers, scene_count, started_at, finished_at, report
	FROM runs ORDER BY started_at DESC
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []store.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*store.RunRecord, error) {
	var run store.RunRecord
	var reviewers, started, finished, report string
	if err := row.Scan(&run.ID, &run.Title, &reviewers, &run.SceneCount, &started, &finished, &report); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrRunNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(reviewers), &run.Reviewers); err != nil {
		return nil, fmt.Errorf("unmarshaling reviewers: %w", err)
	}
	var err error
	if run.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if finished != "" {
		if run.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
	}
	if report != "" {
		run.ReportJSON = []byte(report)
	}
	return &run, nil
}
